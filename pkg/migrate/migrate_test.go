package migrate

import (
	"database/sql"
	"path/filepath"
	"testing"
	"testing/fstest"

	_ "modernc.org/sqlite"
)

func testMigrations() fstest.MapFS {
	return fstest.MapFS{
		"001_create_catalog.up.sql":   {Data: []byte(`CREATE TABLE catalog (group_name TEXT, dataset TEXT);`)},
		"001_create_catalog.down.sql": {Data: []byte(`DROP TABLE catalog;`)},
		"002_add_position.up.sql":     {Data: []byte(`ALTER TABLE catalog ADD COLUMN position INTEGER DEFAULT 0;`)},
		"002_add_position.down.sql":   {Data: []byte(`ALTER TABLE catalog DROP COLUMN position;`)},
		"README.md":                   {Data: []byte("not a migration")},
	}
}

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "migrate.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestGetMigrations(t *testing.T) {
	migrations, err := NewFSProvider(testMigrations(), "").GetMigrations()
	if err != nil {
		t.Fatalf("GetMigrations: %v", err)
	}
	if len(migrations) != 2 {
		t.Fatalf("got %d migrations, want 2", len(migrations))
	}
	if migrations[0].Version != 1 || migrations[0].Name != "create catalog" || migrations[0].Down == "" {
		t.Errorf("first migration = %+v", migrations[0])
	}
	if migrations[1].Version != 2 {
		t.Errorf("migrations out of order: %+v", migrations)
	}
}

func TestMigrateUpAndDown(t *testing.T) {
	db := openDB(t)
	m := NewMigrator(db, NewFSProvider(testMigrations(), "schema_migrations"))

	var applied int
	m.Logf = func(string, ...interface{}) { applied++ }

	version, err := m.MigrateUp()
	if err != nil {
		t.Fatalf("MigrateUp: %v", err)
	}
	if version != 2 || applied != 2 {
		t.Errorf("version %d after %d migrations, want 2 and 2", version, applied)
	}
	if _, err := db.Exec(`INSERT INTO catalog (group_name, dataset, position) VALUES ('profile', 'Altitudes', 1)`); err != nil {
		t.Fatalf("schema not applied: %v", err)
	}

	// A second run is a no-op.
	if version, err = m.MigrateUp(); err != nil || version != 2 || applied != 2 {
		t.Errorf("rerun: version %d, applied %d, err %v", version, applied, err)
	}

	if err := m.MigrateDown(0); err != nil {
		t.Fatalf("MigrateDown: %v", err)
	}
	if v, _ := m.CurrentVersion(); v != 0 {
		t.Errorf("version after rollback = %d, want 0", v)
	}
	if _, err := db.Exec(`SELECT 1 FROM catalog`); err == nil {
		t.Error("catalog table survived rollback")
	}

	if err := m.MigrateDown(0); err == nil {
		t.Error("expected an error rolling back below the current version")
	}
}

func TestMigrateUpFailure(t *testing.T) {
	db := openDB(t)
	fsys := fstest.MapFS{
		"001_ok.up.sql":     {Data: []byte(`CREATE TABLE a (x INTEGER);`)},
		"002_broken.up.sql": {Data: []byte(`CREATE TABLE;`)},
	}
	m := NewMigrator(db, NewFSProvider(fsys, ""))

	version, err := m.MigrateUp()
	if err == nil {
		t.Fatal("expected an error from the broken migration")
	}
	if version != 1 {
		t.Errorf("version = %d, want 1", version)
	}
	if v, _ := m.CurrentVersion(); v != 1 {
		t.Errorf("recorded version = %d, want 1", v)
	}
}
