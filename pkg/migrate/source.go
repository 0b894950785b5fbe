package migrate

import (
	"database/sql"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Migration files are named 001_name.up.sql and 001_name.down.sql.
var migrationFile = regexp.MustCompile(`^(\d+)_(.+)\.(up|down)\.sql$`)

// FSProvider loads migrations from a filesystem, typically an embed.FS, and
// tracks the applied version in a SQLite table.
type FSProvider struct {
	fsys           fs.FS
	migrationTable string
}

// NewFSProvider creates a provider reading *.sql files at the root of fsys
func NewFSProvider(fsys fs.FS, migrationTable string) *FSProvider {
	if migrationTable == "" {
		migrationTable = "schema_migrations"
	}
	return &FSProvider{
		fsys:           fsys,
		migrationTable: migrationTable,
	}
}

// GetMigrations returns all migrations sorted by version
func (p *FSProvider) GetMigrations() ([]Migration, error) {
	entries, err := fs.ReadDir(p.fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations: %w", err)
	}

	byVersion := make(map[int]*Migration)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := migrationFile.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}

		version, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, fmt.Errorf("invalid version number in file %s: %w", e.Name(), err)
		}
		content, err := fs.ReadFile(p.fsys, e.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read migration file %s: %w", e.Name(), err)
		}

		mig, ok := byVersion[version]
		if !ok {
			mig = &Migration{Version: version, Name: strings.ReplaceAll(m[2], "_", " ")}
			byVersion[version] = mig
		}
		if m[3] == "up" {
			mig.Up = string(content)
		} else {
			mig.Down = string(content)
		}
	}

	migrations := make([]Migration, 0, len(byVersion))
	for _, mig := range byVersion {
		migrations = append(migrations, *mig)
	}
	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

// CreateMigrationTable creates the migration tracking table
func (p *FSProvider) CreateMigrationTable(db *sql.DB) error {
	_, err := db.Exec(fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`, p.migrationTable))
	if err != nil {
		return fmt.Errorf("failed to create migration table: %w", err)
	}
	return nil
}

// GetCurrentVersion returns the highest applied migration version
func (p *FSProvider) GetCurrentVersion(db *sql.DB) (int, error) {
	var version int
	err := db.QueryRow(fmt.Sprintf("SELECT COALESCE(MAX(version), 0) FROM %s", p.migrationTable)).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to get current version: %w", err)
	}
	return version, nil
}

// SetVersion records version as applied. Version 0 clears the table.
func (p *FSProvider) SetVersion(db DB, version int) error {
	var err error
	if version == 0 {
		_, err = db.Exec(fmt.Sprintf("DELETE FROM %s", p.migrationTable))
	} else {
		_, err = db.Exec(fmt.Sprintf(`DELETE FROM %s WHERE version > ?`, p.migrationTable), version)
		if err == nil {
			_, err = db.Exec(fmt.Sprintf(`INSERT OR REPLACE INTO %s (version, applied_at) VALUES (?, CURRENT_TIMESTAMP)`, p.migrationTable), version)
		}
	}
	if err != nil {
		return fmt.Errorf("failed to set version: %w", err)
	}
	return nil
}
