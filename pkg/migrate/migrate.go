// Package migrate applies versioned SQL migrations to a database/sql handle.
package migrate

import (
	"database/sql"
	"fmt"
)

// Migration represents a single database migration
type Migration struct {
	Version int
	Name    string
	Up      string
	Down    string
}

// DB represents either a database connection or transaction
type DB interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// MigrationProvider defines how migrations are loaded and managed
type MigrationProvider interface {
	GetMigrations() ([]Migration, error)
	GetCurrentVersion(db *sql.DB) (int, error)
	SetVersion(db DB, version int) error
	CreateMigrationTable(db *sql.DB) error
}

// Migrator handles the execution of migrations
type Migrator struct {
	db       *sql.DB
	provider MigrationProvider

	// Logf, when set, is called once per applied migration.
	Logf func(template string, args ...interface{})
}

// NewMigrator creates a new migrator instance
func NewMigrator(db *sql.DB, provider MigrationProvider) *Migrator {
	return &Migrator{
		db:       db,
		provider: provider,
	}
}

// MigrateUp applies every pending migration in version order and returns the
// resulting version.
func (m *Migrator) MigrateUp() (int, error) {
	current, err := m.CurrentVersion()
	if err != nil {
		return 0, err
	}

	migrations, err := m.provider.GetMigrations()
	if err != nil {
		return current, fmt.Errorf("failed to get migrations: %w", err)
	}

	for _, mig := range migrations {
		if mig.Version <= current {
			continue
		}
		if err := m.apply(mig.Up, mig.Version, mig); err != nil {
			return current, fmt.Errorf("failed to apply migration %d: %w", mig.Version, err)
		}
		current = mig.Version
	}
	return current, nil
}

// MigrateDown reverts applied migrations above target, newest first
func (m *Migrator) MigrateDown(target int) error {
	current, err := m.CurrentVersion()
	if err != nil {
		return err
	}
	if target >= current {
		return fmt.Errorf("target version %d must be less than current version %d", target, current)
	}

	migrations, err := m.provider.GetMigrations()
	if err != nil {
		return fmt.Errorf("failed to get migrations: %w", err)
	}

	for i := len(migrations) - 1; i >= 0; i-- {
		mig := migrations[i]
		if mig.Version <= target || mig.Version > current {
			continue
		}
		if err := m.apply(mig.Down, mig.Version-1, mig); err != nil {
			return fmt.Errorf("failed to rollback migration %d: %w", mig.Version, err)
		}
	}
	return nil
}

// CurrentVersion returns the applied version, creating the tracking table
// if needed.
func (m *Migrator) CurrentVersion() (int, error) {
	if err := m.provider.CreateMigrationTable(m.db); err != nil {
		return 0, err
	}
	return m.provider.GetCurrentVersion(m.db)
}

func (m *Migrator) apply(stmt string, version int, mig Migration) error {
	if stmt == "" {
		return fmt.Errorf("migration %d (%s) has no SQL for this direction", mig.Version, mig.Name)
	}

	tx, err := m.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(stmt); err != nil {
		return fmt.Errorf("failed to execute migration SQL: %w", err)
	}
	if err := m.provider.SetVersion(tx, version); err != nil {
		return fmt.Errorf("failed to update migration version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration transaction: %w", err)
	}

	if m.Logf != nil {
		m.Logf("applied migration %d (%s), schema now at version %d", mig.Version, mig.Name, version)
	}
	return nil
}
