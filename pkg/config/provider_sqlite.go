package config

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"

	"github.com/chrissnell/cplcurtain/pkg/migrate"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// SQLiteProvider implements ConfigProvider for SQLite database configuration
type SQLiteProvider struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteProvider creates a new SQLite configuration provider
func NewSQLiteProvider(dbPath string) (*SQLiteProvider, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	return &SQLiteProvider{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// InitSchema applies any pending schema migrations
func (s *SQLiteProvider) InitSchema() error {
	sub, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return err
	}
	if _, err := migrate.NewMigrator(s.db, migrate.NewFSProvider(sub, "schema_migrations")).MigrateUp(); err != nil {
		return fmt.Errorf("failed to migrate configuration schema: %w", err)
	}
	return nil
}

// DB returns the underlying database handle
func (s *SQLiteProvider) DB() *sql.DB {
	return s.db
}

// LoadConfig loads the complete configuration from SQLite database
func (s *SQLiteProvider) LoadConfig() (*ConfigData, error) {
	config := &ConfigData{}

	session, err := s.GetSessionConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load session config: %w", err)
	}
	config.Session = *session

	sampler, err := s.GetSamplerConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load sampler config: %w", err)
	}
	config.Sampler = *sampler

	optics, err := s.getOpticsConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load optics config: %w", err)
	}
	config.Optics = *optics

	curtain, err := s.getCurtainConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load curtain config: %w", err)
	}
	config.Curtain = *curtain

	storage, err := s.GetStorageConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load storage config: %w", err)
	}
	config.Storage = *storage

	config.REST, err = s.getRESTConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load REST config: %w", err)
	}

	return config, nil
}

// GetSessionConfig returns the session settings, catalog and short names
func (s *SQLiteProvider) GetSessionConfig() (*SessionData, error) {
	session := &SessionData{}

	var binWidth sql.NullString
	var verbose sql.NullBool
	var undef sql.NullFloat64
	err := s.db.QueryRow(`SELECT bin_width, verbose, undef FROM session_config WHERE id = 1`).
		Scan(&binWidth, &verbose, &undef)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to query session config: %w", err)
	}
	session.BinWidth = binWidth.String
	session.Verbose = verbose.Bool
	session.Undef = undef.Float64

	rows, err := s.db.Query(`SELECT group_name, dataset FROM catalog ORDER BY position, group_name, dataset`)
	if err != nil {
		return nil, fmt.Errorf("failed to query catalog: %w", err)
	}
	defer rows.Close()

	index := make(map[string]int)
	for rows.Next() {
		var group, dataset string
		if err := rows.Scan(&group, &dataset); err != nil {
			return nil, fmt.Errorf("failed to scan catalog row: %w", err)
		}
		i, ok := index[group]
		if !ok {
			i = len(session.Catalog)
			index[group] = i
			session.Catalog = append(session.Catalog, CatalogGroupData{Group: group})
		}
		session.Catalog[i].Datasets = append(session.Catalog[i].Datasets, dataset)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	nameRows, err := s.db.Query(`SELECT name, alias FROM short_names`)
	if err != nil {
		return nil, fmt.Errorf("failed to query short names: %w", err)
	}
	defer nameRows.Close()

	for nameRows.Next() {
		var name, alias string
		if err := nameRows.Scan(&name, &alias); err != nil {
			return nil, fmt.Errorf("failed to scan short name row: %w", err)
		}
		if session.ShortNames == nil {
			session.ShortNames = make(map[string]string)
		}
		session.ShortNames[name] = alias
	}

	return session, nameRows.Err()
}

// GetSamplerConfig returns the model sampler settings
func (s *SQLiteProvider) GetSamplerConfig() (*SamplerData, error) {
	var endpoint, timeout, cacheTTL, asm, aer, levels, variables sql.NullString
	var cacheSize sql.NullInt64

	err := s.db.QueryRow(`
		SELECT endpoint, timeout, cache_size, cache_ttl,
		       asm_collection, aer_collection, levels, variables
		FROM sampler_config WHERE id = 1`).
		Scan(&endpoint, &timeout, &cacheSize, &cacheTTL, &asm, &aer, &levels, &variables)
	if errors.Is(err, sql.ErrNoRows) {
		return &SamplerData{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query sampler config: %w", err)
	}

	return &SamplerData{
		Endpoint:      endpoint.String,
		Timeout:       timeout.String,
		CacheSize:     int(cacheSize.Int64),
		CacheTTL:      cacheTTL.String,
		AsmCollection: asm.String,
		AerCollection: aer.String,
		Levels:        levels.String,
		Variables:     splitList(variables.String),
	}, nil
}

func (s *SQLiteProvider) getOpticsConfig() (*OpticsData, error) {
	var enabled sql.NullBool
	var endpoint, channels, species sql.NullString

	err := s.db.QueryRow(`SELECT enabled, endpoint, channels, species FROM optics_config WHERE id = 1`).
		Scan(&enabled, &endpoint, &channels, &species)
	if errors.Is(err, sql.ErrNoRows) {
		return &OpticsData{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query optics config: %w", err)
	}

	optics := &OpticsData{
		Enabled:  enabled.Bool,
		Endpoint: endpoint.String,
		Species:  splitList(species.String),
	}
	for _, c := range splitList(channels.String) {
		nm, err := strconv.ParseFloat(c, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid optics channel %q: %w", c, err)
		}
		optics.Channels = append(optics.Channels, nm)
	}
	return optics, nil
}

func (s *SQLiteProvider) getCurtainConfig() (*CurtainData, error) {
	var field, title sql.NullString
	var scale, vmin, vmax sql.NullFloat64
	var abs, log, lower sql.NullBool

	err := s.db.QueryRow(`
		SELECT field, title, scale, abs, vmin, vmax, log, lower_half
		FROM curtain_config WHERE id = 1`).
		Scan(&field, &title, &scale, &abs, &vmin, &vmax, &log, &lower)
	if errors.Is(err, sql.ErrNoRows) {
		return &CurtainData{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query curtain config: %w", err)
	}

	curtain := &CurtainData{
		Field: field.String,
		Title: title.String,
		Scale: scale.Float64,
		Abs:   abs.Bool,
		Log:   log.Bool,
		Lower: lower.Bool,
	}
	if vmin.Valid {
		curtain.VMin = &vmin.Float64
	}
	if vmax.Valid {
		curtain.VMax = &vmax.Float64
	}
	return curtain, nil
}

// GetStorageConfig returns storage configuration from the database
func (s *SQLiteProvider) GetStorageConfig() (*StorageData, error) {
	var conn sql.NullString
	err := s.db.QueryRow(`SELECT timescale_connection_string FROM storage_config WHERE id = 1`).Scan(&conn)
	if errors.Is(err, sql.ErrNoRows) {
		return &StorageData{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query storage config: %w", err)
	}

	storage := &StorageData{}
	if conn.Valid && conn.String != "" {
		storage.TimescaleDB = &TimescaleDBData{ConnectionString: conn.String}
	}
	return storage, nil
}

func (s *SQLiteProvider) getRESTConfig() (*RESTServerData, error) {
	var addr sql.NullString
	var port sql.NullInt64
	err := s.db.QueryRow(`SELECT listen_addr, port FROM rest_config WHERE id = 1`).Scan(&addr, &port)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query REST config: %w", err)
	}
	return &RESTServerData{ListenAddr: addr.String, Port: int(port.Int64)}, nil
}

// SaveConfig replaces the stored configuration with config
func (s *SQLiteProvider) SaveConfig(config *ConfigData) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"session_config", "catalog", "short_names", "sampler_config",
		"optics_config", "curtain_config", "storage_config", "rest_config"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	sess := config.Session
	if _, err := tx.Exec(`INSERT INTO session_config (id, bin_width, verbose, undef) VALUES (1, ?, ?, ?)`,
		nullString(sess.BinWidth), sess.Verbose, nullFloat(sess.Undef)); err != nil {
		return fmt.Errorf("failed to insert session config: %w", err)
	}

	position := 0
	for _, g := range sess.Catalog {
		for _, ds := range g.Datasets {
			if _, err := tx.Exec(`INSERT INTO catalog (group_name, dataset, position) VALUES (?, ?, ?)`,
				g.Group, ds, position); err != nil {
				return fmt.Errorf("failed to insert catalog entry %s/%s: %w", g.Group, ds, err)
			}
			position++
		}
	}

	for name, alias := range sess.ShortNames {
		if _, err := tx.Exec(`INSERT INTO short_names (name, alias) VALUES (?, ?)`, name, alias); err != nil {
			return fmt.Errorf("failed to insert short name %s: %w", name, err)
		}
	}

	sc := config.Sampler
	if _, err := tx.Exec(`
		INSERT INTO sampler_config (id, endpoint, timeout, cache_size, cache_ttl,
			asm_collection, aer_collection, levels, variables)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nullString(sc.Endpoint), nullString(sc.Timeout), sc.CacheSize, nullString(sc.CacheTTL),
		nullString(sc.AsmCollection), nullString(sc.AerCollection), nullString(sc.Levels),
		nullString(strings.Join(sc.Variables, ","))); err != nil {
		return fmt.Errorf("failed to insert sampler config: %w", err)
	}

	oc := config.Optics
	channels := make([]string, len(oc.Channels))
	for i, c := range oc.Channels {
		channels[i] = strconv.FormatFloat(c, 'g', -1, 64)
	}
	if _, err := tx.Exec(`INSERT INTO optics_config (id, enabled, endpoint, channels, species) VALUES (1, ?, ?, ?, ?)`,
		oc.Enabled, nullString(oc.Endpoint), nullString(strings.Join(channels, ",")),
		nullString(strings.Join(oc.Species, ","))); err != nil {
		return fmt.Errorf("failed to insert optics config: %w", err)
	}

	cc := config.Curtain
	if _, err := tx.Exec(`
		INSERT INTO curtain_config (id, field, title, scale, abs, vmin, vmax, log, lower_half)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nullString(cc.Field), nullString(cc.Title), nullFloat(cc.Scale), cc.Abs,
		cc.VMin, cc.VMax, cc.Log, cc.Lower); err != nil {
		return fmt.Errorf("failed to insert curtain config: %w", err)
	}

	if config.Storage.TimescaleDB != nil {
		if _, err := tx.Exec(`INSERT INTO storage_config (id, timescale_connection_string) VALUES (1, ?)`,
			config.Storage.TimescaleDB.ConnectionString); err != nil {
			return fmt.Errorf("failed to insert storage config: %w", err)
		}
	}

	if config.REST != nil {
		if _, err := tx.Exec(`INSERT INTO rest_config (id, listen_addr, port) VALUES (1, ?, ?)`,
			nullString(config.REST.ListenAddr), config.REST.Port); err != nil {
			return fmt.Errorf("failed to insert REST config: %w", err)
		}
	}

	return tx.Commit()
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

func nullFloat(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: v != 0}
}

// IsReadOnly returns false; the database may be edited in place
func (s *SQLiteProvider) IsReadOnly() bool {
	return false
}

// Close closes the database connection
func (s *SQLiteProvider) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
