package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

const sampleYAML = `
session:
  bin-width: 6h
  verbose: true
  undef: 1.0e+15
  catalog:
    - group: geolocation
      datasets: [gps_lat, gps_lon, gps_alt, Midtime]
    - group: profile
      datasets: [Altitudes, ext_532nm_prfl]
  short-names:
    gps_lat: lat
    gps_lon: lon
sampler:
  endpoint: http://localhost:9090
  timeout: 30s
  cache-size: 64
  cache-ttl: 10m
  asm-collection: inst3_3d_asm_Nv
  aer-collection: inst3_3d_aer_Nv
  levels: "1,72"
optics:
  enabled: true
  channels: [532]
curtain:
  field: ext
  vmin: 0.001
  vmax: 0.5
  log: true
  lower: true
storage:
  timescaledb:
    connection-string: postgres://cpl@localhost/cpl
rest:
  listen-addr: 127.0.0.1
  port: 8150
log:
  file: /var/log/cplcurtain.log
  max-size-mb: 50
`

func TestParseYAML(t *testing.T) {
	c, err := parseYAML([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("parseYAML: %v", err)
	}

	bw, err := c.Session.BinWidthDuration()
	if err != nil || bw != 6*time.Hour {
		t.Errorf("bin width = %v, %v; want 6h", bw, err)
	}
	if !c.Session.Verbose || c.Session.Undef != 1e15 {
		t.Errorf("session = %+v", c.Session)
	}
	if len(c.Session.Catalog) != 2 || c.Session.Catalog[1].Datasets[1] != "ext_532nm_prfl" {
		t.Errorf("catalog = %+v", c.Session.Catalog)
	}
	if c.Session.ShortNames["gps_lon"] != "lon" {
		t.Errorf("short names = %v", c.Session.ShortNames)
	}
	if c.Sampler.CacheSize != 64 || c.Sampler.AerCollection != "inst3_3d_aer_Nv" {
		t.Errorf("sampler = %+v", c.Sampler)
	}
	if ttl, _ := c.Sampler.CacheTTLDuration(); ttl != 10*time.Minute {
		t.Errorf("cache ttl = %v, want 10m", ttl)
	}
	if !c.Optics.Enabled || len(c.Optics.Channels) != 1 || c.Optics.Channels[0] != 532 {
		t.Errorf("optics = %+v", c.Optics)
	}
	if c.Curtain.VMin == nil || *c.Curtain.VMin != 0.001 || !c.Curtain.Lower {
		t.Errorf("curtain = %+v", c.Curtain)
	}
	if c.Storage.TimescaleDB == nil || c.Storage.TimescaleDB.ConnectionString != "postgres://cpl@localhost/cpl" {
		t.Errorf("storage = %+v", c.Storage)
	}
	if c.REST == nil || c.REST.Port != 8150 {
		t.Errorf("rest = %+v", c.REST)
	}
	if c.Log.MaxSizeMB != 50 {
		t.Errorf("log = %+v", c.Log)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestYAMLProvider(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	p := NewYAMLProvider(path)
	defer p.Close()

	// Section getters load lazily.
	s, err := p.GetSamplerConfig()
	if err != nil {
		t.Fatalf("GetSamplerConfig: %v", err)
	}
	if s.Endpoint != "http://localhost:9090" {
		t.Errorf("endpoint = %q", s.Endpoint)
	}
	if !p.IsReadOnly() {
		t.Error("YAML provider should be read-only")
	}

	if _, err := NewYAMLProvider(filepath.Join(t.TempDir(), "missing.yaml")).LoadConfig(); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestValidate(t *testing.T) {
	one, two := 1.0, 2.0
	zero := 0.0

	tests := []struct {
		name    string
		config  ConfigData
		wantErr string
	}{
		{name: "defaults", config: ConfigData{}},
		{
			name:    "bad bin width",
			config:  ConfigData{Session: SessionData{BinWidth: "three hours"}},
			wantErr: "session.bin_width",
		},
		{
			name:    "negative bin width",
			config:  ConfigData{Session: SessionData{BinWidth: "-1h"}},
			wantErr: "must be positive",
		},
		{
			name:    "bad timeout",
			config:  ConfigData{Sampler: SamplerData{Timeout: "soon"}},
			wantErr: "sampler.timeout",
		},
		{
			name:    "empty catalog group",
			config:  ConfigData{Session: SessionData{Catalog: []CatalogGroupData{{Group: "profile"}}}},
			wantErr: "lists no datasets",
		},
		{
			name:    "optics without sampler",
			config:  ConfigData{Optics: OpticsData{Enabled: true}},
			wantErr: "sampler.endpoint",
		},
		{
			name:    "inverted range",
			config:  ConfigData{Curtain: CurtainData{VMin: &two, VMax: &one}},
			wantErr: "must be below",
		},
		{
			name:    "log with zero vmin",
			config:  ConfigData{Curtain: CurtainData{VMin: &zero, Log: true}},
			wantErr: "log scale",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want one containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestSQLiteProvider(t *testing.T) {
	p, err := NewSQLiteProvider(filepath.Join(t.TempDir(), "config.db"))
	if err != nil {
		t.Fatalf("NewSQLiteProvider: %v", err)
	}
	defer p.Close()

	if err := p.InitSchema(); err != nil {
		t.Fatalf("InitSchema: %v", err)
	}

	// An empty database yields an empty, valid configuration.
	c, err := p.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig on empty database: %v", err)
	}
	if c.REST != nil || c.Storage.TimescaleDB != nil || len(c.Session.Catalog) != 0 {
		t.Errorf("empty config = %+v", c)
	}

	stmts := []string{
		`INSERT INTO session_config (id, bin_width, verbose, undef) VALUES (1, '90m', 1, 1e15)`,
		`INSERT INTO catalog (group_name, dataset, position) VALUES
			('geolocation', 'gps_lat', 0), ('geolocation', 'gps_lon', 1),
			('profile', 'Altitudes', 2)`,
		`INSERT INTO short_names (name, alias) VALUES ('gps_lat', 'lat'), ('Altitudes', 'z')`,
		`INSERT INTO sampler_config (id, endpoint, cache_size, aer_collection, variables)
			VALUES (1, 'http://sampler', 32, 'aer', 'DU001, SS001,')`,
		`INSERT INTO optics_config (id, enabled, channels, species) VALUES (1, 1, '532,1064', 'DU001')`,
		`INSERT INTO curtain_config (id, field, vmin, log) VALUES (1, 'ext', 0.01, 1)`,
		`INSERT INTO storage_config (id, timescale_connection_string) VALUES (1, 'postgres://x')`,
		`INSERT INTO rest_config (id, listen_addr, port) VALUES (1, '0.0.0.0', 8150)`,
	}
	for _, stmt := range stmts {
		if _, err := p.DB().Exec(stmt); err != nil {
			t.Fatalf("%s: %v", stmt, err)
		}
	}

	c, err = p.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if bw, _ := c.Session.BinWidthDuration(); bw != 90*time.Minute {
		t.Errorf("bin width = %v, want 90m", bw)
	}
	if len(c.Session.Catalog) != 2 || c.Session.Catalog[0].Group != "geolocation" ||
		len(c.Session.Catalog[0].Datasets) != 2 || c.Session.Catalog[1].Datasets[0] != "Altitudes" {
		t.Errorf("catalog = %+v", c.Session.Catalog)
	}
	if c.Session.ShortNames["Altitudes"] != "z" {
		t.Errorf("short names = %v", c.Session.ShortNames)
	}
	if got := c.Sampler.Variables; len(got) != 2 || got[1] != "SS001" {
		t.Errorf("variables = %q", got)
	}
	if len(c.Optics.Channels) != 2 || c.Optics.Channels[1] != 1064 {
		t.Errorf("channels = %v", c.Optics.Channels)
	}
	if c.Curtain.VMin == nil || *c.Curtain.VMin != 0.01 || c.Curtain.VMax != nil || !c.Curtain.Log {
		t.Errorf("curtain = %+v", c.Curtain)
	}
	if c.Storage.TimescaleDB == nil || c.Storage.TimescaleDB.ConnectionString != "postgres://x" {
		t.Errorf("storage = %+v", c.Storage)
	}
	if c.REST == nil || c.REST.Port != 8150 {
		t.Errorf("rest = %+v", c.REST)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
	if p.IsReadOnly() {
		t.Error("SQLite provider should be writable")
	}
}

func TestSQLiteSaveConfigRoundTrip(t *testing.T) {
	want, err := parseYAML([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("parseYAML: %v", err)
	}

	p, err := NewSQLiteProvider(filepath.Join(t.TempDir(), "config.db"))
	if err != nil {
		t.Fatalf("NewSQLiteProvider: %v", err)
	}
	defer p.Close()
	if err := p.InitSchema(); err != nil {
		t.Fatalf("InitSchema: %v", err)
	}
	// Migrations are applied once.
	if err := p.InitSchema(); err != nil {
		t.Fatalf("second InitSchema: %v", err)
	}

	if err := p.SaveConfig(want); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}
	// Saving twice replaces rather than duplicates.
	if err := p.SaveConfig(want); err != nil {
		t.Fatalf("second SaveConfig: %v", err)
	}

	got, err := p.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if !reflect.DeepEqual(got.Session, want.Session) {
		t.Errorf("session:\n got %+v\nwant %+v", got.Session, want.Session)
	}
	if !reflect.DeepEqual(got.Sampler, want.Sampler) {
		t.Errorf("sampler:\n got %+v\nwant %+v", got.Sampler, want.Sampler)
	}
	if !reflect.DeepEqual(got.Optics, want.Optics) {
		t.Errorf("optics:\n got %+v\nwant %+v", got.Optics, want.Optics)
	}
	if !reflect.DeepEqual(got.Curtain, want.Curtain) {
		t.Errorf("curtain:\n got %+v\nwant %+v", got.Curtain, want.Curtain)
	}
	if !reflect.DeepEqual(got.Storage, want.Storage) || !reflect.DeepEqual(got.REST, want.REST) {
		t.Errorf("storage/rest: got %+v %+v", got.Storage, got.REST)
	}
}
