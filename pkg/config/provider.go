package config

import (
	"fmt"
	"time"
)

// ConfigProvider defines the interface for configuration data sources
type ConfigProvider interface {
	// Load complete configuration
	LoadConfig() (*ConfigData, error)

	// Get specific configuration sections
	GetSessionConfig() (*SessionData, error)
	GetSamplerConfig() (*SamplerData, error)
	GetStorageConfig() (*StorageData, error)

	IsReadOnly() bool
	Close() error
}

// ConfigData represents the complete configuration structure
type ConfigData struct {
	Session SessionData     `json:"session"`
	Sampler SamplerData     `json:"sampler,omitempty"`
	Optics  OpticsData      `json:"optics,omitempty"`
	Curtain CurtainData     `json:"curtain,omitempty"`
	Storage StorageData     `json:"storage,omitempty"`
	REST    *RESTServerData `json:"rest,omitempty"`
	Log     LogData         `json:"log,omitempty"`
}

// SessionData holds the settings used when a CPL file is opened
type SessionData struct {
	BinWidth   string             `json:"bin_width,omitempty"`
	Verbose    bool               `json:"verbose,omitempty"`
	Undef      float64            `json:"undef,omitempty"`
	Catalog    []CatalogGroupData `json:"catalog,omitempty"`
	ShortNames map[string]string  `json:"short_names,omitempty"`
}

// CatalogGroupData lists the datasets to read from one group of the file
type CatalogGroupData struct {
	Group    string   `json:"group"`
	Datasets []string `json:"datasets"`
}

// SamplerData configures the model-sampling service
type SamplerData struct {
	Endpoint      string   `json:"endpoint,omitempty"`
	Timeout       string   `json:"timeout,omitempty"`
	CacheSize     int      `json:"cache_size,omitempty"`
	CacheTTL      string   `json:"cache_ttl,omitempty"`
	AsmCollection string   `json:"asm_collection,omitempty"`
	AerCollection string   `json:"aer_collection,omitempty"`
	Levels        string   `json:"levels,omitempty"`
	Variables     []string `json:"variables,omitempty"`
}

// OpticsData configures the Mie optics service
type OpticsData struct {
	Enabled  bool      `json:"enabled,omitempty"`
	Endpoint string    `json:"endpoint,omitempty"`
	Channels []float64 `json:"channels,omitempty"`
	Species  []string  `json:"species,omitempty"`
}

// CurtainData holds the defaults for curtain plots
type CurtainData struct {
	Field string   `json:"field,omitempty"`
	Title string   `json:"title,omitempty"`
	Scale float64  `json:"scale,omitempty"`
	Abs   bool     `json:"abs,omitempty"`
	VMin  *float64 `json:"vmin,omitempty"`
	VMax  *float64 `json:"vmax,omitempty"`
	Log   bool     `json:"log,omitempty"`
	Lower bool     `json:"lower,omitempty"`
}

// StorageData holds the configuration for export backends
type StorageData struct {
	TimescaleDB *TimescaleDBData `json:"timescaledb,omitempty"`
}

type TimescaleDBData struct {
	ConnectionString string `json:"connection_string"`
}

// RESTServerData configures the REST server
type RESTServerData struct {
	ListenAddr string `json:"listen_addr,omitempty"`
	Port       int    `json:"port,omitempty"`
}

// LogData configures an optional rotating log file
type LogData struct {
	File       string `json:"file,omitempty"`
	MaxSizeMB  int    `json:"max_size_mb,omitempty"`
	MaxBackups int    `json:"max_backups,omitempty"`
}

// BinWidthDuration parses the synoptic bin width. An empty value means the
// default of three hours.
func (s SessionData) BinWidthDuration() (time.Duration, error) {
	return parseDuration("session.bin_width", s.BinWidth, 3*time.Hour)
}

// TimeoutDuration parses the sampler request timeout. Empty means no timeout.
func (s SamplerData) TimeoutDuration() (time.Duration, error) {
	return parseDuration("sampler.timeout", s.Timeout, 0)
}

// CacheTTLDuration parses the sampler cache TTL. Empty means entries do not expire.
func (s SamplerData) CacheTTLDuration() (time.Duration, error) {
	return parseDuration("sampler.cache_ttl", s.CacheTTL, 0)
}

func parseDuration(key, value string, def time.Duration) (time.Duration, error) {
	if value == "" {
		return def, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return d, nil
}

// Validate checks settings that can be checked without touching the network
func (c *ConfigData) Validate() error {
	bw, err := c.Session.BinWidthDuration()
	if err != nil {
		return err
	}
	if bw <= 0 {
		return fmt.Errorf("session.bin_width must be positive, got %v", bw)
	}
	if _, err := c.Sampler.TimeoutDuration(); err != nil {
		return err
	}
	if _, err := c.Sampler.CacheTTLDuration(); err != nil {
		return err
	}
	for _, g := range c.Session.Catalog {
		if len(g.Datasets) == 0 {
			return fmt.Errorf("catalog group %q lists no datasets", g.Group)
		}
	}
	if c.Optics.Enabled && c.Sampler.Endpoint == "" {
		return fmt.Errorf("optics is enabled but sampler.endpoint is not set")
	}
	if c.Curtain.VMin != nil && c.Curtain.VMax != nil && *c.Curtain.VMin >= *c.Curtain.VMax {
		return fmt.Errorf("curtain.vmin (%v) must be below curtain.vmax (%v)", *c.Curtain.VMin, *c.Curtain.VMax)
	}
	if c.Curtain.Log && c.Curtain.VMin != nil && *c.Curtain.VMin <= 0 {
		return fmt.Errorf("curtain.vmin must be positive for a log scale")
	}
	return nil
}
