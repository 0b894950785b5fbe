package config

import (
	"os"

	"gopkg.in/yaml.v2"
)

// YAMLProvider implements ConfigProvider for YAML configuration files
type YAMLProvider struct {
	filename string
	config   *ConfigData
}

// NewYAMLProvider creates a new YAML configuration provider
func NewYAMLProvider(filename string) *YAMLProvider {
	return &YAMLProvider{
		filename: filename,
	}
}

// LoadConfig loads the complete configuration from YAML file
func (y *YAMLProvider) LoadConfig() (*ConfigData, error) {
	cfgFile, err := os.ReadFile(y.filename)
	if err != nil {
		return nil, err
	}

	config, err := parseYAML(cfgFile)
	if err != nil {
		return nil, err
	}

	y.config = config
	return config, nil
}

func parseYAML(data []byte) (*ConfigData, error) {
	// Load into temporary struct with YAML tags
	var yamlConfig struct {
		Session SessionYAML     `yaml:"session"`
		Sampler SamplerYAML     `yaml:"sampler,omitempty"`
		Optics  OpticsYAML      `yaml:"optics,omitempty"`
		Curtain CurtainYAML     `yaml:"curtain,omitempty"`
		Storage StorageYAML     `yaml:"storage,omitempty"`
		REST    *RESTServerYAML `yaml:"rest,omitempty"`
		Log     LogYAML         `yaml:"log,omitempty"`
	}

	if err := yaml.Unmarshal(data, &yamlConfig); err != nil {
		return nil, err
	}

	// Convert to our internal format
	config := &ConfigData{
		Session: SessionData{
			BinWidth:   yamlConfig.Session.BinWidth,
			Verbose:    yamlConfig.Session.Verbose,
			Undef:      yamlConfig.Session.Undef,
			ShortNames: yamlConfig.Session.ShortNames,
		},
		Sampler: SamplerData{
			Endpoint:      yamlConfig.Sampler.Endpoint,
			Timeout:       yamlConfig.Sampler.Timeout,
			CacheSize:     yamlConfig.Sampler.CacheSize,
			CacheTTL:      yamlConfig.Sampler.CacheTTL,
			AsmCollection: yamlConfig.Sampler.AsmCollection,
			AerCollection: yamlConfig.Sampler.AerCollection,
			Levels:        yamlConfig.Sampler.Levels,
			Variables:     yamlConfig.Sampler.Variables,
		},
		Optics: OpticsData{
			Enabled:  yamlConfig.Optics.Enabled,
			Endpoint: yamlConfig.Optics.Endpoint,
			Channels: yamlConfig.Optics.Channels,
			Species:  yamlConfig.Optics.Species,
		},
		Curtain: CurtainData{
			Field: yamlConfig.Curtain.Field,
			Title: yamlConfig.Curtain.Title,
			Scale: yamlConfig.Curtain.Scale,
			Abs:   yamlConfig.Curtain.Abs,
			VMin:  yamlConfig.Curtain.VMin,
			VMax:  yamlConfig.Curtain.VMax,
			Log:   yamlConfig.Curtain.Log,
			Lower: yamlConfig.Curtain.Lower,
		},
		Log: LogData{
			File:       yamlConfig.Log.File,
			MaxSizeMB:  yamlConfig.Log.MaxSizeMB,
			MaxBackups: yamlConfig.Log.MaxBackups,
		},
	}

	for _, g := range yamlConfig.Session.Catalog {
		config.Session.Catalog = append(config.Session.Catalog, CatalogGroupData{
			Group:    g.Group,
			Datasets: g.Datasets,
		})
	}

	// Convert storage
	if yamlConfig.Storage.TimescaleDB != nil {
		config.Storage.TimescaleDB = &TimescaleDBData{
			ConnectionString: yamlConfig.Storage.TimescaleDB.ConnectionString,
		}
	}

	if yamlConfig.REST != nil {
		config.REST = &RESTServerData{
			ListenAddr: yamlConfig.REST.ListenAddr,
			Port:       yamlConfig.REST.Port,
		}
	}

	return config, nil
}

// GetSessionConfig returns the session section
func (y *YAMLProvider) GetSessionConfig() (*SessionData, error) {
	config, err := y.loaded()
	if err != nil {
		return nil, err
	}
	return &config.Session, nil
}

// GetSamplerConfig returns the sampler section
func (y *YAMLProvider) GetSamplerConfig() (*SamplerData, error) {
	config, err := y.loaded()
	if err != nil {
		return nil, err
	}
	return &config.Sampler, nil
}

// GetStorageConfig returns the storage section
func (y *YAMLProvider) GetStorageConfig() (*StorageData, error) {
	config, err := y.loaded()
	if err != nil {
		return nil, err
	}
	return &config.Storage, nil
}

func (y *YAMLProvider) loaded() (*ConfigData, error) {
	if y.config == nil {
		return y.LoadConfig()
	}
	return y.config, nil
}

// IsReadOnly returns true for YAML provider (read-only)
func (y *YAMLProvider) IsReadOnly() bool {
	return true
}

// Close is a no-op for YAML provider
func (y *YAMLProvider) Close() error {
	return nil
}

// YAML-specific structs with YAML tags (for backward compatibility)
type SessionYAML struct {
	BinWidth   string            `yaml:"bin-width,omitempty"`
	Verbose    bool              `yaml:"verbose,omitempty"`
	Undef      float64           `yaml:"undef,omitempty"`
	Catalog    []CatalogYAML     `yaml:"catalog,omitempty"`
	ShortNames map[string]string `yaml:"short-names,omitempty"`
}

type CatalogYAML struct {
	Group    string   `yaml:"group"`
	Datasets []string `yaml:"datasets"`
}

type SamplerYAML struct {
	Endpoint      string   `yaml:"endpoint,omitempty"`
	Timeout       string   `yaml:"timeout,omitempty"`
	CacheSize     int      `yaml:"cache-size,omitempty"`
	CacheTTL      string   `yaml:"cache-ttl,omitempty"`
	AsmCollection string   `yaml:"asm-collection,omitempty"`
	AerCollection string   `yaml:"aer-collection,omitempty"`
	Levels        string   `yaml:"levels,omitempty"`
	Variables     []string `yaml:"variables,omitempty"`
}

type OpticsYAML struct {
	Enabled  bool      `yaml:"enabled,omitempty"`
	Endpoint string    `yaml:"endpoint,omitempty"`
	Channels []float64 `yaml:"channels,omitempty"`
	Species  []string  `yaml:"species,omitempty"`
}

type CurtainYAML struct {
	Field string   `yaml:"field,omitempty"`
	Title string   `yaml:"title,omitempty"`
	Scale float64  `yaml:"scale,omitempty"`
	Abs   bool     `yaml:"abs,omitempty"`
	VMin  *float64 `yaml:"vmin,omitempty"`
	VMax  *float64 `yaml:"vmax,omitempty"`
	Log   bool     `yaml:"log,omitempty"`
	Lower bool     `yaml:"lower,omitempty"`
}

type StorageYAML struct {
	TimescaleDB *TimescaleDBYAML `yaml:"timescaledb,omitempty"`
}

type TimescaleDBYAML struct {
	ConnectionString string `yaml:"connection-string"`
}

type RESTServerYAML struct {
	Port       int    `yaml:"port,omitempty"`
	ListenAddr string `yaml:"listen-addr,omitempty"`
}

type LogYAML struct {
	File       string `yaml:"file,omitempty"`
	MaxSizeMB  int    `yaml:"max-size-mb,omitempty"`
	MaxBackups int    `yaml:"max-backups,omitempty"`
}
