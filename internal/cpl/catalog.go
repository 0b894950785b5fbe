package cpl

import (
	"time"

	"github.com/chrissnell/cplcurtain/internal/synoptic"
)

// DefaultUndef is the threshold at or above which sampled model values are
// treated as missing.
const DefaultUndef = 1e15

// CatalogGroup lists the datasets read from one group of the file.
type CatalogGroup struct {
	Group    string   `json:"group" yaml:"group"`
	Datasets []string `json:"datasets" yaml:"datasets"`
}

// Catalog is the ordered set of datasets a session reads at construction.
type Catalog []CatalogGroup

// Count returns the number of datasets in the catalog.
func (c Catalog) Count() int {
	n := 0
	for _, g := range c {
		n += len(g.Datasets)
	}
	return n
}

// ShortNames maps file dataset names to the names a session exposes them under.
type ShortNames map[string]string

// Alias returns the exposed name for a dataset; unlisted names pass through.
func (s ShortNames) Alias(name string) string {
	if alias, ok := s[name]; ok {
		return alias
	}
	return name
}

// Options configures a session.
type Options struct {
	Catalog    Catalog
	ShortNames ShortNames
	BinWidth   time.Duration
	Undef      float64
	Verbose    bool

	// Sampler and Optics are optional collaborators for track sampling and
	// Mie calculations.
	Sampler Sampler
	Optics  OpticsCalculator
}

// DefaultCatalog returns the CPL L2 datasets read by default.
func DefaultCatalog() Catalog {
	return Catalog{
		{
			Group:    "geolocation",
			Datasets: []string{"gps_lat", "gps_lon", "gps_alt", "gps_date", "Midtime", "DEM_gnd_alt"},
		},
		{
			Group:    "profile",
			Datasets: []string{"Altitudes", "bsc_532nm_prfl", "ext_532nm_prfl", "aerdep_532nm_prfl", "Sa_532nm_prfl"},
		},
	}
}

// DefaultShortNames returns the CPL rename table.
func DefaultShortNames() ShortNames {
	return ShortNames{
		"gps_alt":           "lev",
		"gps_date":          "date",
		"gps_lat":           "lat",
		"gps_lon":           "lon",
		"Midtime":           "time",
		"Altitudes":         "z",
		"DEM_gnd_alt":       "zs",
		"O3_prfl":           "O3",
		"Sa_532nm_prfl":     "lr_532",
		"aerdep_532nm_prfl": "dep_532",
		"bsc_532nm_prfl":    "bsc_532",
		"ext_532nm_prfl":    "ext_532",
	}
}

// DefaultOptions returns options with the CPL catalog, the rename table and a
// three-hour synoptic bin.
func DefaultOptions() Options {
	return Options{
		Catalog:    DefaultCatalog(),
		ShortNames: DefaultShortNames(),
		BinWidth:   synoptic.DefaultBinWidth,
		Undef:      DefaultUndef,
		Verbose:    true,
	}
}

func (o Options) withDefaults() Options {
	if o.Catalog == nil {
		o.Catalog = DefaultCatalog()
	}
	if o.ShortNames == nil {
		o.ShortNames = DefaultShortNames()
	}
	if o.BinWidth == 0 {
		o.BinWidth = synoptic.DefaultBinWidth
	}
	if o.Undef == 0 {
		o.Undef = DefaultUndef
	}
	return o
}
