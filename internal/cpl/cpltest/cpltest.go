// Package cpltest provides an in-memory CPL file for tests of packages that
// consume sessions.
package cpltest

import (
	"fmt"

	"github.com/chrissnell/cplcurtain/internal/cpl"
	"github.com/chrissnell/cplcurtain/internal/types"
)

// Path is a file name carrying the acquisition date 2013-08-19.
const Path = "/data/CPL/CPL_L2_20130819_test.h5"

// File is an in-memory cpl.File keyed by "group/name".
type File struct {
	Datasets map[string]types.Field
	Closed   bool
}

func (f *File) Read(group, name string) (types.Field, error) {
	d, ok := f.Datasets[group+"/"+name]
	if !ok {
		return types.Field{}, fmt.Errorf("%w: %s/%s", types.ErrMissingField, group, name)
	}
	return d, nil
}

func (f *File) Close() error {
	f.Closed = true
	return nil
}

// Opener returns a cpl.Opener that always yields f.
func (f *File) Opener() cpl.Opener {
	return func(string) (cpl.File, error) { return f, nil }
}

// NewFlight builds nt profiles, the first startSec seconds after midnight and
// one every stepSec seconds after, on nz levels 30 m apart. Extinction at
// profile i, level k is i + k/100.
func NewFlight(nt, nz int, startSec, stepSec float64) *File {
	lat := make([]float64, nt)
	lon := make([]float64, nt)
	mid := make([]float64, nt)
	ext := make([]float64, nt*nz)
	for i := 0; i < nt; i++ {
		lat[i] = 29 + 0.01*float64(i)
		lon[i] = -95 + 0.02*float64(i)
		mid[i] = startSec + stepSec*float64(i)
		for k := 0; k < nz; k++ {
			ext[i*nz+k] = float64(i) + float64(k)/100
		}
	}
	z := make([]float64, nz)
	for k := range z {
		z[k] = 30 * float64(k)
	}

	return &File{Datasets: map[string]types.Field{
		"geolocation/gps_lat":    {Name: "gps_lat", Shape: []int{nt, 1}, Data: lat},
		"geolocation/gps_lon":    {Name: "gps_lon", Shape: []int{nt, 1}, Data: lon},
		"geolocation/Midtime":    {Name: "Midtime", Shape: []int{nt, 1}, Data: mid},
		"profile/Altitudes":      {Name: "Altitudes", Shape: []int{nz}, Data: z},
		"profile/ext_532nm_prfl": {Name: "ext_532nm_prfl", Shape: []int{nt, nz}, Data: ext},
	}}
}

// Options returns session options matching the datasets of NewFlight.
func Options() cpl.Options {
	opts := cpl.DefaultOptions()
	opts.Catalog = cpl.Catalog{
		{Group: "geolocation", Datasets: []string{"gps_lat", "gps_lon", "Midtime"}},
		{Group: "profile", Datasets: []string{"Altitudes", "ext_532nm_prfl"}},
	}
	return opts
}

// Open opens a session over f with Options.
func Open(f *File) (*cpl.Session, error) {
	return cpl.Open(Path, f.Opener(), Options(), nil)
}
