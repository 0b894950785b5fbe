// Package curtain builds time × height curtain images from profile matrices.
//
// A curtain is the data behind a lidar plot: a height-major grid of values
// with its axis extent, colour limits and scale. Rendering is left to the
// consumer.
package curtain

import (
	"fmt"
	"math"

	"github.com/chrissnell/cplcurtain/internal/types"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	ScaleLinear = "linear"
	ScaleLog    = "log"

	XLabel = "Time (Hours UTC)"
	YLabel = "Height (km)"

	aspectFull  = 0.175
	aspectLower = 0.25
)

// Options controls masking and limits. A nil VMin or VMax is taken from the
// data.
type Options struct {
	Title string
	VMin  *float64
	VMax  *float64

	// Mask marks cells to drop, indexed [time][height].
	Mask [][]bool
	// MaskAs drops every cell that is NaN in this time × height matrix.
	MaskAs *mat.Dense

	Log   bool
	Lower bool
}

// Curtain is a height-major image with origin at the lower left.
type Curtain struct {
	Title  string      `json:"title,omitempty" msgpack:"title,omitempty"`
	XLabel string      `json:"xlabel" msgpack:"xlabel"`
	YLabel string      `json:"ylabel" msgpack:"ylabel"`
	Extent [4]float64  `json:"extent" msgpack:"extent"`
	Aspect float64     `json:"aspect" msgpack:"aspect"`
	Scale  string      `json:"scale" msgpack:"scale"`
	VMin   float64     `json:"vmin" msgpack:"vmin"`
	VMax   float64     `json:"vmax" msgpack:"vmax"`
	Rows   [][]float64 `json:"rows" msgpack:"rows"`
}

// Build turns v, a time × height matrix, into a curtain over hours and
// heights zMeters. Masked and out-of-range cells become NaN.
func Build(hours, zMeters []float64, v *mat.Dense, opts Options) (*Curtain, error) {
	nt, nz := v.Dims()
	if len(hours) != nt || len(zMeters) != nz {
		return nil, fmt.Errorf("%w: values are %d×%d but axes have %d times and %d heights",
			types.ErrDimensionMismatch, nt, nz, len(hours), len(zMeters))
	}
	if nt == 0 || nz == 0 {
		return nil, fmt.Errorf("%w: empty curtain", types.ErrInvalidInput)
	}
	if opts.Mask != nil {
		if len(opts.Mask) != nt {
			return nil, fmt.Errorf("%w: mask has %d rows, expected %d", types.ErrDimensionMismatch, len(opts.Mask), nt)
		}
		for i, row := range opts.Mask {
			if len(row) != nz {
				return nil, fmt.Errorf("%w: mask row %d has %d cells, expected %d", types.ErrDimensionMismatch, i, len(row), nz)
			}
		}
	}
	if opts.MaskAs != nil {
		if r, c := opts.MaskAs.Dims(); r != nt || c != nz {
			return nil, fmt.Errorf("%w: mask_as is %d×%d, expected %d×%d", types.ErrDimensionMismatch, r, c, nt, nz)
		}
	}

	keep := nz
	aspect := aspectFull
	if opts.Lower {
		keep = nz / 2
		aspect = aspectLower
		if keep == 0 {
			keep = 1
		}
	}

	c := &Curtain{
		Title:  opts.Title,
		XLabel: XLabel,
		YLabel: YLabel,
		Extent: [4]float64{hours[0], hours[nt-1], zMeters[0] / 1000., zMeters[keep-1] / 1000.},
		Aspect: aspect,
		Scale:  ScaleLinear,
		Rows:   make([][]float64, keep),
	}
	if opts.Log {
		c.Scale = ScaleLog
	}

	var finite []float64
	for k := 0; k < keep; k++ {
		row := make([]float64, nt)
		for t := 0; t < nt; t++ {
			x := v.At(t, k)
			switch {
			case opts.MaskAs != nil && math.IsNaN(opts.MaskAs.At(t, k)):
				x = math.NaN()
			case opts.Mask != nil && opts.Mask[t][k]:
				x = math.NaN()
			case opts.VMin != nil && x < *opts.VMin:
				x = math.NaN()
			case opts.VMax != nil && x > *opts.VMax:
				x = math.NaN()
			case opts.Log && x <= 0:
				x = math.NaN()
			}
			if !math.IsNaN(x) && !math.IsInf(x, 0) {
				finite = append(finite, x)
			}
			row[t] = x
		}
		c.Rows[k] = row
	}

	c.VMin, c.VMax = math.NaN(), math.NaN()
	if len(finite) > 0 {
		c.VMin, c.VMax = floats.Min(finite), floats.Max(finite)
	}
	if opts.VMin != nil {
		c.VMin = *opts.VMin
	}
	if opts.VMax != nil {
		c.VMax = *opts.VMax
	}

	return c, nil
}

// Dims returns the number of height rows and time columns.
func (c *Curtain) Dims() (rows, cols int) {
	if len(c.Rows) == 0 {
		return 0, 0
	}
	return len(c.Rows), len(c.Rows[0])
}

// Normalized maps each cell onto [0, 1] between VMin and VMax using the
// curtain's scale. NaN cells stay NaN.
func (c *Curtain) Normalized() [][]float64 {
	lo, hi := c.VMin, c.VMax
	if c.Scale == ScaleLog {
		lo, hi = math.Log10(lo), math.Log10(hi)
	}
	span := hi - lo

	out := make([][]float64, len(c.Rows))
	for k, row := range c.Rows {
		out[k] = make([]float64, len(row))
		for t, x := range row {
			if c.Scale == ScaleLog {
				x = math.Log10(x)
			}
			switch {
			case math.IsNaN(x) || math.IsNaN(span):
				out[k][t] = math.NaN()
			case span <= 0:
				out[k][t] = 0
			default:
				out[k][t] = math.Min(1, math.Max(0, (x-lo)/span))
			}
		}
	}
	return out
}
