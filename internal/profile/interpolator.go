// Package profile resamples per-time-step model profiles onto the lidar's
// fixed vertical grid.
package profile

import (
	"fmt"
	"math"
	"sort"

	"github.com/chrissnell/cplcurtain/internal/types"
	"gonum.org/v1/gonum/interp"
	"gonum.org/v1/gonum/mat"
)

// Interpolator is bound to a target grid of M ascending levels, the number of
// time steps T it accepts and the width K of the source grids.
type Interpolator struct {
	target []float64
	steps  int
	width  int
}

// NewInterpolator returns an Interpolator for the given target grid.
func NewInterpolator(target []float64, steps, width int) (*Interpolator, error) {
	if len(target) == 0 {
		return nil, fmt.Errorf("%w: empty target grid", types.ErrInvalidInput)
	}
	if steps <= 0 || width <= 0 {
		return nil, fmt.Errorf("%w: steps and width must be positive, got %d and %d", types.ErrInvalidInput, steps, width)
	}
	return &Interpolator{
		target: append([]float64(nil), target...),
		steps:  steps,
		width:  width,
	}, nil
}

// Interpolate resamples values, sampled at grids, onto the target grid. Both
// inputs are T×K; the result is T×M. Target levels below a row's lowest source
// level are NaN; levels above its highest source level take the highest value.
//
// Source grids are expected to ascend per row and are not checked. Undefined
// (NaN or infinite) heights are skipped, so a row with no finite height comes
// out all NaN. Repeated levels behave as in numpy's interp: approaching from
// below uses the first value of the run, at or above it uses the last. A row
// that still descends after undefined heights are dropped comes out all NaN.
func (ip *Interpolator) Interpolate(grids, values types.Field) (*mat.Dense, error) {
	if err := ip.validate(grids, values); err != nil {
		return nil, err
	}
	dst := mat.NewDense(ip.steps, len(ip.target), nil)
	ip.fill(dst, grids, values)
	return dst, nil
}

// InterpolateInto is Interpolate writing into a caller-supplied T×M matrix.
// dst is left untouched when validation fails.
func (ip *Interpolator) InterpolateInto(dst *mat.Dense, grids, values types.Field) error {
	r, c := dst.Dims()
	if r != ip.steps || c != len(ip.target) {
		return fmt.Errorf("%w: destination is %dx%d, expected %dx%d", types.ErrDimensionMismatch, r, c, ip.steps, len(ip.target))
	}
	if err := ip.validate(grids, values); err != nil {
		return err
	}
	ip.fill(dst, grids, values)
	return nil
}

func (ip *Interpolator) validate(grids, values types.Field) error {
	if values.Rank() != 2 {
		return fmt.Errorf("%w: variable to be interpolated must have rank 2, got shape %v", types.ErrDimensionMismatch, values.Shape)
	}
	if values.Shape[0] != ip.steps {
		return fmt.Errorf("%w: inconsistent time dimension: %d rows, expected %d", types.ErrDimensionMismatch, values.Shape[0], ip.steps)
	}
	if grids.Rank() != 2 || grids.Shape[1] != ip.width || values.Shape[1] != ip.width {
		return fmt.Errorf("%w: inconsistent vertical dimension: grid %v, values %v, expected width %d",
			types.ErrDimensionMismatch, grids.Shape, values.Shape, ip.width)
	}
	if grids.Shape[0] != ip.steps {
		return fmt.Errorf("%w: source grid has %d rows, expected %d", types.ErrDimensionMismatch, grids.Shape[0], ip.steps)
	}
	if grids.Len() != ip.steps*ip.width || values.Len() != ip.steps*ip.width {
		return fmt.Errorf("%w: source arrays do not hold %dx%d values", types.ErrDimensionMismatch, ip.steps, ip.width)
	}

	return nil
}

func (ip *Interpolator) fill(dst *mat.Dense, grids, values types.Field) {
	for t := 0; t < ip.steps; t++ {
		interpolateRow(dst.RawRowView(t), ip.target, grids.Row(t), values.Row(t))
	}
}

// piece is a strictly ascending run of source levels. Pieces split the
// profile at repeated levels and share their boundary height.
type piece struct {
	x0 float64
	y0 float64
	n  int
	pl interp.PiecewiseLinear
}

func (p *piece) predict(z float64) float64 {
	if p.n == 1 {
		return p.y0
	}
	return p.pl.Predict(z)
}

// interpolateRow interpolates one profile (xs, ys) at each target level into
// out, where len(out) == len(target).
func interpolateRow(out, target, xs, ys []float64) {
	fx := make([]float64, 0, len(xs))
	fy := make([]float64, 0, len(ys))
	for k, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			continue
		}
		fx = append(fx, x)
		fy = append(fy, ys[k])
	}

	pieces, ok := splitPieces(fx, fy)
	if !ok {
		for m := range out {
			out[m] = math.NaN()
		}
		return
	}

	lo, hi := fx[0], fx[len(fx)-1]
	top := fy[len(fy)-1]
	for m, z := range target {
		switch {
		case z < lo || math.IsNaN(z):
			out[m] = math.NaN()
		case z >= hi:
			out[m] = top
		default:
			i := sort.Search(len(pieces), func(i int) bool { return pieces[i].x0 > z }) - 1
			out[m] = pieces[i].predict(z)
		}
	}
}

// splitPieces cuts the finite profile at repeated levels and fits each piece.
// It reports false for an empty or descending profile.
func splitPieces(xs, ys []float64) ([]piece, bool) {
	if len(xs) == 0 {
		return nil, false
	}

	var pieces []piece
	start := 0
	for k := 1; k <= len(xs); k++ {
		if k < len(xs) {
			if xs[k] < xs[k-1] {
				return nil, false
			}
			if xs[k] != xs[k-1] {
				continue
			}
		}
		p := piece{x0: xs[start], y0: ys[start], n: k - start}
		if p.n > 1 {
			if err := p.pl.Fit(xs[start:k], ys[start:k]); err != nil {
				return nil, false
			}
		}
		pieces = append(pieces, p)
		start = k
	}
	return pieces, true
}
