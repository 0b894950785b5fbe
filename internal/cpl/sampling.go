package cpl

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/chrissnell/cplcurtain/internal/profile"
	"github.com/chrissnell/cplcurtain/internal/types"
	"gonum.org/v1/gonum/mat"
)

// SampleRequest asks a model server for one variable along a track.
type SampleRequest struct {
	Collection string      `json:"collection"`
	Variable   string      `json:"variable"`
	Levels     string      `json:"levels,omitempty"`
	Lon        []float64   `json:"lon"`
	Lat        []float64   `json:"lat"`
	Time       []time.Time `json:"time"`
}

// Sampler samples gridded model collections at track points. Implementations
// make one attempt per call; failures are returned to the caller.
type Sampler interface {
	// Variables lists the variables of a collection.
	Variables(ctx context.Context, collection string) ([]string, error)

	// Sample returns the variable at each track point. The first dimension of
	// the result is the number of track points; 3-D variables add a level
	// dimension.
	Sample(ctx context.Context, req SampleRequest) (types.Field, error)
}

// OpticsRequest carries sampled aerosol mixing ratios and met fields to a
// Mie calculator.
type OpticsRequest struct {
	Channels []float64              `json:"channels"`
	Species  map[string]types.Field `json:"species"`
	AirDens  types.Field            `json:"airdens"`
	DELP     types.Field            `json:"delp"`
	H        types.Field            `json:"h"`
	Lon      []float64              `json:"lon"`
	Lat      []float64              `json:"lat"`
	Time     []time.Time            `json:"time"`
}

// OpticsResult holds extinction, scattering and backscatter profiles and the
// attenuated backscatter seen from the surface and from the top of the atmosphere.
type OpticsResult struct {
	Ext      types.Field `json:"ext"`
	Sca      types.Field `json:"sca"`
	Backscat types.Field `json:"backscat"`
	AbackSfc types.Field `json:"aback_sfc"`
	AbackToa types.Field `json:"aback_toa"`
}

// OpticsCalculator performs Mie calculations on sampled aerosol profiles.
type OpticsCalculator interface {
	Extinction(ctx context.Context, req OpticsRequest) (OpticsResult, error)
}

// DefaultSpecies are the GOCART aerosol tracers used for Mie calculations.
var DefaultSpecies = []string{
	"du001", "du002", "du003", "du004", "du005",
	"ss001", "ss002", "ss003", "ss004", "ss005",
	"bcphobic", "bcphilic",
	"ocphobic", "ocphilic",
	"so4",
}

// AddVar samples variables of a model collection along the track and keeps
// them, masked where values are at or above the undefined threshold. With no
// variables given, every variable of the collection is sampled.
func (s *Session) AddVar(ctx context.Context, collection string, vars []string, levels string) error {
	if s.opts.Sampler == nil {
		return fmt.Errorf("%w: no sampler configured", types.ErrResource)
	}

	if len(vars) == 0 {
		var err error
		vars, err = s.opts.Sampler.Variables(ctx, collection)
		if err != nil {
			return fmt.Errorf("listing variables of %s: %w", collection, err)
		}
	}

	for _, v := range vars {
		s.logf(" Working on <%s>", v)

		q, err := s.opts.Sampler.Sample(ctx, SampleRequest{
			Collection: collection,
			Variable:   v,
			Levels:     levels,
			Lon:        s.Lon,
			Lat:        s.Lat,
			Time:       s.Time,
		})
		if err != nil {
			return fmt.Errorf("sampling %s from %s: %w", v, collection, err)
		}
		if q.Rank() == 0 || q.Shape[0] != s.NT {
			return fmt.Errorf("%w: sampled %s has shape %v, expected %d track points first",
				types.ErrDimensionMismatch, v, q.Shape, s.NT)
		}

		q.Name = v
		s.sampled[v] = types.MaskAtOrAbove(q, s.opts.Undef)
	}
	return nil
}

// SampleExtinction samples the aerosol collection and the height field of
// the met collection along the track, then runs the Mie calculator for the
// given channels (nm). A nil species list uses DefaultSpecies. The result
// profiles are kept as sampled variables ext, sca and backscat.
func (s *Session) SampleExtinction(ctx context.Context, asm, aer, levels string, channels []float64, species []string) (OpticsResult, error) {
	if s.opts.Optics == nil {
		return OpticsResult{}, fmt.Errorf("%w: no optics calculator configured", types.ErrResource)
	}
	if len(channels) == 0 {
		channels = []float64{532}
	}
	if species == nil {
		species = DefaultSpecies
	}

	if err := s.AddVar(ctx, aer, nil, levels); err != nil {
		return OpticsResult{}, err
	}
	if err := s.AddVar(ctx, asm, []string{"H"}, levels); err != nil {
		return OpticsResult{}, err
	}

	// GrADS reports these in lower case while the Mie code expects the
	// GFIO names.
	for lower, upper := range map[string]string{"airdens": "AIRDENS", "delp": "DELP"} {
		if m, ok := s.sampled[lower]; ok {
			m.Name = upper
			s.sampled[upper] = m
		}
	}

	req := OpticsRequest{
		Channels: channels,
		Species:  make(map[string]types.Field, len(species)),
		Lon:      s.Lon,
		Lat:      s.Lat,
		Time:     s.Time,
	}
	for _, name := range species {
		m, ok := s.sampled[name]
		if !ok {
			return OpticsResult{}, fmt.Errorf("%w: aerosol tracer %s was not sampled from %s", types.ErrMissingField, name, aer)
		}
		req.Species[name] = m.NaNFilled()
	}
	for name, dst := range map[string]*types.Field{"AIRDENS": &req.AirDens, "DELP": &req.DELP, "H": &req.H} {
		m, ok := s.sampled[name]
		if !ok {
			return OpticsResult{}, fmt.Errorf("%w: %s was not sampled", types.ErrMissingField, name)
		}
		*dst = m.NaNFilled()
	}

	res, err := s.opts.Optics.Extinction(ctx, req)
	if err != nil {
		return OpticsResult{}, fmt.Errorf("mie calculation: %w", err)
	}

	for name, f := range map[string]types.Field{"ext": res.Ext, "sca": res.Sca, "backscat": res.Backscat} {
		if f.Len() == 0 {
			continue
		}
		f.Name = name
		s.sampled[name] = types.MaskedField{Field: f, Mask: make([]bool, f.Len())}
	}

	return res, nil
}

// Interpolator returns a profile interpolator onto the lidar grid for source
// grids of the given width.
func (s *Session) Interpolator(width int) (*profile.Interpolator, error) {
	return profile.NewInterpolator(s.Z, s.NT, width)
}

// ZInterp vertically interpolates a sampled model variable (time × model
// level) to the CPL heights using the sampled height field H. Model levels
// ordered top down are flipped so heights ascend.
func (s *Session) ZInterp(v types.Field) (*mat.Dense, error) {
	h, ok := s.sampled["H"]
	if !ok {
		return nil, fmt.Errorf("%w: height field H has not been sampled", types.ErrMissingField)
	}
	if h.Rank() != 2 || h.Shape[1] == 0 {
		return nil, fmt.Errorf("%w: height field H has shape %v, expected rank 2", types.ErrDimensionMismatch, h.Shape)
	}

	ip, err := s.Interpolator(h.Shape[1])
	if err != nil {
		return nil, err
	}

	grids := h.NaNFilled()
	if descending(grids.Row(0)) {
		grids = flipLevels(grids)
		if v.Rank() == 2 && v.Shape[1] == grids.Shape[1] {
			v = flipLevels(v)
		}
	}
	return ip.Interpolate(grids, v)
}

// ZInterpVar is ZInterp for a sampled variable looked up by name.
func (s *Session) ZInterpVar(name string) (*mat.Dense, error) {
	m, ok := s.sampled[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s has not been sampled", types.ErrMissingField, name)
	}
	return s.ZInterp(m.NaNFilled())
}

// LidarProfile returns a variable as a time × height matrix on the lidar
// grid. File datasets are returned as stored; sampled model variables on
// model levels are interpolated with ZInterp.
func (s *Session) LidarProfile(name string) (*mat.Dense, error) {
	if _, inFile := s.fields[name]; !inFile {
		if m, ok := s.sampled[name]; ok && m.Rank() == 2 && m.Shape[0] == s.NT && m.Shape[1] != s.NZ {
			return s.ZInterp(m.NaNFilled())
		}
	}
	return s.Profile(name)
}

// descending reports whether the finite values of row run top down.
func descending(row []float64) bool {
	lo, hi := -1, -1
	for k, x := range row {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			continue
		}
		if lo < 0 {
			lo = k
		}
		hi = k
	}
	return lo >= 0 && row[lo] > row[hi]
}

// flipLevels reverses the second axis of a rank-2 field.
func flipLevels(f types.Field) types.Field {
	rows, cols := f.Shape[0], f.Shape[1]
	data := make([]float64, len(f.Data))
	for i := 0; i < rows; i++ {
		for k := 0; k < cols; k++ {
			data[i*cols+k] = f.Data[i*cols+cols-1-k]
		}
	}
	return types.Field{Name: f.Name, Shape: []int{rows, cols}, Data: data}
}
