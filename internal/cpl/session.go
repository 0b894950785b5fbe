// Package cpl assembles a CPL L2 analysis session: it reads the navigation
// and profile datasets out of a CPL file, reconstructs observation times,
// assigns observations to synoptic windows, and mediates track sampling of
// model fields and their interpolation onto the lidar's vertical grid.
package cpl

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/chrissnell/cplcurtain/internal/synoptic"
	"github.com/chrissnell/cplcurtain/internal/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// File is the structured file a session reads from. It stays open for the
// life of the session.
type File interface {
	// Read returns dataset name from group. It returns an error wrapping
	// types.ErrMissingField when the dataset does not exist.
	Read(group, name string) (types.Field, error)
	Close() error
}

// Opener opens the file at path.
type Opener func(path string) (File, error)

// Session is one CPL file loaded for analysis. Navigation, the vertical grid,
// observation times and synoptic windows are fixed at construction.
type Session struct {
	ID       uuid.UUID
	Path     string
	Date     time.Time
	BinWidth time.Duration

	Lon     []float64
	Lat     []float64
	Z       []float64
	Lev     []float64
	Elapsed []float64
	Time    []time.Time

	NT int
	NZ int

	// Windows and Assignments are parallel. Assignment weights are only
	// meaningful where the membership mask is true.
	Windows     []synoptic.Window
	Assignments []synoptic.Assignment

	fields  map[string]types.Field
	sampled map[string]types.MaskedField
	file    File
	opts    Options
	logger  *zap.SugaredLogger
}

// Open reads the catalog out of the file at path and builds a session. The
// file handle is kept until Close.
func Open(path string, opener Opener, opts Options, logger *zap.SugaredLogger) (*Session, error) {
	opts = opts.withDefaults()

	date, err := DateFromFilename(path)
	if err != nil {
		return nil, err
	}

	f, err := opener(path)
	if err != nil {
		if errors.Is(err, types.ErrResource) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: unable to open %s: %v", types.ErrResource, path, err)
	}

	s := &Session{
		ID:       SessionID(path, date),
		Path:     path,
		Date:     date,
		BinWidth: opts.BinWidth,
		fields:   make(map[string]types.Field),
		sampled:  make(map[string]types.MaskedField),
		file:     f,
		opts:     opts,
		logger:   logger,
	}

	if err := s.load(); err != nil {
		f.Close()
		return nil, err
	}

	return s, nil
}

func (s *Session) load() error {
	s.logf("[] Opening CPL file <%s>", s.Path)

	for _, g := range s.opts.Catalog {
		for _, name := range g.Datasets {
			alias := s.opts.ShortNames.Alias(name)
			s.logf("   + Reading <%s> as <%s>", name, alias)

			field, err := s.file.Read(g.Group, name)
			if err != nil {
				return fmt.Errorf("reading %s/%s: %w", g.Group, name, err)
			}
			field.Name = alias
			s.fields[alias] = field
		}
	}

	var err error
	if s.Lon, err = s.ravel("lon"); err != nil {
		return err
	}
	if s.Lat, err = s.ravel("lat"); err != nil {
		return err
	}
	if s.Z, err = s.ravel("z"); err != nil {
		return err
	}
	if s.Elapsed, err = s.ravel("time"); err != nil {
		return err
	}
	if _, ok := s.fields["lev"]; ok {
		if s.Lev, err = s.ravel("lev"); err != nil {
			return err
		}
	}

	s.NT = len(s.Lat)
	s.NZ = len(s.Z)

	if len(s.Lon) != s.NT || len(s.Elapsed) != s.NT {
		return fmt.Errorf("%w: navigation lengths differ: lon=%d lat=%d time=%d",
			types.ErrDimensionMismatch, len(s.Lon), s.NT, len(s.Elapsed))
	}
	if s.Lev != nil && len(s.Lev) != s.NT {
		return fmt.Errorf("%w: lev has %d values, expected %d", types.ErrDimensionMismatch, len(s.Lev), s.NT)
	}

	if s.Time, err = Timestamps(s.Date, s.Elapsed); err != nil {
		return err
	}

	s.Windows, s.Assignments, err = synoptic.ComputeWindows(s.Time, s.BinWidth)
	if err != nil {
		return fmt.Errorf("computing synoptic windows: %w", err)
	}

	if s.logger != nil {
		s.logger.Infow("CPL session loaded",
			"session", s.ID.String(),
			"file", filepath.Base(s.Path),
			"profiles", s.NT,
			"levels", s.NZ,
			"windows", len(s.Windows),
			"bin_width", s.BinWidth.String(),
		)
	}
	return nil
}

func (s *Session) ravel(name string) ([]float64, error) {
	f, ok := s.fields[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s is not in the dataset catalog", types.ErrMissingField, name)
	}
	return f.Ravel(), nil
}

func (s *Session) logf(template string, args ...interface{}) {
	if s.logger == nil {
		return
	}
	if s.opts.Verbose {
		s.logger.Infof(template, args...)
		return
	}
	s.logger.Debugf(template, args...)
}

// Timestamps converts elapsed seconds since t0 to absolute times. Fractional
// seconds are truncated. The result must be weakly increasing.
func Timestamps(t0 time.Time, elapsed []float64) ([]time.Time, error) {
	out := make([]time.Time, len(elapsed))
	for i, sec := range elapsed {
		if math.IsNaN(sec) || math.IsInf(sec, 0) {
			return nil, fmt.Errorf("%w: elapsed time %d is not finite", types.ErrInvalidInput, i)
		}
		out[i] = t0.Add(time.Duration(int64(sec)) * time.Second)
		if i > 0 && out[i].Before(out[i-1]) {
			return nil, fmt.Errorf("%w: observation %d at %v precedes observation %d at %v",
				types.ErrInvalidInput, i, out[i], i-1, out[i-1])
		}
	}
	return out, nil
}

// DateFromFilename returns midnight UTC of the acquisition date encoded in
// the file name as a YYYYMMDD token, e.g. CPL_L2_20130819_14956.h5.
func DateFromFilename(path string) (time.Time, error) {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	for _, tok := range strings.FieldsFunc(base, func(r rune) bool { return r == '_' || r == '-' || r == '.' }) {
		if len(tok) < 8 {
			continue
		}
		d, err := time.Parse("20060102", tok[:8])
		if err == nil {
			return d, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: no YYYYMMDD date token in file name %s", types.ErrInvalidInput, filepath.Base(path))
}

// SessionID derives a stable session identifier from the file's base name and
// acquisition date, so reopening the same file yields the same ID.
func SessionID(path string, date time.Time) uuid.UUID {
	name := filepath.Base(path) + "@" + date.Format("2006-01-02")
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("cpl:"+name))
}

// Close releases the file handle.
func (s *Session) Close() error {
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

// Field returns a dataset read from the file, by its exposed name.
func (s *Session) Field(name string) (types.Field, bool) {
	f, ok := s.fields[name]
	return f, ok
}

// Sampled returns a model variable previously sampled along the track.
func (s *Session) Sampled(name string) (types.MaskedField, bool) {
	m, ok := s.sampled[name]
	return m, ok
}

// Variable returns a file dataset or, failing that, a sampled variable with
// masked values set to NaN.
func (s *Session) Variable(name string) (types.Field, error) {
	if f, ok := s.fields[name]; ok {
		return f, nil
	}
	if m, ok := s.sampled[name]; ok {
		return m.NaNFilled(), nil
	}
	return types.Field{}, fmt.Errorf("%w: no dataset or sampled variable named %s", types.ErrMissingField, name)
}

// Names returns the exposed names of all datasets and sampled variables.
func (s *Session) Names() []string {
	names := make([]string, 0, len(s.fields)+len(s.sampled))
	for n := range s.fields {
		names = append(names, n)
	}
	for n := range s.sampled {
		if _, dup := s.fields[n]; !dup {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return names
}

// Profile returns a 2-D variable as a time × height matrix. Variables stored
// height × time are transposed.
func (s *Session) Profile(name string) (*mat.Dense, error) {
	f, err := s.Variable(name)
	if err != nil {
		return nil, err
	}
	if f.Rank() != 2 || f.Shape[0] == 0 || f.Shape[1] == 0 {
		return nil, fmt.Errorf("%w: %s has shape %v, expected rank 2", types.ErrDimensionMismatch, name, f.Shape)
	}

	rows, cols := f.Shape[0], f.Shape[1]
	data := append([]float64(nil), f.Data...)
	switch {
	case rows == s.NT:
		return mat.NewDense(rows, cols, data), nil
	case cols == s.NT:
		m := mat.NewDense(cols, rows, nil)
		m.Copy(mat.NewDense(rows, cols, data).T())
		return m, nil
	}
	return nil, fmt.Errorf("%w: %s has shape %v, neither dimension matches %d profiles",
		types.ErrDimensionMismatch, name, f.Shape, s.NT)
}

// WindowFor returns the index of the synoptic window holding observation i,
// or -1 if i is out of range.
func (s *Session) WindowFor(i int) int {
	if i < 0 || i >= s.NT {
		return -1
	}
	return synoptic.Locate(s.Windows, s.Time[i])
}

// Hours returns observation times as hours since the reference date, the
// x axis of curtain plots.
func (s *Session) Hours() []float64 {
	h := make([]float64, len(s.Elapsed))
	for i, sec := range s.Elapsed {
		h[i] = sec / 3600.
	}
	return h
}
