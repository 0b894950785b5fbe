package restserver

import (
	"math"
	"time"

	"github.com/chrissnell/cplcurtain/internal/cpl"
	"github.com/chrissnell/cplcurtain/internal/curtain"
	"github.com/chrissnell/cplcurtain/pkg/responseformat"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

func sessionResponse(s *cpl.Session) SessionResponse {
	b := s.Bound()
	return SessionResponse{
		ID:           s.ID.String(),
		Path:         s.Path,
		Date:         s.Date.Format("2006-01-02"),
		BinWidth:     s.BinWidth.String(),
		Profiles:     s.NT,
		Levels:       s.NZ,
		Windows:      len(s.Windows),
		Start:        s.Time[0],
		End:          s.Time[s.NT-1],
		TrackLengthM: s.TrackLength(),
		Bound:        [4]float64{b.Min.Lon(), b.Min.Lat(), b.Max.Lon(), b.Max.Lat()},
		Fields:       s.Names(),
	}
}

func windowResponse(s *cpl.Session, w int) WindowResponse {
	win := s.Windows[w]
	return WindowResponse{
		Index:   w,
		Start:   win.Start,
		End:     win.End,
		Center:  win.Center(),
		Members: s.Assignments[w].Count(),
	}
}

func windowDetail(s *cpl.Session, w int) WindowDetailResponse {
	a := s.Assignments[w]
	d := WindowDetailResponse{
		WindowResponse: windowResponse(s, w),
		Observations:   a.Members(),
	}
	d.Times = make([]time.Time, len(d.Observations))
	d.Weights = make([]float64, len(d.Observations))
	for j, i := range d.Observations {
		d.Times[j] = s.Time[i]
		d.Weights[j] = a.Weight[i]
	}
	return d
}

// trackCollection returns the flight track as a LineString feature, followed
// by one Point feature per observation when points is set.
func trackCollection(s *cpl.Session, points bool) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	line := geojson.NewFeature(s.Track())
	line.Properties["session"] = s.ID.String()
	line.Properties["length_m"] = s.TrackLength()
	line.Properties["start"] = s.Time[0]
	line.Properties["end"] = s.Time[s.NT-1]
	fc.Append(line)

	if !points {
		return fc
	}

	day := s.DayFlags()
	for i := 0; i < s.NT; i++ {
		f := geojson.NewFeature(orb.Point{s.Lon[i], s.Lat[i]})
		f.Properties["index"] = i
		f.Properties["time"] = s.Time[i]
		f.Properties["window"] = s.WindowFor(i)
		f.Properties["daylight"] = day[i]
		fc.Append(f)
	}
	return fc
}

func curtainResponse(field string, c *curtain.Curtain, format string) CurtainResponse {
	r := CurtainResponse{
		Field:  field,
		Title:  c.Title,
		XLabel: c.XLabel,
		YLabel: c.YLabel,
		Extent: c.Extent,
		Aspect: c.Aspect,
		Scale:  c.Scale,
		VMin:   finite(c.VMin),
		VMax:   finite(c.VMax),
		Rows:   c.Rows,
	}
	if format == responseformat.FormatJSON {
		r.Rows = responseformat.NullableRows(c.Rows)
	}
	return r
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
