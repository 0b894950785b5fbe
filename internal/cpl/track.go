package cpl

import (
	"github.com/chrissnell/cplcurtain/pkg/solar"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// Track returns the flight track as a line of (lon, lat) points.
func (s *Session) Track() orb.LineString {
	ls := make(orb.LineString, s.NT)
	for i := range ls {
		ls[i] = orb.Point{s.Lon[i], s.Lat[i]}
	}
	return ls
}

// TrackLength returns the great-circle length of the track in metres.
func (s *Session) TrackLength() float64 {
	total := 0.0
	for i := 1; i < s.NT; i++ {
		total += geo.Distance(orb.Point{s.Lon[i-1], s.Lat[i-1]}, orb.Point{s.Lon[i], s.Lat[i]})
	}
	return total
}

// Bound returns the lon/lat bounding box of the track.
func (s *Session) Bound() orb.Bound {
	return s.Track().Bound()
}

// DayFlags reports, per observation, whether the sun was above the horizon.
func (s *Session) DayFlags() []bool {
	return solar.Daylight(s.Time, s.Lat, s.Lon)
}
