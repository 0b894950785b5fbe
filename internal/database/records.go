package database

import (
	"encoding/json"
	"fmt"

	"github.com/chrissnell/cplcurtain/internal/cpl"
)

// BuildRecords flattens a session into the rows written by Export
func BuildRecords(s *cpl.Session) (SessionRecord, []ObservationRecord, []WindowRecord, error) {
	id := s.ID.String()

	sr := SessionRecord{
		ID:              id,
		Path:            s.Path,
		Date:            s.Date,
		BinWidthSeconds: int64(s.BinWidth.Seconds()),
		Profiles:        s.NT,
		Levels:          s.NZ,
		Windows:         len(s.Windows),
		TrackLengthM:    s.TrackLength(),
	}

	day := s.DayFlags()
	obs := make([]ObservationRecord, s.NT)
	for i := 0; i < s.NT; i++ {
		obs[i] = ObservationRecord{
			SessionID: id,
			Index:     i,
			Time:      s.Time[i],
			Lon:       s.Lon[i],
			Lat:       s.Lat[i],
			Daylight:  day[i],
			Window:    s.WindowFor(i),
		}
	}

	windows := make([]WindowRecord, len(s.Windows))
	for w, win := range s.Windows {
		a := s.Assignments[w]
		mw := MemberWeights{Index: a.Members()}
		mw.Weight = make([]float64, len(mw.Index))
		for j, i := range mw.Index {
			mw.Weight[j] = a.Weight[i]
		}

		b, err := json.Marshal(mw)
		if err != nil {
			return sr, nil, nil, fmt.Errorf("encoding weights of window %d: %w", w, err)
		}

		windows[w] = WindowRecord{
			SessionID: id,
			Index:     w,
			Start:     win.Start,
			End:       win.End,
			Members:   len(mw.Index),
		}
		if err := windows[w].Weights.Set(b); err != nil {
			return sr, nil, nil, fmt.Errorf("encoding weights of window %d: %w", w, err)
		}
	}

	return sr, obs, windows, nil
}
