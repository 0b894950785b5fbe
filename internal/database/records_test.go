package database

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/chrissnell/cplcurtain/internal/cpl/cpltest"
)

func TestBuildRecords(t *testing.T) {
	// 6 profiles an hour apart from 01:00, three-hour windows from midnight.
	s, err := cpltest.Open(cpltest.NewFlight(6, 4, 3600, 3600))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	sr, obs, windows, err := BuildRecords(s)
	if err != nil {
		t.Fatalf("BuildRecords: %v", err)
	}

	if sr.ID != s.ID.String() || sr.Profiles != 6 || sr.Levels != 4 || sr.BinWidthSeconds != 10800 {
		t.Errorf("session record = %+v", sr)
	}
	// Reopening the same file keys its rows identically, so an export replaces them.
	again, err := cpltest.Open(cpltest.NewFlight(6, 4, 3600, 3600))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer again.Close()
	if again.ID.String() != sr.ID {
		t.Errorf("reopened session ID %s, want %s", again.ID, sr.ID)
	}
	if sr.Windows != len(windows) || sr.TrackLengthM <= 0 {
		t.Errorf("session record = %+v", sr)
	}

	if len(obs) != 6 {
		t.Fatalf("got %d observations, want 6", len(obs))
	}
	wantWindow := []int{0, 0, 1, 1, 1, 2}
	for i, o := range obs {
		if o.SessionID != sr.ID || o.Index != i {
			t.Errorf("observation %d keyed %s/%d", i, o.SessionID, o.Index)
		}
		if o.Window != wantWindow[i] {
			t.Errorf("observation %d in window %d, want %d", i, o.Window, wantWindow[i])
		}
	}
	if !obs[1].Time.Equal(time.Date(2013, 8, 19, 2, 0, 0, 0, time.UTC)) {
		t.Errorf("observation 1 at %v", obs[1].Time)
	}

	if len(windows) != 3 {
		t.Fatalf("got %d windows, want 3", len(windows))
	}
	var mw MemberWeights
	if err := json.Unmarshal(windows[1].Weights.Bytes, &mw); err != nil {
		t.Fatalf("decoding weights: %v", err)
	}
	if windows[1].Members != 3 || len(mw.Index) != 3 || mw.Index[0] != 2 {
		t.Errorf("window 1 members %d, weights %+v", windows[1].Members, mw)
	}
	// 03:00 opens window 1, 05:00 is two thirds in.
	if mw.Weight[0] != 0 || mw.Weight[2] != 2./3. {
		t.Errorf("window 1 weights = %v", mw.Weight)
	}
	if !windows[2].End.Equal(time.Date(2013, 8, 19, 9, 0, 0, 0, time.UTC)) {
		t.Errorf("last window ends %v", windows[2].End)
	}
}
