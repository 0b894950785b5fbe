// Package synoptic partitions time-ordered observations into fixed-width
// synoptic windows aligned to midnight of the first observation's date.
//
// For every window the binner returns a membership mask over all
// observations and a parallel weight array holding each observation's
// fractional offset into the window. Weights are computed for every
// observation, members or not. Only weights where the membership mask is
// true are meaningful; consumers must mask by membership before using them.
package synoptic

import (
	"fmt"
	"time"

	"github.com/chrissnell/cplcurtain/internal/types"
)

// DefaultBinWidth is the spacing of model output times the windows are matched against.
const DefaultBinWidth = 3 * time.Hour

// Window is the half-open interval [Start, End).
type Window struct {
	Start time.Time `json:"start" msgpack:"start"`
	End   time.Time `json:"end" msgpack:"end"`
}

// Contains reports whether t lies in [Start, End).
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Width returns End - Start.
func (w Window) Width() time.Duration {
	return w.End.Sub(w.Start)
}

// Center returns the midpoint of the window.
func (w Window) Center() time.Time {
	return w.Start.Add(w.Width() / 2)
}

// Assignment holds, for one window, the membership mask and the offset
// weights of all N observations. Weight[i] = (t_i - Start) / width and is
// only meaningful where Member[i] is true; for non-members it may be
// negative or >= 1.
type Assignment struct {
	Member []bool    `json:"member" msgpack:"member"`
	Weight []float64 `json:"weight" msgpack:"weight"`
}

// Members returns the indices of the observations inside the window.
func (a Assignment) Members() []int {
	var idx []int
	for i, in := range a.Member {
		if in {
			idx = append(idx, i)
		}
	}
	return idx
}

// Count returns the number of member observations.
func (a Assignment) Count() int {
	n := 0
	for _, in := range a.Member {
		if in {
			n++
		}
	}
	return n
}

// ComputeWindows tiles [timestamps[0], timestamps[len-1]] with windows of
// binWidth and assigns every observation to them. Timestamps must be weakly
// increasing. At least one window is always produced, and the last window
// ends strictly after the last timestamp.
func ComputeWindows(timestamps []time.Time, binWidth time.Duration) ([]Window, []Assignment, error) {
	if len(timestamps) == 0 {
		return nil, nil, fmt.Errorf("%w: no observations to bin", types.ErrInvalidInput)
	}
	if binWidth <= 0 {
		return nil, nil, fmt.Errorf("%w: bin width must be positive, got %v", types.ErrInvalidInput, binWidth)
	}

	tmin, tmax := timestamps[0], timestamps[len(timestamps)-1]
	dayStart := time.Date(tmin.Year(), tmin.Month(), tmin.Day(), 0, 0, 0, 0, tmin.Location())
	offsetBins := tmin.Sub(dayStart) / binWidth
	start := dayStart.Add(offsetBins * binWidth)

	var windows []Window
	for {
		windows = append(windows, Window{Start: start, End: start.Add(binWidth)})
		start = start.Add(binWidth)
		if start.After(tmax) {
			break
		}
	}

	width := binWidth.Seconds()
	assignments := make([]Assignment, len(windows))
	for w, win := range windows {
		a := Assignment{
			Member: make([]bool, len(timestamps)),
			Weight: make([]float64, len(timestamps)),
		}
		for i, t := range timestamps {
			a.Member[i] = win.Contains(t)
			a.Weight[i] = t.Sub(win.Start).Seconds() / width
		}
		assignments[w] = a
	}

	return windows, assignments, nil
}

// Locate returns the index of the window containing t, or -1.
func Locate(windows []Window, t time.Time) int {
	for i, w := range windows {
		if w.Contains(t) {
			return i
		}
	}
	return -1
}
