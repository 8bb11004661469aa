package reconcile

import "github.com/couchcryptid/turbine-dashboard/internal/domain"

// DefaultWindowSize is the number of trailing readings kept per turbine.
const DefaultWindowSize = 60

// Window keeps the most recent readings per turbine in arrival order. It is
// not safe for concurrent use; View guards it.
type Window struct {
	size   int
	series map[string][]domain.Reading
}

// NewWindow creates a window holding at most size readings per id. A
// non-positive size falls back to DefaultWindowSize.
func NewWindow(size int) *Window {
	if size <= 0 {
		size = DefaultWindowSize
	}
	return &Window{size: size, series: make(map[string][]domain.Reading)}
}

// Push appends r to its turbine's series, evicting the oldest entry when
// the series is full.
func (w *Window) Push(r domain.Reading) {
	s := w.series[r.WindTurbineID]
	if len(s) < w.size {
		w.series[r.WindTurbineID] = append(s, r)
		return
	}
	copy(s, s[1:])
	s[len(s)-1] = r
}

// Latest returns the newest reading for id.
func (w *Window) Latest(id string) (domain.Reading, bool) {
	s := w.series[id]
	if len(s) == 0 {
		return domain.Reading{}, false
	}
	return s[len(s)-1], true
}

// Series returns a copy of id's readings, oldest first.
func (w *Window) Series(id string) []domain.Reading {
	return append([]domain.Reading(nil), w.series[id]...)
}

// LatestAll returns the newest reading of every turbine with readings.
func (w *Window) LatestAll() map[string]domain.Reading {
	out := make(map[string]domain.Reading, len(w.series))
	for id, s := range w.series {
		if len(s) > 0 {
			out[id] = s[len(s)-1]
		}
	}
	return out
}

// Remove drops id's readings.
func (w *Window) Remove(id string) {
	delete(w.series, id)
}

// Len returns the number of readings held for id.
func (w *Window) Len(id string) int {
	return len(w.series[id])
}
