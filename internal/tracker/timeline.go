package tracker

import (
	"fmt"
	"sort"
)

// TimelineStop is one stop on a run's live schedule. Scheduled never changes;
// ETA starts equal to Scheduled and only moves forward via AdvanceDelay.
type TimelineStop struct {
	ID        string
	Seq       int
	Name      string
	Scheduled TimeOfDay
	ETA       TimeOfDay
}

// StopTimeline holds a route's stops in sequence order and owns delay
// propagation. Each run works on its own copy; delays are run-scoped.
type StopTimeline struct {
	stops []TimelineStop
	index map[string]int
}

// NewStopTimeline builds a timeline from stop definitions. Stops are ordered
// by Seq and must be strictly ordered by scheduled time.
func NewStopTimeline(stops []TimelineStop) (*StopTimeline, error) {
	if len(stops) == 0 {
		return nil, fmt.Errorf("timeline needs at least one stop")
	}
	out := make([]TimelineStop, len(stops))
	copy(out, stops)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })

	index := make(map[string]int, len(out))
	for i := range out {
		out[i].ETA = out[i].Scheduled
		if _, dup := index[out[i].ID]; dup {
			return nil, fmt.Errorf("duplicate stop id %q", out[i].ID)
		}
		if i > 0 && out[i].Scheduled <= out[i-1].Scheduled {
			return nil, fmt.Errorf("stop %q is not scheduled after %q", out[i].ID, out[i-1].ID)
		}
		index[out[i].ID] = i
	}
	return &StopTimeline{stops: out, index: index}, nil
}

// Clone returns an independent copy, ETAs included.
func (tl *StopTimeline) Clone() *StopTimeline {
	stops := make([]TimelineStop, len(tl.stops))
	copy(stops, tl.stops)
	index := make(map[string]int, len(tl.index))
	for id, i := range tl.index {
		index[id] = i
	}
	return &StopTimeline{stops: stops, index: index}
}

func (tl *StopTimeline) Len() int { return len(tl.stops) }

func (tl *StopTimeline) Contains(stopID string) bool {
	_, ok := tl.index[stopID]
	return ok
}

// Stops returns the stops in sequence order.
func (tl *StopTimeline) Stops() []TimelineStop {
	out := make([]TimelineStop, len(tl.stops))
	copy(out, tl.stops)
	return out
}

// Stop looks up a single stop by id.
func (tl *StopTimeline) Stop(stopID string) (TimelineStop, error) {
	i, ok := tl.index[stopID]
	if !ok {
		return TimelineStop{}, ErrInvalidStop
	}
	return tl.stops[i], nil
}

// First returns the stop the vehicle visits first.
func (tl *StopTimeline) First() TimelineStop {
	return tl.stops[0]
}

// AdvanceDelay shifts the ETA of stopID and every stop after it by +minutes.
// Repeated calls compound. Scheduled times are untouched.
func (tl *StopTimeline) AdvanceDelay(stopID string, minutes int) error {
	if minutes <= 0 {
		return ErrInvalidDelay
	}
	i, ok := tl.index[stopID]
	if !ok {
		return ErrInvalidStop
	}
	for ; i < len(tl.stops); i++ {
		tl.stops[i].ETA = tl.stops[i].ETA.Add(minutes)
	}
	return nil
}

// CurrentStop returns the first stop in sequence order for which hasPending
// reports unresolved roster entries. ok is false once every stop is resolved.
func (tl *StopTimeline) CurrentStop(hasPending func(stopID string) bool) (TimelineStop, bool) {
	for _, s := range tl.stops {
		if hasPending(s.ID) {
			return s, true
		}
	}
	return TimelineStop{}, false
}
