package tracker

import (
	"math"
	"sync"
	"time"
)

// Mode says whether a run picks students up or drops them off.
type Mode string

const (
	ModePickup Mode = "pickup"
	ModeDrop   Mode = "drop"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModePickup, ModeDrop:
		return Mode(s), nil
	default:
		return "", ErrInvalidMode
	}
}

// ActionLabel is the verb the UI shows for a completed record in this mode.
func (m Mode) ActionLabel() string {
	if m == ModeDrop {
		return "dropped"
	}
	return "boarded"
}

// Progress describes one stop's roster counts.
type Progress struct {
	Total     int `json:"total"`
	Resolved  int `json:"resolved"`
	Remaining int `json:"remaining"`
	Percent   int `json:"percent"`
}

// RouteRun is one execution of a route in one mode. It owns its timeline
// copy and ledger; the roster is shared read-only from the route. All
// mutations are serialized by a per-run mutex so a dispatcher and a driver
// can act on the same run from different clients.
type RouteRun struct {
	mu sync.Mutex

	id        string
	routeID   string
	routeName string
	mode      Mode
	startedAt time.Time

	timeline *StopTimeline
	roster   *RosterIndex
	ledger   *CheckInLedger

	// selected is the stop the operator is viewing; progress and bulk
	// queries are scoped to it. It is a view cursor, not run state.
	selected string

	notifier Notifier
}

func newRouteRun(id, routeID, routeName string, mode Mode, tl *StopTimeline, roster *RosterIndex, notifier Notifier, now func() time.Time) *RouteRun {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if now == nil {
		now = time.Now
	}
	return &RouteRun{
		id:        id,
		routeID:   routeID,
		routeName: routeName,
		mode:      mode,
		startedAt: now(),
		timeline:  tl,
		roster:    roster,
		ledger:    NewCheckInLedger(id, roster, now),
		selected:  tl.First().ID,
		notifier:  notifier,
	}
}

func (r *RouteRun) ID() string      { return r.id }
func (r *RouteRun) RouteID() string { return r.routeID }

func (r *RouteRun) Mode() Mode {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mode
}

// SetMode relabels what "completed" means without resetting any record.
// Once records are resolved that relabeling silently repurposes them, so it
// is refused unless the caller forces it.
func (r *RouteRun) SetMode(mode Mode, force bool) error {
	if _, err := ParseMode(string(mode)); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if mode == r.mode {
		return nil
	}
	if !force && r.ledger.AnyResolved() {
		return ErrModeChangeUnsafe
	}
	r.mode = mode
	return nil
}

// SelectStop moves the viewing context. It does not mutate run state.
func (r *RouteRun) SelectStop(stopID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.timeline.Contains(stopID) {
		return ErrInvalidStop
	}
	r.selected = stopID
	return nil
}

func (r *RouteRun) SelectedStop() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.selected
}

// CurrentStop derives the active stop from roster state: the first stop in
// sequence order with any pending student. ok is false once the run is done.
func (r *RouteRun) CurrentStop() (TimelineStop, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.timeline.CurrentStop(r.ledger.HasPendingAtStop)
}

// Completed reports whether every record is resolved.
func (r *RouteRun) Completed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ledger.AllResolved()
}

// Progress returns counts scoped to the selected stop's roster.
func (r *RouteRun) Progress() Progress {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.progressAt(r.selected)
}

// ProgressAt returns counts for an explicit stop.
func (r *RouteRun) ProgressAt(stopID string) (Progress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.timeline.Contains(stopID) {
		return Progress{}, ErrInvalidStop
	}
	return r.progressAt(stopID), nil
}

func (r *RouteRun) progressAt(stopID string) Progress {
	total, resolved := r.ledger.CountAtStop(stopID)
	p := Progress{Total: total, Resolved: resolved, Remaining: total - resolved}
	if total > 0 {
		p.Percent = int(math.Round(float64(resolved) / float64(total) * 100))
	}
	return p
}

// RosterAt returns the roster entries bound to a stop.
func (r *RouteRun) RosterAt(stopID string) ([]RosterEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.timeline.Contains(stopID) {
		return nil, ErrInvalidStop
	}
	return r.roster.EntriesForStop(stopID), nil
}

// Record returns a student's check-in record.
func (r *RouteRun) Record(studentID string) (CheckInRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ledger.Record(studentID)
}

// VerifyCode checks a submitted code against the student's assigned one.
func (r *RouteRun) VerifyCode(studentID, submitted string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ledger.VerifyCode(studentID, submitted)
}

// MarkCompleted resolves one student and publishes the transition.
func (r *RouteRun) MarkCompleted(studentID string) error {
	r.mu.Lock()
	entry, err := r.roster.EntryFor(studentID)
	if err == nil {
		err = r.ledger.MarkCompleted(studentID)
	}
	if err != nil {
		r.mu.Unlock()
		return err
	}
	events := r.transitionEvents(EventCheckIn, entry)
	r.mu.Unlock()
	r.publish(events)
	return nil
}

// MarkAbsent resolves one student as absent and publishes the transition.
func (r *RouteRun) MarkAbsent(studentID string) error {
	r.mu.Lock()
	entry, err := r.roster.EntryFor(studentID)
	if err == nil {
		err = r.ledger.MarkAbsent(studentID)
	}
	if err != nil {
		r.mu.Unlock()
		return err
	}
	events := r.transitionEvents(EventAbsent, entry)
	r.mu.Unlock()
	r.publish(events)
	return nil
}

// MarkAllAtStop resolves every pending student at the stop to completed and
// returns the affected student ids.
func (r *RouteRun) MarkAllAtStop(stopID string) ([]string, error) {
	r.mu.Lock()
	if !r.timeline.Contains(stopID) {
		r.mu.Unlock()
		return nil, ErrInvalidStop
	}
	done := r.ledger.MarkAllAtStop(stopID)
	var events []Event
	for _, sid := range done {
		events = append(events, r.event(EventCheckIn, sid, stopID, 0))
	}
	if len(done) > 0 && r.ledger.AllResolved() {
		events = append(events, r.event(EventRunCompleted, "", "", 0))
	}
	r.mu.Unlock()
	r.publish(events)
	return done, nil
}

// AdvanceDelay shifts a stop's ETA and every downstream ETA by +minutes and
// publishes one delay event on the stop where the delay was reported.
func (r *RouteRun) AdvanceDelay(stopID string, minutes int) error {
	r.mu.Lock()
	if err := r.timeline.AdvanceDelay(stopID, minutes); err != nil {
		r.mu.Unlock()
		return err
	}
	e := r.event(EventDelay, "", stopID, minutes)
	r.mu.Unlock()
	r.publish([]Event{e})
	return nil
}

// transitionEvents builds the events for one resolved student, appending the
// run-completed event when that resolution was the last one. Caller holds mu.
func (r *RouteRun) transitionEvents(t EventType, entry RosterEntry) []Event {
	events := []Event{r.event(t, entry.StudentID, entry.StopID, 0)}
	if r.ledger.AllResolved() {
		events = append(events, r.event(EventRunCompleted, "", "", 0))
	}
	return events
}

func (r *RouteRun) event(t EventType, studentID, stopID string, minutes int) Event {
	return Event{
		Type:      t,
		RunID:     r.id,
		RouteID:   r.routeID,
		Mode:      r.mode,
		StudentID: studentID,
		StopID:    stopID,
		Minutes:   minutes,
		At:        time.Now(),
	}
}

func (r *RouteRun) publish(events []Event) {
	for _, e := range events {
		r.notifier.Notify(e)
	}
}
