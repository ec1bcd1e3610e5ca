package tracker

import "time"

// EventType labels a run state transition.
type EventType string

const (
	EventRunStarted   EventType = "run_started"
	EventCheckIn      EventType = "check_in"
	EventAbsent       EventType = "absent"
	EventDelay        EventType = "delay"
	EventRunCompleted EventType = "run_completed"
)

// Event is one state transition, handed to interested sinks (dispatcher
// feed, guardian notifications, metrics, audit). Sinks must not block the
// caller and must not call back into the run.
type Event struct {
	Type      EventType `json:"type"`
	RunID     string    `json:"run_id"`
	RouteID   string    `json:"route_id"`
	Mode      Mode      `json:"mode"`
	StudentID string    `json:"student_id,omitempty"`
	StopID    string    `json:"stop_id,omitempty"`
	Minutes   int       `json:"minutes,omitempty"`
	At        time.Time `json:"at"`
}

// Notifier receives run events. Delivery is best effort; the run never
// depends on a sink's outcome.
type Notifier interface {
	Notify(Event)
}

// NopNotifier discards every event.
type NopNotifier struct{}

func (NopNotifier) Notify(Event) {}

// MultiNotifier fans each event out to every sink in order.
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(e Event) {
	for _, n := range m {
		n.Notify(e)
	}
}
