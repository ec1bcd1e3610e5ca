package models

import (
	"time"

	"gorm.io/gorm"
)

// RunEvent is an audit row for one run state transition: a check-in, an
// absence, a delay report, or run start/completion. Appended best effort by
// the API layer; the in-memory run state is the source of truth.
type RunEvent struct {
	gorm.Model
	RunID     string    `json:"run_id" gorm:"index"`
	RouteID   string    `json:"route_id" gorm:"index"`
	EventType string    `json:"event_type"` // "run_started", "check_in", "absent", "delay", "run_completed"
	Mode      string    `json:"mode"`       // "pickup" or "drop"
	StudentID string    `json:"student_id"`
	StopID    string    `json:"stop_id"`
	Minutes   int       `json:"minutes"` // delay events only
	Timestamp time.Time `json:"timestamp"`
}
