package controllers

import (
	"github.com/sirupsen/logrus"

	"schoolbus_tracker/internal/config"
	"schoolbus_tracker/internal/models"
	"schoolbus_tracker/internal/tracker"
)

// auditNotifier appends every run event to the run_events table. Writes are
// best effort: the in-memory run already holds the truth, so a failed insert
// is logged and dropped rather than failing the command.
type auditNotifier struct{}

// NewAuditNotifier returns the sink that persists run events.
func NewAuditNotifier() tracker.Notifier {
	return auditNotifier{}
}

func (auditNotifier) Notify(e tracker.Event) {
	if config.DB == nil {
		return
	}
	row := models.RunEvent{
		RunID:     e.RunID,
		RouteID:   e.RouteID,
		EventType: string(e.Type),
		Mode:      string(e.Mode),
		StudentID: e.StudentID,
		StopID:    e.StopID,
		Minutes:   e.Minutes,
		Timestamp: e.At,
	}
	if err := config.DB.Create(&row).Error; err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"run_id": e.RunID,
			"type":   e.Type,
		}).Error("failed to persist run event")
	}
}
