package tracker

import "time"

// StudentView is one roster entry with its live status. Codes are omitted;
// the dispatcher fetches those separately at run start.
type StudentView struct {
	StudentID  string     `json:"student_id"`
	Name       string     `json:"name"`
	Status     Status     `json:"status"`
	LastAction *time.Time `json:"last_action,omitempty"`
}

// StopView is one stop with its roster progress.
type StopView struct {
	ID        string        `json:"id"`
	Seq       int           `json:"seq"`
	Name      string        `json:"name"`
	Scheduled string        `json:"scheduled"`
	ETA       string        `json:"eta"`
	Progress  Progress      `json:"progress"`
	Students  []StudentView `json:"students"`
}

// RunSnapshot is a whole-run view for dashboards.
type RunSnapshot struct {
	RunID       string     `json:"run_id"`
	RouteID     string     `json:"route_id"`
	RouteName   string     `json:"route_name"`
	Mode        Mode       `json:"mode"`
	StartedAt   time.Time  `json:"started_at"`
	CurrentStop string     `json:"current_stop,omitempty"`
	Completed   bool       `json:"completed"`
	Stops       []StopView `json:"stops"`
}

// Snapshot captures the run under a single lock so a reader never sees a
// half-applied command.
func (r *RouteRun) Snapshot() RunSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := RunSnapshot{
		RunID:     r.id,
		RouteID:   r.routeID,
		RouteName: r.routeName,
		Mode:      r.mode,
		StartedAt: r.startedAt,
		Completed: r.ledger.AllResolved(),
	}
	if cur, ok := r.timeline.CurrentStop(r.ledger.HasPendingAtStop); ok {
		snap.CurrentStop = cur.ID
	}
	for _, s := range r.timeline.Stops() {
		sv := StopView{
			ID:        s.ID,
			Seq:       s.Seq,
			Name:      s.Name,
			Scheduled: s.Scheduled.Clock(),
			ETA:       s.ETA.Clock(),
			Progress:  r.progressAt(s.ID),
		}
		for _, e := range r.roster.EntriesForStop(s.ID) {
			rec := mustRecord(r.ledger, e.StudentID)
			sv.Students = append(sv.Students, StudentView{
				StudentID:  e.StudentID,
				Name:       e.Name,
				Status:     rec.Status,
				LastAction: rec.LastAction,
			})
		}
		snap.Stops = append(snap.Stops, sv)
	}
	return snap
}

func mustRecord(l *CheckInLedger, studentID string) CheckInRecord {
	rec, _ := l.Record(studentID)
	return rec
}
