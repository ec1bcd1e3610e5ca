package tracker

import "time"

// Status is a student's check-in state for one run. "completed" means
// boarded on a pickup run and dropped on a drop run.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusAbsent    Status = "absent"
)

// CheckInRecord tracks one student's progress through one run. LastAction is
// nil until the first transition.
type CheckInRecord struct {
	StudentID  string
	RunID      string
	Status     Status
	LastAction *time.Time
}

// CheckInLedger holds the per-student records of a run. Transitions are
// terminal: once completed or absent a record never silently reverts.
type CheckInLedger struct {
	runID   string
	roster  *RosterIndex
	records map[string]*CheckInRecord
	now     func() time.Time
}

func NewCheckInLedger(runID string, roster *RosterIndex, now func() time.Time) *CheckInLedger {
	if now == nil {
		now = time.Now
	}
	l := &CheckInLedger{
		runID:   runID,
		roster:  roster,
		records: make(map[string]*CheckInRecord, roster.Len()),
		now:     now,
	}
	for _, e := range roster.Entries() {
		l.records[e.StudentID] = &CheckInRecord{
			StudentID: e.StudentID,
			RunID:     runID,
			Status:    StatusPending,
		}
	}
	return l
}

// VerifyCode compares a submitted code against the roster entry's assigned
// one. Verification is advisory: it never transitions status, so identity
// proof and check-in stay independently retryable.
func (l *CheckInLedger) VerifyCode(studentID, submitted string) error {
	e, err := l.roster.EntryFor(studentID)
	if err != nil {
		return err
	}
	if e.Code != submitted {
		return ErrOtpMismatch
	}
	return nil
}

// Record returns a copy of a student's record.
func (l *CheckInLedger) Record(studentID string) (CheckInRecord, error) {
	rec, ok := l.records[studentID]
	if !ok {
		return CheckInRecord{}, ErrUnknownStudent
	}
	return *rec, nil
}

// MarkCompleted resolves a pending student to completed.
func (l *CheckInLedger) MarkCompleted(studentID string) error {
	return l.resolve(studentID, StatusCompleted)
}

// MarkAbsent resolves a pending student to absent.
func (l *CheckInLedger) MarkAbsent(studentID string) error {
	return l.resolve(studentID, StatusAbsent)
}

func (l *CheckInLedger) resolve(studentID string, to Status) error {
	rec, ok := l.records[studentID]
	if !ok {
		return ErrUnknownStudent
	}
	if rec.Status != StatusPending {
		return ErrAlreadyResolved
	}
	ts := l.now()
	rec.Status = to
	rec.LastAction = &ts
	return nil
}

// MarkAllAtStop resolves every still-pending student at the stop to
// completed and returns their ids. An explicit absence is never overwritten
// by a bulk action.
func (l *CheckInLedger) MarkAllAtStop(stopID string) []string {
	var done []string
	for _, e := range l.roster.EntriesForStop(stopID) {
		rec := l.records[e.StudentID]
		if rec.Status != StatusPending {
			continue
		}
		ts := l.now()
		rec.Status = StatusCompleted
		rec.LastAction = &ts
		done = append(done, e.StudentID)
	}
	return done
}

// HasPendingAtStop reports whether any student at the stop is unresolved.
func (l *CheckInLedger) HasPendingAtStop(stopID string) bool {
	for _, e := range l.roster.EntriesForStop(stopID) {
		if l.records[e.StudentID].Status == StatusPending {
			return true
		}
	}
	return false
}

// CountAtStop returns the roster size and resolved count for one stop.
func (l *CheckInLedger) CountAtStop(stopID string) (total, resolved int) {
	for _, e := range l.roster.EntriesForStop(stopID) {
		total++
		if l.records[e.StudentID].Status != StatusPending {
			resolved++
		}
	}
	return total, resolved
}

// AnyResolved reports whether at least one record has left pending.
func (l *CheckInLedger) AnyResolved() bool {
	for _, rec := range l.records {
		if rec.Status != StatusPending {
			return true
		}
	}
	return false
}

// AllResolved reports whether every record is completed or absent.
func (l *CheckInLedger) AllResolved() bool {
	for _, rec := range l.records {
		if rec.Status == StatusPending {
			return false
		}
	}
	return true
}
