package tracker

import "fmt"

// RosterEntry binds one student to one stop for a run. Code is the per-run
// verification code handed to the student's guardian; it never changes for
// the life of the run.
type RosterEntry struct {
	StudentID string
	Name      string
	StopID    string
	Code      string
}

// RosterIndex maps students to their assigned stops. Membership is fixed at
// run creation; stop iteration preserves insertion order.
type RosterIndex struct {
	entries   []RosterEntry
	byStudent map[string]int
	byStop    map[string][]int
}

func NewRosterIndex(entries []RosterEntry) (*RosterIndex, error) {
	r := &RosterIndex{
		entries:   make([]RosterEntry, len(entries)),
		byStudent: make(map[string]int, len(entries)),
		byStop:    make(map[string][]int),
	}
	copy(r.entries, entries)
	for i, e := range r.entries {
		if _, dup := r.byStudent[e.StudentID]; dup {
			return nil, fmt.Errorf("student %q appears twice on roster", e.StudentID)
		}
		r.byStudent[e.StudentID] = i
		r.byStop[e.StopID] = append(r.byStop[e.StopID], i)
	}
	return r, nil
}

func (r *RosterIndex) Len() int { return len(r.entries) }

// Entries returns the whole roster in insertion order.
func (r *RosterIndex) Entries() []RosterEntry {
	out := make([]RosterEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

// EntriesForStop returns every entry bound to a stop, in insertion order.
func (r *RosterIndex) EntriesForStop(stopID string) []RosterEntry {
	idx := r.byStop[stopID]
	out := make([]RosterEntry, 0, len(idx))
	for _, i := range idx {
		out = append(out, r.entries[i])
	}
	return out
}

// EntryFor looks a student up by id.
func (r *RosterIndex) EntryFor(studentID string) (RosterEntry, error) {
	i, ok := r.byStudent[studentID]
	if !ok {
		return RosterEntry{}, ErrUnknownStudent
	}
	return r.entries[i], nil
}
