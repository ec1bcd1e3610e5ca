package tracker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRoster(t *testing.T) *RosterIndex {
	t.Helper()
	r, err := NewRosterIndex([]RosterEntry{
		{StudentID: "X", Name: "Ada Wanjiru", StopID: "S2", Code: "2041"},
		{StudentID: "Y", Name: "Brian Otieno", StopID: "S2", Code: "7713"},
		{StudentID: "Z", Name: "Chebet Rono", StopID: "S2", Code: "0098"},
		{StudentID: "W", Name: "Daud Hassan", StopID: "S1", Code: "5550"},
	})
	require.NoError(t, err)
	return r
}

func TestRosterEntriesForStopKeepsInsertionOrder(t *testing.T) {
	r := sampleRoster(t)
	entries := r.EntriesForStop("S2")
	require.Len(t, entries, 3)
	assert.Equal(t, []string{"X", "Y", "Z"}, []string{entries[0].StudentID, entries[1].StudentID, entries[2].StudentID})
}

func TestRosterEntriesForUnknownStopIsEmpty(t *testing.T) {
	r := sampleRoster(t)
	assert.Empty(t, r.EntriesForStop("S9"))
}

func TestRosterEntryFor(t *testing.T) {
	r := sampleRoster(t)

	e, err := r.EntryFor("W")
	require.NoError(t, err)
	assert.Equal(t, "S1", e.StopID)
	assert.Equal(t, "5550", e.Code)

	_, err = r.EntryFor("nobody")
	assert.ErrorIs(t, err, ErrUnknownStudent)
}

func TestRosterRejectsDuplicateStudent(t *testing.T) {
	_, err := NewRosterIndex([]RosterEntry{
		{StudentID: "X", StopID: "S1"},
		{StudentID: "X", StopID: "S2"},
	})
	assert.Error(t, err)
}
