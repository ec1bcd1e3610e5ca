package tracker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustTime(t *testing.T, s string) TimeOfDay {
	t.Helper()
	tod, err := ParseTimeOfDay(s)
	require.NoError(t, err)
	return tod
}

func morningTimeline(t *testing.T) *StopTimeline {
	t.Helper()
	tl, err := NewStopTimeline([]TimelineStop{
		{ID: "S1", Seq: 1, Name: "Maple Gate", Scheduled: mustTime(t, "07:05")},
		{ID: "S2", Seq: 2, Name: "Hill Crescent", Scheduled: mustTime(t, "07:12")},
		{ID: "S3", Seq: 3, Name: "Market Corner", Scheduled: mustTime(t, "07:19")},
	})
	require.NoError(t, err)
	return tl
}

func TestNewStopTimelineInitializesETAs(t *testing.T) {
	tl := morningTimeline(t)
	for _, s := range tl.Stops() {
		assert.Equal(t, s.Scheduled, s.ETA)
	}
}

func TestNewStopTimelineValidation(t *testing.T) {
	_, err := NewStopTimeline(nil)
	assert.Error(t, err)

	_, err = NewStopTimeline([]TimelineStop{
		{ID: "S1", Seq: 1, Scheduled: 100},
		{ID: "S1", Seq: 2, Scheduled: 110},
	})
	assert.Error(t, err)

	// Seq order must agree with scheduled-time order.
	_, err = NewStopTimeline([]TimelineStop{
		{ID: "S1", Seq: 1, Scheduled: 110},
		{ID: "S2", Seq: 2, Scheduled: 100},
	})
	assert.Error(t, err)
}

func TestAdvanceDelayShiftsStopAndDownstream(t *testing.T) {
	tl := morningTimeline(t)
	require.NoError(t, tl.AdvanceDelay("S2", 5))

	stops := tl.Stops()
	assert.Equal(t, "07:05", stops[0].ETA.Clock(), "earlier stop untouched")
	assert.Equal(t, "07:17", stops[1].ETA.Clock())
	assert.Equal(t, "07:24", stops[2].ETA.Clock())

	// Scheduled times never move.
	assert.Equal(t, "07:12", stops[1].Scheduled.Clock())
}

func TestAdvanceDelayCompounds(t *testing.T) {
	tl := morningTimeline(t)
	require.NoError(t, tl.AdvanceDelay("S1", 5))
	require.NoError(t, tl.AdvanceDelay("S2", 3))

	stops := tl.Stops()
	assert.Equal(t, "07:10", stops[0].ETA.Clock())
	assert.Equal(t, "07:20", stops[1].ETA.Clock())
	assert.Equal(t, "07:27", stops[2].ETA.Clock())
}

func TestAdvanceDelayErrors(t *testing.T) {
	tl := morningTimeline(t)
	assert.ErrorIs(t, tl.AdvanceDelay("S9", 5), ErrInvalidStop)
	assert.ErrorIs(t, tl.AdvanceDelay("S1", 0), ErrInvalidDelay)
	assert.ErrorIs(t, tl.AdvanceDelay("S1", -5), ErrInvalidDelay)
}

func TestCurrentStopDerivation(t *testing.T) {
	tl := morningTimeline(t)

	pendingAt := map[string]bool{"S1": true, "S2": true, "S3": true}
	hasPending := func(id string) bool { return pendingAt[id] }

	cur, ok := tl.CurrentStop(hasPending)
	require.True(t, ok)
	assert.Equal(t, "S1", cur.ID)

	pendingAt["S1"] = false
	cur, ok = tl.CurrentStop(hasPending)
	require.True(t, ok)
	assert.Equal(t, "S2", cur.ID)

	pendingAt["S2"] = false
	pendingAt["S3"] = false
	_, ok = tl.CurrentStop(hasPending)
	assert.False(t, ok)
}

func TestCloneIsIndependent(t *testing.T) {
	tl := morningTimeline(t)
	cp := tl.Clone()
	require.NoError(t, cp.AdvanceDelay("S1", 10))

	assert.Equal(t, "07:05", tl.Stops()[0].ETA.Clock())
	assert.Equal(t, "07:15", cp.Stops()[0].ETA.Clock())
}
