package tracker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureNotifier records published events in order.
type captureNotifier struct {
	events []Event
}

func (c *captureNotifier) Notify(e Event) { c.events = append(c.events, e) }

func (c *captureNotifier) ofType(t EventType) []Event {
	var out []Event
	for _, e := range c.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func routeRA() RouteDef {
	return RouteDef{
		ID:        "R-A",
		Name:      "Route A",
		Direction: "Morning",
		VehicleID: "KDA-101",
		Stops: []StopDef{
			{ID: "S1", Seq: 1, Name: "Maple Gate", Scheduled: 7*60 + 5},
			{ID: "S2", Seq: 2, Name: "Hill Crescent", Scheduled: 7*60 + 12},
			{ID: "S3", Seq: 3, Name: "Market Corner", Scheduled: 7*60 + 19},
		},
		Roster: []StudentDef{
			{StudentID: "X", Name: "Ada Wanjiru", StopID: "S2"},
			{StudentID: "Y", Name: "Brian Otieno", StopID: "S2"},
			{StudentID: "Z", Name: "Chebet Rono", StopID: "S2"},
			{StudentID: "W", Name: "Daud Hassan", StopID: "S1"},
		},
	}
}

// testRun starts a pickup run on R-A with deterministic codes:
// X=2041, Y=7713, Z=0098, W=5550.
func testRun(t *testing.T, notifier Notifier) *RouteRun {
	t.Helper()
	reg := NewRunRegistry(notifier)
	codes := []string{"2041", "7713", "0098", "5550"}
	i := 0
	reg.newCode = func() string {
		c := codes[i%len(codes)]
		i++
		return c
	}
	require.NoError(t, reg.AddRoute(routeRA()))
	run, err := reg.StartRun("R-A", ModePickup)
	require.NoError(t, err)
	return run
}

func TestRunScenarioDelayVerifyAndDoubleCheckIn(t *testing.T) {
	run := testRun(t, nil)

	require.NoError(t, run.AdvanceDelay("S2", 5))
	var etas []string
	for _, sv := range run.Snapshot().Stops {
		etas = append(etas, sv.ETA)
	}
	assert.Equal(t, []string{"07:05", "07:17", "07:24"}, etas)

	assert.ErrorIs(t, run.VerifyCode("X", "0000"), ErrOtpMismatch)
	assert.NoError(t, run.VerifyCode("X", "2041"))

	require.NoError(t, run.MarkCompleted("X"))
	assert.ErrorIs(t, run.MarkCompleted("X"), ErrAlreadyResolved)
}

func TestRunCurrentStopFollowsRosterState(t *testing.T) {
	run := testRun(t, nil)

	cur, ok := run.CurrentStop()
	require.True(t, ok)
	assert.Equal(t, "S1", cur.ID)

	// Resolving W empties S1; S2 becomes current. S3 has no roster, so
	// resolving S2 finishes the run.
	require.NoError(t, run.MarkCompleted("W"))
	cur, ok = run.CurrentStop()
	require.True(t, ok)
	assert.Equal(t, "S2", cur.ID)

	_, err := run.MarkAllAtStop("S2")
	require.NoError(t, err)
	_, ok = run.CurrentStop()
	assert.False(t, ok)
	assert.True(t, run.Completed())
}

func TestRunProgressScopedToSelectedStop(t *testing.T) {
	run := testRun(t, nil)

	require.NoError(t, run.SelectStop("S2"))
	p := run.Progress()
	assert.Equal(t, Progress{Total: 3, Resolved: 0, Remaining: 3, Percent: 0}, p)

	require.NoError(t, run.MarkCompleted("X"))
	p = run.Progress()
	assert.Equal(t, Progress{Total: 3, Resolved: 1, Remaining: 2, Percent: 33}, p)
	assert.Equal(t, p.Total, p.Resolved+p.Remaining)

	require.NoError(t, run.MarkAbsent("Y"))
	p = run.Progress()
	assert.Equal(t, Progress{Total: 3, Resolved: 2, Remaining: 1, Percent: 67}, p)
}

func TestRunProgressEmptyStopIsZeroNotPanic(t *testing.T) {
	run := testRun(t, nil)
	require.NoError(t, run.SelectStop("S3"))
	assert.Equal(t, Progress{}, run.Progress())
}

func TestRunSelectStopValidatesMembership(t *testing.T) {
	run := testRun(t, nil)
	assert.ErrorIs(t, run.SelectStop("S9"), ErrInvalidStop)
	assert.Equal(t, "S1", run.SelectedStop(), "failed select leaves cursor alone")
}

func TestRunMarkAllAtStopSkipsAbsent(t *testing.T) {
	run := testRun(t, nil)
	require.NoError(t, run.MarkAbsent("Z"))

	done, err := run.MarkAllAtStop("S2")
	require.NoError(t, err)
	assert.Equal(t, []string{"X", "Y"}, done)

	rec, err := run.Record("Z")
	require.NoError(t, err)
	assert.Equal(t, StatusAbsent, rec.Status)

	_, err = run.MarkAllAtStop("S9")
	assert.ErrorIs(t, err, ErrInvalidStop)
}

func TestRunSetModeGuard(t *testing.T) {
	run := testRun(t, nil)

	require.NoError(t, run.SetMode(ModeDrop, false))
	assert.Equal(t, ModeDrop, run.Mode())

	require.NoError(t, run.MarkCompleted("X"))
	assert.ErrorIs(t, run.SetMode(ModePickup, false), ErrModeChangeUnsafe)
	assert.Equal(t, ModeDrop, run.Mode())

	// Forcing reproduces the legacy behavior: labels flip, records stay.
	require.NoError(t, run.SetMode(ModePickup, true))
	assert.Equal(t, ModePickup, run.Mode())
	rec, _ := run.Record("X")
	assert.Equal(t, StatusCompleted, rec.Status)

	assert.ErrorIs(t, run.SetMode("teleport", false), ErrInvalidMode)
}

func TestRunPublishesTransitionEvents(t *testing.T) {
	sink := &captureNotifier{}
	run := testRun(t, sink)

	require.NoError(t, run.MarkCompleted("X"))
	require.NoError(t, run.MarkAbsent("Y"))
	require.NoError(t, run.AdvanceDelay("S1", 5))
	_, err := run.MarkAllAtStop("S2")
	require.NoError(t, err)
	require.NoError(t, run.MarkCompleted("W"))

	assert.Len(t, sink.ofType(EventRunStarted), 1)
	assert.Len(t, sink.ofType(EventCheckIn), 3) // X, Z (bulk), W
	assert.Len(t, sink.ofType(EventAbsent), 1)

	delays := sink.ofType(EventDelay)
	require.Len(t, delays, 1)
	assert.Equal(t, "S1", delays[0].StopID)
	assert.Equal(t, 5, delays[0].Minutes)

	done := sink.ofType(EventRunCompleted)
	require.Len(t, done, 1)
	assert.Equal(t, run.ID(), done[0].RunID)
}

func TestRunFailedCommandPublishesNothing(t *testing.T) {
	sink := &captureNotifier{}
	run := testRun(t, sink)
	before := len(sink.events)

	assert.Error(t, run.MarkCompleted("nobody"))
	assert.Error(t, run.AdvanceDelay("S9", 5))
	assert.Error(t, run.VerifyCode("X", "0000"))
	assert.Len(t, sink.events, before)
}

func TestModeActionLabel(t *testing.T) {
	assert.Equal(t, "boarded", ModePickup.ActionLabel())
	assert.Equal(t, "dropped", ModeDrop.ActionLabel())
}
