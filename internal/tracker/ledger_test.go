package tracker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock() func() time.Time {
	ts := time.Date(2025, 9, 1, 7, 0, 0, 0, time.UTC)
	return func() time.Time {
		ts = ts.Add(time.Minute)
		return ts
	}
}

func sampleLedger(t *testing.T) *CheckInLedger {
	t.Helper()
	return NewCheckInLedger("run-1", sampleRoster(t), fixedClock())
}

func TestLedgerStartsAllPending(t *testing.T) {
	l := sampleLedger(t)
	for _, id := range []string{"X", "Y", "Z", "W"} {
		rec, err := l.Record(id)
		require.NoError(t, err)
		assert.Equal(t, StatusPending, rec.Status)
		assert.Nil(t, rec.LastAction)
	}
}

func TestVerifyCode(t *testing.T) {
	l := sampleLedger(t)

	assert.ErrorIs(t, l.VerifyCode("X", "0000"), ErrOtpMismatch)
	assert.NoError(t, l.VerifyCode("X", "2041"))
	assert.ErrorIs(t, l.VerifyCode("nobody", "2041"), ErrUnknownStudent)

	// Verification is advisory: status stays pending either way.
	rec, _ := l.Record("X")
	assert.Equal(t, StatusPending, rec.Status)
}

func TestMarkCompletedStampsAction(t *testing.T) {
	l := sampleLedger(t)
	require.NoError(t, l.MarkCompleted("X"))

	rec, _ := l.Record("X")
	assert.Equal(t, StatusCompleted, rec.Status)
	require.NotNil(t, rec.LastAction)
}

func TestResolutionIsTerminal(t *testing.T) {
	l := sampleLedger(t)

	require.NoError(t, l.MarkCompleted("X"))
	assert.ErrorIs(t, l.MarkCompleted("X"), ErrAlreadyResolved)
	assert.ErrorIs(t, l.MarkAbsent("X"), ErrAlreadyResolved)

	require.NoError(t, l.MarkAbsent("Y"))
	assert.ErrorIs(t, l.MarkCompleted("Y"), ErrAlreadyResolved)
	assert.ErrorIs(t, l.MarkAbsent("Y"), ErrAlreadyResolved)
}

func TestMarkUnknownStudent(t *testing.T) {
	l := sampleLedger(t)
	assert.ErrorIs(t, l.MarkCompleted("nobody"), ErrUnknownStudent)
	assert.ErrorIs(t, l.MarkAbsent("nobody"), ErrUnknownStudent)
}

func TestMarkAllAtStopSkipsAbsent(t *testing.T) {
	l := sampleLedger(t)
	require.NoError(t, l.MarkAbsent("Z"))

	done := l.MarkAllAtStop("S2")
	assert.Equal(t, []string{"X", "Y"}, done)

	for id, want := range map[string]Status{"X": StatusCompleted, "Y": StatusCompleted, "Z": StatusAbsent} {
		rec, _ := l.Record(id)
		assert.Equal(t, want, rec.Status, "student %s", id)
	}

	// W is at a different stop and stays pending.
	rec, _ := l.Record("W")
	assert.Equal(t, StatusPending, rec.Status)
}

func TestMarkAllAtStopIsIdempotentOnResolvedStop(t *testing.T) {
	l := sampleLedger(t)
	l.MarkAllAtStop("S2")
	assert.Empty(t, l.MarkAllAtStop("S2"))
}

func TestStopCountsAndResolution(t *testing.T) {
	l := sampleLedger(t)

	total, resolved := l.CountAtStop("S2")
	assert.Equal(t, 3, total)
	assert.Equal(t, 0, resolved)
	assert.True(t, l.HasPendingAtStop("S2"))
	assert.False(t, l.AnyResolved())
	assert.False(t, l.AllResolved())

	require.NoError(t, l.MarkCompleted("X"))
	require.NoError(t, l.MarkAbsent("Y"))
	total, resolved = l.CountAtStop("S2")
	assert.Equal(t, 3, total)
	assert.Equal(t, 2, resolved)
	assert.True(t, l.AnyResolved())

	require.NoError(t, l.MarkCompleted("Z"))
	assert.False(t, l.HasPendingAtStop("S2"))
	assert.False(t, l.AllResolved(), "W still pending at S1")

	require.NoError(t, l.MarkCompleted("W"))
	assert.True(t, l.AllResolved())
}
