package tracker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryStartRunUnknownRoute(t *testing.T) {
	reg := NewRunRegistry(nil)
	_, err := reg.StartRun("nope", ModePickup)
	assert.ErrorIs(t, err, ErrRouteNotFound)
}

func TestRegistryStartRunBadMode(t *testing.T) {
	reg := NewRunRegistry(nil)
	require.NoError(t, reg.AddRoute(routeRA()))
	_, err := reg.StartRun("R-A", Mode("sideways"))
	assert.ErrorIs(t, err, ErrInvalidMode)
}

func TestRegistryAddRouteValidation(t *testing.T) {
	reg := NewRunRegistry(nil)

	def := routeRA()
	def.Stops = nil
	assert.Error(t, reg.AddRoute(def))

	def = routeRA()
	def.Roster = append(def.Roster, StudentDef{StudentID: "Q", Name: "Quint", StopID: "S99"})
	assert.Error(t, reg.AddRoute(def))
}

func TestRegistryStartRunInitializesFreshState(t *testing.T) {
	reg := NewRunRegistry(nil)
	require.NoError(t, reg.AddRoute(routeRA()))

	run, err := reg.StartRun("R-A", ModeDrop)
	require.NoError(t, err)
	assert.Equal(t, ModeDrop, run.Mode())

	snap := run.Snapshot()
	assert.False(t, snap.Completed)
	assert.Equal(t, "S1", snap.CurrentStop)
	for _, sv := range snap.Stops {
		assert.Equal(t, sv.Scheduled, sv.ETA, "fresh run starts undelayed")
		for _, st := range sv.Students {
			assert.Equal(t, StatusPending, st.Status)
		}
	}
}

func TestRegistryRunsGetIndependentTimelinesAndCodes(t *testing.T) {
	reg := NewRunRegistry(nil)
	require.NoError(t, reg.AddRoute(routeRA()))

	a, err := reg.StartRun("R-A", ModePickup)
	require.NoError(t, err)
	b, err := reg.StartRun("R-A", ModePickup)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID(), b.ID())

	// Delay on one run never leaks into the other or into the catalog.
	require.NoError(t, a.AdvanceDelay("S1", 20))
	assert.Equal(t, "07:05", b.Snapshot().Stops[0].ETA)

	c, err := reg.StartRun("R-A", ModePickup)
	require.NoError(t, err)
	assert.Equal(t, "07:05", c.Snapshot().Stops[0].ETA)
}

func TestRegistryLookups(t *testing.T) {
	reg := NewRunRegistry(nil)
	require.NoError(t, reg.AddRoute(routeRA()))

	run, err := reg.StartRun("R-A", ModePickup)
	require.NoError(t, err)

	got, err := reg.Run(run.ID())
	require.NoError(t, err)
	assert.Same(t, run, got)

	_, err = reg.Run("missing")
	assert.ErrorIs(t, err, ErrRunNotFound)

	runs := reg.RunsForRoute("R-A")
	require.Len(t, runs, 1)
	assert.Same(t, run, runs[0])
	assert.Empty(t, reg.RunsForRoute("R-B"))

	def, err := reg.Route("R-A")
	require.NoError(t, err)
	assert.Equal(t, "Route A", def.Name)
	_, err = reg.Route("R-B")
	assert.ErrorIs(t, err, ErrRouteNotFound)

	all := reg.Routes()
	require.Len(t, all, 1)
	assert.Equal(t, "R-A", all[0].ID)
}

func TestRegistryRunIDsUniqueWithinSameSecond(t *testing.T) {
	reg := NewRunRegistry(nil)
	fixed := time.Date(2025, 9, 1, 6, 30, 0, 0, time.UTC)
	reg.now = func() time.Time { return fixed }
	require.NoError(t, reg.AddRoute(routeRA()))

	a, err := reg.StartRun("R-A", ModePickup)
	require.NoError(t, err)
	b, err := reg.StartRun("R-A", ModePickup)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID(), b.ID())
}

func TestNewCodeShape(t *testing.T) {
	for i := 0; i < 50; i++ {
		code := NewCode()
		require.Len(t, code, 4)
		for _, c := range code {
			assert.True(t, c >= '0' && c <= '9')
		}
	}
}

func TestRegistryAssignsCodesPerRun(t *testing.T) {
	reg := NewRunRegistry(nil)
	n := 0
	reg.newCode = func() string { n++; return string(rune('0'+n%10)) + "000" }
	require.NoError(t, reg.AddRoute(routeRA()))

	run, err := reg.StartRun("R-A", ModePickup)
	require.NoError(t, err)

	entries, err := run.RosterAt("S2")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	seen := map[string]bool{}
	for _, e := range entries {
		assert.NotEmpty(t, e.Code)
		seen[e.Code] = true
	}
	assert.Len(t, seen, 3, "each student gets their own code")
}
