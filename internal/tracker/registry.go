package tracker

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"sort"
	"sync"
	"time"
)

// StopDef is a catalog stop a run's timeline is cloned from.
type StopDef struct {
	ID        string
	Seq       int
	Name      string
	Scheduled TimeOfDay
}

// StudentDef is a catalog roster binding: one student, one stop.
type StudentDef struct {
	StudentID string
	Name      string
	StopID    string
}

// RouteDef is the catalog definition a run starts from. The registry copies
// what it needs; run-scoped delays never touch the definition.
type RouteDef struct {
	ID        string
	Name      string
	Direction string
	VehicleID string
	Stops     []StopDef
	Roster    []StudentDef
}

// CodeFunc generates one verification code. Swapped out in tests.
type CodeFunc func() string

// NewCode draws a 4-digit verification code from crypto/rand.
func NewCode() string {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		// rand.Reader failing means the platform entropy source is broken;
		// nothing sensible to fall back to.
		panic(fmt.Sprintf("verification code generation failed: %v", err))
	}
	return fmt.Sprintf("%04d", n)
}

// RunRegistry owns every route definition and every active run. Cross-run
// operations are independent; per-run mutations are serialized inside each
// RouteRun.
type RunRegistry struct {
	mu      sync.RWMutex
	routes  map[string]RouteDef
	runs    map[string]*RouteRun
	byRoute map[string][]string // run ids in start order

	notifier Notifier
	now      func() time.Time
	newCode  CodeFunc
}

func NewRunRegistry(notifier Notifier) *RunRegistry {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &RunRegistry{
		routes:   make(map[string]RouteDef),
		runs:     make(map[string]*RouteRun),
		byRoute:  make(map[string][]string),
		notifier: notifier,
		now:      time.Now,
		newCode:  NewCode,
	}
}

// AddRoute registers or replaces a route definition. The stop sequence must
// be valid and every roster entry must reference a known stop.
func (g *RunRegistry) AddRoute(def RouteDef) error {
	stops := make([]TimelineStop, 0, len(def.Stops))
	for _, s := range def.Stops {
		stops = append(stops, TimelineStop{ID: s.ID, Seq: s.Seq, Name: s.Name, Scheduled: s.Scheduled})
	}
	tl, err := NewStopTimeline(stops)
	if err != nil {
		return fmt.Errorf("route %q: %w", def.ID, err)
	}
	for _, st := range def.Roster {
		if !tl.Contains(st.StopID) {
			return fmt.Errorf("route %q: student %q assigned to unknown stop %q", def.ID, st.StudentID, st.StopID)
		}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.routes[def.ID] = def
	return nil
}

// Route returns a route definition by id.
func (g *RunRegistry) Route(routeID string) (RouteDef, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	def, ok := g.routes[routeID]
	if !ok {
		return RouteDef{}, ErrRouteNotFound
	}
	return def, nil
}

// Routes lists all known route definitions, sorted by id.
func (g *RunRegistry) Routes() []RouteDef {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]RouteDef, 0, len(g.routes))
	for _, def := range g.routes {
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// StartRun creates a run for a route+mode: a fresh timeline clone, a roster
// with newly assigned verification codes, and every record pending.
func (g *RunRegistry) StartRun(routeID string, mode Mode) (*RouteRun, error) {
	if _, err := ParseMode(string(mode)); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	def, ok := g.routes[routeID]
	if !ok {
		return nil, ErrRouteNotFound
	}

	stops := make([]TimelineStop, 0, len(def.Stops))
	for _, s := range def.Stops {
		stops = append(stops, TimelineStop{ID: s.ID, Seq: s.Seq, Name: s.Name, Scheduled: s.Scheduled})
	}
	tl, err := NewStopTimeline(stops)
	if err != nil {
		return nil, fmt.Errorf("route %q: %w", routeID, err)
	}

	entries := make([]RosterEntry, 0, len(def.Roster))
	for _, st := range def.Roster {
		entries = append(entries, RosterEntry{
			StudentID: st.StudentID,
			Name:      st.Name,
			StopID:    st.StopID,
			Code:      g.newCode(),
		})
	}
	roster, err := NewRosterIndex(entries)
	if err != nil {
		return nil, fmt.Errorf("route %q: %w", routeID, err)
	}

	runID := g.nextRunID(routeID, mode)
	run := newRouteRun(runID, def.ID, def.Name, mode, tl, roster, g.notifier, g.now)
	g.runs[runID] = run
	g.byRoute[routeID] = append(g.byRoute[routeID], runID)

	g.notifier.Notify(Event{
		Type:    EventRunStarted,
		RunID:   runID,
		RouteID: routeID,
		Mode:    mode,
		At:      g.now(),
	})
	return run, nil
}

// nextRunID is <route>-<mode>-<unix>, suffixed when two runs start within
// the same second. Caller holds mu.
func (g *RunRegistry) nextRunID(routeID string, mode Mode) string {
	base := fmt.Sprintf("%s-%s-%d", routeID, mode, g.now().Unix())
	id := base
	for i := 2; ; i++ {
		if _, taken := g.runs[id]; !taken {
			return id
		}
		id = fmt.Sprintf("%s-%d", base, i)
	}
}

// Run returns an active run by id.
func (g *RunRegistry) Run(runID string) (*RouteRun, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	run, ok := g.runs[runID]
	if !ok {
		return nil, ErrRunNotFound
	}
	return run, nil
}

// RunsForRoute returns a route's runs in start order.
func (g *RunRegistry) RunsForRoute(routeID string) []*RouteRun {
	g.mu.RLock()
	defer g.mu.RUnlock()
	ids := g.byRoute[routeID]
	out := make([]*RouteRun, 0, len(ids))
	for _, id := range ids {
		out = append(out, g.runs[id])
	}
	return out
}
