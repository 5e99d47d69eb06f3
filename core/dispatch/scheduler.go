package dispatch

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kilianp07/blackout/core/cascade"
	"github.com/kilianp07/blackout/core/events"
	"github.com/kilianp07/blackout/core/logger"
	"github.com/kilianp07/blackout/core/model"
	"github.com/kilianp07/blackout/internal/eventbus"
)

// Scheduler assigns repair crews to the nodes failed by a cascade and tracks
// every assignment through dispatch, travel, repair and completion. A
// Scheduler holds the state of exactly one session. Mutating operations are
// serialized; Status and RecommendDispatch may run concurrently with each
// other.
type Scheduler struct {
	mu  sync.RWMutex
	cfg Config
	id  string
	log logger.Logger
	bus eventbus.EventBus
	now func() time.Time

	storm       bool
	crews       map[string]*model.Crew
	failed      map[string]FailedNode
	failedOrder []string
	assignments []*entry
	repaired    map[string]struct{}
	counter     int
}

// entry is the scheduler's record of an assignment. The crew's origin is kept
// so travel can be interpolated from absolute elapsed time.
type entry struct {
	a         Assignment
	originLat float64
	originLon float64
}

// Option customises a Scheduler.
type Option func(*Scheduler)

// WithClock overrides the wall clock, mainly for tests and simulated runs.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Scheduler) { s.log = logger.OrNop(l) }
}

// WithEventBus publishes assignment and transition events on bus.
func WithEventBus(bus eventbus.EventBus) Option {
	return func(s *Scheduler) { s.bus = bus }
}

// WithSessionID labels the scheduler's status and events.
func WithSessionID(id string) Option {
	return func(s *Scheduler) { s.id = id }
}

// NewScheduler returns an empty scheduler. Zero config fields take defaults.
func NewScheduler(cfg Config, opts ...Option) *Scheduler {
	cfg.SetDefaults()
	s := &Scheduler{cfg: cfg, log: logger.Nop{}, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	s.reset(cfg.StormMode)
	return s
}

// SessionID returns the identifier given at construction.
func (s *Scheduler) SessionID() string { return s.id }

// StormMode reports whether travel times use the storm speed.
func (s *Scheduler) StormMode() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.storm
}

// Reset wipes crews, failed nodes, assignments and repairs, restarts the
// assignment counter and sets the storm mode.
func (s *Scheduler) Reset(stormMode bool) {
	s.mu.Lock()
	s.reset(stormMode)
	s.mu.Unlock()
	s.log.Debugf("dispatch session %s reset storm_mode=%t", s.id, stormMode)
}

func (s *Scheduler) reset(storm bool) {
	s.storm = storm
	s.crews = make(map[string]*model.Crew)
	s.failed = make(map[string]FailedNode)
	s.failedOrder = nil
	s.assignments = nil
	s.repaired = make(map[string]struct{})
	s.counter = 0
}

// LoadCrews replaces the roster. Every crew starts in standby whatever its
// declared status, except crews holding an active assignment: they keep
// their current state and position, and stay on the roster even when the new
// one omits them, so no crew ever holds two active assignments.
func (s *Scheduler) LoadCrews(roster []model.Crew) {
	s.mu.Lock()
	defer s.mu.Unlock()
	busy := make(map[string]*model.Crew)
	for _, e := range s.assignments {
		if e.a.Status.Active() {
			if c, ok := s.crews[e.a.CrewID]; ok {
				busy[c.ID] = c
			}
		}
	}
	s.crews = make(map[string]*model.Crew, len(roster)+len(busy))
	for _, c := range roster {
		if _, ok := busy[c.ID]; ok {
			continue
		}
		c.Status = model.CrewStandby
		c.AssignedNode = ""
		c.ETAMinutes = nil
		s.crews[c.ID] = &c
	}
	for id, c := range busy {
		s.crews[id] = c
	}
	s.log.Infof("dispatch session %s loaded %d crews (%d kept on active assignments)", s.id, len(s.crews), len(busy))
}

// LoadFailedNodes replaces the failed-node set with every node that failed in
// res. A node keeps the values of the first step it appears in. attrs supplies
// the static attributes used for classification and may be nil.
func (s *Scheduler) LoadFailedNodes(res cascade.Result, attrs map[string]model.NodeAttributes) []FailedNode {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed = make(map[string]FailedNode)
	s.failedOrder = nil
	out := []FailedNode{}
	for _, step := range res.Steps {
		for _, f := range step.NewFailures {
			if _, seen := s.failed[f.ID]; seen {
				continue
			}
			a := attrs[f.ID]
			fn := FailedNode{
				ID:          f.ID,
				Lat:         f.Lat,
				Lon:         f.Lon,
				LoadMW:      f.LoadMW,
				CapacityMW:  f.CapacityMW,
				VoltageKV:   a.VoltageKV,
				WeatherZone: a.WeatherZone,
				FailureType: ClassifyFailure(a),
			}
			s.failed[f.ID] = fn
			s.failedOrder = append(s.failedOrder, f.ID)
			out = append(out, fn)
		}
	}
	s.log.Infof("dispatch session %s tracking %d failed nodes from %s", s.id, len(out), res.Scenario)
	return out
}

// FailedNodes returns the failed-node set in the order the nodes failed.
func (s *Scheduler) FailedNodes() []FailedNode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]FailedNode, 0, len(s.failedOrder))
	for _, id := range s.failedOrder {
		out = append(out, s.failed[id])
	}
	return out
}

// claimed returns the targets holding a non-complete assignment.
func (s *Scheduler) claimed() map[string]bool {
	out := make(map[string]bool, len(s.assignments))
	for _, e := range s.assignments {
		if e.a.Status != model.CrewComplete {
			out[e.a.TargetNodeID] = true
		}
	}
	return out
}

func (s *Scheduler) unassigned() []FailedNode {
	claimed := s.claimed()
	var out []FailedNode
	for _, id := range s.failedOrder {
		if claimed[id] {
			continue
		}
		if _, ok := s.repaired[id]; ok {
			continue
		}
		out = append(out, s.failed[id])
	}
	return out
}

func (s *Scheduler) availableCrews() []*model.Crew {
	var out []*model.Crew
	for _, c := range s.crews {
		if c.Status.Available() {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// RecommendDispatch plans one crew per unassigned failed node without
// changing any state. The heaviest failures are served first and each picks
// the best scoring crew still free in this pass.
func (s *Scheduler) RecommendDispatch() Recommendation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	crews := s.availableCrews()
	nodes := s.unassigned()
	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].LoadMW != nodes[j].LoadMW {
			return nodes[i].LoadMW > nodes[j].LoadMW
		}
		return nodes[i].ID < nodes[j].ID
	})

	rec := Recommendation{
		Assignments:         []Assignment{},
		UnassignedNodes:     []FailedNode{},
		TotalCrewsAvailable: len(crews),
		TotalFailedNodes:    len(nodes),
	}
	used := make(map[string]bool, len(crews))
	speed := s.cfg.speed(s.storm)
	etaSum := 0
	for _, n := range nodes {
		ideal := n.FailureType.IdealSpecialty()
		var best *model.Crew
		bestScore := -1.0
		var bestDist float64
		var bestMatch Match
		for _, c := range crews {
			if used[c.ID] {
				continue
			}
			dist := HaversineKm(c.Lat, c.Lon, n.Lat, n.Lon)
			mult, match := SpecialtyMatch(c.Specialty, ideal)
			score := matchScore(mult, n.LoadMW, dist)
			if score > bestScore {
				best, bestScore, bestDist, bestMatch = c, score, dist, match
			}
		}
		if best == nil {
			rec.UnassignedNodes = append(rec.UnassignedNodes, n)
			continue
		}
		used[best.ID] = true
		eta := ETAMinutes(bestDist, speed)
		etaSum += eta
		rec.Assignments = append(rec.Assignments, Assignment{
			ID:             fmt.Sprintf("REC-%04d", len(rec.Assignments)+1),
			CrewID:         best.ID,
			CrewName:       best.Name,
			TargetNodeID:   n.ID,
			TargetLat:      n.Lat,
			TargetLon:      n.Lon,
			DistanceKm:     round1(bestDist),
			ETAMinutes:     eta,
			SpecialtyMatch: bestMatch,
			MatchScore:     round2(bestScore),
			FailureType:    n.FailureType,
			Status:         model.CrewDispatched,
			RepairMinutes:  n.FailureType.RepairMinutes(),
		})
	}
	if k := len(rec.Assignments); k > 0 {
		rec.AvgETAMinutes = round1(float64(etaSum) / float64(k))
	}
	rec.CoveragePct = round2(float64(len(rec.Assignments)) / float64(max(len(nodes), 1)))
	return rec
}

// DispatchCrew sends crewID to nodeID. The returned error wraps
// ErrInvalidArgument when the crew or node is unknown, the crew is busy, or
// the node is already repaired or claimed.
func (s *Scheduler) DispatchCrew(crewID, nodeID string) (Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dispatch(crewID, nodeID)
}

// DispatchAll confirms every pairing of rec, skipping the ones that are no
// longer valid.
func (s *Scheduler) DispatchAll(rec Recommendation) []Assignment {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []Assignment{}
	for _, r := range rec.Assignments {
		a, err := s.dispatch(r.CrewID, r.TargetNodeID)
		if err != nil {
			s.log.Debugf("skipping recommendation %s: %v", r.ID, err)
			continue
		}
		out = append(out, a)
	}
	return out
}

func (s *Scheduler) dispatch(crewID, nodeID string) (Assignment, error) {
	crew, ok := s.crews[crewID]
	if !ok {
		return Assignment{}, fmt.Errorf("%w: unknown crew %s", ErrInvalidArgument, crewID)
	}
	if !crew.Status.Available() {
		return Assignment{}, fmt.Errorf("%w: crew %s is not available (status=%s)", ErrInvalidArgument, crewID, crew.Status)
	}
	node, ok := s.failed[nodeID]
	if !ok {
		return Assignment{}, fmt.Errorf("%w: unknown or non-failed node %s", ErrInvalidArgument, nodeID)
	}
	if _, done := s.repaired[nodeID]; done {
		return Assignment{}, fmt.Errorf("%w: node %s is already repaired", ErrInvalidArgument, nodeID)
	}
	if s.claimed()[nodeID] {
		return Assignment{}, fmt.Errorf("%w: node %s already has a crew assigned", ErrInvalidArgument, nodeID)
	}

	dist := HaversineKm(crew.Lat, crew.Lon, node.Lat, node.Lon)
	eta := ETAMinutes(dist, s.cfg.speed(s.storm))
	mult, match := SpecialtyMatch(crew.Specialty, node.FailureType.IdealSpecialty())
	now := s.now()

	s.counter++
	e := &entry{
		a: Assignment{
			ID:             fmt.Sprintf("DISP-%04d", s.counter),
			CrewID:         crew.ID,
			CrewName:       crew.Name,
			TargetNodeID:   node.ID,
			TargetLat:      node.Lat,
			TargetLon:      node.Lon,
			DistanceKm:     round1(dist),
			ETAMinutes:     eta,
			SpecialtyMatch: match,
			MatchScore:     round2(matchScore(mult, node.LoadMW, dist)),
			FailureType:    node.FailureType,
			Status:         model.CrewEnRoute,
			RepairMinutes:  node.FailureType.RepairMinutes(),
			DispatchedAt:   &now,
		},
		originLat: crew.Lat,
		originLon: crew.Lon,
	}
	s.assignments = append(s.assignments, e)

	crew.Status = model.CrewEnRoute
	crew.AssignedNode = node.ID
	crew.ETAMinutes = &eta

	assignmentsTotal.WithLabelValues(string(node.FailureType), string(match)).Inc()
	etaMinutes.Observe(float64(eta))
	s.log.Infof("dispatched crew %s to %s (%s, %.1f km, eta %d min)", crew.ID, node.ID, match, e.a.DistanceKm, eta)
	s.publish(events.AssignmentEvent{
		SessionID:    s.id,
		AssignmentID: e.a.ID,
		CrewID:       crew.ID,
		NodeID:       node.ID,
		FailureType:  string(node.FailureType),
		Match:        string(match),
		DistanceKm:   e.a.DistanceKm,
		ETAMinutes:   eta,
		Time:         now,
	})
	return e.a.clone(), nil
}

// Tick advances every assignment from the time elapsed since dispatch or
// arrival and returns the resulting status. Each call moves an assignment by
// at most one state, so skipped ticks are caught up on later calls.
func (s *Scheduler) Tick() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for _, e := range s.assignments {
		crew, ok := s.crews[e.a.CrewID]
		if !ok {
			continue
		}
		switch e.a.Status {
		case model.CrewDispatched, model.CrewEnRoute:
			s.advanceTravel(e, crew, now)
		case model.CrewOnSite:
			s.transition(e, crew, model.CrewRepairing, now)
		case model.CrewRepairing:
			if e.a.ArrivedAt == nil {
				continue
			}
			if now.Sub(*e.a.ArrivedAt).Minutes() >= float64(e.a.RepairMinutes) {
				t := now
				e.a.CompletedAt = &t
				s.repaired[e.a.TargetNodeID] = struct{}{}
				s.transition(e, crew, model.CrewComplete, now)
			}
		}
	}
	return s.status(now)
}

func (s *Scheduler) advanceTravel(e *entry, crew *model.Crew, now time.Time) {
	if e.a.DispatchedAt == nil {
		return
	}
	elapsed := now.Sub(*e.a.DispatchedAt).Minutes()
	remaining := e.a.ETAMinutes - int(elapsed)
	if remaining > e.a.ETAMinutes {
		remaining = e.a.ETAMinutes
	}
	if remaining <= 0 {
		t := now
		e.a.ArrivedAt = &t
		crew.Lat, crew.Lon = e.a.TargetLat, e.a.TargetLon
		zero := 0
		crew.ETAMinutes = &zero
		s.transition(e, crew, model.CrewOnSite, now)
		return
	}
	progress := elapsed / float64(max(e.a.ETAMinutes, 1))
	progress = min(1, max(0, progress))
	crew.Lat = round4(e.originLat + (e.a.TargetLat-e.originLat)*progress)
	crew.Lon = round4(e.originLon + (e.a.TargetLon-e.originLon)*progress)
	crew.ETAMinutes = &remaining
}

func (s *Scheduler) transition(e *entry, crew *model.Crew, to model.CrewStatus, now time.Time) {
	from := e.a.Status
	e.a.Status = to
	crew.Status = to
	transitionsTotal.WithLabelValues(string(to)).Inc()
	s.log.Debugw("assignment transition", map[string]any{
		"session":    s.id,
		"assignment": e.a.ID,
		"crew":       crew.ID,
		"from":       string(from),
		"to":         string(to),
	})
	s.publish(events.TransitionEvent{
		SessionID:    s.id,
		AssignmentID: e.a.ID,
		CrewID:       crew.ID,
		NodeID:       e.a.TargetNodeID,
		From:         from,
		To:           to,
		Time:         now,
	})
}

func (s *Scheduler) publish(ev eventbus.Event) {
	if s.bus != nil {
		s.bus.Publish(ev)
	}
}

// Status returns the current state without advancing it.
func (s *Scheduler) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status(s.now())
}

func (s *Scheduler) status(now time.Time) Status {
	st := Status{
		SessionID:     s.id,
		Assignments:   make([]Assignment, 0, len(s.assignments)),
		Crews:         make([]model.Crew, 0, len(s.crews)),
		RepairedNodes: make([]string, 0, len(s.repaired)),
		UpdatedAt:     now,
	}
	for _, e := range s.assignments {
		st.Assignments = append(st.Assignments, e.a.clone())
		switch e.a.Status {
		case model.CrewDispatched, model.CrewEnRoute:
			st.TotalDispatched++
		case model.CrewRepairing:
			st.TotalRepairing++
		case model.CrewComplete:
			st.TotalComplete++
		}
	}
	for _, c := range s.crews {
		cp := *c
		if c.ETAMinutes != nil {
			v := *c.ETAMinutes
			cp.ETAMinutes = &v
		}
		st.Crews = append(st.Crews, cp)
	}
	sort.Slice(st.Crews, func(i, j int) bool { return st.Crews[i].ID < st.Crews[j].ID })
	for id := range s.repaired {
		st.RepairedNodes = append(st.RepairedNodes, id)
	}
	sort.Strings(st.RepairedNodes)
	return st
}
