package cascade

import (
	"math"
	"math/rand/v2"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/kilianp07/blackout/core/logger"
	"github.com/kilianp07/blackout/core/model"
)

// Engine runs cascade simulations against grid snapshots.
type Engine struct {
	cfg Config
	log logger.Logger
	now func() time.Time
}

// Option customises an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for run summaries.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) { e.log = logger.OrNop(l) }
}

// WithClock overrides the clock used for the result timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine returns an engine using cfg after Config.SetDefaults.
func NewEngine(cfg Config, opts ...Option) *Engine {
	cfg.SetDefaults()
	e := &Engine{cfg: cfg, log: logger.Nop{}, now: time.Now}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Config returns the effective configuration.
func (e *Engine) Config() Config { return e.cfg }

// RunCascade runs a simulation with the default configuration.
func RunCascade(snap *model.Snapshot, multipliers map[string]float64, scenario string, forecastHour int, weather map[string]model.ZoneWeather) Result {
	return NewEngine(DefaultConfig()).Run(snap, multipliers, scenario, forecastHour, weather)
}

// state is the private working copy of one run.
type state struct {
	nodes    []model.GridNode
	load     []float64
	failed   []bool
	nFailed  int
	capacity []float64
}

func newState(snap *model.Snapshot, multipliers map[string]float64) *state {
	var nodes []model.GridNode
	if snap != nil {
		nodes = snap.Nodes()
	}
	st := &state{
		nodes:    nodes,
		load:     make([]float64, len(nodes)),
		failed:   make([]bool, len(nodes)),
		capacity: make([]float64, len(nodes)),
	}
	for i, n := range nodes {
		mult, ok := multipliers[n.ID]
		if !ok {
			mult = 1.0
		}
		st.load[i] = n.BaseLoadMW * mult
		st.capacity[i] = n.CapacityMW
	}
	return st
}

func (st *state) fail(i int) {
	if !st.failed[i] {
		st.failed[i] = true
		st.nFailed++
	}
}

// shed is the load currently held by failed nodes.
func (st *state) shed() float64 {
	held := make([]float64, 0, st.nFailed)
	for i, f := range st.failed {
		if f {
			held = append(held, st.load[i])
		}
	}
	return floats.Sum(held)
}

func (st *state) overloaded(threshold float64) []int {
	var out []int
	for i := range st.nodes {
		if st.failed[i] {
			continue
		}
		if st.load[i] > st.capacity[i]*threshold {
			out = append(out, i)
		}
	}
	return out
}

// Run executes the cascade. Missing multipliers default to 1.0 and weather
// may be nil. Run never fails; hitting the iteration cap truncates the
// cascade silently.
func (e *Engine) Run(snap *model.Snapshot, multipliers map[string]float64, scenario string, forecastHour int, weather map[string]model.ZoneWeather) Result {
	started := e.now()
	st := newState(snap, multipliers)
	e.log.Debugf("starting cascade scenario=%s hour=%d nodes=%d weather_zones=%d", scenario, forecastHour, len(st.nodes), len(weather))

	var steps []Step
	weatherFailures := 0
	if len(weather) > 0 {
		if step, ok := e.weatherStage(st, weather); ok {
			steps = append(steps, step)
			weatherFailures = len(step.NewFailures)
			e.log.Infof("cold-weather pre-failures: %d of %d nodes", weatherFailures, len(st.nodes))
		}
	}

	converged := false
	for iter := 0; iter < e.cfg.MaxIterations; iter++ {
		newly := st.overloaded(e.cfg.FailureThreshold)
		if len(newly) == 0 {
			converged = true
			break
		}
		steps = append(steps, e.redistribute(snap, st, iter, newly))
		e.log.Debugf("cascade iteration %d: %d new failures, %d total", iter, len(newly), st.nFailed)
	}
	if !converged {
		converged = len(st.overloaded(e.cfg.FailureThreshold)) == 0
	}

	res := e.assemble(st, steps)
	res.Scenario = scenario
	res.ForecastHour = forecastHour
	res.Converged = converged
	res.WeatherFailures = weatherFailures
	res.StartedAt = started
	res.CompletedAt = e.now()

	observeRun(res)
	e.log.Infof("cascade complete scenario=%s: %d/%d nodes failed, %d steps, %.0f MW shed",
		scenario, res.TotalFailedNodes, res.TotalNodes, res.CascadeDepth, res.TotalLoadShedMW)
	return res
}

// weatherStage pre-fails nodes exposed to cold. The generator is seeded per
// call so identical inputs fail identical nodes.
func (e *Engine) weatherStage(st *state, weather map[string]model.ZoneWeather) (Step, bool) {
	rng := rand.New(rand.NewPCG(e.cfg.Seed, e.cfg.Seed))
	var failures []Failure
	for i, n := range st.nodes {
		w, ok := weather[n.WeatherZone]
		if !ok {
			continue
		}
		p := e.coldFailureProbability(w.TempF)
		if p == 0 {
			continue
		}
		if st.capacity[i] > e.cfg.GenerationCapacityMW {
			p *= e.cfg.GenerationFactor
		}
		if rng.Float64() < p {
			st.fail(i)
			st.load[i] = 0
			failures = append(failures, Failure{
				ID:         n.ID,
				Lat:        n.Lat,
				Lon:        n.Lon,
				LoadMW:     0,
				CapacityMW: round1(st.capacity[i]),
			})
		}
	}
	if len(failures) == 0 {
		return Step{}, false
	}
	return Step{
		Step:            WeatherStep,
		NewFailures:     failures,
		Reroutes:        []Reroute{},
		TotalFailed:     st.nFailed,
		TotalLoadShedMW: 0,
	}, true
}

func (e *Engine) coldFailureProbability(tempF float64) float64 {
	switch {
	case tempF < e.cfg.ExtremeColdF:
		return e.cfg.ExtremeColdRate
	case tempF < e.cfg.ColdF:
		return e.cfg.ColdRate
	}
	return 0
}

// redistribute marks newly failed nodes and splits part of their load equally
// over the neighbours that are still alive. A node without live neighbours
// drops the shed load.
func (e *Engine) redistribute(snap *model.Snapshot, st *state, iter int, newly []int) Step {
	for _, i := range newly {
		st.fail(i)
	}
	reroutes := []Reroute{}
	for _, i := range newly {
		toShed := st.load[i] * e.cfg.RedistributionFactor
		var alive []int
		for _, j := range snap.NeighborsAt(i) {
			if !st.failed[j] {
				alive = append(alive, j)
			}
		}
		if len(alive) == 0 {
			continue
		}
		per := toShed / float64(len(alive))
		from := st.nodes[i]
		for _, j := range alive {
			st.load[j] += per
			to := st.nodes[j]
			reroutes = append(reroutes, Reroute{
				FromID:  from.ID,
				ToID:    to.ID,
				FromLat: from.Lat,
				FromLon: from.Lon,
				ToLat:   to.Lat,
				ToLon:   to.Lon,
				LoadMW:  round1(per),
			})
		}
	}
	failures := make([]Failure, 0, len(newly))
	for _, i := range newly {
		n := st.nodes[i]
		failures = append(failures, Failure{
			ID:         n.ID,
			Lat:        n.Lat,
			Lon:        n.Lon,
			LoadMW:     round1(st.load[i]),
			CapacityMW: round1(st.capacity[i]),
		})
	}
	return Step{
		Step:            iter,
		NewFailures:     failures,
		Reroutes:        reroutes,
		TotalFailed:     st.nFailed,
		TotalLoadShedMW: round1(st.shed()),
	}
}

func (e *Engine) assemble(st *state, steps []Step) Result {
	if steps == nil {
		steps = []Step{}
	}
	res := Result{
		Steps:            steps,
		TotalFailedNodes: st.nFailed,
		TotalNodes:       len(st.nodes),
		CascadeDepth:     len(steps),
		TotalLoadShedMW:  round1(st.shed()),
		FailedNodeIDs:    make([]string, 0, st.nFailed),
		FinalNodeStates:  make(map[string]NodeState, len(st.nodes)),
	}
	var alivePct []float64
	for i, n := range st.nodes {
		pct := loadPct(st.load[i], st.capacity[i])
		status := StatusNominal
		switch {
		case st.failed[i]:
			status = StatusFailed
			res.FailedNodeIDs = append(res.FailedNodeIDs, n.ID)
		case pct > e.cfg.StressedPct:
			status = StatusStressed
		}
		if !st.failed[i] {
			alivePct = append(alivePct, pct)
		}
		res.FinalNodeStates[n.ID] = NodeState{
			Status:        status,
			CurrentLoadMW: round1(st.load[i]),
			CapacityMW:    round1(st.capacity[i]),
			LoadPct:       round1(pct),
		}
	}
	sort.Strings(res.FailedNodeIDs)
	res.LoadStats = summarize(alivePct, e.cfg.StressedPct)
	return res
}

// loadPct treats zero capacity as 0% load.
func loadPct(load, capacity float64) float64 {
	if capacity <= 0 {
		return 0
	}
	return load / capacity * 100
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
