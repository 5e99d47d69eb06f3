package cascade

import "time"

// NodeStatus is the final classification of a node after a run.
type NodeStatus string

const (
	StatusFailed   NodeStatus = "failed"
	StatusStressed NodeStatus = "stressed"
	StatusNominal  NodeStatus = "nominal"
)

// WeatherStep is the index of the optional pre-cascade weather stage.
const WeatherStep = -1

// Failure describes a node that failed during a step. Values are rounded to
// one decimal.
type Failure struct {
	ID         string  `json:"id"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	LoadMW     float64 `json:"load_mw"`
	CapacityMW float64 `json:"capacity_mw"`
}

// Reroute records load pushed from a failed node onto a live neighbour.
type Reroute struct {
	FromID  string  `json:"from_id"`
	ToID    string  `json:"to_id"`
	FromLat float64 `json:"from_lat"`
	FromLon float64 `json:"from_lon"`
	ToLat   float64 `json:"to_lat"`
	ToLon   float64 `json:"to_lon"`
	LoadMW  float64 `json:"load_mw"`
}

// Step is one stage of the cascade.
type Step struct {
	Step            int       `json:"step"`
	NewFailures     []Failure `json:"new_failures"`
	Reroutes        []Reroute `json:"reroutes"`
	TotalFailed     int       `json:"total_failed"`
	TotalLoadShedMW float64   `json:"total_load_shed_mw"`
}

// NodeState is the final state of one node.
type NodeState struct {
	Status        NodeStatus `json:"status"`
	CurrentLoadMW float64    `json:"current_load_mw"`
	CapacityMW    float64    `json:"capacity_mw"`
	LoadPct       float64    `json:"load_pct"`
}

// LoadStats summarises load percentages over the surviving nodes.
type LoadStats struct {
	MeanPct   float64 `json:"mean_pct"`
	StdDevPct float64 `json:"stddev_pct"`
	MaxPct    float64 `json:"max_pct"`
	Stressed  int     `json:"stressed"`
}

// Result is the immutable outcome of a cascade run.
type Result struct {
	Scenario         string               `json:"scenario"`
	ForecastHour     int                  `json:"forecast_hour"`
	StartedAt        time.Time            `json:"started_at"`
	CompletedAt      time.Time            `json:"completed_at"`
	Steps            []Step               `json:"steps"`
	TotalFailedNodes int                  `json:"total_failed_nodes"`
	TotalNodes       int                  `json:"total_nodes"`
	CascadeDepth     int                  `json:"cascade_depth"`
	TotalLoadShedMW  float64              `json:"total_load_shed_mw"`
	FailedNodeIDs    []string             `json:"failed_node_ids"`
	FinalNodeStates  map[string]NodeState `json:"final_node_states"`

	// Converged is false when the iteration cap stopped a cascade that was
	// still producing failures. It is informational only.
	Converged       bool      `json:"converged"`
	WeatherFailures int       `json:"weather_failures"`
	LoadStats       LoadStats `json:"load_stats"`
}

// Duration returns the wall-clock time spent computing the result.
func (r Result) Duration() time.Duration { return r.CompletedAt.Sub(r.StartedAt) }

// Clone returns a deep copy of r.
func (r Result) Clone() Result {
	out := r
	out.Steps = cloneSlice(r.Steps)
	for i := range out.Steps {
		out.Steps[i].NewFailures = cloneSlice(r.Steps[i].NewFailures)
		out.Steps[i].Reroutes = cloneSlice(r.Steps[i].Reroutes)
	}
	out.FailedNodeIDs = cloneSlice(r.FailedNodeIDs)
	if r.FinalNodeStates != nil {
		out.FinalNodeStates = make(map[string]NodeState, len(r.FinalNodeStates))
		for id, st := range r.FinalNodeStates {
			out.FinalNodeStates[id] = st
		}
	}
	return out
}

// cloneSlice copies s, keeping nil and empty apart.
func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	return append(make([]T, 0, len(s)), s...)
}
