package dispatch

import (
	"time"

	"github.com/kilianp07/blackout/core/model"
)

// FailedNode is a node taken out by a cascade, enriched for dispatch.
type FailedNode struct {
	ID          string      `json:"id"`
	Lat         float64     `json:"lat"`
	Lon         float64     `json:"lon"`
	LoadMW      float64     `json:"load_mw"`
	CapacityMW  float64     `json:"capacity_mw"`
	VoltageKV   float64     `json:"voltage_kv"`
	WeatherZone string      `json:"weather_zone"`
	FailureType FailureType `json:"failure_type"`
}

// Assignment pairs a crew with a failed node. Timestamps stay nil until the
// corresponding state is reached.
type Assignment struct {
	ID             string           `json:"assignment_id"`
	CrewID         string           `json:"crew_id"`
	CrewName       string           `json:"crew_name"`
	TargetNodeID   string           `json:"target_node_id"`
	TargetLat      float64          `json:"target_lat"`
	TargetLon      float64          `json:"target_lon"`
	DistanceKm     float64          `json:"distance_km"`
	ETAMinutes     int              `json:"eta_minutes"`
	SpecialtyMatch Match            `json:"specialty_match"`
	MatchScore     float64          `json:"match_score"`
	FailureType    FailureType      `json:"failure_type"`
	Status         model.CrewStatus `json:"status"`
	RepairMinutes  int              `json:"repair_minutes"`
	DispatchedAt   *time.Time       `json:"dispatched_at"`
	ArrivedAt      *time.Time       `json:"arrived_at"`
	CompletedAt    *time.Time       `json:"completed_at"`
}

func (a Assignment) clone() Assignment {
	a.DispatchedAt = cloneTime(a.DispatchedAt)
	a.ArrivedAt = cloneTime(a.ArrivedAt)
	a.CompletedAt = cloneTime(a.CompletedAt)
	return a
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// Recommendation is the result of a read-only planning pass.
type Recommendation struct {
	Assignments         []Assignment `json:"assignments"`
	UnassignedNodes     []FailedNode `json:"unassigned_nodes"`
	TotalCrewsAvailable int          `json:"total_crews_available"`
	TotalFailedNodes    int          `json:"total_failed_nodes"`
	AvgETAMinutes       float64      `json:"avg_eta_minutes"`
	CoveragePct         float64      `json:"coverage_pct"`
}

// Status is a consistent snapshot of a dispatch session.
type Status struct {
	SessionID       string       `json:"session_id"`
	Assignments     []Assignment `json:"assignments"`
	Crews           []model.Crew `json:"crews"`
	RepairedNodes   []string     `json:"repaired_nodes"`
	TotalDispatched int          `json:"total_dispatched"`
	TotalRepairing  int          `json:"total_repairing"`
	TotalComplete   int          `json:"total_complete"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// Done reports whether every assignment has completed.
func (s Status) Done() bool {
	return len(s.Assignments) > 0 && s.TotalComplete == len(s.Assignments)
}
