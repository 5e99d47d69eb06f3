package model

// CrewStatus is the lifecycle state shared by crews and their assignments.
type CrewStatus string

const (
	CrewStandby    CrewStatus = "standby"
	CrewDeployed   CrewStatus = "deployed"
	CrewDispatched CrewStatus = "dispatched"
	CrewEnRoute    CrewStatus = "en_route"
	CrewOnSite     CrewStatus = "on_site"
	CrewRepairing  CrewStatus = "repairing"
	CrewComplete   CrewStatus = "complete"
)

// Available reports whether a crew in this status can take a new assignment.
func (s CrewStatus) Available() bool {
	return s == CrewStandby || s == CrewComplete
}

// Active reports whether the status belongs to a non-terminal assignment.
func (s CrewStatus) Active() bool {
	switch s {
	case CrewDispatched, CrewEnRoute, CrewOnSite, CrewRepairing:
		return true
	}
	return false
}

// Specialty is the skill tag of a repair crew.
type Specialty string

const (
	SpecialtyLineRepair   Specialty = "line_repair"
	SpecialtySubstation   Specialty = "substation"
	SpecialtyDistribution Specialty = "distribution"
	SpecialtyGeneration   Specialty = "generation"
)

// Crew is a repair crew. The roster is supplied externally; the dispatch
// scheduler owns its working copy.
type Crew struct {
	ID           string     `json:"crew_id" yaml:"crew_id"`
	Name         string     `json:"name" yaml:"name"`
	Status       CrewStatus `json:"status" yaml:"status"`
	Lat          float64    `json:"lat" yaml:"lat"`
	Lon          float64    `json:"lon" yaml:"lon"`
	City         string     `json:"city,omitempty" yaml:"city"`
	Specialty    Specialty  `json:"specialty" yaml:"specialty"`
	AssignedNode string     `json:"assigned_node,omitempty" yaml:"-"`
	ETAMinutes   *int       `json:"eta_minutes,omitempty" yaml:"-"`
}
