package metrics

import (
	"time"
)

// CascadeRun summarises one computed cascade simulation.
type CascadeRun struct {
	Scenario        string
	ForecastHour    int
	TotalNodes      int
	FailedNodes     int
	Depth           int
	WeatherFailures int
	LoadShedMW      float64
	Converged       bool
	Duration        time.Duration
	Time            time.Time
}

// MetricsSink records simulation results for observability purposes.
type MetricsSink interface {
	RecordCascadeRun(run CascadeRun) error
}

// AssignmentEvent captures a crew being dispatched to a failed node.
type AssignmentEvent struct {
	SessionID    string
	AssignmentID string
	CrewID       string
	NodeID       string
	FailureType  string
	Match        string
	DistanceKm   float64
	ETAMinutes   int
	Time         time.Time
}

// AssignmentRecorder records crew dispatches.
type AssignmentRecorder interface {
	RecordAssignment(ev AssignmentEvent) error
}

// TransitionEvent captures a status change of an assignment.
type TransitionEvent struct {
	SessionID    string
	AssignmentID string
	CrewID       string
	NodeID       string
	From         string
	To           string
	Time         time.Time
}

// TransitionRecorder records assignment status changes.
type TransitionRecorder interface {
	RecordTransition(ev TransitionEvent) error
}

// SessionCountRecorder records the number of open dispatch sessions.
type SessionCountRecorder interface {
	RecordSessionCount(n int) error
}

// NopSink implements MetricsSink with no-op methods.
type NopSink struct{}

func (NopSink) RecordCascadeRun(CascadeRun) error      { return nil }
func (NopSink) RecordAssignment(AssignmentEvent) error { return nil }
func (NopSink) RecordTransition(TransitionEvent) error { return nil }
func (NopSink) RecordSessionCount(int) error           { return nil }
