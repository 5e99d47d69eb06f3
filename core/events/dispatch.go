package events

import (
	"time"

	"github.com/kilianp07/blackout/core/model"
)

// AssignmentEvent is published when a crew is dispatched to a failed node.
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

// TransitionEvent is published for every status change of an assignment.
type TransitionEvent struct {
	SessionID    string
	AssignmentID string
	CrewID       string
	NodeID       string
	From         model.CrewStatus
	To           model.CrewStatus
	Time         time.Time
}
