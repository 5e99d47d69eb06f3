package dispatchlog

import (
	"context"

	"github.com/kilianp07/blackout/core/events"
	"github.com/kilianp07/blackout/infra/logger"
	"github.com/kilianp07/blackout/internal/eventbus"
)

// RecordFromEvent converts a dispatch event into a journal entry. Other
// events report false.
func RecordFromEvent(ev eventbus.Event) (LogRecord, bool) {
	switch e := ev.(type) {
	case events.AssignmentEvent:
		return LogRecord{
			Timestamp:    e.Time,
			Kind:         KindAssignment,
			SessionID:    e.SessionID,
			AssignmentID: e.AssignmentID,
			CrewID:       e.CrewID,
			NodeID:       e.NodeID,
			FailureType:  e.FailureType,
			Match:        e.Match,
			DistanceKm:   e.DistanceKm,
			ETAMinutes:   e.ETAMinutes,
		}, true
	case events.TransitionEvent:
		return LogRecord{
			Timestamp:    e.Time,
			Kind:         KindTransition,
			SessionID:    e.SessionID,
			AssignmentID: e.AssignmentID,
			CrewID:       e.CrewID,
			NodeID:       e.NodeID,
			From:         string(e.From),
			To:           string(e.To),
		}, true
	}
	return LogRecord{}, false
}

// StartJournal appends every dispatch event published on bus to store. It
// subscribes durably, so bursts larger than the bus buffer are not lost, and
// keeps draining until the bus is closed; cancelling ctx does not abort
// pending appends. The returned channel is closed once the backlog is
// written.
func StartJournal(ctx context.Context, bus eventbus.EventBus, store LogStore) <-chan struct{} {
	done := make(chan struct{})
	log := logger.New("dispatch_journal")
	sub := bus.SubscribeDurable()
	appendCtx := context.WithoutCancel(ctx)
	go func() {
		defer close(done)
		for ev := range sub {
			rec, ok := RecordFromEvent(ev)
			if !ok {
				continue
			}
			if err := store.Append(appendCtx, rec); err != nil {
				log.Errorf("append %s %s: %v", rec.Kind, rec.AssignmentID, err)
			}
		}
	}()
	return done
}
