package metrics

import (
	"context"

	"github.com/kilianp07/blackout/core/events"
	coremetrics "github.com/kilianp07/blackout/core/metrics"
	coremon "github.com/kilianp07/blackout/core/monitoring"
	"github.com/kilianp07/blackout/infra/logger"
	"github.com/kilianp07/blackout/internal/eventbus"
)

// StartEventCollector records metrics for every event on the bus. The
// subscription is durable so bursts are not sampled away. It stops when the
// context is canceled or the bus closes.
func StartEventCollector(ctx context.Context, bus eventbus.EventBus, sink coremetrics.MetricsSink) {
	if bus == nil || sink == nil {
		return
	}
	log := logger.New("metrics_collector")
	sub := bus.SubscribeDurable()
	go func() {
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if err := record(sink, ev); err != nil {
					log.Warnf("record %T: %v", ev, err)
					capture(ev, err)
				}
			}
		}
	}()
}

// capture reports a sink failure tagged with the scenario or session the
// event belongs to.
func capture(ev eventbus.Event, err error) {
	switch e := ev.(type) {
	case events.CascadeEvent:
		coremon.CaptureScenario("metrics", e.Scenario, err)
	case events.AssignmentEvent:
		coremon.CaptureSession("metrics", e.SessionID, err)
	case events.TransitionEvent:
		coremon.CaptureSession("metrics", e.SessionID, err)
	default:
		coremon.Capture("metrics", err)
	}
}

func record(sink coremetrics.MetricsSink, ev eventbus.Event) error {
	switch e := ev.(type) {
	case events.CascadeEvent:
		return sink.RecordCascadeRun(coremetrics.CascadeRun{
			Scenario:        e.Scenario,
			ForecastHour:    e.ForecastHour,
			TotalNodes:      e.TotalNodes,
			FailedNodes:     e.FailedNodes,
			Depth:           e.Depth,
			WeatherFailures: e.WeatherFailures,
			LoadShedMW:      e.LoadShedMW,
			Converged:       e.Converged,
			Duration:        e.Duration,
			Time:            e.Time,
		})
	case events.AssignmentEvent:
		if r, ok := sink.(coremetrics.AssignmentRecorder); ok {
			return r.RecordAssignment(coremetrics.AssignmentEvent{
				SessionID:    e.SessionID,
				AssignmentID: e.AssignmentID,
				CrewID:       e.CrewID,
				NodeID:       e.NodeID,
				FailureType:  e.FailureType,
				Match:        e.Match,
				DistanceKm:   e.DistanceKm,
				ETAMinutes:   e.ETAMinutes,
				Time:         e.Time,
			})
		}
	case events.TransitionEvent:
		if r, ok := sink.(coremetrics.TransitionRecorder); ok {
			return r.RecordTransition(coremetrics.TransitionEvent{
				SessionID:    e.SessionID,
				AssignmentID: e.AssignmentID,
				CrewID:       e.CrewID,
				NodeID:       e.NodeID,
				From:         string(e.From),
				To:           string(e.To),
				Time:         e.Time,
			})
		}
	}
	return nil
}
