package metrics

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kilianp07/blackout/core/events"
	coremetrics "github.com/kilianp07/blackout/core/metrics"
	coremon "github.com/kilianp07/blackout/core/monitoring"
	"github.com/kilianp07/blackout/internal/eventbus"
)

type recordingSink struct {
	mu          sync.Mutex
	runs        []coremetrics.CascadeRun
	assignments []coremetrics.AssignmentEvent
	transitions []coremetrics.TransitionEvent
}

func (r *recordingSink) RecordCascadeRun(run coremetrics.CascadeRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, run)
	return nil
}

func (r *recordingSink) RecordAssignment(ev coremetrics.AssignmentEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assignments = append(r.assignments, ev)
	return nil
}

func (r *recordingSink) RecordTransition(ev coremetrics.TransitionEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, ev)
	return nil
}

func (r *recordingSink) counts() (int, int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.runs), len(r.assignments), len(r.transitions)
}

func TestStartEventCollector(t *testing.T) {
	bus := eventbus.New()
	defer bus.Close()
	sink := &recordingSink{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	StartEventCollector(ctx, bus, sink)

	bus.Publish(events.CascadeEvent{Scenario: "ring", FailedNodes: 1, LoadShedMW: 150})
	bus.Publish(events.AssignmentEvent{SessionID: "s1", CrewID: "C1", NodeID: "N1", DistanceKm: 3})
	bus.Publish(events.TransitionEvent{SessionID: "s1", From: "dispatched", To: "en_route"})
	bus.Publish("unrelated")

	assert.Eventually(t, func() bool {
		r, a, tr := sink.counts()
		return r == 1 && a == 1 && tr == 1
	}, time.Second, 5*time.Millisecond)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Equal(t, 150.0, sink.runs[0].LoadShedMW)
	assert.Equal(t, "en_route", sink.transitions[0].To)
}

func TestStartEventCollectorSkipsUnsupportedRecorders(t *testing.T) {
	bus := eventbus.New()
	defer bus.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var sink coremetrics.MetricsSink = cascadeOnly{}
	assert.NoError(t, record(sink, events.AssignmentEvent{}))
	StartEventCollector(ctx, bus, sink)
	StartEventCollector(ctx, nil, sink)
	bus.Publish(events.TransitionEvent{})
}

type cascadeOnly struct{}

func (cascadeOnly) RecordCascadeRun(coremetrics.CascadeRun) error { return nil }

type failingSink struct{}

func (failingSink) RecordCascadeRun(coremetrics.CascadeRun) error { return errors.New("write cascade") }
func (failingSink) RecordAssignment(coremetrics.AssignmentEvent) error {
	return errors.New("write assignment")
}

type tagMonitor struct {
	coremon.NopMonitor
	mu   sync.Mutex
	tags []map[string]string
}

func (m *tagMonitor) CaptureException(_ error, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tags = append(m.tags, tags)
}

func (m *tagMonitor) captured() []map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]map[string]string(nil), m.tags...)
}

func TestStartEventCollectorReportsSinkFailures(t *testing.T) {
	mon := &tagMonitor{}
	coremon.Init(mon)
	t.Cleanup(func() { coremon.Init(coremon.NopMonitor{}) })

	bus := eventbus.New()
	defer bus.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	StartEventCollector(ctx, bus, failingSink{})

	bus.Publish(events.CascadeEvent{Scenario: "uri_2021"})
	bus.Publish(events.AssignmentEvent{SessionID: "sess-9", CrewID: "C1", NodeID: "N1"})

	assert.Eventually(t, func() bool { return len(mon.captured()) == 2 }, time.Second, 5*time.Millisecond)
	tags := mon.captured()
	assert.Equal(t, map[string]string{"module": "metrics", "scenario": "uri_2021"}, tags[0])
	assert.Equal(t, map[string]string{"module": "metrics", "session_id": "sess-9"}, tags[1])
}
