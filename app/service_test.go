package app

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/blackout/config"
	"github.com/kilianp07/blackout/core/dispatch"
	"github.com/kilianp07/blackout/core/model"
	"github.com/kilianp07/blackout/infra/dispatchlog"
	"github.com/kilianp07/blackout/infra/mqtt"
	"github.com/kilianp07/blackout/infra/topology"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func ringScenario(t *testing.T) *topology.Scenario {
	t.Helper()
	file := topology.File{
		Nodes: []model.GridNode{
			{ID: "A", Lat: 30.27, Lon: -97.74, BaseLoadMW: 100, CapacityMW: 100, VoltageKV: 345, WeatherZone: "Coast"},
			{ID: "B", Lat: 30.30, Lon: -97.70, BaseLoadMW: 50, CapacityMW: 100, VoltageKV: 138, WeatherZone: "Coast"},
			{ID: "C", Lat: 30.35, Lon: -97.65, BaseLoadMW: 50, CapacityMW: 100, VoltageKV: 138, WeatherZone: "Coast"},
			{ID: "D", Lat: 30.20, Lon: -97.60, BaseLoadMW: 50, CapacityMW: 100, VoltageKV: 69, WeatherZone: "North"},
			{ID: "E", Lat: 30.15, Lon: -97.80, BaseLoadMW: 50, CapacityMW: 100, VoltageKV: 13.8, WeatherZone: "North"},
		},
		Edges: []model.GridEdge{
			{FromID: "A", ToID: "B"}, {FromID: "B", ToID: "C"}, {FromID: "C", ToID: "D"},
			{FromID: "D", ToID: "E"}, {FromID: "E", ToID: "A"},
		},
		Crews: []model.Crew{
			{ID: "C1", Name: "Austin Line 1", Lat: 30.27, Lon: -97.74, Specialty: model.Specialty("line_repair")},
			{ID: "C2", Name: "Austin Sub 1", Lat: 30.30, Lon: -97.70, Specialty: model.Specialty("substation")},
		},
		Scenarios: map[string]topology.Demand{
			"peak": {Multipliers: map[string]float64{"A": 1.5}},
			"calm": {},
		},
	}
	sc, err := topology.Build(file)
	require.NoError(t, err)
	return sc
}

func newTestService(t *testing.T, backend string) (*Service, *mqtt.MockPublisher, *clock) {
	t.Helper()
	cfg := config.Default()
	cfg.Logging.Backend = backend
	cfg.Logging.Path = filepath.Join(t.TempDir(), "journal.jsonl")
	pub := mqtt.NewMockPublisher()
	clk := &clock{now: time.Date(2026, 2, 15, 6, 0, 0, 0, time.UTC)}
	svc, err := NewWithScenario(cfg, ringScenario(t), WithPublisher(pub), WithClock(clk.Now))
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	return svc, pub, clk
}

func TestRunCascadeIsCachedAndPublishedOnce(t *testing.T) {
	svc, pub, _ := newTestService(t, "none")

	res, err := svc.RunCascade("peak", 18)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, res.FailedNodeIDs)

	again, err := svc.RunCascade("peak", 18)
	require.NoError(t, err)
	assert.Equal(t, res, again)
	assert.Len(t, pub.Topic("blackout/cascade/peak"), 1)

	calm, err := svc.RunCascade("calm", 18)
	require.NoError(t, err)
	assert.Zero(t, calm.TotalFailedNodes)
	assert.Equal(t, []string{"calm", "peak"}, svc.Scenarios())
}

func TestRunCascadeErrors(t *testing.T) {
	svc, _, _ := newTestService(t, "none")
	_, err := svc.RunCascade("nope", 0)
	assert.True(t, errors.Is(err, topology.ErrUnknownScenario))
	_, err = svc.RunCascade("peak", -1)
	assert.True(t, errors.Is(err, dispatch.ErrInvalidArgument))
}

func TestSessionLifecycle(t *testing.T) {
	svc, pub, clk := newTestService(t, "none")

	info, err := svc.StartSession("peak", 18, false)
	require.NoError(t, err)
	require.NotEmpty(t, info.SessionID)
	require.Len(t, info.FailedNodes, 1)
	assert.Equal(t, dispatch.FailureType("transmission"), info.FailedNodes[0].FailureType)

	rec, err := svc.Recommend(info.SessionID)
	require.NoError(t, err)
	require.Len(t, rec.Assignments, 1)
	assert.Equal(t, "C1", rec.Assignments[0].CrewID)

	assigned, err := svc.DispatchAll(info.SessionID)
	require.NoError(t, err)
	require.Len(t, assigned, 1)

	_, err = svc.Dispatch(info.SessionID, "C2", "A")
	assert.True(t, errors.Is(err, dispatch.ErrInvalidArgument))

	clk.Advance(24 * time.Hour)
	st, err := svc.Tick(info.SessionID)
	require.NoError(t, err)
	require.Len(t, st.Assignments, 1)
	assert.Equal(t, model.CrewOnSite, st.Assignments[0].Status)
	assert.NotEmpty(t, pub.Topic("blackout/dispatch/"+info.SessionID+"/status"))

	got, err := svc.Status(info.SessionID)
	require.NoError(t, err)
	assert.Equal(t, st.Assignments[0].Status, got.Assignments[0].Status)

	require.NoError(t, svc.EndSession(info.SessionID))
	_, err = svc.Status(info.SessionID)
	assert.True(t, errors.Is(err, ErrSessionNotFound))
	assert.True(t, errors.Is(svc.EndSession(info.SessionID), ErrSessionNotFound))
}

func TestSessionsAreIndependent(t *testing.T) {
	svc, _, _ := newTestService(t, "none")
	a, err := svc.StartSession("peak", 18, false)
	require.NoError(t, err)
	b, err := svc.StartSession("peak", 18, true)
	require.NoError(t, err)
	assert.NotEqual(t, a.SessionID, b.SessionID)

	_, err = svc.DispatchAll(a.SessionID)
	require.NoError(t, err)
	st, err := svc.Status(b.SessionID)
	require.NoError(t, err)
	assert.Empty(t, st.Assignments)

	sch, err := svc.Session(b.SessionID)
	require.NoError(t, err)
	assert.True(t, sch.StormMode())
	assert.Len(t, svc.TickAll(), 2)
}

func TestJournalRecordsDispatchEvents(t *testing.T) {
	svc, pub, clk := newTestService(t, "jsonl")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)

	info, err := svc.StartSession("peak", 18, false)
	require.NoError(t, err)
	_, err = svc.DispatchAll(info.SessionID)
	require.NoError(t, err)
	clk.Advance(time.Minute)
	_, err = svc.Tick(info.SessionID)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		recs, err := svc.Logs(ctx, dispatchlog.LogQuery{SessionID: info.SessionID})
		return err == nil && len(recs) >= 2
	}, time.Second, 10*time.Millisecond)

	assigned, err := svc.Logs(ctx, dispatchlog.LogQuery{Kind: dispatchlog.KindAssignment})
	require.NoError(t, err)
	require.Len(t, assigned, 1)
	assert.Equal(t, "C1", assigned[0].CrewID)

	assert.Eventually(t, func() bool {
		return len(pub.Topic("blackout/dispatch/"+info.SessionID+"/events")) >= 2
	}, time.Second, 10*time.Millisecond)
}

func TestLogsWithoutJournal(t *testing.T) {
	svc, _, _ := newTestService(t, "none")
	_, err := svc.Logs(context.Background(), dispatchlog.LogQuery{})
	assert.True(t, errors.Is(err, ErrJournalDisabled))
}

func TestRunStopsOnCancel(t *testing.T) {
	svc, _, _ := newTestService(t, "none")
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestNewMissingScenarioFile(t *testing.T) {
	cfg := config.Default()
	cfg.Simulation.ScenarioFile = filepath.Join(t.TempDir(), "missing.yaml")
	_, err := New(cfg)
	assert.Error(t, err)
}
