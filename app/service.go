package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kilianp07/blackout/config"
	"github.com/kilianp07/blackout/core/cascade"
	"github.com/kilianp07/blackout/core/dispatch"
	"github.com/kilianp07/blackout/core/events"
	coremetrics "github.com/kilianp07/blackout/core/metrics"
	coremon "github.com/kilianp07/blackout/core/monitoring"
	coremqtt "github.com/kilianp07/blackout/core/mqtt"
	"github.com/kilianp07/blackout/infra/dispatchlog"
	"github.com/kilianp07/blackout/infra/logger"
	"github.com/kilianp07/blackout/infra/metrics"
	"github.com/kilianp07/blackout/infra/mqtt"
	"github.com/kilianp07/blackout/infra/topology"
	"github.com/kilianp07/blackout/internal/eventbus"
)

var (
	// ErrSessionNotFound is returned for unknown dispatch session ids.
	ErrSessionNotFound = errors.New("session not found")
	// ErrJournalDisabled is returned when querying logs without a journal.
	ErrJournalDisabled = errors.New("dispatch journal disabled")
)

// SessionInfo describes a freshly created dispatch session.
type SessionInfo struct {
	SessionID   string                `json:"session_id"`
	Scenario    string                `json:"scenario"`
	StormMode   bool                  `json:"storm_mode"`
	FailedNodes []dispatch.FailedNode `json:"failed_nodes"`
}

// Service wires the cascade engine and the dispatch sessions to the
// notification, metrics and journal adapters.
type Service struct {
	cfg      *config.Config
	scenario *topology.Scenario
	engine   *cascade.Engine
	cache    *cascade.Cache
	sessions *dispatch.Registry
	bus      *eventbus.Bus
	sink     coremetrics.MetricsSink
	pub      coremqtt.Publisher
	client   *mqtt.PahoClient
	notifier *mqtt.Notifier
	journal  dispatchlog.LogStore
	drained  <-chan struct{}
	log      logger.Logger
	now      func() time.Time
}

// Option customises a Service.
type Option func(*Service)

// WithPublisher replaces the MQTT client built from the configuration.
func WithPublisher(p coremqtt.Publisher) Option {
	return func(s *Service) { s.pub = p }
}

// WithClock overrides the clock of the engine and the schedulers.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithMetricsSink replaces the sinks built from the configuration.
func WithMetricsSink(sink coremetrics.MetricsSink) Option {
	return func(s *Service) { s.sink = sink }
}

// New creates a Service from the configuration, loading the scenario file
// it points at.
func New(cfg *config.Config, opts ...Option) (*Service, error) {
	sc, err := topology.LoadScenario(cfg.Simulation.ScenarioFile)
	if err != nil {
		return nil, err
	}
	return NewWithScenario(cfg, sc, opts...)
}

// NewWithScenario creates a Service over an already decoded scenario.
func NewWithScenario(cfg *config.Config, sc *topology.Scenario, opts ...Option) (*Service, error) {
	if err := logger.Configure(cfg.Logging.Logger()); err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	s := &Service{
		cfg:      cfg,
		scenario: sc,
		cache:    cascade.NewCache(),
		bus:      eventbus.New(),
		log:      logger.New("service"),
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}

	if s.sink == nil {
		sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
		if err != nil {
			return nil, fmt.Errorf("metrics sink: %w", err)
		}
		s.sink = sink
	}
	if s.pub == nil && cfg.MQTT.Enabled {
		client, err := mqtt.NewPahoClient(cfg.MQTT)
		if err != nil {
			return nil, fmt.Errorf("mqtt client: %w", err)
		}
		s.client = client
		s.pub = client
	}
	if s.pub != nil {
		s.notifier = mqtt.NewNotifier(s.pub, cfg.MQTT.TopicPrefix)
	}
	if cfg.Logging.JournalEnabled() {
		store, err := dispatchlog.Open(cfg.Logging.Journal())
		if err != nil {
			s.closeClient()
			return nil, fmt.Errorf("dispatch journal: %w", err)
		}
		s.journal = store
	}

	s.engine = cascade.NewEngine(cfg.Cascade,
		cascade.WithLogger(logger.New("cascade")),
		cascade.WithClock(s.now))
	s.sessions = dispatch.NewRegistry(
		dispatch.WithLogger(logger.New("dispatch")),
		dispatch.WithEventBus(s.bus),
		dispatch.WithClock(s.now))
	return s, nil
}

// Scenarios lists the demand scenarios of the loaded file.
func (s *Service) Scenarios() []string { return s.scenario.Names() }

// Bus exposes the event bus carrying cascade and dispatch events.
func (s *Service) Bus() eventbus.EventBus { return s.bus }

// RunCascade returns the cascade result of scenario at forecastHour. Results
// are computed once per key; fresh runs are published on the bus and over
// MQTT.
func (s *Service) RunCascade(scenario string, forecastHour int) (cascade.Result, error) {
	if forecastHour < 0 {
		return cascade.Result{}, fmt.Errorf("%w: forecast_hour must not be negative", dispatch.ErrInvalidArgument)
	}
	multipliers, err := s.scenario.Multipliers(scenario, forecastHour)
	if err != nil {
		return cascade.Result{}, err
	}
	weather, err := s.scenario.Weather(scenario)
	if err != nil {
		return cascade.Result{}, err
	}
	res, computed := s.cache.GetOrRun(scenario, forecastHour, func() cascade.Result {
		return s.engine.Run(s.scenario.Snapshot, multipliers, scenario, forecastHour, weather)
	})
	if computed {
		s.bus.Publish(events.CascadeEvent{
			Scenario:        res.Scenario,
			ForecastHour:    res.ForecastHour,
			TotalNodes:      res.TotalNodes,
			FailedNodes:     res.TotalFailedNodes,
			Depth:           res.CascadeDepth,
			WeatherFailures: res.WeatherFailures,
			LoadShedMW:      res.TotalLoadShedMW,
			Converged:       res.Converged,
			Duration:        res.Duration(),
			Time:            res.CompletedAt,
		})
		if s.notifier != nil {
			if err := s.notifier.NotifyCascade(res); err != nil {
				s.log.Errorf("notify cascade %s: %v", scenario, err)
				coremon.CaptureScenario("service", scenario, err)
			}
		}
	}
	return res, nil
}

// StartSession runs (or reuses) the cascade of scenario and opens a dispatch
// session loaded with the crew roster and the failed nodes.
func (s *Service) StartSession(scenario string, forecastHour int, storm bool) (SessionInfo, error) {
	res, err := s.RunCascade(scenario, forecastHour)
	if err != nil {
		return SessionInfo{}, err
	}
	cfg := s.cfg.Dispatch
	cfg.StormMode = storm
	id, sch := s.sessions.Create(cfg)
	sch.LoadCrews(s.scenario.CrewRoster())
	failed := sch.LoadFailedNodes(res, s.scenario.Snapshot.Attributes())
	s.recordSessions()
	s.log.Infof("session %s opened: scenario=%s hour=%d storm=%t failed=%d", id, scenario, forecastHour, storm, len(failed))
	return SessionInfo{SessionID: id, Scenario: scenario, StormMode: storm, FailedNodes: failed}, nil
}

// Session returns the scheduler of an open session.
func (s *Service) Session(id string) (*dispatch.Scheduler, error) {
	sch, ok := s.sessions.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return sch, nil
}

// Recommend plans crews for the open nodes of a session without mutating it.
func (s *Service) Recommend(id string) (dispatch.Recommendation, error) {
	sch, err := s.Session(id)
	if err != nil {
		return dispatch.Recommendation{}, err
	}
	return sch.RecommendDispatch(), nil
}

// Dispatch sends one crew to one failed node.
func (s *Service) Dispatch(id, crewID, nodeID string) (dispatch.Assignment, error) {
	sch, err := s.Session(id)
	if err != nil {
		return dispatch.Assignment{}, err
	}
	return sch.DispatchCrew(crewID, nodeID)
}

// DispatchAll applies a fresh recommendation to the session.
func (s *Service) DispatchAll(id string) ([]dispatch.Assignment, error) {
	sch, err := s.Session(id)
	if err != nil {
		return nil, err
	}
	return sch.DispatchAll(sch.RecommendDispatch()), nil
}

// Tick advances a session and publishes its status.
func (s *Service) Tick(id string) (dispatch.Status, error) {
	sch, err := s.Session(id)
	if err != nil {
		return dispatch.Status{}, err
	}
	st := sch.Tick()
	s.notifyStatus(st)
	return st, nil
}

// Status returns the current status of a session without advancing it.
func (s *Service) Status(id string) (dispatch.Status, error) {
	sch, err := s.Session(id)
	if err != nil {
		return dispatch.Status{}, err
	}
	return sch.Status(), nil
}

// EndSession closes a session.
func (s *Service) EndSession(id string) error {
	if !s.sessions.Delete(id) {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	s.recordSessions()
	s.log.Infof("session %s closed", id)
	return nil
}

// Logs queries the dispatch journal.
func (s *Service) Logs(ctx context.Context, q dispatchlog.LogQuery) ([]dispatchlog.LogRecord, error) {
	if s.journal == nil {
		return nil, ErrJournalDisabled
	}
	return s.journal.Query(ctx, q)
}

// TickAll advances every session once and publishes their statuses.
func (s *Service) TickAll() map[string]dispatch.Status {
	statuses := s.sessions.TickAll()
	for _, st := range statuses {
		s.notifyStatus(st)
	}
	return statuses
}

// Start attaches the bus subscribers. It returns immediately.
func (s *Service) Start(ctx context.Context) {
	metrics.StartEventCollector(ctx, s.bus, s.sink)
	if s.journal != nil {
		s.drained = dispatchlog.StartJournal(ctx, s.bus, s.journal)
	}
	if s.notifier != nil {
		s.notifier.Forward(ctx, s.bus)
	}
}

// Run starts the subscribers, the Prometheus server when configured and the
// session ticker. It blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	s.Start(ctx)
	if s.cfg.Metrics.PrometheusEnabled() && s.cfg.Metrics.PrometheusPort != "" {
		coremon.Go(func() {
			if err := metrics.StartPromServer(ctx, s.cfg.Metrics.PrometheusPort); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		})
	}
	ticker := time.NewTicker(time.Duration(s.cfg.Dispatch.TickIntervalSeconds) * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.TickAll()
		}
	}
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	s.bus.Close()
	s.closeClient()
	var err error
	if s.journal != nil {
		if s.drained != nil {
			select {
			case <-s.drained:
			case <-time.After(2 * time.Second):
			}
		}
		err = s.journal.Close()
	}
	if c, ok := s.sink.(interface{ Close() }); ok {
		c.Close()
	}
	coremon.Flush(2 * time.Second)
	return err
}

func (s *Service) closeClient() {
	if s.client != nil {
		s.client.Disconnect()
	}
}

func (s *Service) notifyStatus(st dispatch.Status) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyStatus(st); err != nil {
		s.log.Errorf("notify status %s: %v", st.SessionID, err)
		coremon.CaptureSession("service", st.SessionID, err)
	}
}

func (s *Service) recordSessions() {
	if r, ok := s.sink.(coremetrics.SessionCountRecorder); ok {
		if err := r.RecordSessionCount(len(s.sessions.IDs())); err != nil {
			s.log.Warnf("record session count: %v", err)
		}
	}
}

// SessionIDs lists the open sessions.
func (s *Service) SessionIDs() []string { return s.sessions.IDs() }
