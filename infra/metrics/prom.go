package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/blackout/core/metrics"
)

// PromSink mirrors simulation and dispatch events into Prometheus metrics.
type PromSink struct {
	loadShed    *prometheus.GaugeVec
	failedNodes *prometheus.GaugeVec
	depth       *prometheus.HistogramVec
	distance    *prometheus.HistogramVec
	changes     *prometheus.CounterVec
	sessions    prometheus.Gauge
}

// NewPromSink registers metrics on the default Prometheus registerer.
// The Prometheus server should be started separately using cfg.PrometheusPort.
func NewPromSink(cfg coremetrics.Config) (coremetrics.MetricsSink, error) {
	s, err := NewPromSinkWithRegistry(cfg, prometheus.DefaultRegisterer)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(_ coremetrics.Config, reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		loadShed: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "cascade_load_shed_mw",
			Help: "Load shed by the latest cascade run of a scenario",
		}, []string{"scenario"}),
		failedNodes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "cascade_last_failed_nodes",
			Help: "Failed nodes in the latest cascade run of a scenario",
		}, []string{"scenario"}),
		depth: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cascade_run_depth",
			Help:    "Number of steps recorded by cascade runs",
			Buckets: prometheus.LinearBuckets(0, 3, 8),
		}, []string{"converged"}),
		distance: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dispatch_assignment_distance_km",
			Help:    "Straight-line distance between crew and failed node at dispatch",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}, []string{"failure_type"}),
		changes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crew_status_changes_total",
			Help: "Assignment status changes by origin and target status",
		}, []string{"from", "to"}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dispatch_sessions_open",
			Help: "Dispatch sessions currently open",
		}),
	}

	var err error
	if s.loadShed, err = register(reg, s.loadShed); err != nil {
		return nil, err
	}
	if s.failedNodes, err = register(reg, s.failedNodes); err != nil {
		return nil, err
	}
	if s.depth, err = register(reg, s.depth); err != nil {
		return nil, err
	}
	if s.distance, err = register(reg, s.distance); err != nil {
		return nil, err
	}
	if s.changes, err = register(reg, s.changes); err != nil {
		return nil, err
	}
	if s.sessions, err = register(reg, s.sessions); err != nil {
		return nil, err
	}
	return s, nil
}

// register returns the already registered collector when c is a duplicate.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordCascadeRun updates the per-scenario gauges and the depth histogram.
func (s *PromSink) RecordCascadeRun(run coremetrics.CascadeRun) error {
	s.loadShed.WithLabelValues(run.Scenario).Set(run.LoadShedMW)
	s.failedNodes.WithLabelValues(run.Scenario).Set(float64(run.FailedNodes))
	s.depth.WithLabelValues(strconv.FormatBool(run.Converged)).Observe(float64(run.Depth))
	return nil
}

// RecordAssignment observes the dispatch distance.
func (s *PromSink) RecordAssignment(ev coremetrics.AssignmentEvent) error {
	s.distance.WithLabelValues(ev.FailureType).Observe(ev.DistanceKm)
	return nil
}

// RecordTransition counts the status change.
func (s *PromSink) RecordTransition(ev coremetrics.TransitionEvent) error {
	s.changes.WithLabelValues(ev.From, ev.To).Inc()
	return nil
}

// RecordSessionCount sets the open sessions gauge.
func (s *PromSink) RecordSessionCount(n int) error {
	s.sessions.Set(float64(n))
	return nil
}
