package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	assignmentsTotal *prometheus.CounterVec
	transitionsTotal *prometheus.CounterVec
	etaMinutes       prometheus.Histogram
	activeSessions   prometheus.Gauge
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.CounterVec, *prometheus.CounterVec, prometheus.Histogram, prometheus.Gauge) {
	asn := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_assignments_total",
			Help: "Number of crews dispatched to failed nodes",
		},
		[]string{"failure_type", "match"},
	)
	tr := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_transitions_total",
			Help: "Number of assignment status transitions",
		},
		[]string{"status"},
	)
	eta := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "dispatch_eta_minutes",
		Help:    "Estimated travel time of dispatched crews",
		Buckets: []float64{5, 15, 30, 60, 120, 240, 480},
	})
	sess := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "dispatch_active_sessions",
		Help: "Number of open dispatch sessions",
	})
	return asn, tr, eta, sess
}

func init() {
	assignmentsTotal, transitionsTotal, etaMinutes, activeSessions = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers dispatch metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(assignmentsTotal, transitionsTotal, etaMinutes, activeSessions)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	assignmentsTotal, transitionsTotal, etaMinutes, activeSessions = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
