package cascade

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	cascadeRuns     *prometheus.CounterVec
	cascadeDepth    prometheus.Histogram
	cascadeFailed   prometheus.Histogram
	cascadeDuration prometheus.Histogram
	cacheLookups    *prometheus.CounterVec
)

func newCollectors() (*prometheus.CounterVec, prometheus.Histogram, prometheus.Histogram, prometheus.Histogram, *prometheus.CounterVec) {
	runs := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cascade_runs_total",
			Help: "Number of cascade simulations computed",
		},
		[]string{"scenario", "converged"},
	)
	depth := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cascade_depth",
		Help:    "Number of steps recorded per cascade run",
		Buckets: prometheus.LinearBuckets(0, 3, 8),
	})
	failed := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cascade_failed_nodes",
		Help:    "Number of failed nodes per cascade run",
		Buckets: prometheus.ExponentialBuckets(1, 4, 8),
	})
	dur := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cascade_duration_seconds",
		Help:    "Wall-clock time of a cascade run",
		Buckets: prometheus.DefBuckets,
	})
	cache := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cascade_cache_lookups_total",
			Help: "Result cache lookups by outcome",
		},
		[]string{"result"},
	)
	return runs, depth, failed, dur, cache
}

func init() {
	cascadeRuns, cascadeDepth, cascadeFailed, cascadeDuration, cacheLookups = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers cascade metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(cascadeRuns, cascadeDepth, cascadeFailed, cascadeDuration, cacheLookups)
}

// ResetMetrics reinitializes the collectors for testing purposes and
// registers them on reg if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	cascadeRuns, cascadeDepth, cascadeFailed, cascadeDuration, cacheLookups = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}

func observeRun(r Result) {
	cascadeRuns.WithLabelValues(r.Scenario, strconv.FormatBool(r.Converged)).Inc()
	cascadeDepth.Observe(float64(r.CascadeDepth))
	cascadeFailed.Observe(float64(r.TotalFailedNodes))
	cascadeDuration.Observe(r.Duration().Seconds())
}
