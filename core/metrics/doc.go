// Package metrics defines the sink interfaces used to record cascade runs and
// crew dispatch activity. Sinks such as the Prometheus and InfluxDB ones in
// infra/metrics implement MetricsSink plus any of the optional recorder
// interfaces, and can be combined with NewMultiSink. NewMetricsSink builds
// the configured sinks from the factory registry and returns a MultiSink
// automatically when more than one is configured.
package metrics
