package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/blackout/core/metrics"
	"github.com/kilianp07/blackout/infra/logger"
)

// InfluxSink writes simulation and dispatch events to an InfluxDB instance
// using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordCascadeRun writes one cascade_run point.
func (s *InfluxSink) RecordCascadeRun(run coremetrics.CascadeRun) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("cascade_run").
		AddTag("scenario", run.Scenario).
		AddTag("forecast_hour", strconv.Itoa(run.ForecastHour)).
		AddTag("converged", strconv.FormatBool(run.Converged)).
		AddTag("component", "cascade_engine").
		AddField("total_nodes", run.TotalNodes).
		AddField("failed_nodes", run.FailedNodes).
		AddField("depth", run.Depth).
		AddField("weather_failures", run.WeatherFailures).
		AddField("load_shed_mw", round3(run.LoadShedMW)).
		AddField("duration_ms", round3(run.Duration.Seconds()*1000)).
		SetTime(run.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordAssignment records a crew being dispatched.
func (s *InfluxSink) RecordAssignment(ev coremetrics.AssignmentEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("dispatch_assignment").
		AddTag("session_id", ev.SessionID).
		AddTag("assignment_id", ev.AssignmentID).
		AddTag("crew_id", ev.CrewID).
		AddTag("node_id", ev.NodeID).
		AddTag("failure_type", ev.FailureType).
		AddTag("match", ev.Match).
		AddTag("component", "dispatch_scheduler").
		AddField("distance_km", round3(ev.DistanceKm)).
		AddField("eta_minutes", ev.ETAMinutes).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordTransition records a status change of an assignment.
func (s *InfluxSink) RecordTransition(ev coremetrics.TransitionEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("dispatch_transition").
		AddTag("session_id", ev.SessionID).
		AddTag("assignment_id", ev.AssignmentID).
		AddTag("crew_id", ev.CrewID).
		AddTag("node_id", ev.NodeID).
		AddTag("component", "dispatch_scheduler").
		AddField("from", ev.From).
		AddField("to", ev.To).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the underlying client.
func (s *InfluxSink) Close() { s.client.Close() }

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
