package config

import (
	"os"
	"path/filepath"
	"testing"
)

//nolint:gocyclo
func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `simulation:
  scenario_file: "grid.yaml"
  default_scenario: "peak"
  default_forecast_hour: 18
cascade:
  max_iterations: 10
  seed: 7
dispatch:
  storm_mode: true
  tick_interval_seconds: 3
mqtt:
  enabled: true
  broker: "tcp://localhost:1883"
  client_id: "cli"
  username: "user"
  password: "pass"
  use_tls: false
metrics:
  sinks:
    - type: "nop"
  prometheus_port: ":9100"
logging:
  level: "debug"
  backend: "sqlite"
  path: "journal.db"
http:
  address: ":9000"
sentry:
  dsn: "https://key@sentry.example/1"
  server_name: "ercot-east"
  tags:
    grid: "ercot"
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	checks := []struct {
		name string
		got  any
		want any
	}{
		{"scenario_file", cfg.Simulation.ScenarioFile, "grid.yaml"},
		{"default_scenario", cfg.Simulation.DefaultScenario, "peak"},
		{"default_forecast_hour", cfg.Simulation.DefaultForecastHour, 18},
		{"max_iterations", cfg.Cascade.MaxIterations, 10},
		{"seed", cfg.Cascade.Seed, uint64(7)},
		{"redistribution_factor default", cfg.Cascade.RedistributionFactor, 0.70},
		{"storm_mode", cfg.Dispatch.StormMode, true},
		{"tick_interval_seconds", cfg.Dispatch.TickIntervalSeconds, 3},
		{"drive_speed default", cfg.Dispatch.DriveSpeedKmh, 80.0},
		{"broker", cfg.MQTT.Broker, "tcp://localhost:1883"},
		{"client_id", cfg.MQTT.ClientID, "cli"},
		{"username", cfg.MQTT.Username, "user"},
		{"password", cfg.MQTT.Password, "pass"},
		{"topic_prefix default", cfg.MQTT.TopicPrefix, "blackout"},
		{"use_tls", cfg.MQTT.UseTLS, false},
		{"metrics_sink", len(cfg.Metrics.Sinks) == 1 && cfg.Metrics.Sinks[0].Type == "nop", true},
		{"prometheus_port", cfg.Metrics.PrometheusPort, ":9100"},
		{"level", cfg.Logging.Level, "debug"},
		{"backend", cfg.Logging.Backend, "sqlite"},
		{"journal path", cfg.Logging.Journal().Path, "journal.db"},
		{"http", cfg.HTTP.Address, ":9000"},
		{"sentry", cfg.Sentry.DSN, "https://key@sentry.example/1"},
		{"sentry server", cfg.Sentry.ServerName, "ercot-east"},
		{"sentry tag", cfg.Sentry.Tags["grid"], "ercot"},
		{"sentry environment default", cfg.Sentry.Environment, "production"},
		{"sentry sample default", cfg.Sentry.SampleRate, 1.0},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s mismatch: %v", c.name, c.got)
		}
	}
}

func TestLoadEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(`{"dispatch":{"tick_interval_seconds":5}}`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("K_DISPATCH__TICK_INTERVAL_SECONDS", "12")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.Dispatch.TickIntervalSeconds != 12 {
		t.Fatalf("env override not applied: %d", cfg.Dispatch.TickIntervalSeconds)
	}
	if cfg.HTTP.Address != ":8080" || cfg.Logging.Backend != "jsonl" {
		t.Fatalf("defaults not applied: %+v %+v", cfg.HTTP, cfg.Logging)
	}
}

func TestLoadKeepsExplicitZeroTunables(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "cascade:\n  redistribution_factor: 0\n  cold_rate: 0\n  seed: 0\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.Cascade.RedistributionFactor != 0 || cfg.Cascade.ColdRate != 0 || cfg.Cascade.Seed != 0 {
		t.Fatalf("explicit zeros overwritten: %+v", cfg.Cascade)
	}
	if cfg.Cascade.ExtremeColdRate != 0.40 || cfg.Cascade.FailureThreshold != 1.05 {
		t.Fatalf("unset tunables lost their defaults: %+v", cfg.Cascade)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"bad.yaml":   "logging:\n  backend: \"kafka\"\n",
		"storm.yaml": "dispatch:\n  storm_speed_mult: 1.5\n",
		"mqtt.yaml":  "mqtt:\n  enabled: true\n",
		"level.yaml": "logging:\n  level: \"loud\"\n",
		"rate.yaml":  "cascade:\n  cold_rate: 1.5\n",
		"speed.yaml": "dispatch:\n  drive_speed_kmh: -10\n",
		"trace.yaml": "sentry:\n  traces_sample_rate: 2\n",
	}
	for name, body := range cases {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatalf("write config: %v", err)
		}
		if _, err := Load(path); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
	if _, err := Load(filepath.Join(dir, "config.toml")); err == nil {
		t.Errorf("expected unsupported format error")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if !cfg.Logging.JournalEnabled() {
		t.Fatalf("journal should be enabled by default")
	}
	if cfg.Logging.Logger().Level != "info" {
		t.Fatalf("unexpected logger level")
	}
}
