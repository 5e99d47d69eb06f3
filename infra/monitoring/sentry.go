package monitoring

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/kilianp07/blackout/config"
	coremon "github.com/kilianp07/blackout/core/monitoring"
)

const serviceTag = "blackout"

// Option adjusts the Sentry client options before the client is built.
type Option func(*sentry.ClientOptions)

// WithBeforeSend installs fn as the last hook run on every error event.
// Returning nil drops the event.
func WithBeforeSend(fn func(*sentry.Event, *sentry.EventHint) *sentry.Event) Option {
	return func(o *sentry.ClientOptions) { o.BeforeSend = fn }
}

// NewSentryMonitor builds a Sentry client for cfg and returns a Monitor
// reporting through its own hub. An empty DSN yields a no-op monitor.
func NewSentryMonitor(cfg config.SentryConfig, opts ...Option) (coremon.Monitor, error) {
	if cfg.DSN == "" {
		return coremon.NopMonitor{}, nil
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	tags := map[string]string{"service": serviceTag}
	for k, v := range cfg.Tags {
		tags[k] = v
	}
	o := sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		Release:          cfg.Release,
		ServerName:       cfg.ServerName,
		SampleRate:       cfg.SampleRate,
		TracesSampleRate: cfg.TracesSampleRate,
		Tags:             tags,
	}
	for _, opt := range opts {
		opt(&o)
	}
	client, err := sentry.NewClient(o)
	if err != nil {
		return nil, fmt.Errorf("sentry client: %w", err)
	}
	return &sentryMonitor{hub: sentry.NewHub(client, sentry.NewScope())}, nil
}

type sentryMonitor struct {
	hub *sentry.Hub
}

// CaptureException reports err with tags set on a scoped copy of the hub.
// Scenario and session tags are also attached as structured contexts.
func (m *sentryMonitor) CaptureException(err error, tags map[string]string) {
	if err == nil {
		return
	}
	m.hub.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		if sc := tags[coremon.TagScenario]; sc != "" {
			scope.SetContext("cascade", sentry.Context{"scenario": sc})
		}
		if id := tags[coremon.TagSession]; id != "" {
			scope.SetContext("dispatch_session", sentry.Context{"id": id})
		}
		m.hub.CaptureException(err)
	})
}

func (m *sentryMonitor) Recover() {
	if r := recover(); r != nil {
		m.hub.Recover(r)
		m.hub.Flush(2 * time.Second)
		panic(r)
	}
}

func (m *sentryMonitor) Flush(timeout time.Duration) { m.hub.Flush(timeout) }
