package monitoring

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/blackout/config"
	coremon "github.com/kilianp07/blackout/core/monitoring"
)

type eventLog struct {
	mu     sync.Mutex
	events []*sentry.Event
}

// keep records the event and drops it before the transport.
func (l *eventLog) keep(ev *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
	return nil
}

func (l *eventLog) all() []*sentry.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*sentry.Event(nil), l.events...)
}

func newRecordingMonitor(t *testing.T, cfg config.SentryConfig) (coremon.Monitor, *eventLog) {
	t.Helper()
	log := &eventLog{}
	m, err := NewSentryMonitor(cfg, WithBeforeSend(log.keep))
	require.NoError(t, err)
	return m, log
}

func TestNewSentryMonitorWithoutDSN(t *testing.T) {
	m, err := NewSentryMonitor(config.SentryConfig{})
	require.NoError(t, err)
	assert.IsType(t, coremon.NopMonitor{}, m)
}

func TestNewSentryMonitorRejectsBadConfig(t *testing.T) {
	_, err := NewSentryMonitor(config.SentryConfig{DSN: "not a dsn"})
	assert.Error(t, err)

	_, err = NewSentryMonitor(config.SentryConfig{DSN: "https://public@sentry.example.com/1", SampleRate: 3})
	assert.Error(t, err)
}

func TestSentryMonitorTagsScenarioCaptures(t *testing.T) {
	m, log := newRecordingMonitor(t, config.SentryConfig{
		DSN:        "https://public@sentry.example.com/1",
		ServerName: "ercot-east",
		Tags:       map[string]string{"grid": "ercot"},
	})

	m.CaptureException(nil, nil)
	m.CaptureException(errors.New("notify cascade"), map[string]string{
		coremon.TagModule:   "service",
		coremon.TagScenario: "uri_2021",
	})

	events := log.all()
	require.Len(t, events, 1)
	ev := events[0]
	assert.Equal(t, "production", ev.Environment)
	assert.Equal(t, "ercot-east", ev.ServerName)
	assert.Equal(t, "blackout", ev.Tags["service"])
	assert.Equal(t, "ercot", ev.Tags["grid"])
	assert.Equal(t, "service", ev.Tags["module"])
	assert.Equal(t, "uri_2021", ev.Tags["scenario"])
	assert.Equal(t, "uri_2021", ev.Contexts["cascade"]["scenario"])
	assert.NotContains(t, ev.Contexts, "dispatch_session")
	require.NotEmpty(t, ev.Exception)
	assert.Equal(t, "notify cascade", ev.Exception[len(ev.Exception)-1].Value)
}

func TestSentryMonitorTagsSessionCapturesIndependently(t *testing.T) {
	m, log := newRecordingMonitor(t, config.SentryConfig{DSN: "https://public@sentry.example.com/1", Environment: "test"})

	m.CaptureException(errors.New("publish status"), map[string]string{
		coremon.TagModule:  "mqtt",
		coremon.TagSession: "sess-1",
	})
	m.CaptureException(errors.New("plain"), nil)
	m.Flush(10 * time.Millisecond)

	events := log.all()
	require.Len(t, events, 2)
	assert.Equal(t, "test", events[0].Environment)
	assert.Equal(t, "sess-1", events[0].Tags["session_id"])
	assert.Equal(t, "sess-1", events[0].Contexts["dispatch_session"]["id"])
	assert.NotContains(t, events[1].Tags, "session_id", "scope tags must not leak between captures")
	assert.NotContains(t, events[1].Contexts, "dispatch_session")
}

func TestSentryMonitorRecoverRepanics(t *testing.T) {
	m, log := newRecordingMonitor(t, config.SentryConfig{DSN: "https://public@sentry.example.com/1"})
	assert.PanicsWithValue(t, "boom", func() {
		defer m.Recover()
		panic("boom")
	})
	require.Len(t, log.all(), 1)
}
