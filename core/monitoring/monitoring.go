// Package monitoring routes unexpected errors and panics to an error
// reporting backend. The process-wide monitor defaults to a no-op.
package monitoring

import "time"

// Monitor defines methods used for error reporting.
type Monitor interface {
	CaptureException(err error, tags map[string]string)
	Recover()
	Flush(timeout time.Duration)
}

type NopMonitor struct{}

func (NopMonitor) CaptureException(error, map[string]string) {}
func (NopMonitor) Recover()                                  {}
func (NopMonitor) Flush(time.Duration)                       {}

var current Monitor = NopMonitor{}

// Init sets the global monitor implementation.
func Init(m Monitor) {
	if m != nil {
		current = m
	}
}

// Current returns the global monitor.
func Current() Monitor { return current }

// CaptureException records the error with optional tags.
func CaptureException(err error, tags map[string]string) {
	if current != nil && err != nil {
		current.CaptureException(err, tags)
	}
}

// Tag keys attached to captured errors.
const (
	TagModule   = "module"
	TagScenario = "scenario"
	TagSession  = "session_id"
)

// Capture records err tagged with the reporting module.
func Capture(module string, err error) {
	CaptureException(err, map[string]string{TagModule: module})
}

// CaptureScenario records a failure that happened while handling the cascade
// of scenario.
func CaptureScenario(module, scenario string, err error) {
	CaptureException(err, map[string]string{TagModule: module, TagScenario: scenario})
}

// CaptureSession records a failure that happened inside dispatch session id.
func CaptureSession(module, id string, err error) {
	CaptureException(err, map[string]string{TagModule: module, TagSession: id})
}

// Recover captures panics in goroutines.
func Recover() {
	if current != nil {
		current.Recover()
	}
}

// Go runs fn in a goroutine whose panics reach the monitor.
func Go(fn func()) {
	go func() {
		defer Recover()
		fn()
	}()
}

// Flush flushes buffered events.
func Flush(d time.Duration) {
	if current != nil {
		current.Flush(d)
	}
}
