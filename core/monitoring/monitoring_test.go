package monitoring

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type recordMonitor struct {
	mu      sync.Mutex
	errs    []error
	tags    map[string]string
	flushed bool
}

func (r *recordMonitor) CaptureException(err error, tags map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
	r.tags = tags
}
func (r *recordMonitor) Recover()            {}
func (r *recordMonitor) Flush(time.Duration) { r.flushed = true }

func TestGlobalMonitor(t *testing.T) {
	mon := &recordMonitor{}
	Init(mon)
	t.Cleanup(func() { Init(NopMonitor{}) })

	Capture("dispatch", errors.New("boom"))
	CaptureException(nil, nil)
	Flush(time.Second)

	assert.Same(t, mon, Current())
	assert.Len(t, mon.errs, 1)
	assert.Equal(t, "dispatch", mon.tags["module"])
	assert.True(t, mon.flushed)

	Init(nil)
	assert.Same(t, mon, Current(), "nil monitors are ignored")
}

func TestCaptureHelpersTagContext(t *testing.T) {
	mon := &recordMonitor{}
	Init(mon)
	t.Cleanup(func() { Init(NopMonitor{}) })

	CaptureScenario("service", "uri_2021", errors.New("notify"))
	assert.Equal(t, map[string]string{TagModule: "service", TagScenario: "uri_2021"}, mon.tags)

	CaptureSession("mqtt", "sess-1", errors.New("publish"))
	assert.Equal(t, map[string]string{TagModule: "mqtt", TagSession: "sess-1"}, mon.tags)

	CaptureSession("mqtt", "sess-2", nil)
	assert.Len(t, mon.errs, 2)
}

func TestGoRunsFunction(t *testing.T) {
	done := make(chan struct{})
	Go(func() { close(done) })
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("function not run")
	}
}
