package eventbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBusPublishSubscribe(t *testing.T) {
	bus := New()
	ch := bus.Subscribe()
	bus.Publish("hello")
	assert.Equal(t, "hello", <-ch)
	bus.Unsubscribe(ch)
	_, ok := <-ch
	assert.False(t, ok, "channel closed after unsubscribe")
}

func TestBusClose(t *testing.T) {
	bus := New()
	ch1 := bus.Subscribe()
	ch2 := bus.Subscribe()
	bus.Close()
	_, ok := <-ch1
	assert.False(t, ok)
	_, ok = <-ch2
	assert.False(t, ok)

	late := bus.Subscribe()
	_, ok = <-late
	assert.False(t, ok, "subscribe after close returns a closed channel")
	bus.Publish("ignored")
}

func TestBusUnsubscribeAfterClose(t *testing.T) {
	bus := New()
	ch := bus.Subscribe()
	bus.Close()
	assert.NotPanics(t, func() { bus.Unsubscribe(ch) })
}

func TestBusDropsWhenFull(t *testing.T) {
	bus := NewWithBuffer(2)
	ch := bus.Subscribe()
	for i := 0; i < 5; i++ {
		bus.Publish(i)
	}
	assert.Equal(t, uint64(3), bus.Dropped())
	assert.Equal(t, 0, <-ch)
	assert.Equal(t, 1, <-ch)
}

func TestDurableSubscriberReceivesEveryEvent(t *testing.T) {
	bus := NewWithBuffer(4)
	lossy := bus.Subscribe()
	durable := bus.SubscribeDurable()
	const n = 500
	for i := 0; i < n; i++ {
		bus.Publish(i)
	}
	bus.Close()

	got := 0
	for ev := range durable {
		assert.Equal(t, got, ev, "events arrive in publish order")
		got++
	}
	assert.Equal(t, n, got)

	lossyCount := 0
	for range lossy {
		lossyCount++
	}
	assert.Equal(t, 4, lossyCount)
	assert.Equal(t, uint64(n-4), bus.Dropped())
}

func TestDurableUnsubscribeAndLateSubscribe(t *testing.T) {
	bus := New()
	ch := bus.SubscribeDurable()
	bus.Publish("queued")
	bus.Unsubscribe(ch)
	for range ch {
	}
	bus.Publish("ignored")

	bus.Close()
	late := bus.SubscribeDurable()
	_, ok := <-late
	assert.False(t, ok)
}
