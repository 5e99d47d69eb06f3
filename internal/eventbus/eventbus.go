package eventbus

import (
	"sync"
	"sync/atomic"
)

// Event represents an arbitrary event passed on the bus.
type Event interface{}

// EventBus implements a simple publish/subscribe event bus.
type EventBus interface {
	Publish(Event)
	Subscribe() <-chan Event
	SubscribeDurable() <-chan Event
	Unsubscribe(<-chan Event)
	Close()
}

// DefaultBuffer is the per-subscriber channel capacity used by New.
const DefaultBuffer = 64

// Bus is the default EventBus implementation using fan-out channels.
// Publishing never blocks: events are dropped for Subscribe channels whose
// buffer is full and counted in Dropped. SubscribeDurable channels queue
// without bound and receive every event.
type Bus struct {
	mu       sync.RWMutex
	subs     []chan Event
	durables []*durable
	buffer   int
	closed   bool
	dropped  atomic.Uint64
}

// New creates a Bus with DefaultBuffer capacity per subscriber.
func New() *Bus { return NewWithBuffer(DefaultBuffer) }

// NewWithBuffer creates a Bus whose subscriber channels hold size events.
func NewWithBuffer(size int) *Bus {
	if size <= 0 {
		size = DefaultBuffer
	}
	return &Bus{buffer: size}
}

// Publish sends the event to all subscribers.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
			b.dropped.Add(1)
		}
	}
	for _, d := range b.durables {
		d.push(e)
	}
}

// Dropped returns how many deliveries were skipped because a subscriber was
// not keeping up.
func (b *Bus) Dropped() uint64 { return b.dropped.Load() }

// Subscribe registers a new subscriber and returns its channel.
func (b *Bus) Subscribe() <-chan Event {
	ch := make(chan Event, b.buffer)
	b.mu.Lock()
	if b.closed {
		close(ch)
	} else {
		b.subs = append(b.subs, ch)
	}
	b.mu.Unlock()
	return ch
}

// SubscribeDurable registers a subscriber that never misses an event. Its
// channel is closed after Close once the backlog is delivered.
func (b *Bus) SubscribeDurable() <-chan Event {
	d := newDurable()
	b.mu.Lock()
	if b.closed {
		d.finish()
	} else {
		b.durables = append(b.durables, d)
	}
	b.mu.Unlock()
	return d.out
}

// Unsubscribe removes the subscriber and closes its channel. Events still
// queued for a durable subscriber are discarded.
func (b *Bus) Unsubscribe(sub <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, d := range b.durables {
		if d.out == sub {
			b.durables = append(b.durables[:i], b.durables[i+1:]...)
			d.abort()
			return
		}
	}
	for i, ch := range b.subs {
		if ch == sub {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			if !b.closed {
				close(ch)
			}
			return
		}
	}
}

// Close closes all subscriber channels and clears the list.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, ch := range b.subs {
		close(ch)
	}
	b.subs = nil
	for _, d := range b.durables {
		d.finish()
	}
	b.durables = nil
}
