package eventbus

import "sync"

// durable is a subscriber backed by an unbounded queue. A pump goroutine
// moves queued events to out, so Publish never blocks and never drops.
type durable struct {
	out    chan Event
	wake   chan struct{}
	stop   chan struct{}
	once   sync.Once
	mu     sync.Mutex
	queue  []Event
	closed bool
}

func newDurable() *durable {
	d := &durable{
		out:  make(chan Event),
		wake: make(chan struct{}, 1),
		stop: make(chan struct{}),
	}
	go d.pump()
	return d
}

func (d *durable) push(e Event) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.queue = append(d.queue, e)
	d.mu.Unlock()
	d.signal()
}

func (d *durable) signal() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// finish closes out once every queued event has been delivered.
func (d *durable) finish() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.signal()
}

// abort closes out without delivering what is still queued.
func (d *durable) abort() {
	d.once.Do(func() { close(d.stop) })
}

func (d *durable) pump() {
	defer close(d.out)
	for {
		d.mu.Lock()
		if len(d.queue) == 0 {
			closed := d.closed
			d.mu.Unlock()
			if closed {
				return
			}
			select {
			case <-d.wake:
				continue
			case <-d.stop:
				return
			}
		}
		e := d.queue[0]
		d.queue[0] = nil
		d.queue = d.queue[1:]
		d.mu.Unlock()
		select {
		case d.out <- e:
		case <-d.stop:
			return
		}
	}
}
