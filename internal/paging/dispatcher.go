package paging

import "sync"

// Dispatcher runs posted callbacks one at a time, in posting order, on its own goroutine.
// Post never blocks, so a callback may safely post more work or call back into a loader.
type Dispatcher struct {
	mu      sync.Mutex
	queue   []func()
	closed  bool
	wake    chan struct{}
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

// NewDispatcher starts a dispatcher goroutine.
func NewDispatcher() *Dispatcher {
	d := &Dispatcher{
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go d.run()
	return d
}

// Post queues fn. It reports false once the dispatcher is stopped.
func (d *Dispatcher) Post(fn func()) bool {
	if d == nil || fn == nil {
		return false
	}
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return false
	}
	d.queue = append(d.queue, fn)
	d.mu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
	}
	return true
}

// Flush blocks until everything posted before the call has run, or the dispatcher stops.
// It must not be called from a dispatched callback.
func (d *Dispatcher) Flush() {
	barrier := make(chan struct{})
	if !d.Post(func() { close(barrier) }) {
		return
	}
	select {
	case <-barrier:
	case <-d.stopped:
	}
}

// Stop drops queued callbacks and ends the goroutine. Safe to call more than once
// and from inside a callback.
func (d *Dispatcher) Stop() {
	if d == nil {
		return
	}
	d.once.Do(func() {
		d.mu.Lock()
		d.closed = true
		d.queue = nil
		d.mu.Unlock()
		close(d.done)
	})
}

func (d *Dispatcher) run() {
	defer close(d.stopped)
	for {
		select {
		case <-d.done:
			return
		case <-d.wake:
		}

		for {
			d.mu.Lock()
			if len(d.queue) == 0 {
				d.mu.Unlock()
				break
			}
			fn := d.queue[0]
			d.queue[0] = nil
			d.queue = d.queue[1:]
			d.mu.Unlock()

			select {
			case <-d.done:
				return
			default:
			}
			fn()
		}
	}
}
