package frame

import "sync"

// dispatcher serializes inbound delivery for one endpoint. A single goroutine
// drains the queue so listeners observe messages in arrival order, and the
// queue only drains while at least one listener is attached, which gives
// every endpoint the buffer-until-listen behavior the Endpoint contract
// promises.
type dispatcher struct {
	mu        sync.Mutex
	cond      *sync.Cond
	queue     []Message
	listeners []listenerEntry
	nextID    int
	closed    bool
	done      chan struct{}
}

type listenerEntry struct {
	id int
	fn Listener
}

func newDispatcher() *dispatcher {
	d := &dispatcher{done: make(chan struct{})}
	d.cond = sync.NewCond(&d.mu)
	go d.run()
	return d
}

func (d *dispatcher) run() {
	for {
		d.mu.Lock()
		for !d.closed && (len(d.queue) == 0 || len(d.listeners) == 0) {
			d.cond.Wait()
		}
		if d.closed {
			d.mu.Unlock()
			return
		}

		msg := d.queue[0]
		d.queue = d.queue[1:]
		fns := make([]Listener, len(d.listeners))
		for i, entry := range d.listeners {
			fns[i] = entry.fn
		}
		d.mu.Unlock()

		// Listeners run outside the lock so they may post, attach, or close
		// without deadlocking.
		for _, fn := range fns {
			fn(msg)
		}
	}
}

// deliver enqueues an inbound message. Messages delivered after close are
// dropped.
func (d *dispatcher) deliver(msg Message) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.queue = append(d.queue, msg)
	d.cond.Signal()
}

func (d *dispatcher) listen(fn Listener) (remove func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return func() {}
	}

	id := d.nextID
	d.nextID++
	d.listeners = append(d.listeners, listenerEntry{id: id, fn: fn})
	d.cond.Signal()

	return func() {
		d.removeListener(id)
	}
}

func (d *dispatcher) removeListener(id int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, entry := range d.listeners {
		if entry.id == id {
			d.listeners = append(d.listeners[:i], d.listeners[i+1:]...)
			return
		}
	}
}

func (d *dispatcher) close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	d.queue = nil
	d.listeners = nil
	close(d.done)
	d.cond.Broadcast()
}

func (d *dispatcher) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}
