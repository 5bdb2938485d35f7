// Package reactor provides a single-goroutine dispatcher that serializes I/O
// readiness callbacks, in the style of the event loop that device emulators
// use to deliver socket events to device models. Watchers block on the
// network on their own goroutines; the callbacks they trigger all run on the
// one dispatch goroutine, so handlers never race with each other.
package reactor

import (
	"net"
	"sync"
)

const dispatchQueueDepth = 64

// A Dispatcher runs readiness callbacks one at a time on a dedicated
// goroutine.
type Dispatcher struct {
	tasks chan func()
	stop  chan struct{}
	done  chan struct{}

	watcherWG sync.WaitGroup
}

// NewDispatcher creates a Dispatcher. It does not dispatch until Start is
// called.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		tasks: make(chan func(), dispatchQueueDepth),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
}

// Start launches the dispatch goroutine.
func (d *Dispatcher) Start() {
	go d.run()
}

func (d *Dispatcher) run() {
	defer close(d.done)

	for {
		select {
		case task := <-d.tasks:
			task()
		case <-d.stop:
			return
		}
	}
}

// Stop ends dispatching and waits for the dispatch goroutine and all watcher
// goroutines to exit. The resources being watched must be closed before Stop
// is called, otherwise the watchers never return.
func (d *Dispatcher) Stop() {
	close(d.stop)
	<-d.done
	d.watcherWG.Wait()
}

// Submit queues fn to run on the dispatch goroutine. Tasks submitted after
// Stop are dropped.
func (d *Dispatcher) Submit(fn func()) {
	select {
	case d.tasks <- fn:
	case <-d.stop:
	}
}

// WatchAccept accepts connections from ln on a background goroutine and
// dispatches each one through fn. Watching ends when ln is closed.
func (d *Dispatcher) WatchAccept(ln net.Listener, fn func(net.Conn)) {
	d.watcherWG.Add(1)

	go func() {
		defer d.watcherWG.Done()

		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}

			d.Submit(func() { fn(conn) })
		}
	}()
}

// WatchRead reads from conn on a background goroutine and dispatches each
// chunk through fn. When the connection ends, from either side, eof is
// dispatched once and watching stops.
func (d *Dispatcher) WatchRead(
	conn net.Conn,
	fn func(net.Conn, []byte),
	eof func(net.Conn),
) {
	d.watcherWG.Add(1)

	go func() {
		defer d.watcherWG.Done()

		buf := make([]byte, 4096)
		for {
			n, err := conn.Read(buf)
			if n > 0 {
				data := make([]byte, n)
				copy(data, buf[:n])
				d.Submit(func() { fn(conn, data) })
			}

			if err != nil {
				d.Submit(func() { eof(conn) })
				return
			}
		}
	}()
}
