// Package device implements a virtual peripheral that periodically raises an
// interrupt after a jittered interval. The interval is reconfigurable at
// runtime through a TCP configuration channel, and every interrupt must be
// acknowledged and continued through the register interface before the next
// cycle starts.
package device

import (
	"sync"
	"time"

	"github.com/sarchlab/pacer/conf"
	"github.com/sarchlab/pacer/reactor"
)

// LivenessValue is the constant readable from the liveness register. Drivers
// use it as a sanity check that the device is decoding accesses at all.
const LivenessValue uint32 = 0xdeadbeef

// IDValue identifies the device model and revision to drivers.
const IDValue uint32 = 0x010000ed

// DefaultInterval is the interval the device boots with, in interval units.
const DefaultInterval uint32 = 10

// DefaultConfPort is the well-known port of the configuration channel.
const DefaultConfPort = 3333

// DefaultBaseUnit is the wall-clock duration of one interval unit.
const DefaultBaseUnit = 100 * time.Millisecond

// DefaultJitterBound caps the random addition to each sleep.
const DefaultJitterBound = 10 * time.Millisecond

// A Device is the aggregate of the peripheral's shared state, its interrupt
// generator worker, and its configuration channel. Create one with a Builder,
// then call Attach to start it and Detach to tear it down.
type Device struct {
	HookableBase

	name            string
	id              string
	line            Line
	messageDelivery bool
	baseUnit        time.Duration
	jitterBound     time.Duration

	// wakeMu guards irqStatus, pending, and stopping, and pairs with
	// wakeCond to deliver start/continue/stop signals to the worker.
	wakeMu    sync.Mutex
	wakeCond  *sync.Cond
	irqStatus uint32
	pending   int
	stopping  bool

	liveness uint32

	// confMu guards interval only. It is never held together with wakeMu.
	confMu   sync.Mutex
	interval uint32

	dispatcher *reactor.Dispatcher
	confServer *conf.Server

	stopCh   chan struct{}
	done     chan struct{}
	attached bool
}

// Name returns the name of the device.
func (d *Device) Name() string {
	return d.name
}

// ID returns the unique ID of this device instance.
func (d *Device) ID() string {
	return d.id
}

// MessageDelivery returns whether the device delivers interrupts as messages
// rather than by driving a level line.
func (d *Device) MessageDelivery() bool {
	return d.messageDelivery
}

// Interval returns the currently configured interval, in interval units.
func (d *Device) Interval() uint32 {
	d.confMu.Lock()
	defer d.confMu.Unlock()

	return d.interval
}

// SetInterval overwrites the configured interval. The worker picks the new
// value up at the start of its next sleep phase, never mid-sleep.
func (d *Device) SetInterval(v uint32) {
	d.confMu.Lock()
	d.interval = v
	d.confMu.Unlock()

	d.InvokeHook(HookCtx{Domain: d, Pos: HookPosConfUpdate, Item: v})
}

// IRQStatus returns the bitmask of currently asserted interrupt causes.
func (d *Device) IRQStatus() uint32 {
	d.wakeMu.Lock()
	defer d.wakeMu.Unlock()

	return d.irqStatus
}

// Signal delivers one start/continue signal to the worker. Signals are
// counted, so one issued while the worker is not waiting is consumed at its
// next wait rather than lost.
func (d *Device) Signal() {
	d.wakeMu.Lock()
	d.pending++
	d.wakeCond.Signal()
	d.wakeMu.Unlock()
}

// ConfAddr returns the address the configuration channel is listening on. It
// is only valid between Attach and Detach.
func (d *Device) ConfAddr() string {
	return d.confServer.Addr()
}

// Attach starts the worker, the I/O dispatcher, and the configuration
// listener. A listener bind failure is fatal and leaves the device stopped.
// A device can be attached at most once.
func (d *Device) Attach() error {
	if d.attached {
		panic("device " + d.name + " is already attached")
	}

	if d.stopping {
		panic("device " + d.name + " cannot be attached again")
	}

	if err := d.confServer.Listen(); err != nil {
		return err
	}

	d.dispatcher.Start()

	go d.workerLoop()

	d.attached = true

	return nil
}

// Detach requests the worker to stop, waits for it to exit, and closes the
// configuration channel. The worker is interrupted no matter which state it
// is in, including mid-sleep.
func (d *Device) Detach() {
	if !d.attached {
		panic("device " + d.name + " is not attached")
	}

	d.wakeMu.Lock()
	d.stopping = true
	d.wakeCond.Broadcast()
	d.wakeMu.Unlock()

	close(d.stopCh)
	<-d.done

	d.confServer.Close()
	d.dispatcher.Stop()

	d.attached = false
}
