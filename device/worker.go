package device

import (
	"crypto/rand"
	"encoding/binary"
	"time"
)

// IRQCausePace is the interrupt cause bit the worker asserts after each sleep
// phase. It is the only cause the device ever raises.
const IRQCausePace uint32 = 0x1

// workerLoop runs the interrupt generator. It blocks until the consumer
// writes the start register, then alternates strictly between sleeping,
// raising one interrupt cause, and waiting for the consumer to acknowledge
// and continue, until a stop is requested.
func (d *Device) workerLoop() {
	defer close(d.done)

	if !d.waitForSignal() {
		return
	}

	for {
		if !d.sleep() {
			return
		}

		d.raise(IRQCausePace)

		if !d.waitForSignal() {
			return
		}
	}
}

// waitForSignal blocks on the wake condition until a start/continue signal or
// a stop request arrives. It reports whether the worker should keep running.
func (d *Device) waitForSignal() bool {
	d.wakeMu.Lock()

	for d.pending == 0 && !d.stopping {
		d.wakeCond.Wait()
	}

	if d.stopping {
		d.wakeMu.Unlock()
		d.InvokeHook(HookCtx{Domain: d, Pos: HookPosStop})
		return false
	}

	d.pending--
	d.wakeMu.Unlock()

	return true
}

// sleep suspends the worker for the configured interval plus jitter. No lock
// is held while sleeping. It returns false if the sleep was cut short by a
// stop request.
func (d *Device) sleep() bool {
	d.confMu.Lock()
	interval := d.interval
	d.confMu.Unlock()

	duration := time.Duration(interval)*d.baseUnit + d.jitter()

	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-d.stopCh:
		return false
	}
}

// jitter draws a random duration in [0, jitterBound). If the random source
// fails, the jitter degrades to zero.
func (d *Device) jitter() time.Duration {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0
	}

	r := binary.NativeEndian.Uint32(buf[:])

	return time.Duration(r) % d.jitterBound
}

// raise asserts the given cause and signals the consumer, with a pulse for
// message delivery or by driving the line high for level delivery.
func (d *Device) raise(cause uint32) {
	d.wakeMu.Lock()
	d.irqStatus |= cause

	if d.messageDelivery {
		d.line.Pulse()
	} else {
		d.line.SetLevel(true)
	}
	d.wakeMu.Unlock()

	d.InvokeHook(HookCtx{Domain: d, Pos: HookPosRaise, Item: cause})
}

// acknowledge clears the given causes. Bits not currently set are ignored.
// When the last cause is cleared under level delivery, the line is withdrawn.
func (d *Device) acknowledge(mask uint32) {
	d.wakeMu.Lock()
	d.irqStatus &^= mask

	if d.irqStatus == 0 && !d.messageDelivery {
		d.line.SetLevel(false)
	}
	d.wakeMu.Unlock()

	d.InvokeHook(HookCtx{Domain: d, Pos: HookPosAck, Item: mask})
}
