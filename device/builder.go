package device

import (
	"sync"
	"time"

	"github.com/rs/xid"

	"github.com/sarchlab/pacer/conf"
	"github.com/sarchlab/pacer/reactor"
)

// Builder can be used to build a device.
type Builder struct {
	name            string
	line            Line
	messageDelivery bool
	confPort        int
	interval        uint32
	baseUnit        time.Duration
	jitterBound     time.Duration
}

// MakeBuilder creates a new builder with the default configuration.
func MakeBuilder() Builder {
	return Builder{
		name:            "Pacer",
		messageDelivery: true,
		confPort:        DefaultConfPort,
		interval:        DefaultInterval,
		baseUnit:        DefaultBaseUnit,
		jitterBound:     DefaultJitterBound,
	}
}

// WithName sets the name of the device.
func (b Builder) WithName(name string) Builder {
	b.name = name
	return b
}

// WithLine sets the line that carries interrupt signals to the consumer.
func (b Builder) WithLine(line Line) Builder {
	b.line = line
	return b
}

// WithMessageDelivery selects edge-triggered, message-based interrupt
// delivery. This is the default.
func (b Builder) WithMessageDelivery() Builder {
	b.messageDelivery = true
	return b
}

// WithLevelDelivery selects level-triggered delivery. The line stays asserted
// until all interrupt causes are acknowledged.
func (b Builder) WithLevelDelivery() Builder {
	b.messageDelivery = false
	return b
}

// WithConfPort sets the TCP port of the configuration channel. Port 0 picks
// a free port, which is mainly useful in tests.
func (b Builder) WithConfPort(port int) Builder {
	b.confPort = port
	return b
}

// WithInterval sets the interval the device starts with, in interval units.
func (b Builder) WithInterval(v uint32) Builder {
	b.interval = v
	return b
}

// WithTimeScale sets the wall-clock duration of one interval unit and the
// exclusive upper bound of the per-sleep jitter.
func (b Builder) WithTimeScale(baseUnit, jitterBound time.Duration) Builder {
	b.baseUnit = baseUnit
	b.jitterBound = jitterBound
	return b
}

func (b Builder) parametersMustBeValid() {
	if b.line == nil {
		panic("a device must have a line to deliver interrupts on")
	}

	if b.baseUnit <= 0 || b.jitterBound <= 0 {
		panic("base unit and jitter bound must be positive")
	}
}

// Build builds the device. The device does not run until Attach is called.
func (b Builder) Build() *Device {
	b.parametersMustBeValid()

	d := &Device{
		name:            b.name,
		id:              xid.New().String(),
		line:            b.line,
		messageDelivery: b.messageDelivery,
		baseUnit:        b.baseUnit,
		jitterBound:     b.jitterBound,
		liveness:        LivenessValue,
		interval:        b.interval,
		stopCh:          make(chan struct{}),
		done:            make(chan struct{}),
	}
	d.wakeCond = sync.NewCond(&d.wakeMu)

	d.dispatcher = reactor.NewDispatcher()
	d.confServer = conf.NewServer(b.confPort, d, d.dispatcher)

	return d
}
