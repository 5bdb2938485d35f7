package device

import (
	"log"
	"sync"
)

// A Line carries interrupt signals from the device to a consumer. The device
// calls exactly one of the two methods depending on the delivery mode selected
// at attach time. Implementations must not block: Line methods are invoked
// with the device's wake lock held.
type Line interface {
	// Pulse delivers one edge-triggered, message-based notification.
	Pulse()

	// SetLevel asserts or withdraws a level-triggered line.
	SetLevel(high bool)
}

// A PulseFunc adapts a plain function into a message-delivery Line.
type PulseFunc func()

// Pulse calls the wrapped function.
func (f PulseFunc) Pulse() {
	f()
}

// SetLevel panics. A PulseFunc can only serve message delivery.
func (f PulseFunc) SetLevel(_ bool) {
	panic("PulseFunc cannot serve level-triggered delivery")
}

// A LevelLine is a Line that remembers the level it was last driven to. It
// serves level-triggered delivery; consumers poll Asserted or register a
// listener to observe transitions.
type LevelLine struct {
	mu       sync.Mutex
	high     bool
	listener func(high bool)
}

// NewLevelLine creates a LevelLine that is initially deasserted.
func NewLevelLine() *LevelLine {
	return &LevelLine{}
}

// SetListener registers a function called on every level transition. It must
// be called before the line is driven.
func (l *LevelLine) SetListener(f func(high bool)) {
	l.listener = f
}

// Pulse panics. A LevelLine only serves level-triggered delivery.
func (l *LevelLine) Pulse() {
	panic("LevelLine cannot serve message-based delivery")
}

// SetLevel drives the line.
func (l *LevelLine) SetLevel(high bool) {
	l.mu.Lock()
	changed := l.high != high
	l.high = high
	l.mu.Unlock()

	if changed && l.listener != nil {
		l.listener(high)
	}
}

// Asserted returns whether the line is currently driven high.
func (l *LevelLine) Asserted() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.high
}

// A LogLine is a Line that reports every signal with the standard logger. It
// is mainly useful for running a device without a real consumer.
type LogLine struct {
	name string
}

// NewLogLine creates a LogLine labeled with the given device name.
func NewLogLine(name string) *LogLine {
	return &LogLine{name: name}
}

// Pulse logs a message-based notification.
func (l *LogLine) Pulse() {
	log.Printf("%s: irq pulse", l.name)
}

// SetLevel logs a level transition.
func (l *LogLine) SetLevel(high bool) {
	log.Printf("%s: irq line high=%v", l.name, high)
}
