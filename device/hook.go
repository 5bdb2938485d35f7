package device

// HookPos defines the enum of possible hooking positions
type HookPos struct {
	Name string
}

// HookCtx is the context that holds all the information about the site that a
// hook is triggered
type HookCtx struct {
	Domain Hookable
	Pos    *HookPos
	Item   interface{}
}

// Hookable defines an object that accept Hooks
type Hookable interface {
	// AcceptHook registers a hook
	AcceptHook(hook Hook)
}

// HookPosRaise is a hook position that triggers after the worker asserts an
// interrupt cause.
var HookPosRaise = &HookPos{Name: "Raise"}

// HookPosAck is a hook position that triggers after a consumer acknowledges
// interrupt causes through the register interface.
var HookPosAck = &HookPos{Name: "Ack"}

// HookPosConfUpdate is a hook position that triggers after the configuration
// channel overwrites the interval.
var HookPosConfUpdate = &HookPos{Name: "ConfUpdate"}

// HookPosStop is a hook position that triggers when the worker observes the
// stop request and exits.
var HookPosStop = &HookPos{Name: "Stop"}

// Hook is a short piece of program that can be invoked by a hookable object.
type Hook interface {
	// Func determines what to do if hook is invoked.
	Func(ctx HookCtx)
}

// A HookableBase provides some utility function for other type that implement
// the Hookable interface. Hooks must be registered before the device is
// attached.
type HookableBase struct {
	Hooks []Hook
}

// NewHookableBase creates a HookableBase object
func NewHookableBase() *HookableBase {
	h := new(HookableBase)
	h.Hooks = make([]Hook, 0)
	return h
}

// AcceptHook register a hook
func (h *HookableBase) AcceptHook(hook Hook) {
	h.Hooks = append(h.Hooks, hook)
}

// InvokeHook triggers the register Hooks
func (h *HookableBase) InvokeHook(ctx HookCtx) {
	for _, hook := range h.Hooks {
		hook.Func(ctx)
	}
}
