// Package hooking lets loggers, recorders and monitors watch a ticker
// without the ticker depending on them.
//
// A ticker raises a hook at fixed positions: around every dispatching tick,
// around every phase occurrence that has listeners, and whenever it requests
// or cancels a frame. The ticking package defines those positions and the
// items that come with them.
package hooking

// HookPos names a site at which hooks fire, such as the start of a tick.
type HookPos struct {
	Name string
}

// HookCtx describes one hook invocation.
type HookCtx struct {
	// Domain is the ticker raising the hook.
	Domain Hookable

	// Pos identifies the site the hook fires from.
	Pos *HookPos

	// Item describes what happens at Pos. Tickers pass a ticking.TickInfo
	// around ticks, a ticking.PhaseInfo around phases and the tick count when
	// a frame is requested or cancelled.
	Item any

	// Arg is the argument of the running tick, usually the frame time. It is
	// nil outside of a tick.
	Arg any
}

// Hookable is an object that accepts hooks.
type Hookable interface {
	// AcceptHook attaches a hook. A hook attached while hooks are being
	// invoked is first called at the next invocation.
	AcceptHook(hook Hook)

	// NumHooks returns the number of hooks attached.
	NumHooks() int

	// Hooks returns the attached hooks in the order they are called.
	Hooks() []Hook

	// InvokeHook calls every attached hook with ctx.
	InvokeHook(ctx HookCtx)
}

// Hook receives hook invocations.
type Hook interface {
	Func(ctx HookCtx)
}

// HookFunc adapts a function to the Hook interface. A HookFunc cannot be
// compared, so it skips the duplicate check.
type HookFunc func(ctx HookCtx)

// Func calls f.
func (f HookFunc) Func(ctx HookCtx) {
	f(ctx)
}

// HookableBase implements Hookable and is embedded by the tickers.
//
// The hook list is replaced, never modified, so an invocation keeps calling
// the hooks it started with.
type HookableBase struct {
	hookList []Hook
}

// NewHookableBase creates a HookableBase without hooks.
func NewHookableBase() *HookableBase {
	return &HookableBase{}
}

// NumHooks returns the number of hooks attached.
func (h *HookableBase) NumHooks() int {
	return len(h.hookList)
}

// Hooks returns a copy of the attached hooks.
func (h *HookableBase) Hooks() []Hook {
	return append([]Hook(nil), h.hookList...)
}

// AcceptHook attaches a hook. Attaching the same hook twice panics.
func (h *HookableBase) AcceptHook(hook Hook) {
	h.mustNotHaveDuplicatedHook(hook)

	grown := make([]Hook, len(h.hookList), len(h.hookList)+1)
	copy(grown, h.hookList)
	h.hookList = append(grown, hook)
}

func (h *HookableBase) mustNotHaveDuplicatedHook(hook Hook) {
	if _, ok := hook.(HookFunc); ok {
		return
	}

	for _, existing := range h.hookList {
		if _, ok := existing.(HookFunc); ok {
			continue
		}

		if existing == hook {
			panic("hooking: hook attached twice")
		}
	}
}

// InvokeHook calls the attached hooks in the order they were attached.
func (h *HookableBase) InvokeHook(ctx HookCtx) {
	for _, hook := range h.hookList {
		hook.Func(ctx)
	}
}

var _ Hookable = (*HookableBase)(nil)
