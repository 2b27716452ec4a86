// Package ticking calls listeners once per frame, grouped by phase and in
// phase order.
//
// A Ticker is driven by hand: each call to Tick runs every phase in the
// phase list. An AutoTicker drives itself by requesting frames from a
// frame.Source for as long as it has work to do.
//
// Tickers are not safe for concurrent use. Everything, including ticks,
// must happen on one goroutine; frame.Loop provides such a goroutine.
package ticking

import (
	"go.uber.org/zap"

	"github.com/sarchlab/frameticker/hooking"
	"github.com/sarchlab/frameticker/listener"
)

// Ticker runs phase listeners on demand.
type Ticker[P comparable, A any] struct {
	*hooking.HookableBase

	registry    *listener.Registry[P, A]
	phases      []P
	dispatching bool
	seq         uint64
	log         *zap.Logger
}

// NewTicker creates a ticker over the given phases with default settings.
func NewTicker[P comparable, A any](phases ...P) *Ticker[P, A] {
	return MakeBuilder[P, A]().WithPhases(phases...).Build()
}

// On registers fn under phase with a generated id and returns the id. The
// listener is not called until the next tick.
func (t *Ticker[P, A]) On(phase P, fn func(A)) (listener.ID, error) {
	return t.registry.On(phase, fn, nil)
}

// OnWithID registers fn under phase with an explicit id. What happens to an
// existing listener with the same id depends on the dedupe mode.
func (t *Ticker[P, A]) OnWithID(
	phase P,
	id listener.ID,
	fn func(A),
) (listener.ID, error) {
	return t.registry.On(phase, fn, id)
}

// Once registers fn to be called on the next tick only.
func (t *Ticker[P, A]) Once(phase P, fn func(A)) (listener.ID, error) {
	return t.registry.Once(phase, fn, nil)
}

// OnceWithID is Once with an explicit id.
func (t *Ticker[P, A]) OnceWithID(
	phase P,
	id listener.ID,
	fn func(A),
) (listener.ID, error) {
	return t.registry.Once(phase, fn, id)
}

// Off removes the listener with the given id from phase. Unknown ids are
// ignored.
func (t *Ticker[P, A]) Off(phase P, id listener.ID) {
	t.registry.Off(phase, id)
}

// OffPhase removes all listeners of phase.
func (t *Ticker[P, A]) OffPhase(phase P) {
	t.registry.OffKey(phase)
}

// OffAll removes every listener.
func (t *Ticker[P, A]) OffAll() {
	t.registry.Clear()
}

// Count returns the number of listeners of phase.
func (t *Ticker[P, A]) Count(phase P) int {
	return t.registry.Count(phase)
}

// TotalCount returns the number of listeners of all phases.
func (t *Ticker[P, A]) TotalCount() int {
	return t.registry.Total()
}

// Phases returns a copy of the phase list.
func (t *Ticker[P, A]) Phases() []P {
	return append([]P(nil), t.phases...)
}

// SetPhases replaces the phase list. A tick that is running keeps the list
// it started with.
func (t *Ticker[P, A]) SetPhases(phases []P) {
	t.phases = append([]P(nil), phases...)
}

// DedupeMode returns how duplicate listener ids are handled.
func (t *Ticker[P, A]) DedupeMode() listener.DedupeMode {
	return t.registry.DedupeMode()
}

// SetDedupeMode changes how duplicate listener ids are handled.
func (t *Ticker[P, A]) SetDedupeMode(mode listener.DedupeMode) {
	t.registry.SetDedupeMode(mode)
}

// Ticks returns the number of ticks that dispatched listeners.
func (t *Ticker[P, A]) Ticks() uint64 {
	return t.seq
}

// Dispatching reports whether a tick is running.
func (t *Ticker[P, A]) Dispatching() bool {
	return t.dispatching
}

// Tick calls the listeners of every phase, in phase order, with arg.
// Calling Tick from inside a listener returns ErrReentrantTick and changes
// nothing. A panicking listener aborts the tick, and the ticker can tick
// again afterwards.
func (t *Ticker[P, A]) Tick(arg A) error {
	if !t.enter() {
		return ErrReentrantTick
	}
	defer t.leave()

	t.dispatch(arg)

	return nil
}

func (t *Ticker[P, A]) enter() bool {
	if t.dispatching {
		return false
	}

	t.dispatching = true

	return true
}

func (t *Ticker[P, A]) leave() {
	t.dispatching = false
}

// hasListeners reports whether any phase of the current list has a listener.
func (t *Ticker[P, A]) hasListeners() bool {
	for _, phase := range t.phases {
		if t.registry.Count(phase) > 0 {
			return true
		}
	}

	return false
}

// dispatch runs the phases of the list current at entry. The listeners of an
// occurrence are captured right before it runs, so a listener added by an
// earlier phase is already called in a later one, while listeners added to
// the running occurrence wait for the next tick.
func (t *Ticker[P, A]) dispatch(arg A) {
	phases := t.phases

	t.seq++
	seq := t.seq

	t.invoke(HookPosBeforeTick, TickInfo{Seq: seq, NumPhases: len(phases)}, arg)

	for i, phase := range phases {
		batch := t.registry.Listeners(phase)
		if len(batch) == 0 {
			continue
		}

		info := PhaseInfo{
			Seq:          seq,
			Index:        i,
			Phase:        phase,
			NumListeners: len(batch),
		}

		t.invoke(HookPosBeforePhase, info, arg)

		for _, entry := range batch {
			t.registry.Call(phase, entry, arg)
		}

		t.invoke(HookPosAfterPhase, info, arg)
	}

	t.invoke(HookPosAfterTick, TickInfo{Seq: seq, NumPhases: len(phases)}, arg)
}

func (t *Ticker[P, A]) invoke(pos *hooking.HookPos, item any, arg A) {
	if t.NumHooks() == 0 {
		return
	}

	t.InvokeHook(hooking.HookCtx{
		Domain: t,
		Pos:    pos,
		Item:   item,
		Arg:    arg,
	})
}
