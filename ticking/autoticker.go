package ticking

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sarchlab/frameticker/frame"
	"github.com/sarchlab/frameticker/hooking"
	"github.com/sarchlab/frameticker/listener"
)

// AutoTicker is a Ticker that requests its own frames. It keeps at most one
// request outstanding and stops requesting once it finds nothing to do. A
// new listener, a non-empty phase list, resuming, or leaving on-demand mode
// starts it again.
//
// In continuous mode the next frame is requested before the listeners run.
// In on-demand mode it is requested only when the tick found listeners, so
// the ticker goes quiet after one idle frame.
type AutoTicker[P comparable, A any] struct {
	*Ticker[P, A]

	paused   bool
	onDemand bool
	empty    bool
	source   frame.Source[A]
	cancel   frame.CancelFunc
}

// Status is a snapshot of the drive state of an AutoTicker.
type Status struct {
	Paused      bool   `json:"paused"`
	OnDemand    bool   `json:"on_demand"`
	Empty       bool   `json:"empty"`
	Pending     bool   `json:"pending"`
	Dispatching bool   `json:"dispatching"`
	Ticks       uint64 `json:"ticks"`
	Phases      int    `json:"phases"`
	Listeners   int    `json:"listeners"`
}

// Paused reports whether the ticker is paused.
func (at *AutoTicker[P, A]) Paused() bool {
	return at.paused
}

// SetPaused pauses or resumes the ticker. Pausing cancels the outstanding
// request; resuming requests a frame.
func (at *AutoTicker[P, A]) SetPaused(paused bool) error {
	at.paused = paused
	at.log.Debug("ticker paused state changed", zap.Bool("paused", paused))

	if paused {
		return at.cancelFrame()
	}

	return at.request()
}

// OnDemand reports whether the ticker is in on-demand mode.
func (at *AutoTicker[P, A]) OnDemand() bool {
	return at.onDemand
}

// SetOnDemand switches between on-demand and continuous mode. Leaving
// on-demand mode requests a frame.
func (at *AutoTicker[P, A]) SetOnDemand(onDemand bool) error {
	at.onDemand = onDemand
	at.log.Debug("ticker on-demand state changed",
		zap.Bool("on_demand", onDemand))

	if !onDemand {
		return at.request()
	}

	return nil
}

// Source returns the frame source.
func (at *AutoTicker[P, A]) Source() frame.Source[A] {
	return at.source
}

// SetSource replaces the frame source. Setting the current source does
// nothing. An outstanding request is cancelled and made again through the
// new source.
func (at *AutoTicker[P, A]) SetSource(source frame.Source[A]) error {
	if source == nil {
		return ErrNoFrameSource
	}

	if frame.SameSource(at.source, source) {
		return nil
	}

	at.source = source
	at.log.Debug("ticker frame source replaced")

	if at.cancel == nil {
		return nil
	}

	if err := at.cancelFrame(); err != nil {
		return err
	}

	return at.request()
}

// SetPhases replaces the phase list. A non-empty list wakes the ticker up;
// an empty one lets it go idle.
func (at *AutoTicker[P, A]) SetPhases(phases []P) error {
	at.Ticker.SetPhases(phases)

	if len(phases) == 0 {
		at.empty = true
		return nil
	}

	at.empty = false

	return at.request()
}

// On registers fn under phase and makes sure a frame is coming. The id is
// returned even when requesting the frame fails.
func (at *AutoTicker[P, A]) On(phase P, fn func(A)) (listener.ID, error) {
	return at.wake(at.Ticker.On(phase, fn))
}

// OnWithID is On with an explicit id.
func (at *AutoTicker[P, A]) OnWithID(
	phase P,
	id listener.ID,
	fn func(A),
) (listener.ID, error) {
	return at.wake(at.Ticker.OnWithID(phase, id, fn))
}

// Once registers fn for the next tick only and makes sure a frame is coming.
func (at *AutoTicker[P, A]) Once(phase P, fn func(A)) (listener.ID, error) {
	return at.wake(at.Ticker.Once(phase, fn))
}

// OnceWithID is Once with an explicit id.
func (at *AutoTicker[P, A]) OnceWithID(
	phase P,
	id listener.ID,
	fn func(A),
) (listener.ID, error) {
	return at.wake(at.Ticker.OnceWithID(phase, id, fn))
}

func (at *AutoTicker[P, A]) wake(
	id listener.ID,
	err error,
) (listener.ID, error) {
	if err != nil {
		return id, err
	}

	at.empty = false

	return id, at.request()
}

// Tick runs one frame. It is called by the frame source, but may also be
// called by hand; a manual tick leaves an outstanding request in place.
func (at *AutoTicker[P, A]) Tick(arg A) error {
	if !at.enter() {
		return ErrReentrantTick
	}
	defer at.leave()

	if !at.onDemand {
		if err := at.request(); err != nil {
			return err
		}
	}

	if at.empty {
		return nil
	}

	if !at.hasListeners() {
		at.empty = true
		at.log.Debug("ticker has no listeners, going idle")

		return nil
	}

	if at.onDemand {
		if err := at.request(); err != nil {
			return err
		}
	}

	at.dispatch(arg)

	return nil
}

// Pending reports whether a frame request is outstanding.
func (at *AutoTicker[P, A]) Pending() bool {
	return at.cancel != nil
}

// Status returns the current drive state.
func (at *AutoTicker[P, A]) Status() Status {
	return Status{
		Paused:      at.paused,
		OnDemand:    at.onDemand,
		Empty:       at.empty,
		Pending:     at.cancel != nil,
		Dispatching: at.dispatching,
		Ticks:       at.seq,
		Phases:      len(at.phases),
		Listeners:   at.TotalCount(),
	}
}

// Close removes every listener and cancels the outstanding request.
func (at *AutoTicker[P, A]) Close() error {
	at.OffAll()
	at.empty = true

	return at.cancelFrame()
}

func (at *AutoTicker[P, A]) onFrame(arg A) error {
	at.cancel = nil
	return at.Tick(arg)
}

func (at *AutoTicker[P, A]) request() error {
	if at.paused || at.cancel != nil {
		return nil
	}

	cancel, err := at.source.Request(at.onFrame)
	if err != nil {
		return eris.Wrap(err, "ticking: failed to request frame")
	}

	if cancel == nil {
		cancel = func() error { return nil }
	}

	at.cancel = cancel
	at.invokeFrameHook(HookPosFrameRequested)

	return nil
}

func (at *AutoTicker[P, A]) cancelFrame() error {
	cancel := at.cancel
	if cancel == nil {
		return nil
	}

	at.cancel = nil

	if err := cancel(); err != nil {
		return eris.Wrap(err, "ticking: failed to cancel frame")
	}

	at.invokeFrameHook(HookPosFrameCancelled)

	return nil
}

func (at *AutoTicker[P, A]) invokeFrameHook(pos *hooking.HookPos) {
	if at.NumHooks() == 0 {
		return
	}

	at.InvokeHook(hooking.HookCtx{
		Domain: at,
		Pos:    pos,
		Item:   at.seq,
	})
}
