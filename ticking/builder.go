package ticking

import (
	"go.uber.org/zap"

	"github.com/sarchlab/frameticker/frame"
	"github.com/sarchlab/frameticker/hooking"
	"github.com/sarchlab/frameticker/idgen"
	"github.com/sarchlab/frameticker/listener"
)

// Builder can build Tickers and AutoTickers.
type Builder[P comparable, A any] struct {
	phases     []P
	dedupe     listener.DedupeMode
	idGen      idgen.Generator
	paused     bool
	onDemand   bool
	source     frame.Source[A]
	dispatcher frame.Dispatcher
	fallback   frame.Freq
	log        *zap.Logger
}

// MakeBuilder creates a builder with default parameters: no phases, append
// dedupe mode, the default id generator, running continuously.
func MakeBuilder[P comparable, A any]() Builder[P, A] {
	return Builder[P, A]{
		dedupe:   listener.DedupeAppend,
		fallback: frame.DefaultFallbackFreq,
		log:      zap.NewNop(),
	}
}

// WithPhases sets the phase list.
func (b Builder[P, A]) WithPhases(phases ...P) Builder[P, A] {
	b.phases = append([]P(nil), phases...)
	return b
}

// WithDedupeMode sets how duplicate listener ids are handled.
func (b Builder[P, A]) WithDedupeMode(mode listener.DedupeMode) Builder[P, A] {
	b.dedupe = mode
	return b
}

// WithIDGenerator sets the generator of listener ids.
func (b Builder[P, A]) WithIDGenerator(gen idgen.Generator) Builder[P, A] {
	b.idGen = gen
	return b
}

// WithPaused makes the AutoTicker start paused.
func (b Builder[P, A]) WithPaused(paused bool) Builder[P, A] {
	b.paused = paused
	return b
}

// WithOnDemand makes the AutoTicker start in on-demand mode.
func (b Builder[P, A]) WithOnDemand(onDemand bool) Builder[P, A] {
	b.onDemand = onDemand
	return b
}

// WithSource sets the frame source of the AutoTicker.
func (b Builder[P, A]) WithSource(source frame.Source[A]) Builder[P, A] {
	b.source = source
	return b
}

// WithDispatcher sets the dispatcher used by the timer fallback when no
// source is given. The fallback only fits tickers whose argument is a
// time.Duration.
func (b Builder[P, A]) WithDispatcher(d frame.Dispatcher) Builder[P, A] {
	b.dispatcher = d
	return b
}

// WithFallbackFreq sets the frame rate of the timer fallback.
func (b Builder[P, A]) WithFallbackFreq(freq frame.Freq) Builder[P, A] {
	b.fallback = freq
	return b
}

// WithLogger sets the logger.
func (b Builder[P, A]) WithLogger(log *zap.Logger) Builder[P, A] {
	b.log = log
	return b
}

// Build creates a Ticker.
func (b Builder[P, A]) Build() *Ticker[P, A] {
	log := b.log
	if log == nil {
		log = zap.NewNop()
	}

	return &Ticker[P, A]{
		HookableBase: hooking.NewHookableBase(),
		registry:     listener.NewRegistry[P, A](b.dedupe, b.idGen),
		phases:       append([]P(nil), b.phases...),
		log:          log,
	}
}

// BuildAuto creates an AutoTicker and, unless it is paused or on demand,
// requests its first frame.
func (b Builder[P, A]) BuildAuto() (*AutoTicker[P, A], error) {
	source, err := b.resolveSource()
	if err != nil {
		return nil, err
	}

	at := &AutoTicker[P, A]{
		Ticker:   b.Build(),
		paused:   b.paused,
		onDemand: b.onDemand,
		empty:    true,
		source:   source,
	}

	if !b.paused && !b.onDemand {
		if err := at.request(); err != nil {
			return nil, err
		}
	}

	return at, nil
}

func (b Builder[P, A]) resolveSource() (frame.Source[A], error) {
	if b.source != nil {
		return b.source, nil
	}

	if b.dispatcher == nil {
		return nil, ErrNoFrameSource
	}

	fallback := b.fallback
	if fallback == 0 {
		fallback = frame.DefaultFallbackFreq
	}

	timer := frame.NewTimerSource(b.dispatcher, fallback)
	if b.log != nil {
		timer.WithLogger(b.log)
	}

	source, ok := any(timer).(frame.Source[A])
	if !ok {
		return nil, ErrNoFrameSource
	}

	return source, nil
}
