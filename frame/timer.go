package frame

import (
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Dispatcher runs functions on the goroutine that owns the frame consumer.
type Dispatcher interface {
	Post(fn func() error) error
}

// TimerSource is the fallback used when no native provider exists. It fires
// one period after each request and hands the callback the monotonic time
// elapsed since the source was created.
//
// Timers fire on their own goroutines, so callbacks are posted to the
// dispatcher and run there.
type TimerSource struct {
	dispatcher Dispatcher
	freq       Freq
	period     time.Duration
	epoch      time.Time
	log        *zap.Logger
}

// NewTimerSource creates a timer source firing at freq. It panics if freq is
// not positive.
func NewTimerSource(d Dispatcher, freq Freq) *TimerSource {
	if d == nil {
		panic("frame: timer source requires a dispatcher")
	}

	return &TimerSource{
		dispatcher: d,
		freq:       freq,
		period:     freq.Period(),
		epoch:      time.Now(),
		log:        zap.NewNop(),
	}
}

// WithLogger sets the logger used to report dropped frames.
func (s *TimerSource) WithLogger(log *zap.Logger) *TimerSource {
	s.log = log
	return s
}

// Freq returns the frame rate.
func (s *TimerSource) Freq() Freq {
	return s.freq
}

// Now returns the time elapsed since the source was created. time.Since uses
// the monotonic clock reading.
func (s *TimerSource) Now() time.Duration {
	return time.Since(s.epoch)
}

type timerRequest struct {
	timer *time.Timer
	done  atomic.Bool
}

// Request schedules cb one period from now.
func (s *TimerSource) Request(cb Callback[time.Duration]) (CancelFunc, error) {
	req := &timerRequest{}

	req.timer = time.AfterFunc(s.period, func() {
		err := s.dispatcher.Post(func() error {
			if !req.done.CompareAndSwap(false, true) {
				return nil
			}

			return cb(s.Now())
		})
		if err != nil {
			s.log.Warn("frame dropped", zap.Error(err))
		}
	})

	return func() error {
		req.done.Store(true)
		req.timer.Stop()

		return nil
	}, nil
}

// NewSource returns a source appropriate to the runtime: a passthrough to the
// native provider when there is one, and a timer firing at fallback
// otherwise.
func NewSource[H any](
	native Provider[time.Duration, H],
	d Dispatcher,
	fallback Freq,
) Source[time.Duration] {
	if native != nil {
		return Native(native)
	}

	if fallback == 0 {
		fallback = DefaultFallbackFreq
	}

	return NewTimerSource(d, fallback)
}
