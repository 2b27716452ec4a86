package frame

import "time"

// Provider is a native animation-frame primitive: a request function that
// returns a handle, and a cancel function taking that handle.
type Provider[A any, H any] interface {
	RequestAnimationFrame(cb Callback[A]) (H, error)
	CancelAnimationFrame(handle H) error
}

// Native wraps a provider one to one. The frame argument is passed through
// untouched, in whatever unit the provider uses.
func Native[A any, H any](p Provider[A, H]) Source[A] {
	return SourceFunc[A](func(cb Callback[A]) (CancelFunc, error) {
		handle, err := p.RequestAnimationFrame(cb)
		if err != nil {
			return nil, err
		}

		return func() error {
			return p.CancelAnimationFrame(handle)
		}, nil
	})
}

// SessionFrame is the argument delivered by a session-scoped source: the
// session's frame time and its frame object.
type SessionFrame[F any] struct {
	Time  time.Duration
	Frame F
}

// Session is an externally supplied frame loop, such as a device session,
// that runs its own request/cancel pair instead of the global one.
type Session[F any, H any] interface {
	RequestAnimationFrame(cb func(t time.Duration, frame F) error) (H, error)
	CancelAnimationFrame(handle H) error
}

// ForSession delegates requests to the session's own frame loop.
func ForSession[F any, H any](s Session[F, H]) Source[SessionFrame[F]] {
	return SourceFunc[SessionFrame[F]](
		func(cb Callback[SessionFrame[F]]) (CancelFunc, error) {
			handle, err := s.RequestAnimationFrame(
				func(t time.Duration, frame F) error {
					return cb(SessionFrame[F]{Time: t, Frame: frame})
				})
			if err != nil {
				return nil, err
			}

			return func() error {
				return s.CancelAnimationFrame(handle)
			}, nil
		})
}
