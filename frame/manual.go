package frame

import "errors"

// ManualSource is a source that fires only when told to. It is used to drive
// tickers deterministically, for example in headless runs.
type ManualSource[A any] struct {
	pending  Callback[A]
	token    *struct{}
	requests int
	cancels  int
	fails    error
}

// NewManualSource creates a source with nothing pending.
func NewManualSource[A any]() *ManualSource[A] {
	return &ManualSource[A]{}
}

// Request stores cb until Fire is called. Only one request may be pending.
func (s *ManualSource[A]) Request(cb Callback[A]) (CancelFunc, error) {
	if s.fails != nil {
		return nil, s.fails
	}

	if s.pending != nil {
		return nil, ErrRequestPending
	}

	token := &struct{}{}
	s.pending = cb
	s.token = token
	s.requests++

	return func() error {
		if s.token != token {
			return nil
		}

		s.pending = nil
		s.token = nil
		s.cancels++

		return nil
	}, nil
}

// FailWith makes later requests fail with err. A nil err restores normal
// behaviour.
func (s *ManualSource[A]) FailWith(err error) {
	s.fails = err
}

// Pending reports whether a request is waiting to be fired.
func (s *ManualSource[A]) Pending() bool {
	return s.pending != nil
}

// Requests returns the number of successful requests so far.
func (s *ManualSource[A]) Requests() int {
	return s.requests
}

// Cancels returns the number of requests cancelled before firing.
func (s *ManualSource[A]) Cancels() int {
	return s.cancels
}

// ErrNothingPending is returned by Fire when no request is waiting.
var ErrNothingPending = errors.New("frame: no request is pending")

// Fire calls the pending callback with arg and returns its error.
func (s *ManualSource[A]) Fire(arg A) error {
	cb := s.pending
	if cb == nil {
		return ErrNothingPending
	}

	s.pending = nil
	s.token = nil

	return cb(arg)
}
