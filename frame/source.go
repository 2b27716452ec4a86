// Package frame abstracts "call me back once, at the next frame".
//
// A Source schedules a single future callback and returns a function that
// cancels it. Sources never retry: a request maps to exactly one callback or
// one cancellation, and errors surface to whoever made the request.
package frame

import (
	"errors"
	"reflect"
)

// Callback receives the frame argument, usually a timestamp. An error
// returned by the callback is handed back to whatever drives the source.
type Callback[A any] func(A) error

// CancelFunc cancels an outstanding request. Once it returns without error
// the callback of that request will not be called.
type CancelFunc func() error

// Source requests frames.
type Source[A any] interface {
	Request(cb Callback[A]) (CancelFunc, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc[A any] func(cb Callback[A]) (CancelFunc, error)

// Request calls f.
func (f SourceFunc[A]) Request(cb Callback[A]) (CancelFunc, error) {
	return f(cb)
}

// ErrRequestPending is returned by sources that only support one outstanding
// request when a second one is made.
var ErrRequestPending = errors.New("frame: a request is already pending")

// SameSource reports whether a and b are the same source. Sources whose
// dynamic type cannot be compared, such as SourceFunc, are only the same when
// both are nil.
func SameSource[A any](a, b Source[A]) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	ta := reflect.TypeOf(a)
	if ta != reflect.TypeOf(b) || !ta.Comparable() {
		return false
	}

	return a == b
}
