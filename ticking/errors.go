package ticking

import "errors"

var (
	// ErrReentrantTick is returned when Tick is called while the same ticker
	// is still dispatching, typically from inside one of its listeners.
	ErrReentrantTick = errors.New(
		"ticking: cannot tick before the previous tick has finished")

	// ErrNoFrameSource is returned when an AutoTicker is built without a
	// source it can request frames from.
	ErrNoFrameSource = errors.New("ticking: no frame source")
)
