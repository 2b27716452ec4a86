package frame

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

var (
	// ErrLoopClosed is returned when work is posted to a closed loop.
	ErrLoopClosed = errors.New("frame: loop is closed")

	// ErrLoopAlreadyRunning is returned when Run is called twice.
	ErrLoopAlreadyRunning = errors.New("frame: loop is already running")
)

// Loop runs posted functions one after another on the goroutine that called
// Run. Everything a ticker owns can be confined to that goroutine: timer
// callbacks, control requests from other goroutines, and the ticks
// themselves.
type Loop struct {
	mu      sync.Mutex
	queue   []func() error
	closed  bool
	wake    chan struct{}
	done    chan struct{}
	running atomic.Bool
}

// NewLoop creates a loop that is not running yet.
func NewLoop() *Loop {
	return &Loop{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// Post queues fn. It never blocks.
func (l *Loop) Post(fn func() error) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrLoopClosed
	}

	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}

	return nil
}

// Do posts fn and waits for it to finish. It must not be called from the loop
// goroutine itself.
func (l *Loop) Do(ctx context.Context, fn func() error) error {
	result := make(chan error, 1)

	err := l.Post(func() error {
		result <- fn()
		return nil
	})
	if err != nil {
		return err
	}

	select {
	case err := <-result:
		return err
	case <-l.done:
		select {
		case err := <-result:
			return err
		default:
			return ErrLoopClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run executes posted functions until ctx is done, Close is called, or a
// function returns an error. The first error is returned.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return ErrLoopAlreadyRunning
	}
	defer l.Close()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		batch, closed := l.drain()
		for _, fn := range batch {
			if err := fn(); err != nil {
				return err
			}
		}

		if closed {
			return nil
		}

		if len(batch) > 0 {
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

func (l *Loop) drain() ([]func() error, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	batch := l.queue
	l.queue = nil

	return batch, l.closed
}

// Close stops the loop. Functions already queued still run before Run
// returns; later posts fail with ErrLoopClosed.
func (l *Loop) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}

	l.closed = true
	close(l.done)

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Done is closed once the loop is closed.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}
