// Package clock tracks frame time across ticks.
package clock

import "time"

// Clock accumulates the time of successive frames. The zero value is not
// ready for use; call New.
type Clock struct {
	ticks       uint64
	startTime   time.Duration
	time        time.Duration
	deltaTime   time.Duration
	elapsedTime time.Duration

	// Timescale scales every delta from the next tick on. 1 is real time,
	// 0 freezes the clock, and negative values run it backwards.
	Timescale float64
}

// New creates a clock with a timescale of 1.
func New() *Clock {
	return &Clock{Timescale: 1}
}

// Tick advances the clock to frame time t. It has the shape of a listener
// taking a time.Duration, so it can be registered on a ticker directly.
func (c *Clock) Tick(t time.Duration) {
	c.advance(t, 0, false)
}

// TickDelta advances the clock to frame time t with an explicit delta dt
// instead of the difference to the previous frame.
func (c *Clock) TickDelta(t, dt time.Duration) {
	c.advance(t, dt, true)
}

func (c *Clock) advance(t, dt time.Duration, hasDelta bool) {
	if c.ticks == 0 {
		c.startTime = t
	} else if !hasDelta {
		dt = t - c.time
	}

	c.deltaTime = c.scale(dt)
	c.elapsedTime += c.deltaTime
	c.time = t
	c.ticks++
}

func (c *Clock) scale(d time.Duration) time.Duration {
	return time.Duration(float64(d) * c.Timescale)
}

// Ticks returns the number of ticks so far.
func (c *Clock) Ticks() uint64 {
	return c.ticks
}

// StartTime returns the frame time of the first tick.
func (c *Clock) StartTime() time.Duration {
	return c.startTime
}

// Time returns the frame time of the last tick.
func (c *Clock) Time() time.Duration {
	return c.time
}

// DeltaTime returns the scaled time between the last two ticks.
func (c *Clock) DeltaTime() time.Duration {
	return c.deltaTime
}

// ElapsedTime returns the sum of all scaled deltas.
func (c *Clock) ElapsedTime() time.Duration {
	return c.elapsedTime
}

// Reset returns the clock to its initial state. The timescale is kept.
func (c *Clock) Reset() {
	*c = Clock{Timescale: c.Timescale}
}
