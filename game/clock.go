package game

import "time"

// Clock converts variable frame times into a bounded number of fixed ticks.
// Frame time beyond MaxFrame is ignored; backlog beyond MaxTicks per frame
// is dropped and counted rather than carried into later frames.
type Clock struct {
	step     time.Duration
	maxFrame time.Duration
	maxTicks int

	accumulator  time.Duration
	droppedTicks int
	droppedTime  time.Duration
}

// NewClock creates a clock with the given tick length and catch-up bounds.
func NewClock(step, maxFrame time.Duration, maxTicks int) *Clock {
	if maxTicks < 1 {
		maxTicks = 1
	}
	return &Clock{step: step, maxFrame: maxFrame, maxTicks: maxTicks}
}

// Advance adds elapsed frame time and returns how many ticks to run now.
func (c *Clock) Advance(elapsed time.Duration) int {
	if elapsed <= 0 || c.step <= 0 {
		return 0
	}
	if c.maxFrame > 0 && elapsed > c.maxFrame {
		elapsed = c.maxFrame
	}
	c.accumulator += elapsed

	n := int(c.accumulator / c.step)
	if n > c.maxTicks {
		n = c.maxTicks
	}
	c.accumulator -= time.Duration(n) * c.step

	// Keep only the sub-step remainder
	if debt := int(c.accumulator / c.step); debt > 0 {
		lost := time.Duration(debt) * c.step
		c.accumulator -= lost
		c.droppedTicks += debt
		c.droppedTime += lost
	}
	return n
}

// Alpha returns the fraction of a tick left in the accumulator, for
// interpolating between the last two states.
func (c *Clock) Alpha() float64 {
	if c.step <= 0 {
		return 0
	}
	return float64(c.accumulator) / float64(c.step)
}

// Dropped returns the ticks and time discarded so far.
func (c *Clock) Dropped() (int, time.Duration) {
	return c.droppedTicks, c.droppedTime
}
