package game

import "time"

// Handle cancels a scheduled callback.
type Handle interface {
	// Stop prevents the callback from running. It reports false when the
	// callback already ran or was stopped.
	Stop() bool
}

// Scheduler runs callbacks after a delay, on a goroutine of its choosing.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Handle
}

// SystemScheduler schedules with time.AfterFunc.
type SystemScheduler struct{}

func (SystemScheduler) AfterFunc(d time.Duration, f func()) Handle {
	return time.AfterFunc(d, f)
}

// Countdown schedules one tick per time unit while armed. Every tick carries
// the generation it was scheduled under; Restart and Stop start a new
// generation so ticks already in flight can be recognized as stale.
//
// A Countdown is owned by one goroutine and is not safe for concurrent use.
type Countdown struct {
	sched  Scheduler
	unit   time.Duration
	fire   func(gen uint64)
	gen    uint64
	handle Handle
}

// NewCountdown returns a stopped countdown that calls fire once per unit.
func NewCountdown(sched Scheduler, unit time.Duration, fire func(gen uint64)) *Countdown {
	return &Countdown{sched: sched, unit: unit, fire: fire}
}

// Restart cancels any pending tick and schedules the first tick of a new
// generation.
func (c *Countdown) Restart() {
	c.Stop()
	c.schedule()
}

// Continue schedules the next tick after one for gen fired. Stale
// generations are ignored.
func (c *Countdown) Continue(gen uint64) {
	if gen != c.gen || c.handle == nil {
		return
	}
	c.schedule()
}

// Stop cancels the pending tick.
func (c *Countdown) Stop() {
	if c.handle != nil {
		c.handle.Stop()
		c.handle = nil
	}
	c.gen++
}

// Current reports whether a tick for gen belongs to the running countdown.
func (c *Countdown) Current(gen uint64) bool {
	return c.handle != nil && gen == c.gen
}

// Armed reports whether a tick is scheduled.
func (c *Countdown) Armed() bool {
	return c.handle != nil
}

func (c *Countdown) schedule() {
	gen := c.gen
	c.handle = c.sched.AfterFunc(c.unit, func() { c.fire(gen) })
}
