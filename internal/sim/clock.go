package sim

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"
)

// Clock is the replay playhead. Automatic steps and seeks go through the same
// mutex, so a step always advances from the most recent seek.
type Clock struct {
	mu      sync.Mutex
	now     float64
	window  TimeWindow
	step    float64
	running bool
}

// NewClock starts at window.Min and advances incrementUnit*speed minutes per step.
func NewClock(window TimeWindow, incrementUnit, speed float64) *Clock {
	return &Clock{
		now:    window.Min,
		window: window,
		step:   incrementUnit * speed,
	}
}

func (c *Clock) Now() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Window() TimeWindow {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.window
}

// StepSize is the number of minutes added per step.
func (c *Clock) StepSize() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.step
}

// SetWindow replaces the domain, e.g. after a dataset reload, and pulls the
// current time into it.
func (c *Clock) SetWindow(w TimeWindow) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.window = w
	c.now = w.Clamp(c.now)
}

// Step advances the clock by one increment. Going past the window's upper
// bound restarts at its lower bound exactly; wrapped reports that case.
func (c *Clock) Step() (now float64, wrapped bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	next := c.now + c.step
	if next > c.window.Max {
		next = c.window.Min
		wrapped = true
	}
	c.now = next
	return c.now, wrapped
}

// Seek moves the playhead to t, clamped into the window. NaN is ignored.
func (c *Clock) Seek(t float64) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !math.IsNaN(t) {
		c.now = c.window.Clamp(t)
	}
	return c.now
}

// Start steps the clock every interval and hands each new value to onTick.
// The returned stop func cancels the next tick and waits for the loop to
// exit; it is safe to call more than once. Starting a clock that is already
// running returns a no-op stop.
func (c *Clock) Start(parent context.Context, interval time.Duration, onTick func(now float64, wrapped bool)) (stop func()) {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return func() {}
	}
	c.running = true
	c.mu.Unlock()

	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer func() {
			c.mu.Lock()
			c.running = false
			c.mu.Unlock()
		}()
		tick := time.NewTicker(interval)
		defer tick.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-tick.C:
				now, wrapped := c.Step()
				if onTick != nil {
					onTick(now, wrapped)
				}
			}
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

// FormatClock renders minutes of day as HH:MM for the time readout.
func FormatClock(t float64) string {
	if math.IsNaN(t) || math.IsInf(t, 0) {
		return "--:--"
	}
	h := mod(int64(math.Floor(t/60)), 24)
	m := mod(int64(math.Round(t)), 60)
	return fmt.Sprintf("%02d:%02d", h, m)
}

func mod(a, n int64) int64 { return ((a % n) + n) % n }
