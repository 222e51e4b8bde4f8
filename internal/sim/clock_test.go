package sim

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/matryer/is"
)

func TestClockStepWraps(t *testing.T) {
	is := is.New(t)
	c := NewClock(TimeWindow{Min: 0, Max: 1}, 0.25, 2) // 0.5 per step
	is.Equal(c.Now(), 0.0)

	now, wrapped := c.Step()
	is.Equal(now, 0.5)
	is.True(!wrapped)

	now, wrapped = c.Step()
	is.Equal(now, 1.0) // landing on max is not past it
	is.True(!wrapped)

	now, wrapped = c.Step()
	is.Equal(now, 0.0) // exactly min, no overshoot kept
	is.True(wrapped)
}

func TestClockSeek(t *testing.T) {
	is := is.New(t)
	c := NewClock(TimeWindow{Min: 100, Max: 200}, 1, 1)

	is.Equal(c.Seek(150), 150.0)
	is.Equal(c.Now(), 150.0)

	now, _ := c.Step()
	is.Equal(now, 151.0) // increment applies to the seeked value

	is.Equal(c.Seek(50), 100.0)  // clamped low
	is.Equal(c.Seek(500), 200.0) // clamped high
	is.Equal(c.Seek(math.NaN()), 200.0)
}

func TestClockSetWindowClamps(t *testing.T) {
	is := is.New(t)
	c := NewClock(TimeWindow{Min: 0, Max: 600}, 1, 1)
	c.Seek(500)
	c.SetWindow(TimeWindow{Min: 0, Max: 60})
	is.Equal(c.Now(), 60.0)
	is.Equal(c.Window(), TimeWindow{Min: 0, Max: 60})
}

func TestClockSeekDuringSteps(t *testing.T) {
	is := is.New(t)
	c := NewClock(TimeWindow{Min: 0, Max: 1e9}, 1, 1)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			c.Step()
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			c.Seek(0)
		}
	}()
	wg.Wait()

	// Every step started from either a seek or a prior step, so the value
	// is a whole number of steps and never exceeds the step count.
	now := c.Now()
	is.Equal(now, math.Trunc(now))
	is.True(now <= 1000)
}

func TestClockStartStop(t *testing.T) {
	is := is.New(t)
	c := NewClock(TimeWindow{Min: 0, Max: 1e6}, 1, 1)

	ticks := make(chan float64, 100)
	stop := c.Start(context.Background(), time.Millisecond, func(now float64, _ bool) {
		select {
		case ticks <- now:
		default:
		}
	})

	select {
	case got := <-ticks:
		is.True(got >= 1)
	case <-time.After(2 * time.Second):
		t.Fatal("clock did not tick")
	}

	// a second Start while running is a no-op
	c.Start(context.Background(), time.Millisecond, nil)()

	stop()
	stop() // idempotent

	after := c.Now()
	time.Sleep(20 * time.Millisecond)
	is.Equal(c.Now(), after) // no ticks after stop
}

func TestClockStopsWithContext(t *testing.T) {
	is := is.New(t)
	c := NewClock(TimeWindow{Min: 0, Max: 1e6}, 1, 1)
	ctx, cancel := context.WithCancel(context.Background())
	stop := c.Start(ctx, time.Millisecond, nil)
	cancel()
	stop()

	// the clock can be started again once stopped
	stop = c.Start(context.Background(), time.Millisecond, nil)
	stop()
	is.True(c.Now() >= 0)
}

func TestFormatClock(t *testing.T) {
	tests := []struct {
		t    float64
		want string
	}{
		{t: 0, want: "00:00"},
		{t: 65, want: "01:05"},
		{t: 419.4, want: "06:59"},
		{t: 1439, want: "23:59"},
		{t: 1500, want: "01:00"}, // past midnight wraps the hour
		{t: 59.6, want: "00:00"}, // minutes round, hours floor
		{t: math.NaN(), want: "--:--"},
	}
	for _, tt := range tests {
		is := is.New(t)
		is.Equal(FormatClock(tt.t), tt.want)
	}
}
