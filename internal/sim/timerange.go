package sim

import (
	"math"

	"dispatch-replay/internal/dispatch"
)

// MinWindowMinutes is the shortest playable window, even for an empty dataset.
const MinWindowMinutes = 60

// TimeWindow is the clock domain in minutes of day.
type TimeWindow struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether t lies in [Min, Max].
func (w TimeWindow) Contains(t float64) bool { return t >= w.Min && t <= w.Max }

// Clamp pulls t into the window.
func (w TimeWindow) Clamp(t float64) float64 { return math.Min(math.Max(t, w.Min), w.Max) }

// DeriveTimeWindow fixes the clock domain for a dataset. domainMin is the
// configured simulation start; the upper bound is the latest dropoff, but
// never less than an hour after the start.
func DeriveTimeWindow(trips []dispatch.Trip, domainMin float64) TimeWindow {
	upper := domainMin + MinWindowMinutes
	for _, t := range trips {
		if len(t.Timestamp) == 0 {
			continue
		}
		if last := t.DropoffTime(); dispatch.Finite(last) && last > upper {
			upper = last
		}
	}
	return TimeWindow{Min: domainMin, Max: upper}
}
