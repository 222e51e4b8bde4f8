package sim

import (
	"math"

	"github.com/golang/geo/s2"

	"dispatch-replay/internal/dispatch"
)

const earthRadiusMeters = 6371000.0

// PickupRule records which step of the pickup-time fallback chain fired.
type PickupRule int

const (
	PickupUnresolved   PickupRule = iota // no usable call time
	PickupRouteMatch                     // pickup location found on the matched trip's route
	PickupRecordedWait                   // call + wait_min
	PickupAtCall                         // no better evidence: zero wait
)

func (r PickupRule) String() string {
	switch r {
	case PickupRouteMatch:
		return "route_match"
	case PickupRecordedWait:
		return "recorded_wait"
	case PickupAtCall:
		return "at_call"
	default:
		return "unresolved"
	}
}

// PassengerInfo is the per-passenger join result, computed once per dataset.
type PassengerInfo struct {
	PassengerID dispatch.ID
	Call        float64
	PickupTime  float64
	PickupLoc   *dispatch.Coord
	Rule        PickupRule
}

// VisiblePassenger is a waiting passenger as drawn in one frame.
type VisiblePassenger struct {
	PassengerID dispatch.ID    `json:"passengerId"`
	Location    dispatch.Coord `json:"location"`
	Wait        float64        `json:"wait"`
	Bucket      int            `json:"bucket"`
	Color       RGB            `json:"color"`
}

// MatchOptions controls how a passenger's pickup location is found on a route.
// A zero ToleranceMeters means exact coordinate equality.
type MatchOptions struct {
	ToleranceMeters float64
}

// IndexTrips maps each passenger id to the index of the first trip carrying it.
func IndexTrips(trips []dispatch.Trip) map[dispatch.ID]int {
	idx := make(map[dispatch.ID]int, len(trips))
	for i, t := range trips {
		if t.PassengerID == "" {
			continue
		}
		if _, seen := idx[t.PassengerID]; !seen {
			idx[t.PassengerID] = i
		}
	}
	return idx
}

// ResolvePassengers joins every passenger event to its trip and fixes call
// and pickup times. The result is index-aligned with passengers.
func ResolvePassengers(trips []dispatch.Trip, passengers []dispatch.PassengerEvent, opts MatchOptions) []PassengerInfo {
	idx := IndexTrips(trips)
	infos := make([]PassengerInfo, len(passengers))
	for i, p := range passengers {
		var trip *dispatch.Trip
		if ti, ok := idx[p.PassengerID]; ok && p.PassengerID != "" {
			trip = &trips[ti]
		}
		pickup, rule := resolvePickup(trip, p, opts)
		infos[i] = PassengerInfo{
			PassengerID: p.PassengerID,
			Call:        p.CallTime(),
			PickupTime:  pickup,
			PickupLoc:   p.Location,
			Rule:        rule,
		}
	}
	return infos
}

func resolvePickup(trip *dispatch.Trip, p dispatch.PassengerEvent, opts MatchOptions) (float64, PickupRule) {
	if trip != nil && p.Location != nil {
		if i, ok := matchRouteIndex(trip.Route, *p.Location, opts.ToleranceMeters); ok && i < len(trip.Timestamp) {
			if ts := trip.Timestamp[i]; dispatch.Finite(ts) {
				return ts, PickupRouteMatch
			}
		}
	}
	call := p.CallTime()
	if !dispatch.Finite(call) {
		return math.NaN(), PickupUnresolved
	}
	if p.WaitMin != nil {
		return call + *p.WaitMin, PickupRecordedWait
	}
	return call, PickupAtCall
}

// matchRouteIndex finds the route point at loc. With a positive tolerance the
// closest point within that many meters wins; ties keep the earliest index.
func matchRouteIndex(route []dispatch.Coord, loc dispatch.Coord, toleranceMeters float64) (int, bool) {
	if toleranceMeters <= 0 {
		for i, c := range route {
			if c == loc {
				return i, true
			}
		}
		return 0, false
	}
	target := s2.LatLngFromDegrees(loc.Lat(), loc.Lon())
	best, bestDist := -1, math.MaxFloat64
	for i, c := range route {
		d := s2.LatLngFromDegrees(c.Lat(), c.Lon()).Distance(target).Radians() * earthRadiusMeters
		if d <= toleranceMeters && d < bestDist {
			best, bestDist = i, d
		}
	}
	return best, best >= 0
}

// VisibleAt reports whether the passenger is waiting at t. Wait is the total
// eventual wait, so it stays constant across the whole visible window.
func VisibleAt(info PassengerInfo, t float64) (VisiblePassenger, bool) {
	if info.PickupLoc == nil || !dispatch.Finite(info.Call) || !dispatch.Finite(info.PickupTime) {
		return VisiblePassenger{}, false
	}
	if t < info.Call || t > info.PickupTime {
		return VisiblePassenger{}, false
	}
	wait := info.PickupTime - info.Call
	return VisiblePassenger{
		PassengerID: info.PassengerID,
		Location:    *info.PickupLoc,
		Wait:        wait,
		Bucket:      WaitBucket(wait),
		Color:       WaitColor(wait),
	}, true
}
