package sim

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"

	"dispatch-replay/internal/dispatch"
)

// segmentAt finds k such that ts[k] <= t < ts[k+1] over the first n points.
// t at or past the last timestamp selects the final segment. ok is false when
// t precedes the path or cannot be compared (NaN).
func segmentAt(ts []float64, n int, t float64) (k int, ok bool) {
	for i := 0; i+1 < n; i++ {
		if ts[i] <= t && t < ts[i+1] {
			return i, true
		}
	}
	if t >= ts[n-1] {
		return n - 2, true
	}
	return 0, false
}

// Interpolate returns the position along route at time t, blending linearly
// between the two waypoints that bracket t. It never fails: degenerate input
// returns the nearest raw point.
func Interpolate(route []dispatch.Coord, ts []float64, t float64) dispatch.Coord {
	if len(route) == 0 {
		return dispatch.Coord{}
	}
	n := min(len(route), len(ts))
	if n < 2 {
		return route[0]
	}
	k, ok := segmentAt(ts, n, t)
	if !ok {
		return route[0]
	}
	a, b := route[k], route[k+1]
	alpha := 0.0
	if dt := ts[k+1] - ts[k]; dt > 0 {
		alpha = (t - ts[k]) / dt
		if alpha < 0 || math.IsNaN(alpha) {
			alpha = 0
		} else if alpha > 1 {
			alpha = 1
		}
	}
	return dispatch.Coord{
		a[0] + (b[0]-a[0])*alpha,
		a[1] + (b[1]-a[1])*alpha,
	}
}

// Bearing returns the heading in degrees (0 = north, clockwise) of the segment
// active at t. Zero-length segments and paths too short to have one yield 0.
func Bearing(route []dispatch.Coord, ts []float64, t float64) float64 {
	n := min(len(route), len(ts))
	if n < 2 {
		return 0
	}
	k, ok := segmentAt(ts, n, t)
	if !ok {
		k = 0
	}
	a, b := route[k], route[k+1]
	if a == b {
		return 0
	}
	return bearingDeg(
		s2.PointFromLatLng(s2.LatLngFromDegrees(a.Lat(), a.Lon())),
		s2.PointFromLatLng(s2.LatLngFromDegrees(b.Lat(), b.Lon())),
	)
}

// bearingDeg is the initial great-circle heading from p to q, measured in the
// tangent plane at p against its local east and north axes.
func bearingDeg(p, q s2.Point) float64 {
	east := r3.Vector{Z: 1}.Cross(p.Vector)
	if east.Norm() < 1e-12 {
		return 0 // at a pole every direction is south
	}
	north := p.Vector.Cross(east)
	deg := s1.Angle(math.Atan2(q.Dot(east), q.Dot(north))).Degrees()
	if deg < 0 {
		deg += 360
	}
	return deg
}
