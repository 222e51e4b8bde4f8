package dispatch

import "math"

// Coord is a (lon, lat) pair, encoded as a two-element JSON array.
type Coord [2]float64

func (c Coord) Lon() float64 { return c[0] }
func (c Coord) Lat() float64 { return c[1] }

// Valid reports whether both axes are finite.
func (c Coord) Valid() bool {
	return !math.IsNaN(c[0]) && !math.IsNaN(c[1]) && !math.IsInf(c[0], 0) && !math.IsInf(c[1], 0)
}

// ID is a passenger identifier. Upstream datasets emit it as a string or a number.
type ID string

// Minutes is a sequence of minute-of-day values. Entries that were not numbers
// in the source decode to NaN.
type Minutes []float64

// Path is an ordered sequence of route points.
type Path []Coord

type Trip struct {
	PassengerID ID      `json:"passenger_id"`
	Route       Path    `json:"route"`
	Timestamp   Minutes `json:"timestamp"`
}

// Valid reports whether the trip carries enough data to be classified:
// at least two route points and two timestamps, all of them finite.
func (t Trip) Valid() bool {
	if len(t.Route) < 2 || len(t.Timestamp) < 2 {
		return false
	}
	for _, v := range t.Timestamp {
		if !Finite(v) {
			return false
		}
	}
	return true
}

// DispatchTime, PickupTime and DropoffTime return NaN when the trip is too short.
func (t Trip) DispatchTime() float64 { return at(t.Timestamp, 0) }
func (t Trip) PickupTime() float64   { return at(t.Timestamp, 1) }
func (t Trip) DropoffTime() float64  { return at(t.Timestamp, len(t.Timestamp)-1) }

// PickupPoint is route[1]; Destination is route[last].
func (t Trip) PickupPoint() Coord { return t.Route[1] }
func (t Trip) Destination() Coord { return t.Route[len(t.Route)-1] }

type PassengerEvent struct {
	PassengerID ID
	Timestamp   Minutes
	// Location is normalised from either "loc" or "location"; nil when absent or malformed.
	Location *Coord
	// WaitMin is the recorded wait in minutes, if the simulator emitted one.
	WaitMin *float64
}

// CallTime is the first timestamp, NaN when missing.
func (p PassengerEvent) CallTime() float64 { return at(p.Timestamp, 0) }

// Dataset is one loaded simulation run. It is never mutated after load.
type Dataset struct {
	Trips      []Trip
	Passengers []PassengerEvent
}

func at(m Minutes, i int) float64 {
	if i < 0 || i >= len(m) {
		return math.NaN()
	}
	return m[i]
}

// Finite reports whether v is a usable number.
func Finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
