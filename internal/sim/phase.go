package sim

import "dispatch-replay/internal/dispatch"

// Phase is the state of one trip at a given clock value.
type Phase int

const (
	PhaseNone Phase = iota // before dispatch, after dropoff, or malformed
	PhaseDispatched
	PhaseOccupied
)

func (p Phase) String() string {
	switch p {
	case PhaseDispatched:
		return "dispatched"
	case PhaseOccupied:
		return "occupied"
	default:
		return "none"
	}
}

func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// Arc connects a vehicle's current position to where it is heading.
type Arc struct {
	PassengerID dispatch.ID    `json:"passengerId"`
	Source      dispatch.Coord `json:"source"`
	Target      dispatch.Coord `json:"target"`
}

// TripState is everything the renderer needs for one trip at one instant.
// Arc and Destination are meaningful only when Phase is not PhaseNone;
// Destination only when Phase is PhaseOccupied.
type TripState struct {
	Phase       Phase
	Position    dispatch.Coord
	Bearing     float64
	Arc         Arc
	Destination dispatch.Coord
}

// ClassifyTrip places the trip in its phase at t. The pickup instant belongs
// to the ride: at t == timestamp[1] the trip is occupied.
func ClassifyTrip(trip dispatch.Trip, t float64) TripState {
	if !trip.Valid() {
		return TripState{}
	}
	dispatched, pickup, dropoff := trip.DispatchTime(), trip.PickupTime(), trip.DropoffTime()
	if !dispatch.Finite(dispatched) || !dispatch.Finite(pickup) || !dispatch.Finite(dropoff) {
		return TripState{}
	}

	var st TripState
	switch {
	case dispatched <= t && t < pickup:
		st.Phase = PhaseDispatched
		st.Arc.Target = trip.PickupPoint()
	case pickup <= t && t <= dropoff:
		st.Phase = PhaseOccupied
		st.Arc.Target = trip.Destination()
		st.Destination = trip.Destination()
	default:
		return TripState{}
	}
	st.Position = Interpolate(trip.Route, trip.Timestamp, t)
	st.Bearing = Bearing(trip.Route, trip.Timestamp, t)
	st.Arc.PassengerID = trip.PassengerID
	st.Arc.Source = st.Position
	return st
}
