package sim

import "dispatch-replay/internal/dispatch"

// VehiclePath is one active vehicle: its full recorded path plus where it is now.
type VehiclePath struct {
	PassengerID dispatch.ID      `json:"passengerId"`
	Phase       Phase            `json:"phase"`
	Path        dispatch.Path    `json:"path"`
	Timestamps  dispatch.Minutes `json:"timestamps"`
	Position    dispatch.Coord   `json:"position"`
	Bearing     float64          `json:"bearing"`
}

// DestinationMarker is the dropoff point of an occupied trip.
type DestinationMarker struct {
	PassengerID dispatch.ID    `json:"passengerId"`
	Location    dispatch.Coord `json:"location"`
}

// Frame is the renderer input for one clock value. Every collection was
// derived from the same Time.
type Frame struct {
	Time               float64             `json:"time"`
	Clock              string              `json:"clock"`
	VehiclePaths       []VehiclePath       `json:"vehiclePaths"`
	VisiblePassengers  []VisiblePassenger  `json:"visiblePassengers"`
	DestinationMarkers []DestinationMarker `json:"destinationMarkers"`
	DispatchArcs       []Arc               `json:"dispatchArcs"`
	OccupiedArcs       []Arc               `json:"occupiedArcs"`
}

// AssembleFrame derives every layer at t. It holds no state, so t may jump
// backwards or forwards freely.
func AssembleFrame(trips []dispatch.Trip, passengers []PassengerInfo, t float64) Frame {
	f := Frame{
		Time:               t,
		Clock:              FormatClock(t),
		VehiclePaths:       []VehiclePath{},
		VisiblePassengers:  []VisiblePassenger{},
		DestinationMarkers: []DestinationMarker{},
		DispatchArcs:       []Arc{},
		OccupiedArcs:       []Arc{},
	}
	for _, trip := range trips {
		st := ClassifyTrip(trip, t)
		switch st.Phase {
		case PhaseDispatched:
			f.DispatchArcs = append(f.DispatchArcs, st.Arc)
		case PhaseOccupied:
			f.OccupiedArcs = append(f.OccupiedArcs, st.Arc)
			f.DestinationMarkers = append(f.DestinationMarkers, DestinationMarker{
				PassengerID: trip.PassengerID,
				Location:    st.Destination,
			})
		default:
			continue
		}
		f.VehiclePaths = append(f.VehiclePaths, VehiclePath{
			PassengerID: trip.PassengerID,
			Phase:       st.Phase,
			Path:        trip.Route,
			Timestamps:  trip.Timestamp,
			Position:    st.Position,
			Bearing:     st.Bearing,
		})
	}
	for _, info := range passengers {
		if vp, ok := VisibleAt(info, t); ok {
			f.VisiblePassengers = append(f.VisiblePassengers, vp)
		}
	}
	return f
}

// Scene is a loaded dataset together with everything derived from it once:
// the passenger join and the clock domain. It is read-only after NewScene.
type Scene struct {
	Trips       []dispatch.Trip
	Passengers  []PassengerInfo
	Window      TimeWindow
	Fingerprint uint64
}

// SceneOptions carries the load-time derivation settings.
type SceneOptions struct {
	DomainMin float64
	Match     MatchOptions
}

// NewScene resolves passengers and the time window for ds once. A nil ds yields an empty scene.
func NewScene(ds *dispatch.Dataset, opts SceneOptions) *Scene {
	if ds == nil {
		ds = &dispatch.Dataset{}
	}
	return &Scene{
		Trips:       ds.Trips,
		Passengers:  ResolvePassengers(ds.Trips, ds.Passengers, opts.Match),
		Window:      DeriveTimeWindow(ds.Trips, opts.DomainMin),
		Fingerprint: ds.Fingerprint(),
	}
}

// Frame assembles the frame at t from the scene.
func (s *Scene) Frame(t float64) Frame {
	return AssembleFrame(s.Trips, s.Passengers, t)
}
