package dispatch

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/matryer/is"
)

func TestDecodeTrips(t *testing.T) {
	is := is.New(t)
	in := `[
	  {"passenger_id": 7, "route": [[-73.98, 40.75], [-73.97, 40.76], [-73.95, 40.78]], "timestamp": [480, 487.5, 503]},
	  {"passenger_id": "a-1", "route": [[0, 0], "bad", [1, 1]], "timestamp": [1, 2, 3]},
	  {"passenger_id": "a-2", "route": [[0, 0], [1, 1]], "timestamp": [1, "2"]},
	  {"passenger_id": "a-3"}
	]`
	trips, err := DecodeTrips(strings.NewReader(in))
	is.NoErr(err)
	is.Equal(len(trips), 4)

	is.Equal(trips[0].PassengerID, ID("7"))
	is.Equal(len(trips[0].Route), 3)
	is.Equal(trips[0].PickupPoint(), Coord{-73.97, 40.76})
	is.Equal(trips[0].Destination(), Coord{-73.95, 40.78})
	is.Equal(trips[0].PickupTime(), 487.5)
	is.True(trips[0].Valid())

	is.Equal(trips[1].Route, Path(nil)) // one broken waypoint drops the route
	is.True(!trips[1].Valid())

	is.Equal(len(trips[2].Timestamp), 2)
	is.True(math.IsNaN(trips[2].Timestamp[1])) // strings are not minutes
	is.True(!trips[2].Valid())

	is.True(!trips[3].Valid())
	is.True(math.IsNaN(trips[3].DropoffTime()))
}

func TestDecodePassengers(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		wantLoc  *Coord
		wantWait *float64
		wantCall float64
	}{
		{
			name:     "loc field",
			in:       `{"passenger_id": 1, "timestamp": [100, 130], "loc": [1.5, 2.5]}`,
			wantLoc:  &Coord{1.5, 2.5},
			wantCall: 100,
		},
		{
			name:     "location field with recorded wait",
			in:       `{"passenger_id": "x", "timestamp": [90], "location": [3, 4], "wait_min": 12.5}`,
			wantLoc:  &Coord{3, 4},
			wantWait: func() *float64 { v := 12.5; return &v }(),
			wantCall: 90,
		},
		{
			name:     "loc preferred over location",
			in:       `{"timestamp": [1], "loc": [5, 6], "location": [7, 8]}`,
			wantLoc:  &Coord{5, 6},
			wantCall: 1,
		},
		{
			name:     "malformed loc falls through to location",
			in:       `{"timestamp": [1], "loc": "n/a", "location": [7, 8]}`,
			wantLoc:  &Coord{7, 8},
			wantCall: 1,
		},
		{
			name:     "geojson point",
			in:       `{"timestamp": [1], "location": {"type": "Point", "coordinates": [9, 10]}}`,
			wantLoc:  &Coord{9, 10},
			wantCall: 1,
		},
		{
			name:     "no location and non numeric wait",
			in:       `{"timestamp": [2], "wait_min": "soon"}`,
			wantCall: 2,
		},
		{
			name:     "no timestamps",
			in:       `{"loc": [1, 1]}`,
			wantLoc:  &Coord{1, 1},
			wantCall: math.NaN(),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			is := is.New(t)
			ps, err := DecodePassengers(strings.NewReader("[" + tt.in + "]"))
			is.NoErr(err)
			is.Equal(len(ps), 1)
			p := ps[0]
			if tt.wantLoc == nil {
				is.True(p.Location == nil)
			} else {
				is.True(p.Location != nil)
				is.Equal(*p.Location, *tt.wantLoc)
			}
			if tt.wantWait == nil {
				is.True(p.WaitMin == nil)
			} else {
				is.True(p.WaitMin != nil)
				is.Equal(*p.WaitMin, *tt.wantWait)
			}
			if math.IsNaN(tt.wantCall) {
				is.True(math.IsNaN(p.CallTime()))
			} else {
				is.Equal(p.CallTime(), tt.wantCall)
			}
		})
	}
}

func TestDecodeRejectsNonArray(t *testing.T) {
	is := is.New(t)
	_, err := DecodeTrips(strings.NewReader(`{"trips": []}`))
	is.True(err != nil)
	_, err = DecodePassengers(strings.NewReader(`not json`))
	is.True(err != nil)
}

func TestDecodeSkipsNonObjectElements(t *testing.T) {
	is := is.New(t)

	trips, err := DecodeTrips(strings.NewReader(`[
	  {"passenger_id": 1, "route": [[0, 0], [1, 1]], "timestamp": [0, 10]},
	  42,
	  "trip",
	  {"passenger_id": 2, "route": [[1, 1], [2, 2]], "timestamp": [5, 15]}
	]`))
	is.NoErr(err)
	is.Equal(len(trips), 2)
	is.Equal(trips[0].PassengerID, ID("1"))
	is.Equal(trips[1].PassengerID, ID("2"))

	ps, err := DecodePassengers(strings.NewReader(`[
	  {"passenger_id": 1, "timestamp": [0], "loc": [0, 0]},
	  "garbage",
	  [1, 2]
	]`))
	is.NoErr(err)
	is.Equal(len(ps), 1)
	is.Equal(ps[0].PassengerID, ID("1"))
	is.Equal(ps[0].CallTime(), 0.0)
}

func TestMinutesMarshalNaN(t *testing.T) {
	is := is.New(t)
	b, err := json.Marshal(Minutes{1, math.NaN(), 3.5})
	is.NoErr(err)
	is.Equal(string(b), "[1,null,3.5]")
}

func TestFingerprint(t *testing.T) {
	is := is.New(t)
	w := 3.0
	a := &Dataset{
		Trips:      []Trip{{PassengerID: "1", Route: Path{{0, 0}, {1, 1}}, Timestamp: Minutes{0, 1}}},
		Passengers: []PassengerEvent{{PassengerID: "1", Timestamp: Minutes{0}, WaitMin: &w}},
	}
	b := &Dataset{
		Trips:      []Trip{{PassengerID: "1", Route: Path{{0, 0}, {1, 1}}, Timestamp: Minutes{0, 1}}},
		Passengers: []PassengerEvent{{PassengerID: "1", Timestamp: Minutes{0}, WaitMin: &w}},
	}
	is.Equal(a.Fingerprint(), b.Fingerprint())

	b.Trips[0].Timestamp[1] = 2
	is.True(a.Fingerprint() != b.Fingerprint())

	var nilDS *Dataset
	is.Equal(nilDS.Fingerprint(), uint64(0))
}
