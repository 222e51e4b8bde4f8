package dispatch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math"
	"strings"
)

// Decoding is lenient: a malformed field degrades the entity that carries it
// (empty route, NaN timestamp, nil location) instead of failing the whole dataset.

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		// objects, arrays, booleans: no usable identifier
		*id = ""
		return nil
	}
	*id = ID(n.String())
	return nil
}

func (m *Minutes) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		*m = nil
		return nil
	}
	out := make(Minutes, len(raw))
	for i, r := range raw {
		out[i] = parseNumber(r)
	}
	*m = out
	return nil
}

func (p *Path) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		*p = nil
		return nil
	}
	out := make(Path, 0, len(raw))
	for _, r := range raw {
		c, ok := parseCoord(r)
		if !ok {
			// one broken waypoint makes every index after it meaningless
			*p = nil
			return nil
		}
		out = append(out, c)
	}
	*p = out
	return nil
}

type passengerEventJSON struct {
	PassengerID ID              `json:"passenger_id"`
	Timestamp   Minutes         `json:"timestamp"`
	Loc         json.RawMessage `json:"loc"`
	Location    json.RawMessage `json:"location"`
	WaitMin     json.RawMessage `json:"wait_min"`
}

func (p *PassengerEvent) UnmarshalJSON(b []byte) error {
	var raw passengerEventJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*p = PassengerEvent{
		PassengerID: raw.PassengerID,
		Timestamp:   raw.Timestamp,
		Location:    NormalizeLocation(raw.Loc, raw.Location),
	}
	if len(raw.WaitMin) > 0 {
		if w := parseNumber(raw.WaitMin); Finite(w) {
			p.WaitMin = &w
		}
	}
	return nil
}

func (p PassengerEvent) MarshalJSON() ([]byte, error) {
	out := struct {
		PassengerID ID       `json:"passenger_id"`
		Timestamp   Minutes  `json:"timestamp"`
		Location    *Coord   `json:"location,omitempty"`
		WaitMin     *float64 `json:"wait_min,omitempty"`
	}{p.PassengerID, p.Timestamp, p.Location, p.WaitMin}
	return json.Marshal(out)
}

// NormalizeLocation picks the pickup coordinate from whichever of the two
// upstream field names is present, preferring "loc".
func NormalizeLocation(loc, location json.RawMessage) *Coord {
	for _, r := range []json.RawMessage{loc, location} {
		if len(r) == 0 {
			continue
		}
		if c, ok := parseCoord(r); ok {
			return &c
		}
	}
	return nil
}

// DecodeTrips reads a JSON array of trips. Elements that are not trip objects
// are skipped; only a document that is not an array fails.
func DecodeTrips(r io.Reader) ([]Trip, error) {
	trips, err := decodeEach[Trip](r)
	if err != nil {
		return nil, fmt.Errorf("decode trips: %w", err)
	}
	return trips, nil
}

// DecodePassengers reads a JSON array of passenger events, skipping elements
// that are not objects.
func DecodePassengers(r io.Reader) ([]PassengerEvent, error) {
	ps, err := decodeEach[PassengerEvent](r)
	if err != nil {
		return nil, fmt.Errorf("decode passengers: %w", err)
	}
	return ps, nil
}

func decodeEach[T any](r io.Reader) ([]T, error) {
	var raw []json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, err
	}
	out := make([]T, 0, len(raw))
	for i, elem := range raw {
		var v T
		if err := json.Unmarshal(elem, &v); err != nil {
			log.Printf("skipping element %d: %v", i, err)
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

func parseNumber(r json.RawMessage) float64 {
	r = bytes.TrimSpace(r)
	if len(r) == 0 || r[0] == '"' || string(r) == "null" {
		return math.NaN()
	}
	var f float64
	if err := json.Unmarshal(r, &f); err != nil {
		return math.NaN()
	}
	return f
}

// parseCoord accepts [lon, lat, ...] arrays and GeoJSON Point objects.
func parseCoord(r json.RawMessage) (Coord, bool) {
	r = bytes.TrimSpace(r)
	if len(r) == 0 {
		return Coord{}, false
	}
	if r[0] == '{' {
		var pt struct {
			Coordinates json.RawMessage `json:"coordinates"`
		}
		if err := json.Unmarshal(r, &pt); err != nil || len(pt.Coordinates) == 0 {
			return Coord{}, false
		}
		r = bytes.TrimSpace(pt.Coordinates)
	}
	var axes []json.RawMessage
	if err := json.Unmarshal(r, &axes); err != nil || len(axes) < 2 {
		return Coord{}, false
	}
	c := Coord{parseNumber(axes[0]), parseNumber(axes[1])}
	if !c.Valid() {
		return Coord{}, false
	}
	return c, true
}

// MarshalJSON writes non-finite entries as null so a frame never fails to encode.
func (m Minutes) MarshalJSON() ([]byte, error) {
	if m == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, v := range m {
		if i > 0 {
			buf.WriteByte(',')
		}
		if !Finite(v) {
			buf.WriteString("null")
			continue
		}
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		buf.Write(b)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}
