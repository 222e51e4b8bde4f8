package dispatch

import (
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint hashes the dataset content so reloads can be skipped when the
// source has not changed.
func (d *Dataset) Fingerprint() uint64 {
	if d == nil {
		return 0
	}
	h := xxhash.New()
	var buf [8]byte
	putF := func(v float64) {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		_, _ = h.Write(buf[:])
	}
	putN := func(n int) {
		binary.LittleEndian.PutUint64(buf[:], uint64(n))
		_, _ = h.Write(buf[:])
	}
	putN(len(d.Trips))
	for _, t := range d.Trips {
		_, _ = h.WriteString(string(t.PassengerID))
		putN(len(t.Route))
		for _, c := range t.Route {
			putF(c[0])
			putF(c[1])
		}
		putN(len(t.Timestamp))
		for _, v := range t.Timestamp {
			putF(v)
		}
	}
	putN(len(d.Passengers))
	for _, p := range d.Passengers {
		_, _ = h.WriteString(string(p.PassengerID))
		putN(len(p.Timestamp))
		for _, v := range p.Timestamp {
			putF(v)
		}
		if p.Location != nil {
			putF(p.Location[0])
			putF(p.Location[1])
		} else {
			putN(-1)
		}
		if p.WaitMin != nil {
			putF(*p.WaitMin)
		} else {
			putN(-1)
		}
	}
	return h.Sum64()
}
