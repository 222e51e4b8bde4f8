package sim

import (
	"math"
	"sort"
)

// RGB is an 8-bit colour triple, encoded as a JSON array.
type RGB [3]uint8

// WaitBand colours every total wait below UpperExclusive minutes that is not
// claimed by an earlier band.
type WaitBand struct {
	UpperExclusive float64
	Color          RGB
}

// WaitBands must stay sorted by UpperExclusive and end with +Inf.
var WaitBands = []WaitBand{
	{15, RGB{255, 245, 240}},
	{30, RGB{252, 187, 161}},
	{45, RGB{251, 106, 74}},
	{60, RGB{203, 24, 29}},
	{math.Inf(1), RGB{103, 0, 13}},
}

// WaitBucket returns the 0-based band index for a wait in minutes. Negative
// and NaN waits count as zero.
func WaitBucket(wait float64) int {
	if wait < 0 || math.IsNaN(wait) {
		wait = 0
	}
	i := sort.Search(len(WaitBands), func(i int) bool { return wait < WaitBands[i].UpperExclusive })
	if i == len(WaitBands) {
		i = len(WaitBands) - 1
	}
	return i
}

// WaitColor is the fill colour of the wait band holding wait.
func WaitColor(wait float64) RGB { return WaitBands[WaitBucket(wait)].Color }
