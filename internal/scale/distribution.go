package scale

import (
	"math"
	"sort"
)

// WeightBin is one bar of the weight histogram.
type WeightBin struct {
	Weight float64 `json:"weight"`
	Count  int     `json:"count"`
}

// Distribution buckets part weights to one decimal place and returns the
// bins in ascending weight order.
func Distribution(pop *Population) []WeightBin {
	if pop.Len() == 0 {
		return []WeightBin{}
	}
	// Key on tenths so float keys never collide by representation.
	counts := make(map[int64]int)
	for _, p := range pop.Parts {
		counts[int64(math.Round(p.Weight*10))]++
	}
	bins := make([]WeightBin, 0, len(counts))
	for tenths, n := range counts {
		bins = append(bins, WeightBin{Weight: float64(tenths) / 10, Count: n})
	}
	sort.Slice(bins, func(i, j int) bool { return bins[i].Weight < bins[j].Weight })
	return bins
}
