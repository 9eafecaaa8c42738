package isochrone

import (
	"golang.org/x/exp/slices"
)

//**********************************************************
// distance statistics
//**********************************************************

type Stats struct {
	Mean   float64
	Median float64
	Min    float64
	Max    float64
}

// Computes statistics of the values. Empty input gives zero stats.
func ComputeStats(values []float64) Stats {
	if len(values) == 0 {
		return Stats{}
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	slices.Sort(sorted)

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	n := len(sorted)
	var median float64
	if n%2 == 1 {
		median = sorted[n/2]
	} else {
		median = (sorted[n/2-1] + sorted[n/2]) / 2
	}
	mean := sum / float64(n)
	// keep min <= mean <= max under rounding
	mean = min(max(mean, sorted[0]), sorted[n-1])
	return Stats{
		Mean:   mean,
		Median: median,
		Min:    sorted[0],
		Max:    sorted[n-1],
	}
}
