package isochrone

import (
	"github.com/paulmach/orb"
	"github.com/ttpr0/go-isometrics/geo"
	"github.com/ttpr0/go-isometrics/routing"
	"golang.org/x/exp/slog"
)

//**********************************************************
// isochrone metrics
//**********************************************************

// Metrics describes the area reachable from one origin within one budget.
// Distances are in meters, the area in square meters.
type Metrics struct {
	Mean   float64
	Median float64
	Min    float64
	Max    float64
	Area   float64
	// convex hull of the nodes used for the area
	Hull orb.Ring
	// reached nodes and nodes kept for the hull
	NodeCount int
	HullCount int
}

// An origin counts as served if anything beyond the origin was reached.
func (self Metrics) IsSuccess() bool {
	return self.Mean > 0
}

// Boundary restricts the nodes used for the hull.
type Boundary struct {
	// city limit, no clipping if empty
	Limit geo.Polygons
	// land uses without residents
	Exclusions geo.Polygons
	// drop nodes inside exclusions
	FilterExclusions bool
}

func (self Boundary) _Accepts(point orb.Point) bool {
	if !self.Limit.IsEmpty() && !self.Limit.Contains(point) {
		return false
	}
	if self.FilterExclusions && self.Exclusions.Contains(point) {
		return false
	}
	return true
}

// Reduces reached node locations to distance statistics and hull area.
//
// Every distance is the great-circle distance from origin plus the walking
// distance. Nodes outside the boundary are excluded from the hull only. No
// locations give zero metrics.
func ComputeMetrics(origin orb.Point, locs []orb.Point, walking_distance float64, boundary Boundary, logger *slog.Logger) Metrics {
	if len(locs) == 0 {
		return Metrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	distances := make([]float64, len(locs))
	for i, loc := range locs {
		distances[i] = geo.Haversine(origin, loc) + walking_distance
	}
	stats := ComputeStats(distances)

	inside := make([]orb.Point, 0, len(locs))
	for _, loc := range locs {
		if boundary._Accepts(loc) {
			inside = append(inside, loc)
		}
	}
	if dropped := len(locs) - len(inside); dropped > 0 {
		logger.Info("nodes dropped from hull", "count", dropped, "origin", origin)
	}
	hull := geo.ConvexHull(inside)

	return Metrics{
		Mean:      stats.Mean,
		Median:    stats.Median,
		Min:       stats.Min,
		Max:       stats.Max,
		Area:      geo.HullArea(hull),
		Hull:      hull,
		NodeCount: len(locs),
		HullCount: len(inside),
	}
}

// Computes metrics of a reachability result.
func MetricsFromReachable(r *routing.Reachable, boundary Boundary, logger *slog.Logger) Metrics {
	return ComputeMetrics(r.Origin(), r.Locations(), r.WalkingDistance(), boundary, logger)
}
