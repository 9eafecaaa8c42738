package geo

import (
	"math"

	"github.com/paulmach/orb"
)

// Earth radius in kilometers used for great-circle distances.
const EARTH_RADIUS = 6373.0

// Computes the great-circle distance between two lon/lat points in meters.
func Haversine(a, b orb.Point) float64 {
	lat1 := a[1] * math.Pi / 180
	lat2 := b[1] * math.Pi / 180
	dlat := lat2 - lat1
	dlon := (b[0] - a[0]) * math.Pi / 180

	h := math.Pow(math.Sin(dlat/2), 2) + math.Cos(lat1)*math.Cos(lat2)*math.Pow(math.Sin(dlon/2), 2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EARTH_RADIUS * c * 1000
}

// Euclidean distance between two planar points.
func PlanarDist(a, b orb.Point) float64 {
	return math.Sqrt(math.Pow(a[0]-b[0], 2) + math.Pow(a[1]-b[1], 2))
}
