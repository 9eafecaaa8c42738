package geo

import (
	"math"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
	"golang.org/x/exp/slices"
)

// Computes the convex hull of the points using the monotone chain algorithm.
//
// The returned ring is closed and counter-clockwise. Less than three distinct
// points give a degenerate ring (point or line).
func ConvexHull(points []orb.Point) orb.Ring {
	pts := make([]orb.Point, len(points))
	copy(pts, points)
	slices.SortFunc(pts, func(a, b orb.Point) int {
		if a[0] != b[0] {
			if a[0] < b[0] {
				return -1
			}
			return 1
		}
		if a[1] < b[1] {
			return -1
		}
		if a[1] > b[1] {
			return 1
		}
		return 0
	})
	pts = slices.Compact(pts)
	if len(pts) < 3 {
		return orb.Ring(pts)
	}

	hull := make([]orb.Point, 0, 2*len(pts))
	// lower hull
	for _, p := range pts {
		for len(hull) >= 2 && _Cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	// upper hull
	lower := len(hull) + 1
	for i := len(pts) - 2; i >= 0; i-- {
		p := pts[i]
		for len(hull) >= lower && _Cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	return orb.Ring(hull)
}

// Area of a lon/lat ring on the earth in square meters.
//
// Degenerate rings (less than four points including closure) have zero area.
func HullArea(ring orb.Ring) float64 {
	if len(ring) < 4 {
		return 0
	}
	return math.Abs(orbgeo.Area(ring))
}

func _Cross(o, a, b orb.Point) float64 {
	return (a[0]-o[0])*(b[1]-o[1]) - (a[1]-o[1])*(b[0]-o[0])
}
