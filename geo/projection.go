package geo

import (
	"math"

	"github.com/paulmach/orb"
)

type IProjection interface {
	Proj(orb.Point) orb.Point
	ReProj(orb.Point) orb.Point
}

// LocalProjection is an equirectangular projection around a reference
// latitude. Projected units are meters, distortion stays small for city
// sized extents.
type LocalProjection struct {
	scale_x float64
	scale_y float64
}

func NewLocalProjection(ref_lat float64) *LocalProjection {
	r := EARTH_RADIUS * 1000
	return &LocalProjection{
		scale_x: r * math.Cos(ref_lat*math.Pi/180) * math.Pi / 180,
		scale_y: r * math.Pi / 180,
	}
}

// Creates a projection centered on the given lon/lat bound.
func ProjectionForBound(bound orb.Bound) *LocalProjection {
	return NewLocalProjection(bound.Center()[1])
}

func (self *LocalProjection) Proj(point orb.Point) orb.Point {
	return orb.Point{point[0] * self.scale_x, point[1] * self.scale_y}
}
func (self *LocalProjection) ReProj(point orb.Point) orb.Point {
	return orb.Point{point[0] / self.scale_x, point[1] / self.scale_y}
}
