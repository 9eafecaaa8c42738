package geo

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

var ErrNoBoundary = errors.New("no boundary polygons")

//*******************************************
// polygon set
//*******************************************

// Polygons is an unordered set of lon/lat polygons, e.g. a city boundary or
// a land-use layer.
type Polygons []orb.Polygon

// Reads all Polygon and MultiPolygon features of a GeoJSON FeatureCollection.
func ReadPolygons(file string) (Polygons, error) {
	data, err := os.ReadFile(file)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %w", ErrNoBoundary, err)
	}
	if err != nil {
		return nil, err
	}
	polygons, err := ParsePolygons(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	return polygons, nil
}

func ParsePolygons(data []byte) (Polygons, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, err
	}
	polygons := make(Polygons, 0, len(fc.Features))
	for _, feature := range fc.Features {
		switch geom := feature.Geometry.(type) {
		case orb.Polygon:
			polygons = append(polygons, geom)
		case orb.MultiPolygon:
			polygons = append(polygons, geom...)
		}
	}
	return polygons, nil
}

// Tests if the point lies within any of the polygons.
func (self Polygons) Contains(point orb.Point) bool {
	for _, polygon := range self {
		if !polygon.Bound().Contains(point) {
			continue
		}
		if planar.PolygonContains(polygon, point) {
			return true
		}
	}
	return false
}

func (self Polygons) Bound() orb.Bound {
	if len(self) == 0 {
		return orb.Bound{}
	}
	bound := self[0].Bound()
	for _, polygon := range self[1:] {
		bound = bound.Union(polygon.Bound())
	}
	return bound
}

func (self Polygons) IsEmpty() bool {
	return len(self) == 0
}
