package sampling

import (
	"errors"
	"math/rand"
	"strconv"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/ttpr0/go-isometrics/geo"
	. "github.com/ttpr0/go-isometrics/util"
	"golang.org/x/exp/slog"
)

//*******************************************
// sample points
//*******************************************

// Upper bound of rejected candidates per requested point.
const MAX_ATTEMPTS_PER_POINT = 1000

var ErrNoValidArea = errors.New("no valid area to sample from")

// SamplePoint is a generated origin, stored as {"lon": .., "lat": ..}.
type SamplePoint struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

func (self SamplePoint) Point() orb.Point {
	return orb.Point{self.Lon, self.Lat}
}

func NewSamplePoint(point orb.Point) SamplePoint {
	return SamplePoint{Lon: point[0], Lat: point[1]}
}

// Returns the number of sample points for a city area in sqkm.
func PointCount(area float64, points_per_sqkm float64) int {
	if area <= 0 || points_per_sqkm <= 0 {
		return 0
	}
	return int(area * points_per_sqkm)
}

// Draws n uniformly distributed points inside the valid polygons and outside
// the invalid ones by rejection sampling over the bounding box of the valid
// polygons.
//
// Stops early if too many candidates are rejected, returning the points drawn
// so far.
func GeneratePoints(rng *rand.Rand, valid geo.Polygons, invalid geo.Polygons, n int, logger *slog.Logger) (List[SamplePoint], error) {
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()
	logger.Info("generate points started", "count", n)

	points := NewList[SamplePoint](n)
	if n <= 0 {
		return points, nil
	}
	if valid.IsEmpty() {
		return points, ErrNoValidArea
	}
	bound := valid.Bound()
	width := bound.Max[0] - bound.Min[0]
	height := bound.Max[1] - bound.Min[1]

	failed := 0
	max_failed := n * MAX_ATTEMPTS_PER_POINT
	for points.Length() < n {
		point := orb.Point{
			bound.Min[0] + rng.Float64()*width,
			bound.Min[1] + rng.Float64()*height,
		}
		if _IsInDesiredArea(point, valid, invalid) {
			points.Add(NewSamplePoint(point))
			continue
		}
		failed += 1
		if failed >= max_failed {
			logger.Warn("too many rejected candidates, stopping early", "generated", points.Length(), "requested", n)
			break
		}
	}
	logger.Info("generate points finished", "count", points.Length(), "rejected", failed, "elapsed", time.Since(start))
	return points, nil
}

func _IsInDesiredArea(point orb.Point, valid geo.Polygons, invalid geo.Polygons) bool {
	if !valid.Contains(point) {
		return false
	}
	return !invalid.Contains(point)
}

//*******************************************
// side files
//*******************************************

// Writes lon,lat rows without header.
func WriteCSV(points List[SamplePoint], file string) error {
	rows := make([][]string, 0, points.Length())
	for _, p := range points {
		rows = append(rows, []string{
			strconv.FormatFloat(p.Lon, 'f', -1, 64),
			strconv.FormatFloat(p.Lat, 'f', -1, 64),
		})
	}
	return WriteCSVToFile(rows, file)
}

func WriteGeoJSON(points List[SamplePoint], file string) error {
	collection := geojson.NewFeatureCollection()
	for _, p := range points {
		collection.Append(geojson.NewFeature(p.Point()))
	}
	data, err := collection.MarshalJSON()
	if err != nil {
		return err
	}
	return WriteFile(file, data)
}
