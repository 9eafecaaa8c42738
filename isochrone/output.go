package isochrone

import (
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/ttpr0/go-isometrics/routing"
	. "github.com/ttpr0/go-isometrics/util"
)

//**********************************************************
// geojson output
//**********************************************************

// Formats a budget for property keys and file names, e.g. 15 or 7.5.
func FormatBudget(budget float64) string {
	return strconv.FormatFloat(budget, 'f', -1, 64)
}

// Property keys of one travel time, distinct per budget so results of
// several budgets can be merged into one feature.
func PropertyKeys(budget float64) (mean, median, min, max, area string) {
	b := FormatBudget(budget)
	return "mean_spatial_distance_" + b + "min",
		"median_spatial_distance_" + b + "min",
		"min_spatial_distance_" + b + "min",
		"max_spatial_distance_" + b + "min",
		"area_" + b + "min"
}

// Adds the metrics of a budget to the properties of a feature.
func SetProperties(props geojson.Properties, budget float64, metrics Metrics) {
	mean, median, min, max, area := PropertyKeys(budget)
	props[mean] = metrics.Mean
	props[median] = metrics.Median
	props[min] = metrics.Min
	props[max] = metrics.Max
	props[area] = metrics.Area
}

// Creates a point feature at origin carrying the metrics.
func NewPointFeature(origin orb.Point, budget float64, metrics Metrics) *geojson.Feature {
	feature := geojson.NewFeature(origin)
	SetProperties(feature.Properties, budget, metrics)
	return feature
}

func WriteFeatures(file string, features []*geojson.Feature) error {
	fc := geojson.NewFeatureCollection()
	for _, feature := range features {
		fc.Append(feature)
	}
	data, err := fc.MarshalJSON()
	if err != nil {
		return err
	}
	return WriteFile(file, data)
}

// Writes all reached nodes with their travel time in minutes.
func WriteNodes(file string, r *routing.Reachable) error {
	features := make([]*geojson.Feature, 0, r.NodeCount())
	for i, loc := range r.Locations() {
		feature := geojson.NewFeature(loc)
		feature.Properties["time"] = r.GetTime(i)
		features = append(features, feature)
	}
	return WriteFeatures(file, features)
}

// Writes the edges between reached nodes with their mode and cost.
func WriteEdges(file string, r *routing.Reachable) error {
	g := r.Graph()
	edges := r.InducedEdges()
	features := make([]*geojson.Feature, 0, edges.Length())
	for _, id := range edges {
		edge := g.GetEdge(id)
		feature := geojson.NewFeature(orb.LineString{g.GetNodeGeom(edge.NodeA), g.GetNodeGeom(edge.NodeB)})
		feature.Properties["mode"] = edge.Mode.String()
		if edge.HasLength() {
			feature.Properties["length"] = edge.Length
		}
		if edge.Cost.HasValue() {
			feature.Properties["cost"] = edge.Cost.Value
		}
		features = append(features, feature)
	}
	return WriteFeatures(file, features)
}

// Writes the hull polygon of the metrics.
func WriteHull(file string, budget float64, metrics Metrics) error {
	var geom orb.Geometry
	if len(metrics.Hull) >= 4 {
		geom = orb.Polygon{metrics.Hull}
	} else {
		geom = orb.MultiPoint(metrics.Hull)
	}
	feature := geojson.NewFeature(geom)
	SetProperties(feature.Properties, budget, metrics)
	return WriteFeatures(file, []*geojson.Feature{feature})
}
