package batch

import (
	"fmt"
	"path/filepath"

	"github.com/paulmach/orb/geojson"
	"github.com/ttpr0/go-isometrics/isochrone"
)

// File names of the success and failure collections of a run.
func ResultFiles(dir string, budget float64, start, end int) (string, string) {
	name := fmt.Sprintf("isochrones-%smin-%d-%d", isochrone.FormatBudget(budget), start, end)
	return filepath.Join(dir, name+".geojson"), filepath.Join(dir, name+"-failed.geojson")
}

// Writes successes and failures as point collections. Both files are always
// written, even if empty.
func WriteResult(dir string, result Result, start, end int) error {
	success_file, failed_file := ResultFiles(dir, result.Budget, start, end)
	if err := isochrone.WriteFeatures(success_file, _ToFeatures(result.Successes, result.Budget)); err != nil {
		return err
	}
	return isochrone.WriteFeatures(failed_file, _ToFeatures(result.Failures, result.Budget))
}

func _ToFeatures(results []PointResult, budget float64) []*geojson.Feature {
	features := make([]*geojson.Feature, 0, len(results))
	for _, res := range results {
		features = append(features, isochrone.NewPointFeature(res.Point, budget, res.Metrics))
	}
	return features
}
