package main

import (
	"context"
	"path/filepath"
	"time"

	"github.com/paulmach/orb/geojson"
	"github.com/ttpr0/go-isometrics/cache"
	"github.com/ttpr0/go-isometrics/graph"
	"github.com/ttpr0/go-isometrics/parser"
	. "github.com/ttpr0/go-isometrics/util"
	"golang.org/x/exp/slog"
)

//**********************************************************
// city metrics
//**********************************************************

// CountMetrics relates a count to the area and population of a city.
type CountMetrics struct {
	Count         int     `json:"count"`
	PerSqkm       float64 `json:"per_sqkm"`
	PerInhabitant float64 `json:"per_inhabitant"`
}

func NewCountMetrics(count int, area float64, inhabitants int) CountMetrics {
	metrics := CountMetrics{Count: count}
	if area > 0 {
		metrics.PerSqkm = float64(count) / area
	}
	if inhabitants > 0 {
		metrics.PerInhabitant = float64(count) / float64(inhabitants)
	}
	return metrics
}

type TransitCounts struct {
	Stations int `json:"stations"`
	Lines    int `json:"lines"`
}

// CityMetrics summarizes the transit supply of a city. Lines are route
// relations, stations the stop nodes of every configured transit mode.
type CityMetrics struct {
	City              string                   `json:"city"`
	Area              float64                  `json:"area"`
	Inhabitants       int                      `json:"inhabitants"`
	PopulationDensity float64                  `json:"population_density"`
	Stations          CountMetrics             `json:"stations"`
	Lines             CountMetrics             `json:"lines"`
	Modes             map[string]TransitCounts `json:"modes"`
}

func (self *IsometricsManager) _CityMetricsFile(name string) string {
	return self._ResultsDir(name, "city-metrics.json")
}

// Loads routes and stations of every configured transit mode, exports the
// routes next to the results and writes the city metrics. Modes that could not
// be loaded are left out of the counts.
func (self *IsometricsManager) CityMetrics(ctx context.Context, name string, logger *slog.Logger) (CityMetrics, error) {
	city, err := self._City(name)
	if err != nil {
		return CityMetrics{}, err
	}
	start := time.Now()
	region := city.Region(name)

	stations, lines := 0, 0
	modes := make(map[string]TransitCounts)
	for _, mode := range self.config.Modes {
		if !mode.IsTransit() {
			continue
		}
		counts := TransitCounts{}
		routes, err := self.Routes(ctx, name, region, mode)
		if err != nil {
			logger.Warn("routes skipped", "mode", mode.String(), "reason", parser.ReasonOf(err).String(), "error", err)
		} else {
			counts.Lines = len(routes.Features)
		}
		stops, err := self.Stations(ctx, name, region, mode)
		if err != nil {
			logger.Warn("stations skipped", "mode", mode.String(), "reason", parser.ReasonOf(err).String(), "error", err)
		} else {
			counts.Stations = len(stops.Features)
		}
		stations += counts.Stations
		lines += counts.Lines
		modes[mode.String()] = counts
	}

	metrics := CityMetrics{
		City:        name,
		Area:        city.Area,
		Inhabitants: city.Inhabitants,
		Stations:    NewCountMetrics(stations, city.Area, city.Inhabitants),
		Lines:       NewCountMetrics(lines, city.Area, city.Inhabitants),
		Modes:       modes,
	}
	if city.Area > 0 {
		metrics.PopulationDensity = float64(city.Inhabitants) / city.Area
	}
	if err := WriteJSONToFile(metrics, self._CityMetricsFile(name)); err != nil {
		return metrics, err
	}
	logger.Info("city metrics written", "stations", stations, "lines", lines, "elapsed", time.Since(start))
	return metrics, nil
}

// Returns the stored city metrics, false if none were written yet.
func (self *IsometricsManager) StoredCityMetrics(name string) (*CityMetrics, bool) {
	metrics, err := ReadJSONFromFile[CityMetrics](self._CityMetricsFile(name))
	if err != nil {
		return nil, false
	}
	return &metrics, true
}

// Route relations of a mode, cached as <results>/<city>/<mode>.geojson. A
// region without routes gives an empty collection.
func (self *IsometricsManager) Routes(ctx context.Context, name string, region parser.Region, mode graph.Mode) (*geojson.FeatureCollection, error) {
	key := cache.CityKey{City: name, Name: mode.String()}
	return self.transit_info.GetOrCompute(key, func() (*geojson.FeatureCollection, error) {
		return _EmptyIfNone(self.transit.Routes(ctx, region, mode))
	}, self._Force(key))
}

// Stations of a mode, cached as <results>/<city>/stations/<mode>.geojson.
func (self *IsometricsManager) Stations(ctx context.Context, name string, region parser.Region, mode graph.Mode) (*geojson.FeatureCollection, error) {
	key := cache.CityKey{City: name, Name: filepath.Join("stations", mode.String())}
	return self.transit_info.GetOrCompute(key, func() (*geojson.FeatureCollection, error) {
		return _EmptyIfNone(self.transit.Stations(ctx, region, mode))
	}, self._Force(key))
}

func _EmptyIfNone(fc *geojson.FeatureCollection, err error) (*geojson.FeatureCollection, error) {
	if parser.ReasonOf(err) == parser.EMPTY_RESPONSE {
		return geojson.NewFeatureCollection(), nil
	}
	return fc, err
}
