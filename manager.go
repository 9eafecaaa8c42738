package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"path/filepath"
	"sync"
	"time"

	"github.com/bluele/gcache"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/ttpr0/go-isometrics/batch"
	"github.com/ttpr0/go-isometrics/cache"
	"github.com/ttpr0/go-isometrics/geo"
	"github.com/ttpr0/go-isometrics/graph"
	"github.com/ttpr0/go-isometrics/isochrone"
	"github.com/ttpr0/go-isometrics/parser"
	"github.com/ttpr0/go-isometrics/routing"
	"github.com/ttpr0/go-isometrics/sampling"
	. "github.com/ttpr0/go-isometrics/util"
	"golang.org/x/exp/slog"
	"golang.org/x/sync/singleflight"
)

//**********************************************************
// isometrics manager
//**********************************************************

// IsometricsManager runs the per city pipeline: boundary, sample points,
// transit routes and stations, mode graphs, composition and batch runs.
//
// Graphs and sample points are cached below the results path, a clean run
// recomputes them.
type IsometricsManager struct {
	config Config
	clean  bool
	quiet  bool

	boundaries gcache.Cache
	composed   gcache.Cache
	composing  singleflight.Group
	graphs     *cache.FileCache[cache.GraphKey, *graph.Graph]
	points     *cache.FileCache[cache.CityKey, List[sampling.SamplePoint]]
	osm        parser.IGraphSource
	gtfs       *parser.GTFSSource

	// routes and stations, always loaded from overpass
	transit      parser.ITransitInfoSource
	transit_info *cache.FileCache[cache.CityKey, *geojson.FeatureCollection]

	// keys already recomputed in a clean run
	refreshed Dict[any, bool]
	mu        sync.Mutex
}

type _ComposedKey struct {
	City   string
	Window TimeWindow
}

func (self _ComposedKey) String() string {
	return fmt.Sprintf("%s/%d-%d", self.City, self.Window.Start, self.Window.End)
}

func NewIsometricsManager(config Config, clean, quiet bool, logger *slog.Logger) *IsometricsManager {
	var osm_source parser.IGraphSource
	switch config.Source {
	case PBF:
		osm_source = parser.NewPBFSource(config.DataPath, logger)
	default:
		osm_source = parser.NewOverpassSource(config.OverpassURL, config.RequestTimeout, logger)
	}
	boundaries := gcache.New(32).LRU().LoaderFunc(func(key interface{}) (interface{}, error) {
		return geo.ReadPolygons(key.(string))
	}).Build()
	return &IsometricsManager{
		config:     config,
		clean:      clean,
		quiet:      quiet,
		boundaries: boundaries,
		composed:   gcache.New(4).LRU().Build(),
		graphs:     cache.NewFileCache[cache.GraphKey, *graph.Graph](config.ResultsPath, cache.GraphCodec{}, 16, logger),
		points:     cache.NewFileCache[cache.CityKey, List[sampling.SamplePoint]](config.ResultsPath, cache.JSONCodec[List[sampling.SamplePoint]]{}, 4, logger),
		osm:        osm_source,
		gtfs:       parser.NewGTFSSource(config.DataPath, 0, 0, logger),
		refreshed:  NewDict[any, bool](16),

		transit:      parser.NewOverpassSource(config.OverpassURL, config.RequestTimeout, logger),
		transit_info: cache.NewFileCache[cache.CityKey, *geojson.FeatureCollection](config.ResultsPath, cache.GeoJSONCodec{}, 8, logger),
	}
}

func (self *IsometricsManager) _City(name string) (CityConfig, error) {
	city, ok := self.config.Cities[name]
	if !ok {
		return city, fmt.Errorf("%w: unknown city %s", ErrFatalConfig, name)
	}
	return city, nil
}

// A clean run recomputes every cached value once.
func (self *IsometricsManager) _Force(key any) bool {
	if !self.clean {
		return false
	}
	self.mu.Lock()
	defer self.mu.Unlock()
	if self.refreshed[key] {
		return false
	}
	self.refreshed[key] = true
	return true
}

func (self *IsometricsManager) _ResultsDir(city string, parts ...string) string {
	return filepath.Join(append([]string{self.config.ResultsPath, city}, parts...)...)
}

//**********************************************************
// city pipeline
//**********************************************************

// Runs all time windows and travel times of a city. Failures of single
// modes or points are logged, only configuration errors abort the city.
func (self *IsometricsManager) RunCity(ctx context.Context, name string) error {
	logger, closer, err := NewCityLogger(self.config.ResultsPath, name, self.quiet)
	if err != nil {
		return err
	}
	defer closer.Close()
	start := time.Now()
	logger.Info("city started")

	city, err := self._City(name)
	if err != nil {
		return err
	}
	boundary, err := self.LoadBoundary(name, city)
	if err != nil {
		logger.Error("failed to load boundary", "error", err)
		return err
	}
	points, err := self.SamplePoints(name, city, boundary, logger)
	if err != nil {
		logger.Error("failed to generate sample points", "error", err)
		return err
	}
	if _, err := self.CityMetrics(ctx, name, logger); err != nil {
		logger.Warn("failed to write city metrics", "error", err)
	}
	origins := make([]orb.Point, 0, points.Length())
	for _, p := range points {
		origins = append(origins, p.Point())
	}

	collector := batch.NewCollector("isometrics")
	for _, window := range self.config.TimeWindows {
		g, err := self.ComposedGraph(ctx, name, window, logger)
		if err != nil {
			return err
		}
		for _, budget := range self.config.TravelTimes {
			result := batch.RunBatch(ctx, g, origins, budget, batch.Options{
				Workers:      self.config.Workers,
				QueryTimeout: self.config.QueryTimeout,
				Boundary:     boundary,
				City:         name,
				Logger:       logger,
				Collector:    collector,
			})
			if err := batch.WriteResult(self._ResultsDir(name, "geojson"), result, window.Start, window.End); err != nil {
				logger.Error("failed to write results", "error", err)
				return err
			}
		}
	}
	if err := collector.WriteToFile(self._ResultsDir(name, "metrics.prom")); err != nil {
		logger.Warn("failed to write metrics", "error", err)
	}
	logger.Info("city finished", "elapsed", time.Since(start))
	return nil
}

// Computes the metrics of a single origin for every time window and travel
// time, writing the reached nodes and hull next to the point files.
func (self *IsometricsManager) RunPlace(ctx context.Context, name string, origin orb.Point) error {
	logger, closer, err := NewCityLogger(self.config.ResultsPath, name, self.quiet)
	if err != nil {
		return err
	}
	defer closer.Close()

	city, err := self._City(name)
	if err != nil {
		return err
	}
	boundary, err := self.LoadBoundary(name, city)
	if err != nil {
		logger.Error("failed to load boundary", "error", err)
		return err
	}
	for _, window := range self.config.TimeWindows {
		g, err := self.ComposedGraph(ctx, name, window, logger)
		if err != nil {
			return err
		}
		dir := self._ResultsDir(name, "place", fmt.Sprintf("%d-%d", window.Start, window.End))
		for _, budget := range self.config.TravelTimes {
			b := isochrone.FormatBudget(budget)
			r, err := routing.Reach(ctx, g, nil, origin, budget)
			if err != nil {
				logger.Warn("place not reachable", "origin", origin, "budget", budget, "error", err)
			} else {
				metrics := isochrone.MetricsFromReachable(r, boundary, logger)
				if err := isochrone.WriteNodes(filepath.Join(dir, "isochrone-nodes-"+b+".geojson"), r); err != nil {
					return err
				}
				if err := isochrone.WriteEdges(filepath.Join(dir, "isochrone-edges-"+b+".geojson"), r); err != nil {
					return err
				}
				if err := isochrone.WriteHull(filepath.Join(dir, "isochrone-hull-"+b+".geojson"), budget, metrics); err != nil {
					return err
				}
				logger.Info("place metrics", "budget", budget, "access-distance", r.AccessDistance(), "mean", metrics.Mean, "median", metrics.Median, "min", metrics.Min, "max", metrics.Max, "area", metrics.Area)
			}
			result := batch.RunBatch(ctx, g, []orb.Point{origin}, budget, batch.Options{
				Workers:      1,
				QueryTimeout: self.config.QueryTimeout,
				Boundary:     boundary,
				City:         name,
				Logger:       logger,
			})
			if err := batch.WriteResult(dir, result, window.Start, window.End); err != nil {
				return err
			}
		}
	}
	return nil
}

//**********************************************************
// pipeline steps
//**********************************************************

// Loads the city boundary and the configured exclusion polygons. Missing
// exclusion files are skipped. A missing boundary is fatal if required,
// otherwise the bounding box is used.
func (self *IsometricsManager) LoadBoundary(name string, city CityConfig) (isochrone.Boundary, error) {
	boundary := isochrone.Boundary{FilterExclusions: self.config.FilterExclusionsInMetrics}

	limit_file := filepath.Join(self.config.DataPath, name, "inhabitants", "inhabitants.geojson")
	limit, err := self._Polygons(limit_file)
	switch {
	case err == nil:
		boundary.Limit = limit
	case errors.Is(err, geo.ErrNoBoundary) && !self.config.RequireBoundary:
		bound := city.Bound()
		boundary.Limit = geo.Polygons{bound.ToPolygon()}
	default:
		return boundary, fmt.Errorf("%w: %w", ErrFatalConfig, err)
	}

	exclusions := geo.Polygons{}
	for _, exclusion := range self.config.Exclusions {
		file := filepath.Join(self.config.DataPath, name, "landuse", exclusion+".geojson")
		polygons, err := self._Polygons(file)
		if errors.Is(err, geo.ErrNoBoundary) {
			continue
		}
		if err != nil {
			return boundary, fmt.Errorf("%w: %w", ErrFatalConfig, err)
		}
		exclusions = append(exclusions, polygons...)
	}
	boundary.Exclusions = exclusions
	return boundary, nil
}

func (self *IsometricsManager) _Polygons(file string) (geo.Polygons, error) {
	value, err := self.boundaries.Get(file)
	if err != nil {
		return nil, err
	}
	return value.(geo.Polygons), nil
}

// Returns the cached sample points of a city or generates area *
// points-per-sqkm new ones.
func (self *IsometricsManager) SamplePoints(name string, city CityConfig, boundary isochrone.Boundary, logger *slog.Logger) (List[sampling.SamplePoint], error) {
	key := cache.CityKey{City: name, Name: filepath.Join("sample-points", "sample-points")}
	return self.points.GetOrCompute(key, func() (List[sampling.SamplePoint], error) {
		seed := self.config.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		rng := rand.New(rand.NewSource(seed))
		count := sampling.PointCount(city.Area, self.config.PointsPerSqkm)
		points, err := sampling.GeneratePoints(rng, boundary.Limit, boundary.Exclusions, count, logger)
		if err != nil {
			return nil, err
		}
		dir := self._ResultsDir(name, "sample-points")
		if err := sampling.WriteCSV(points, filepath.Join(dir, "sample-points.csv")); err != nil {
			logger.Warn("failed to write sample points", "error", err)
		}
		if err := sampling.WriteGeoJSON(points, filepath.Join(dir, "sample-points.geojson")); err != nil {
			logger.Warn("failed to write sample points", "error", err)
		}
		return points, nil
	}, self._Force(key))
}

// Acquires a mode graph through the cache and annotates its travel costs.
// Transit modes use the gtfs feed of the city if present.
func (self *IsometricsManager) ModeGraph(ctx context.Context, name string, mode graph.Mode, window TimeWindow, logger *slog.Logger) (*graph.Graph, error) {
	city, err := self._City(name)
	if err != nil {
		return nil, err
	}
	region := city.Region(name)
	key := cache.GraphKey{City: name, Mode: mode}
	source := self.osm
	if mode.IsTransit() && self.gtfs.HasFeed(region) {
		key.Windowed = true
		key.Start = window.Start
		key.End = window.End
		source = self.gtfs.WithWindow(window.Start, window.End)
	}
	return self.graphs.GetOrCompute(key, func() (*graph.Graph, error) {
		g, err := source.Acquire(ctx, region, mode)
		if err != nil {
			return nil, err
		}
		return graph.AnnotateSpeed(g, mode, logger), nil
	}, self._Force(key))
}

// Returns the walk graph composed with every transit graph of the window.
// Modes that could not be acquired are left out. Concurrent calls for the
// same city and window share one acquisition.
func (self *IsometricsManager) ComposedGraph(ctx context.Context, name string, window TimeWindow, logger *slog.Logger) (*graph.Graph, error) {
	if _, err := self._City(name); err != nil {
		return nil, err
	}
	key := _ComposedKey{City: name, Window: window}
	if value, err := self.composed.Get(key); err == nil {
		return value.(*graph.Graph), nil
	}

	value, err, _ := self.composing.Do(key.String(), func() (any, error) {
		if value, err := self.composed.Get(key); err == nil {
			return value, nil
		}
		composed := self._Compose(ctx, name, window, logger)
		self.composed.Set(key, composed)
		return composed, nil
	})
	if err != nil {
		return nil, err
	}
	return value.(*graph.Graph), nil
}

func (self *IsometricsManager) _Compose(ctx context.Context, name string, window TimeWindow, logger *slog.Logger) *graph.Graph {
	graphs := NewList[*graph.Graph](len(self.config.Modes))
	for _, mode := range self.config.Modes {
		g, err := self.ModeGraph(ctx, name, mode, window, logger)
		if err != nil {
			var fetch_err *parser.FetchError
			if !errors.As(err, &fetch_err) && !errors.Is(err, graph.ErrInvalidGraphFile) {
				logger.Error("failed to acquire graph", "mode", mode.String(), "error", err)
			} else {
				logger.Warn("mode skipped", "mode", mode.String(), "reason", parser.ReasonOf(err).String(), "error", err)
			}
			continue
		}
		if mode == graph.WALK {
			graphs = append(List[*graph.Graph]{g}, graphs...)
		} else {
			graphs.Add(g)
		}
	}
	opts := graph.DefaultComposeOptions()
	opts.MaxConnectDistance = self.config.MaxConnectDistance
	opts.Logger = logger
	composed := graph.Compose(graphs, opts)
	for mode, count := range composed.ModeCounts() {
		logger.Debug("composed edges", "window", fmt.Sprintf("%d-%d", window.Start, window.End), "mode", mode.String(), "edges", count)
	}
	return composed
}
