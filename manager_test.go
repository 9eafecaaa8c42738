package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ttpr0/go-isometrics/batch"
	"github.com/ttpr0/go-isometrics/geo"
	"github.com/ttpr0/go-isometrics/graph"
	"github.com/ttpr0/go-isometrics/parser"
	"github.com/ttpr0/go-isometrics/util"
	"golang.org/x/exp/slog"
)

var _proj = geo.NewLocalProjection(52.5)
var _origin = _proj.Proj(orb.Point{13.4, 52.5})

func _At(x, y float64) orb.Point {
	return _proj.ReProj(orb.Point{_origin[0] + x, _origin[1] + y})
}

// 5x5 walk grid with 100m spacing.
func _WalkGraph() *graph.Graph {
	builder := graph.NewGraphBuilder()
	id := func(x, y int) int64 { return int64(y*5 + x) }
	for y := 0; y < 5; y++ {
		for x := 0; x < 5; x++ {
			builder.AddNode(id(x, y), graph.WALK, _At(float64(x)*100, float64(y)*100))
		}
	}
	for y := 0; y < 5; y++ {
		for x := 0; x < 5; x++ {
			a := graph.NodeKey{Mode: graph.WALK, ID: id(x, y)}
			if x < 4 {
				builder.AddUndirectedEdge(a, graph.NodeKey{Mode: graph.WALK, ID: id(x+1, y)}, graph.WALK, 100)
			}
			if y < 4 {
				builder.AddUndirectedEdge(a, graph.NodeKey{Mode: graph.WALK, ID: id(x, y+1)}, graph.WALK, 100)
			}
		}
	}
	return graph.AnnotateSpeed(builder.Build(), graph.WALK, nil)
}

func _TestConfig(t *testing.T) Config {
	root := t.TempDir()
	config := DefaultConfig()
	config.DataPath = filepath.Join(root, "data")
	config.ResultsPath = filepath.Join(root, "results")
	config.PointsPerSqkm = 100
	config.TravelTimes = []float64{5, 10}
	config.TimeWindows = []TimeWindow{{Start: 25200, End: 28800}}
	config.Modes = []graph.Mode{graph.WALK}
	config.Workers = 2
	config.Exclusions = []string{"park"}
	config.Seed = 42
	sw, ne := _At(-20, -20), _At(420, 420)
	config.Cities["test"] = CityConfig{
		Query:       "Test",
		Area:        0.16,
		Inhabitants: 1000,
		BoundingBox: [4]float64{sw[0], sw[1], ne[0], ne[1]},
	}
	require.NoError(t, config.Validate())

	require.NoError(t, util.WriteFile(filepath.Join(config.ResultsPath, "test", "graphs", "walk.graph"), graph.EncodeGraph(_WalkGraph())))
	return config
}

func _WriteBoundary(t *testing.T, file string, bound orb.Bound) {
	fc := geojson.NewFeatureCollection()
	fc.Append(geojson.NewFeature(bound.ToPolygon()))
	data, err := fc.MarshalJSON()
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Dir(file), 0o755))
	require.NoError(t, os.WriteFile(file, data, 0o644))
}

func _WriteCityBoundary(t *testing.T, config Config) {
	file := filepath.Join(config.DataPath, "test", "inhabitants", "inhabitants.geojson")
	_WriteBoundary(t, file, orb.Bound{Min: _At(0, 0), Max: _At(400, 400)})
}

func _Logger() *slog.Logger {
	return NewLogger(&bytes.Buffer{}, true)
}

func TestRunCity(t *testing.T) {
	config := _TestConfig(t)
	_WriteCityBoundary(t, config)
	manager := NewIsometricsManager(config, false, true, _Logger())

	require.NoError(t, manager.RunCity(context.Background(), "test"))

	city_dir := filepath.Join(config.ResultsPath, "test")
	for _, budget := range config.TravelTimes {
		success_file, failed_file := batch.ResultFiles(filepath.Join(city_dir, "geojson"), budget, 25200, 28800)
		assert.FileExists(t, success_file)
		assert.FileExists(t, failed_file)

		successes := _ReadCollection(t, success_file)
		failures := _ReadCollection(t, failed_file)
		assert.Len(t, append(successes.Features, failures.Features...), 16)
		assert.NotEmpty(t, successes.Features)
	}
	assert.FileExists(t, filepath.Join(city_dir, "receipt.txt"))
	assert.FileExists(t, filepath.Join(city_dir, "metrics.prom"))
	assert.FileExists(t, filepath.Join(city_dir, "sample-points", "sample-points.json"))
	assert.FileExists(t, filepath.Join(city_dir, "sample-points", "sample-points.csv"))
	assert.FileExists(t, filepath.Join(city_dir, "sample-points", "sample-points.geojson"))

	receipt, err := os.ReadFile(filepath.Join(city_dir, "receipt.txt"))
	require.NoError(t, err)
	assert.NotContains(t, string(receipt), "ERROR")
}

func TestRunCityReusesSamplePoints(t *testing.T) {
	config := _TestConfig(t)
	_WriteCityBoundary(t, config)
	manager := NewIsometricsManager(config, false, true, _Logger())
	boundary, err := manager.LoadBoundary("test", config.Cities["test"])
	require.NoError(t, err)

	first, err := manager.SamplePoints("test", config.Cities["test"], boundary, _Logger())
	require.NoError(t, err)
	require.Equal(t, 16, first.Length())

	other := NewIsometricsManager(config, false, true, _Logger())
	second, err := other.SamplePoints("test", config.Cities["test"], boundary, _Logger())
	require.NoError(t, err)
	assert.Equal(t, first, second)

	config.Seed = 7
	clean := NewIsometricsManager(config, true, true, _Logger())
	third, err := clean.SamplePoints("test", config.Cities["test"], boundary, _Logger())
	require.NoError(t, err)
	assert.Equal(t, 16, third.Length())
	assert.NotEqual(t, first, third)
}

func TestLoadBoundary(t *testing.T) {
	config := _TestConfig(t)
	manager := NewIsometricsManager(config, false, true, _Logger())

	_, err := manager.LoadBoundary("test", config.Cities["test"])
	assert.ErrorIs(t, err, ErrFatalConfig)
	assert.ErrorIs(t, manager.RunCity(context.Background(), "test"), ErrFatalConfig)

	config.RequireBoundary = false
	manager = NewIsometricsManager(config, false, true, _Logger())
	boundary, err := manager.LoadBoundary("test", config.Cities["test"])
	require.NoError(t, err)
	assert.True(t, boundary.Limit.Contains(_At(200, 200)))
	assert.True(t, boundary.Exclusions.IsEmpty())

	_WriteCityBoundary(t, config)
	_WriteBoundary(t, filepath.Join(config.DataPath, "test", "landuse", "park.geojson"), orb.Bound{Min: _At(0, 0), Max: _At(100, 100)})
	manager = NewIsometricsManager(config, false, true, _Logger())
	boundary, err = manager.LoadBoundary("test", config.Cities["test"])
	require.NoError(t, err)
	assert.False(t, boundary.Limit.Contains(_At(410, 410)))
	assert.True(t, boundary.Exclusions.Contains(_At(50, 50)))
}

func TestRunCityUnknown(t *testing.T) {
	config := _TestConfig(t)
	manager := NewIsometricsManager(config, false, true, _Logger())
	assert.ErrorIs(t, manager.RunCity(context.Background(), "nowhere"), ErrFatalConfig)
}

func TestRunPlace(t *testing.T) {
	config := _TestConfig(t)
	config.TravelTimes = []float64{5}
	_WriteCityBoundary(t, config)
	manager := NewIsometricsManager(config, false, true, _Logger())

	require.NoError(t, manager.RunPlace(context.Background(), "test", _At(210, 190)))

	dir := filepath.Join(config.ResultsPath, "test", "place", "25200-28800")
	assert.FileExists(t, filepath.Join(dir, "isochrone-nodes-5.geojson"))
	assert.FileExists(t, filepath.Join(dir, "isochrone-hull-5.geojson"))
	edges := _ReadCollection(t, filepath.Join(dir, "isochrone-edges-5.geojson"))
	require.NotEmpty(t, edges.Features)
	for _, feature := range edges.Features {
		assert.Equal(t, "walk", feature.Properties.MustString("mode"))
		assert.Equal(t, 100.0, feature.Properties.MustFloat64("length"))
	}
	success_file, _ := batch.ResultFiles(dir, 5, 25200, 28800)
	assert.Len(t, _ReadCollection(t, success_file).Features, 1)
}

func _ReadCollection(t *testing.T, file string) *geojson.FeatureCollection {
	data, err := os.ReadFile(file)
	require.NoError(t, err)
	fc, err := geojson.UnmarshalFeatureCollection(data)
	require.NoError(t, err)
	return fc
}

//**********************************************************
// http api
//**********************************************************

func _Post(t *testing.T, app http.Handler, path string, body any) *httptest.ResponseRecorder {
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, req)
	return rec
}

func TestIsochroneHandler(t *testing.T) {
	config := _TestConfig(t)
	_WriteCityBoundary(t, config)
	manager := NewIsometricsManager(config, false, true, _Logger())
	app := NewServeMux(manager, _Logger())

	origin := _At(210, 190)
	rec := _Post(t, app, "/v0/isochrone", IsochroneRequest{
		City:     "test",
		Location: []float64{origin[0], origin[1]},
		Range:    []float64{5, 10},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp IsochroneResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "test", resp.City)
	assert.Equal(t, config.TimeWindows[0], resp.Window)
	require.Len(t, resp.Isochrones, 2)
	for _, iso := range resp.Isochrones {
		assert.True(t, iso.Success)
		assert.Empty(t, iso.Error)
		assert.Greater(t, iso.Mean, 0.0)
		assert.LessOrEqual(t, iso.Min, iso.Mean)
		assert.LessOrEqual(t, iso.Mean, iso.Max)
		assert.Greater(t, iso.Nodes, 0)
	}
	assert.LessOrEqual(t, resp.Isochrones[0].Nodes, resp.Isochrones[1].Nodes)

	metrics := httptest.NewRecorder()
	app.ServeHTTP(metrics, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, metrics.Code)
	assert.True(t, strings.Contains(metrics.Body.String(), "isometrics_queries_total"))
}

func TestIsochroneHandlerLogsDroppedNodes(t *testing.T) {
	config := _TestConfig(t)
	file := filepath.Join(config.DataPath, "test", "inhabitants", "inhabitants.geojson")
	_WriteBoundary(t, file, orb.Bound{Min: _At(-50, -50), Max: _At(150, 150)})
	manager := NewIsometricsManager(config, false, true, _Logger())
	var buf bytes.Buffer
	app := NewServeMux(manager, NewLogger(&buf, false))

	origin := _At(10, 10)
	rec := _Post(t, app, "/v0/isochrone", IsochroneRequest{
		City:     "test",
		Location: []float64{origin[0], origin[1]},
		Range:    []float64{10},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, buf.String(), "INFO nodes dropped from hull city=test")
}

func TestIsochroneHandlerErrors(t *testing.T) {
	config := _TestConfig(t)
	_WriteCityBoundary(t, config)
	manager := NewIsometricsManager(config, false, true, _Logger())
	app := NewServeMux(manager, _Logger())

	tests := []struct {
		name   string
		req    IsochroneRequest
		status int
	}{
		{"missing location", IsochroneRequest{City: "test", Range: []float64{5}}, http.StatusBadRequest},
		{"empty range", IsochroneRequest{City: "test", Location: []float64{13.4, 52.5}}, http.StatusBadRequest},
		{"negative range", IsochroneRequest{City: "test", Location: []float64{13.4, 52.5}, Range: []float64{-1}}, http.StatusBadRequest},
		{"unknown city", IsochroneRequest{City: "nowhere", Location: []float64{13.4, 52.5}, Range: []float64{5}}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := _Post(t, app, "/v0/isochrone", tt.req)
			assert.Equal(t, tt.status, rec.Code)
		})
	}

	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v0/isochrone", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v0/isochrone", strings.NewReader("{")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// Bus line along the diagonal of the walk grid.
func _BusGraph() *graph.Graph {
	builder := graph.NewGraphBuilder()
	builder.AddNode(1, graph.BUS, _At(10, 10))
	builder.AddNode(2, graph.BUS, _At(210, 210))
	builder.AddNode(3, graph.BUS, _At(390, 390))
	builder.AddUndirectedEdge(graph.NodeKey{Mode: graph.BUS, ID: 1}, graph.NodeKey{Mode: graph.BUS, ID: 2}, graph.BUS, 283)
	builder.AddUndirectedEdge(graph.NodeKey{Mode: graph.BUS, ID: 2}, graph.NodeKey{Mode: graph.BUS, ID: 3}, graph.BUS, 255)
	return builder.Build()
}

type _CountingSource struct {
	calls atomic.Int32
}

func (self *_CountingSource) Acquire(ctx context.Context, region parser.Region, mode graph.Mode) (*graph.Graph, error) {
	self.calls.Add(1)
	time.Sleep(50 * time.Millisecond)
	return _BusGraph(), nil
}

func TestIsochroneHandlerConcurrentAcquire(t *testing.T) {
	config := _TestConfig(t)
	config.Modes = []graph.Mode{graph.WALK, graph.BUS}
	_WriteCityBoundary(t, config)
	manager := NewIsometricsManager(config, false, true, _Logger())
	source := &_CountingSource{}
	manager.osm = source
	app := NewServeMux(manager, _Logger())

	origin := _At(210, 190)
	req := IsochroneRequest{
		City:     "test",
		Location: []float64{origin[0], origin[1]},
		Range:    []float64{5},
	}
	codes := make([]int, 8)
	var wg sync.WaitGroup
	for i := range codes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			codes[i] = _Post(t, app, "/v0/isochrone", req).Code
		}(i)
	}
	wg.Wait()

	for _, code := range codes {
		assert.Equal(t, http.StatusOK, code)
	}
	assert.Equal(t, int32(1), source.calls.Load())
	assert.FileExists(t, filepath.Join(config.ResultsPath, "test", "graphs", "bus.graph"))

	g, err := manager.ComposedGraph(context.Background(), "test", config.TimeWindows[0], _Logger())
	require.NoError(t, err)
	assert.Equal(t, 4, g.ModeCounts()[graph.BUS])
	assert.Equal(t, int32(1), source.calls.Load())
}

//**********************************************************
// city metrics
//**********************************************************

type _TransitInfo struct {
	calls atomic.Int32
}

func _Points(points ...orb.Point) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, point := range points {
		fc.Append(geojson.NewFeature(point))
	}
	return fc
}

func (self *_TransitInfo) Routes(ctx context.Context, region parser.Region, mode graph.Mode) (*geojson.FeatureCollection, error) {
	self.calls.Add(1)
	if mode != graph.BUS {
		return nil, &parser.FetchError{Source: "test", Reason: parser.EMPTY_RESPONSE}
	}
	fc := geojson.NewFeatureCollection()
	fc.Append(geojson.NewFeature(orb.MultiLineString{{_At(10, 10), _At(390, 390)}}))
	fc.Append(geojson.NewFeature(orb.MultiLineString{{_At(10, 390), _At(390, 10)}}))
	return fc, nil
}

func (self *_TransitInfo) Stations(ctx context.Context, region parser.Region, mode graph.Mode) (*geojson.FeatureCollection, error) {
	self.calls.Add(1)
	if mode != graph.BUS {
		return nil, &parser.FetchError{Source: "test", Reason: parser.UNREACHABLE}
	}
	return _Points(_At(10, 10), _At(210, 210), _At(390, 390)), nil
}

func TestCityMetrics(t *testing.T) {
	config := _TestConfig(t)
	config.Modes = []graph.Mode{graph.WALK, graph.BUS, graph.TRAM}
	manager := NewIsometricsManager(config, false, true, _Logger())
	transit := &_TransitInfo{}
	manager.transit = transit

	metrics, err := manager.CityMetrics(context.Background(), "test", _Logger())
	require.NoError(t, err)
	assert.Equal(t, int32(4), transit.calls.Load())
	assert.InDelta(t, 6250, metrics.PopulationDensity, 1e-6)
	assert.Equal(t, 3, metrics.Stations.Count)
	assert.InDelta(t, 18.75, metrics.Stations.PerSqkm, 1e-9)
	assert.InDelta(t, 0.003, metrics.Stations.PerInhabitant, 1e-12)
	assert.Equal(t, 2, metrics.Lines.Count)
	assert.InDelta(t, 12.5, metrics.Lines.PerSqkm, 1e-9)
	assert.InDelta(t, 0.002, metrics.Lines.PerInhabitant, 1e-12)
	assert.Equal(t, TransitCounts{Stations: 3, Lines: 2}, metrics.Modes["bus"])
	// no tram routes, tram stations unreachable
	assert.Equal(t, TransitCounts{}, metrics.Modes["tram"])
	assert.NotContains(t, metrics.Modes, "walk")

	city_dir := filepath.Join(config.ResultsPath, "test")
	assert.Len(t, _ReadCollection(t, filepath.Join(city_dir, "bus.geojson")).Features, 2)
	assert.Len(t, _ReadCollection(t, filepath.Join(city_dir, "tram.geojson")).Features, 0)
	assert.Len(t, _ReadCollection(t, filepath.Join(city_dir, "stations", "bus.geojson")).Features, 3)
	assert.NoFileExists(t, filepath.Join(city_dir, "stations", "tram.geojson"))

	stored, ok := manager.StoredCityMetrics("test")
	require.True(t, ok)
	assert.Equal(t, metrics, *stored)

	// cached routes and stations are reused, failed ones are retried
	other := NewIsometricsManager(config, false, true, _Logger())
	other.transit = transit
	_, err = other.CityMetrics(context.Background(), "test", _Logger())
	require.NoError(t, err)
	assert.Equal(t, int32(5), transit.calls.Load())

	_, err = manager.CityMetrics(context.Background(), "nowhere", _Logger())
	assert.ErrorIs(t, err, ErrFatalConfig)
}

func TestRunCityWritesCityMetrics(t *testing.T) {
	config := _TestConfig(t)
	config.Modes = []graph.Mode{graph.WALK, graph.BUS}
	config.TravelTimes = []float64{5}
	_WriteCityBoundary(t, config)
	manager := NewIsometricsManager(config, false, true, _Logger())
	manager.osm = &_CountingSource{}
	manager.transit = &_TransitInfo{}

	require.NoError(t, manager.RunCity(context.Background(), "test"))
	city_dir := filepath.Join(config.ResultsPath, "test")
	assert.FileExists(t, filepath.Join(city_dir, "city-metrics.json"))
	assert.FileExists(t, filepath.Join(city_dir, "bus.geojson"))

	app := NewServeMux(manager, _Logger())
	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v0/cities", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var resp CitiesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Cities, 1)
	require.NotNil(t, resp.Cities[0].Metrics)
	assert.Equal(t, 3, resp.Cities[0].Metrics.Stations.Count)
	assert.Equal(t, 2, resp.Cities[0].Metrics.Lines.Count)
}

func TestCitiesHandler(t *testing.T) {
	config := _TestConfig(t)
	manager := NewIsometricsManager(config, false, true, _Logger())
	app := NewServeMux(manager, _Logger())

	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v0/cities", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp CitiesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Cities, 1)
	assert.Equal(t, "test", resp.Cities[0].Name)
	assert.Equal(t, 0.16, resp.Cities[0].Area)
	assert.Nil(t, resp.Cities[0].Metrics)
}
