package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/paulmach/orb"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ttpr0/go-isometrics/batch"
	"golang.org/x/exp/slog"
)

//**********************************************************
// isochrone request
//**********************************************************

type IsochroneRequest struct {
	City string `json:"city"`
	// lon, lat
	Location []float64 `json:"location"`
	// travel times in minutes
	Range []float64 `json:"range"`
	// first configured window if not set
	Window *TimeWindow `json:"window"`
}

//**********************************************************
// isochrone handler
//**********************************************************

func NewIsochroneHandler(manager *IsometricsManager, collector *batch.Collector, base_logger *slog.Logger) func(IsochroneRequest) Result {
	return func(req IsochroneRequest) Result {
		logger := base_logger.With("city", req.City)
		if len(req.Location) != 2 {
			return BadRequest("location must be [lon, lat]")
		}
		if len(req.Range) == 0 {
			return BadRequest("range must not be empty")
		}
		for _, r := range req.Range {
			if r <= 0 {
				return BadRequest("range values must be positive")
			}
		}
		city, err := manager._City(req.City)
		if err != nil {
			return NotFound("city not found")
		}
		window := manager.config.TimeWindows[0]
		if req.Window != nil {
			window = *req.Window
		}

		ctx := context.Background()
		boundary, err := manager.LoadBoundary(req.City, city)
		if err != nil {
			logger.Error("failed to load boundary", "error", err)
			return InternalError("boundary not available")
		}
		g, err := manager.ComposedGraph(ctx, req.City, window, logger)
		if err != nil {
			return InternalError("graph not available")
		}

		origin := orb.Point{req.Location[0], req.Location[1]}
		resp := IsochroneResponse{
			City:       req.City,
			Location:   [2]float64{origin[0], origin[1]},
			Window:     window,
			Isochrones: make([]IsochroneMetricsResponse, 0, len(req.Range)),
		}
		for _, budget := range req.Range {
			result := batch.RunBatch(ctx, g, []orb.Point{origin}, budget, batch.Options{
				Workers:      1,
				QueryTimeout: manager.config.QueryTimeout,
				Boundary:     boundary,
				City:         req.City,
				Logger:       logger,
				Collector:    collector,
			})
			resp.Isochrones = append(resp.Isochrones, _ToMetricsResponse(result, budget))
		}
		return OK(&resp)
	}
}

func _ToMetricsResponse(result batch.Result, budget float64) IsochroneMetricsResponse {
	var res batch.PointResult
	if result.Successes.Length() > 0 {
		res = result.Successes[0]
	} else if result.Failures.Length() > 0 {
		res = result.Failures[0]
	}
	resp := IsochroneMetricsResponse{
		Range:   budget,
		Success: res.IsSuccess(),
		Mean:    res.Metrics.Mean,
		Median:  res.Metrics.Median,
		Min:     res.Metrics.Min,
		Max:     res.Metrics.Max,
		Area:    res.Metrics.Area,
		Nodes:   res.Metrics.NodeCount,
	}
	if res.Err != nil {
		resp.Error = res.Err.Error()
	}
	return resp
}

//**********************************************************
// server
//**********************************************************

func NewServeMux(manager *IsometricsManager, logger *slog.Logger) *http.ServeMux {
	collector := batch.NewCollector("isometrics")
	app := http.NewServeMux()
	MapPost(app, "/v0/isochrone", NewIsochroneHandler(manager, collector, logger))
	MapGet(app, "/v0/cities", func(none) Result {
		names, _ := manager.config.SelectCities(nil)
		resp := CitiesResponse{Cities: make([]CityResponse, 0, names.Length())}
		for _, name := range names {
			city := manager.config.Cities[name]
			res := CityResponse{
				Name:        name,
				Area:        city.Area,
				Inhabitants: city.Inhabitants,
				BoundingBox: city.BoundingBox,
			}
			if metrics, ok := manager.StoredCityMetrics(name); ok {
				res.Metrics = metrics
			}
			resp.Cities = append(resp.Cities, res)
		}
		return OK(resp)
	})
	app.Handle("/metrics", promhttp.HandlerFor(collector.Registry(), promhttp.HandlerOpts{}))
	return app
}

func Serve(addr string, manager *IsometricsManager, logger *slog.Logger) error {
	logger.Info("serving", "addr", addr)
	err := http.ListenAndServe(addr, NewServeMux(manager, logger))
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
