package batch

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/ttpr0/go-isometrics/algorithm"
	"github.com/ttpr0/go-isometrics/graph"
	"github.com/ttpr0/go-isometrics/isochrone"
	"github.com/ttpr0/go-isometrics/routing"
	. "github.com/ttpr0/go-isometrics/util"
	"golang.org/x/exp/slog"
	"golang.org/x/sync/errgroup"
)

var ErrQueryPanic = errors.New("query panicked")

//*******************************************
// batch options and results
//*******************************************

type Options struct {
	// number of parallel workers, NumCPU if <= 0
	Workers int
	// timeout of a single query, none if <= 0
	QueryTimeout time.Duration
	Boundary     isochrone.Boundary
	// label of the run in metrics
	City      string
	Logger    *slog.Logger
	Collector *Collector
}

type PointResult struct {
	// position in the input points
	Index   int
	Point   orb.Point
	Metrics isochrone.Metrics
	// set if the query failed
	Err error
}

func (self PointResult) IsSuccess() bool {
	return self.Err == nil && self.Metrics.IsSuccess()
}

type Result struct {
	RunID     string
	Budget    float64
	Successes List[PointResult]
	Failures  List[PointResult]
	Elapsed   time.Duration
}

//*******************************************
// batch run
//*******************************************

// Computes isochrone metrics for every point within budget minutes.
//
// Queries run on a bounded worker pool sharing the read-only graph, each
// worker owns one solver. A failing query only marks its point as failed,
// the run itself always completes. Both result lists keep input order.
func RunBatch(ctx context.Context, g graph.IGraph, points []orb.Point, budget float64, opts Options) Result {
	run_id := uuid.NewString()
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("run", run_id)
	start := time.Now()
	logger.Info("batch started", "points", len(points), "budget", budget)

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(points) {
		workers = max(len(points), 1)
	}

	point_chan := make(chan int, len(points))
	for i := range points {
		point_chan <- i
	}
	close(point_chan)
	result_chan := make(chan PointResult, workers)

	otm := algorithm.NewRangeDijkstra(g)
	group, group_ctx := errgroup.WithContext(ctx)
	group.SetLimit(workers)
	for w := 0; w < workers; w++ {
		group.Go(func() error {
			solver := otm.CreateSolver()
			for i := range point_chan {
				result_chan <- _RunQuery(group_ctx, g, solver, i, points[i], budget, &opts, logger)
			}
			return nil
		})
	}
	go func() {
		group.Wait()
		close(result_chan)
	}()

	results := NewArray[PointResult](len(points))
	for res := range result_chan {
		results[res.Index] = res
	}

	successes := NewList[PointResult](len(points))
	failures := NewList[PointResult](10)
	for _, res := range results {
		if res.IsSuccess() {
			successes.Add(res)
		} else {
			failures.Add(res)
		}
	}

	elapsed := time.Since(start)
	logger.Info("batch finished", "budget", budget, "successes", successes.Length(), "failures", failures.Length(), "elapsed", elapsed)
	return Result{
		RunID:     run_id,
		Budget:    budget,
		Successes: successes,
		Failures:  failures,
		Elapsed:   elapsed,
	}
}

// Runs a single query. Errors and panics give zero metrics.
func _RunQuery(ctx context.Context, g graph.IGraph, solver algorithm.ISolver, index int, point orb.Point, budget float64, opts *Options, logger *slog.Logger) (res PointResult) {
	start := time.Now()
	res = PointResult{Index: index, Point: point}
	defer func() {
		if r := recover(); r != nil {
			res.Metrics = isochrone.Metrics{}
			res.Err = fmt.Errorf("%w: %v", ErrQueryPanic, r)
		}
		if res.Err != nil {
			logger.Warn("query failed", "index", index, "point", point, "error", res.Err)
		}
		_Observe(opts, budget, res, time.Since(start))
	}()

	if opts.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.QueryTimeout)
		defer cancel()
	}
	r, err := routing.Reach(ctx, g, solver, point, budget)
	if err != nil {
		res.Err = err
		return res
	}
	res.Metrics = isochrone.MetricsFromReachable(r, opts.Boundary, logger)
	return res
}

func _Observe(opts *Options, budget float64, res PointResult, elapsed time.Duration) {
	collector := opts.Collector
	if collector == nil {
		return
	}
	b := isochrone.FormatBudget(budget)
	result := "success"
	if res.Err != nil {
		result = "error"
	} else if !res.Metrics.IsSuccess() {
		result = "failed"
	}
	collector.Queries.WithLabelValues(opts.City, b, result).Inc()
	collector.QueryDuration.WithLabelValues(opts.City, b).Observe(elapsed.Seconds())
	collector.ReachedNodes.Observe(float64(res.Metrics.NodeCount))
	if result == "success" {
		collector.Area.WithLabelValues(opts.City, b).Observe(res.Metrics.Area / 1e6)
	}
}
