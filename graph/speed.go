package graph

import (
	"math"
	"time"

	. "github.com/ttpr0/go-isometrics/util"
	"golang.org/x/exp/slog"
)

// Travel speeds in km/h.
var SPEEDS = map[Mode]float64{
	WALK:       6.0,
	BUS:        19.5,
	BIKE:       16.0,
	SUBWAY:     31.0,
	TRAM:       19.0,
	LIGHT_RAIL: 38.0,
}

// Returns the traversal cost in minutes of an edge of given length (meters).
func TravelCost(length float64, mode Mode) (float64, bool) {
	speed, ok := SPEEDS[mode]
	if !ok || math.IsNaN(length) || length < 0 {
		return 0, false
	}
	return length / (speed * 1000 / 60), true
}

// Sets the traversal cost of every edge of the given mode that has no cost yet.
//
// Edges with missing or negative length are removed. Edges of modes without a
// known speed keep an undefined cost and are skipped during traversal.
func AnnotateSpeed(g *Graph, mode Mode, logger *slog.Logger) *Graph {
	logger = _Logger(logger)
	start := time.Now()
	logger.Info("annotate speed started", "mode", mode.String(), "edges", g.EdgeCount())

	if _, ok := SPEEDS[mode]; !ok {
		logger.Warn("no speed known for mode, edges stay non-traversable", "mode", mode.String())
	}

	edges := NewList[Edge](g.EdgeCount())
	rejected := 0
	for _, edge := range g.edges {
		if !edge.HasLength() || edge.Length < 0 {
			rejected += 1
			continue
		}
		if !edge.Cost.HasValue() && edge.Mode == mode {
			if cost, ok := TravelCost(edge.Length, mode); ok {
				edge.Cost = Some(cost)
			}
		}
		edges.Add(edge)
	}
	if rejected > 0 {
		logger.Warn("rejected edges with missing or negative length", "mode", mode.String(), "count", rejected)
	}

	annotated := _ReplaceEdges(g, Array[Edge](edges))
	logger.Info("annotate speed finished", "mode", mode.String(), "elapsed", time.Since(start))
	return annotated
}
