package algorithm

import (
	"context"

	. "github.com/ttpr0/go-isometrics/util"
)

type IOneToMany interface {
	// Creates a solver with its own state. Solvers are not thread safe, use
	// one per worker.
	CreateSolver() ISolver
}

type ISolver interface {
	// Computes travel costs from start nodes to all nodes within max_range.
	//
	// Multiple start nodes are specified as (node, initial cost) tuples to
	// account for start locations not identical to graph node locations.
	CalcDistanceFromStart(ctx context.Context, starts Array[Tuple[int32, float64]], max_range float64) error

	// Returns the computed cost, +Inf if the node was not reached.
	GetDistance(node int32) float64

	// Iterates all nodes reached by the last computation.
	ForReached(callback func(node int32, dist float64))
}
