package parser

import (
	"context"

	"github.com/paulmach/orb"
	"github.com/ttpr0/go-isometrics/graph"
)

//*******************************************
// graph sources
//*******************************************

// Region describes the area a mode graph is acquired for.
type Region struct {
	Name                 string
	Query                string
	BoundingBox          orb.Bound
	TransportAssociation string
}

// IGraphSource acquires the graph of a single mode.
//
// Failures are reported as *FetchError.
type IGraphSource interface {
	Acquire(ctx context.Context, region Region, mode graph.Mode) (*graph.Graph, error)
}
