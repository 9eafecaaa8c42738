package routing

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/ttpr0/go-isometrics/algorithm"
	"github.com/ttpr0/go-isometrics/graph"
	. "github.com/ttpr0/go-isometrics/util"
)

// Walking speed used to reach the network from an origin, meters per minute.
const WALKING_SPEED = 100.0

var ErrNoCenter = errors.New("no graph node near origin")
var ErrInvalidOrigin = errors.New("invalid origin coordinate")

//*******************************************
// reachable subgraph
//*******************************************

// Reachable is the result of one reachability query. It references the
// queried graph and is owned by the caller only.
type Reachable struct {
	g      graph.IGraph
	origin orb.Point
	budget float64
	center int32
	// distance from origin to the center node in meters
	access_distance float64
	// walking part of the budget in meters, at most budget * WALKING_SPEED
	walking_distance float64

	nodes List[int32]
	times List[float64]
}

// Graph the query ran on.
func (self *Reachable) Graph() graph.IGraph {
	return self.g
}

func (self *Reachable) Origin() orb.Point {
	return self.origin
}
func (self *Reachable) Budget() float64 {
	return self.budget
}

// Center node, -1 if the origin could not be snapped.
func (self *Reachable) Center() int32 {
	return self.center
}
func (self *Reachable) AccessDistance() float64 {
	return self.access_distance
}
func (self *Reachable) WalkingDistance() float64 {
	return self.walking_distance
}
func (self *Reachable) IsEmpty() bool {
	return self.nodes.Length() == 0
}
func (self *Reachable) NodeCount() int {
	return self.nodes.Length()
}

// Reached nodes of the graph.
func (self *Reachable) Nodes() List[int32] {
	return self.nodes
}

// Travel time in minutes from the origin to the i-th reached node including
// the access walk.
func (self *Reachable) GetTime(i int) float64 {
	return self.times[i]
}

func (self *Reachable) Locations() List[orb.Point] {
	locs := NewList[orb.Point](self.nodes.Length())
	for _, node := range self.nodes {
		locs.Add(self.g.GetNodeGeom(node))
	}
	return locs
}

// Edges between reached nodes.
func (self *Reachable) InducedEdges() List[int32] {
	edges := NewList[int32](self.nodes.Length())
	if self.IsEmpty() {
		return edges
	}
	reached := NewDict[int32, bool](self.nodes.Length())
	for _, node := range self.nodes {
		reached[node] = true
	}
	explorer := self.g.GetGraphExplorer()
	for _, node := range self.nodes {
		explorer.ForAdjacentEdges(node, graph.FORWARD, graph.ADJACENT_EDGES, func(ref graph.EdgeRef) {
			if reached[ref.OtherID] {
				edges.Add(ref.EdgeID)
			}
		})
	}
	return edges
}

//*******************************************
// reachability query
//*******************************************

// Computes the nodes reachable from origin within budget minutes.
//
// The origin is snapped to its closest node, the walk there is charged at
// WALKING_SPEED and capped at the budget. If nothing remains for the network
// an empty result is returned. solver may be nil, a new one is created then.
func Reach(ctx context.Context, g graph.IGraph, solver algorithm.ISolver, origin orb.Point, budget float64) (*Reachable, error) {
	if !_IsValidCoord(origin) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOrigin, origin)
	}
	if g.NodeCount() == 0 {
		return nil, fmt.Errorf("%w: %w", ErrNoCenter, graph.ErrEmptyGraph)
	}
	center, access_dist, ok := g.GetClosestNode(origin)
	if !ok {
		return nil, ErrNoCenter
	}

	walk_time := math.Min(access_dist/WALKING_SPEED, budget)
	radius := budget - walk_time
	result := &Reachable{
		g:                g,
		origin:           origin,
		budget:           budget,
		center:           center,
		access_distance:  access_dist,
		walking_distance: walk_time * WALKING_SPEED,
		nodes:            NewList[int32](0),
		times:            NewList[float64](0),
	}
	if radius <= 0 {
		return result, nil
	}

	if solver == nil {
		solver = algorithm.NewRangeDijkstra(g).CreateSolver()
	}
	starts := Array[Tuple[int32, float64]]{MakeTuple(center, 0.0)}
	if err := solver.CalcDistanceFromStart(ctx, starts, radius); err != nil {
		return nil, err
	}
	solver.ForReached(func(node int32, dist float64) {
		result.nodes.Add(node)
		result.times.Add(dist + walk_time)
	})
	return result, nil
}

func _IsValidCoord(point orb.Point) bool {
	lon, lat := point[0], point[1]
	if math.IsNaN(lon) || math.IsNaN(lat) || math.IsInf(lon, 0) || math.IsInf(lat, 0) {
		return false
	}
	return lon >= -180 && lon <= 180 && lat >= -90 && lat <= 90
}
