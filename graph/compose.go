package graph

import (
	"math"
	"time"

	"github.com/paulmach/orb"
	. "github.com/ttpr0/go-isometrics/util"
	"golang.org/x/exp/slog"
)

//*******************************************
// compose graphs
//*******************************************

const DEFAULT_MAX_CONNECT_DISTANCE = 500.0

type ComposeOptions struct {
	// Non-walk nodes further than this (meters) outside the extent of the
	// pedestrian network are left unconnected.
	MaxConnectDistance float64
	Logger             *slog.Logger
}

func DefaultComposeOptions() ComposeOptions {
	return ComposeOptions{
		MaxConnectDistance: DEFAULT_MAX_CONNECT_DISTANCE,
	}
}

type _EdgeKey struct {
	NodeA  int32
	NodeB  int32
	Mode   Mode
	Length uint64
}

// Composes mode graphs into one traversable graph.
//
// Nodes are identified by (mode, id), so equal identifiers of different mode
// graphs stay distinct while walk nodes form one shared network. Edges already
// contributed by a previous graph are not added again. Every non-walk node
// without an access edge is then linked to its nearest walk node by a pair of
// zero-cost access edges.
func Compose(graphs []*Graph, opts ComposeOptions) *Graph {
	logger := _Logger(opts.Logger)
	start := time.Now()
	logger.Info("compose started", "graphs", len(graphs))

	nodes := NewList[Node](100)
	node_ids := NewDict[NodeKey, int32](100)
	edges := NewList[Edge](100)
	contributed := NewDict[_EdgeKey, int](100)
	for gi, g := range graphs {
		if g == nil {
			continue
		}
		mapping := NewArray[int32](g.NodeCount())
		for i, node := range g.nodes {
			key := node.Key()
			if id, ok := node_ids[key]; ok {
				mapping[i] = id
				continue
			}
			id := int32(nodes.Length())
			nodes.Add(node)
			node_ids[key] = id
			mapping[i] = id
		}
		for _, edge := range g.edges {
			edge.NodeA = mapping[edge.NodeA]
			edge.NodeB = mapping[edge.NodeB]
			key := _EdgeKey{edge.NodeA, edge.NodeB, edge.Mode, math.Float64bits(edge.Length)}
			if prev, ok := contributed[key]; ok && prev != gi {
				continue
			}
			contributed[key] = gi
			edges.Add(edge)
		}
	}

	added := _ConnectAccess(Array[Node](nodes), &edges, opts.MaxConnectDistance, logger)

	composed := &Graph{
		nodes:    Array[Node](nodes),
		edges:    Array[Edge](edges),
		topology: _BuildTopology(nodes.Length(), Array[Edge](edges)),
		node_ids: node_ids,
	}
	logger.Info("compose finished", "nodes", composed.NodeCount(), "edges", composed.EdgeCount(), "access-edges", added, "elapsed", time.Since(start))
	return composed
}

// Connects a transit graph to a pedestrian graph.
func Connect(transit *Graph, walk *Graph, opts ComposeOptions) *Graph {
	return Compose([]*Graph{walk, transit}, opts)
}

// Adds access edges for all unconnected non-walk nodes. Returns the number of
// added edges.
func _ConnectAccess(nodes Array[Node], edges *List[Edge], max_dist float64, logger *slog.Logger) int {
	connected := NewArray[bool](nodes.Length())
	for _, edge := range *edges {
		if edge.Mode == ACCESS {
			connected[edge.NodeA] = true
			connected[edge.NodeB] = true
		}
	}

	walk_locs := NewList[orb.Point](100)
	walk_ids := NewList[int32](100)
	pending := 0
	for i, node := range nodes {
		if node.Mode == WALK {
			walk_locs.Add(node.Loc)
			walk_ids.Add(int32(i))
		} else if !connected[i] {
			pending += 1
		}
	}
	if pending == 0 {
		return 0
	}
	if walk_locs.Length() == 0 {
		logger.Warn("pedestrian graph is empty, nodes stay disconnected", "count", pending)
		return 0
	}

	index := NewQuadTreeIndex(walk_locs, walk_ids)
	added := 0
	for i, node := range nodes {
		if node.Mode == WALK || connected[i] {
			continue
		}
		if !index.Covers(node.Loc, max_dist) {
			logger.Warn("node outside of pedestrian network", "mode", node.Mode.String(), "id", node.ID)
			continue
		}
		walk_id, dist, ok := index.GetClosestNode(node.Loc)
		if !ok {
			logger.Warn("no pedestrian node found", "mode", node.Mode.String(), "id", node.ID)
			continue
		}
		if dist == 0 {
			logger.Warn("zero distance to nearest pedestrian node", "mode", node.Mode.String(), "id", node.ID, "walk-id", nodes[walk_id].ID)
			continue
		}
		edges.Add(_NewAccessEdge(int32(i), walk_id))
		edges.Add(_NewAccessEdge(walk_id, int32(i)))
		added += 2
	}
	return added
}

func _NewAccessEdge(a, b int32) Edge {
	return Edge{
		NodeA:  a,
		NodeB:  b,
		Mode:   ACCESS,
		Length: 0,
		Cost:   Some(0.0),
	}
}
