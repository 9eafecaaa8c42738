package graph

import (
	"errors"
	"iter"
	"sync"

	"github.com/paulmach/orb"
	. "github.com/ttpr0/go-isometrics/util"
)

var ErrEmptyGraph = errors.New("graph has no nodes")

//*******************************************
// graph interfaces
//******************************************

type IGraph interface {
	GetGraphExplorer() IGraphExplorer
	NodeCount() int
	EdgeCount() int
	IsNode(node int32) bool
	GetNode(node int32) Node
	GetEdge(edge int32) Edge
	GetNodeGeom(node int32) orb.Point
	GetNodeIndex(key NodeKey) (int32, bool)
	GetClosestNode(point orb.Point) (int32, float64, bool)
}

// Explorers are cheap views on an immutable graph and may be used
// concurrently by different workers.
type IGraphExplorer interface {
	// Iterates through the adjacency of a node calling the callback for every edge.
	//
	// direction tells the traversal direction (FORWARD means outgoing edges, BACKWARD ingoing edges)
	//
	// typ ADJACENT_EDGES skips edges without a traversal cost
	ForAdjacentEdges(node int32, dir Direction, typ Adjacency, callback func(EdgeRef))
	GetEdgeWeight(edge EdgeRef) float64
	GetOtherNode(edge EdgeRef, node int32) int32
}

//*******************************************
// graph
//******************************************

var _ IGraph = &Graph{}

// Graph is a directed multigraph. It is immutable after building, the
// spatial index is created lazily on first use and only read afterwards.
type Graph struct {
	nodes    Array[Node]
	edges    Array[Edge]
	topology _Topology
	node_ids Dict[NodeKey, int32]

	index      IGraphIndex
	index_once sync.Once
}

func (self *Graph) GetGraphExplorer() IGraphExplorer {
	return &BaseGraphExplorer{
		graph:    self,
		topology: &self.topology,
	}
}
func (self *Graph) NodeCount() int {
	return len(self.nodes)
}
func (self *Graph) EdgeCount() int {
	return len(self.edges)
}
func (self *Graph) IsNode(node int32) bool {
	return node >= 0 && node < int32(len(self.nodes))
}
func (self *Graph) GetNode(node int32) Node {
	return self.nodes[node]
}
func (self *Graph) GetEdge(edge int32) Edge {
	return self.edges[edge]
}
func (self *Graph) GetNodeGeom(node int32) orb.Point {
	return self.nodes[node].Loc
}
func (self *Graph) GetNodeIndex(key NodeKey) (int32, bool) {
	id, ok := self.node_ids[key]
	return id, ok
}
func (self *Graph) GetClosestNode(point orb.Point) (int32, float64, bool) {
	return self.GetIndex().GetClosestNode(point)
}
func (self *Graph) GetIndex() IGraphIndex {
	self.index_once.Do(func() {
		locs := make([]orb.Point, len(self.nodes))
		for i, node := range self.nodes {
			locs[i] = node.Loc
		}
		self.index = NewQuadTreeIndex(locs, nil)
	})
	return self.index
}

// Bounding box of all node locations.
func (self *Graph) Bound() orb.Bound {
	if len(self.nodes) == 0 {
		return orb.Bound{}
	}
	bound := self.nodes[0].Loc.Bound()
	for _, node := range self.nodes[1:] {
		bound = bound.Extend(node.Loc)
	}
	return bound
}

func (self *Graph) IsEmpty() bool {
	return len(self.nodes) == 0
}

func (self *Graph) Nodes() iter.Seq2[int32, Node] {
	return func(yield func(int32, Node) bool) {
		for i, node := range self.nodes {
			if !yield(int32(i), node) {
				return
			}
		}
	}
}
func (self *Graph) Edges() iter.Seq2[int32, Edge] {
	return func(yield func(int32, Edge) bool) {
		for i, edge := range self.edges {
			if !yield(int32(i), edge) {
				return
			}
		}
	}
}

// Number of edges per mode.
func (self *Graph) ModeCounts() map[Mode]int {
	counts := make(map[Mode]int)
	for _, edge := range self.edges {
		counts[edge.Mode] += 1
	}
	return counts
}

//*******************************************
// graph explorer
//******************************************

type BaseGraphExplorer struct {
	graph    *Graph
	topology *_Topology
}

func (self *BaseGraphExplorer) ForAdjacentEdges(node int32, direction Direction, typ Adjacency, callback func(EdgeRef)) {
	for _, entry := range self.topology.GetAdjacency(node, direction) {
		if typ == ADJACENT_EDGES && !self.graph.edges[entry.EdgeID].Cost.HasValue() {
			continue
		}
		callback(EdgeRef{
			EdgeID:  entry.EdgeID,
			OtherID: entry.OtherID,
		})
	}
}
func (self *BaseGraphExplorer) GetEdgeWeight(edge EdgeRef) float64 {
	return self.graph.edges[edge.EdgeID].Cost.Value
}
func (self *BaseGraphExplorer) GetOtherNode(edge EdgeRef, node int32) int32 {
	e := self.graph.GetEdge(edge.EdgeID)
	if node == e.NodeA {
		return e.NodeB
	}
	if node == e.NodeB {
		return e.NodeA
	}
	return -1
}
