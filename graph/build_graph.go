package graph

import (
	"fmt"

	"github.com/paulmach/orb"
	. "github.com/ttpr0/go-isometrics/util"
)

//*******************************************
// build graphs
//*******************************************

// Creates a graph from node and edge arrays. Edge node indices must be valid.
func BuildGraph(nodes Array[Node], edges Array[Edge]) *Graph {
	node_ids := NewDict[NodeKey, int32](len(nodes))
	for i, node := range nodes {
		node_ids[node.Key()] = int32(i)
	}
	return &Graph{
		nodes:    nodes,
		edges:    edges,
		topology: _BuildTopology(len(nodes), edges),
		node_ids: node_ids,
	}
}

//*******************************************
// graph builder
//*******************************************

// GraphBuilder collects nodes and edges by their source identifiers.
//
// Adding a node twice keeps the first location.
type GraphBuilder struct {
	nodes    List[Node]
	edges    List[Edge]
	node_ids Dict[NodeKey, int32]
}

func NewGraphBuilder() *GraphBuilder {
	return &GraphBuilder{
		nodes:    NewList[Node](100),
		edges:    NewList[Edge](100),
		node_ids: NewDict[NodeKey, int32](100),
	}
}

func (self *GraphBuilder) AddNode(id int64, mode Mode, loc orb.Point) int32 {
	key := NodeKey{Mode: mode, ID: id}
	if idx, ok := self.node_ids[key]; ok {
		return idx
	}
	idx := int32(self.nodes.Length())
	self.nodes.Add(Node{ID: id, Mode: mode, Loc: loc})
	self.node_ids[key] = idx
	return idx
}

// Adds an edge between two previously added nodes.
func (self *GraphBuilder) AddEdge(a, b NodeKey, mode Mode, length float64) error {
	idx_a, ok := self.node_ids[a]
	if !ok {
		return fmt.Errorf("unknown node %v", a)
	}
	idx_b, ok := self.node_ids[b]
	if !ok {
		return fmt.Errorf("unknown node %v", b)
	}
	self.edges.Add(NewEdge(idx_a, idx_b, mode, length))
	return nil
}

// Adds edges in both directions.
func (self *GraphBuilder) AddUndirectedEdge(a, b NodeKey, mode Mode, length float64) error {
	if err := self.AddEdge(a, b, mode, length); err != nil {
		return err
	}
	return self.AddEdge(b, a, mode, length)
}

func (self *GraphBuilder) NodeCount() int {
	return self.nodes.Length()
}
func (self *GraphBuilder) EdgeCount() int {
	return self.edges.Length()
}

func (self *GraphBuilder) Build() *Graph {
	return BuildGraph(Array[Node](self.nodes), Array[Edge](self.edges))
}
