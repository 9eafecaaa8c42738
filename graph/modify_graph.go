package graph

import (
	. "github.com/ttpr0/go-isometrics/util"
)

//*******************************************
// modification methods
//*******************************************

// Returns the subgraph induced by all nodes flagged in keep.
func Subgraph(g *Graph, keep Array[bool]) *Graph {
	new_nodes := NewList[Node](100)
	mapping := NewArray[int32](g.NodeCount())
	id := int32(0)
	for i := 0; i < g.NodeCount(); i++ {
		if !keep[i] {
			mapping[i] = -1
			continue
		}
		new_nodes.Add(g.GetNode(int32(i)))
		mapping[i] = id
		id += 1
	}
	new_edges := NewList[Edge](100)
	for i := 0; i < g.EdgeCount(); i++ {
		edge := g.GetEdge(int32(i))
		if !keep[edge.NodeA] || !keep[edge.NodeB] {
			continue
		}
		edge.NodeA = mapping[edge.NodeA]
		edge.NodeB = mapping[edge.NodeB]
		new_edges.Add(edge)
	}
	return BuildGraph(Array[Node](new_nodes), Array[Edge](new_edges))
}

// Returns a copy of the graph with edges replaced, nodes are kept as is.
func _ReplaceEdges(g *Graph, edges Array[Edge]) *Graph {
	return &Graph{
		nodes:    g.nodes,
		edges:    edges,
		topology: _BuildTopology(len(g.nodes), edges),
		node_ids: g.node_ids,
	}
}
