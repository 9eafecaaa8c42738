package graph

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	. "github.com/ttpr0/go-isometrics/util"
)

var ErrInvalidGraphFile = errors.New("invalid graph file")

const _GRAPH_MAGIC int32 = 0x49534f47

//*******************************************
// binary encoding
//*******************************************

func EncodeGraph(g *Graph) []byte {
	writer := NewBufferWriter()
	Write(writer, _GRAPH_MAGIC)

	Write(writer, int32(g.NodeCount()))
	for _, node := range g.nodes {
		Write(writer, node.ID)
		Write(writer, byte(node.Mode))
		Write(writer, node.Loc[0])
		Write(writer, node.Loc[1])
	}

	Write(writer, int32(g.EdgeCount()))
	for _, edge := range g.edges {
		Write(writer, edge.NodeA)
		Write(writer, edge.NodeB)
		Write(writer, byte(edge.Mode))
		Write(writer, edge.Length)
		Write(writer, edge.Cost.HasValue())
		Write(writer, edge.Cost.Value)
	}
	return writer.Bytes()
}

func DecodeGraph(data []byte) (*Graph, error) {
	reader := NewBufferReader(data)
	magic, err := Read[int32](reader)
	if err != nil || magic != _GRAPH_MAGIC {
		return nil, ErrInvalidGraphFile
	}

	nodecount, err := Read[int32](reader)
	if err != nil || nodecount < 0 {
		return nil, ErrInvalidGraphFile
	}
	nodes := NewList[Node](int(nodecount))
	for i := 0; i < int(nodecount); i++ {
		node, err := _ReadNode(reader)
		if err != nil {
			return nil, fmt.Errorf("%w: node %v: %w", ErrInvalidGraphFile, i, err)
		}
		nodes.Add(node)
	}

	edgecount, err := Read[int32](reader)
	if err != nil || edgecount < 0 {
		return nil, ErrInvalidGraphFile
	}
	edges := NewList[Edge](int(edgecount))
	for i := 0; i < int(edgecount); i++ {
		edge, err := _ReadEdge(reader)
		if err != nil {
			return nil, fmt.Errorf("%w: edge %v: %w", ErrInvalidGraphFile, i, err)
		}
		if edge.NodeA < 0 || edge.NodeA >= nodecount || edge.NodeB < 0 || edge.NodeB >= nodecount {
			return nil, fmt.Errorf("%w: edge %v references unknown node", ErrInvalidGraphFile, i)
		}
		edges.Add(edge)
	}

	return BuildGraph(Array[Node](nodes), Array[Edge](edges)), nil
}

func _ReadNode(reader BufferReader) (Node, error) {
	id, err := Read[int64](reader)
	if err != nil {
		return Node{}, err
	}
	mode, err := Read[byte](reader)
	if err != nil {
		return Node{}, err
	}
	lon, err := Read[float64](reader)
	if err != nil {
		return Node{}, err
	}
	lat, err := Read[float64](reader)
	if err != nil {
		return Node{}, err
	}
	return Node{ID: id, Mode: Mode(mode), Loc: orb.Point{lon, lat}}, nil
}

func _ReadEdge(reader BufferReader) (Edge, error) {
	a, err := Read[int32](reader)
	if err != nil {
		return Edge{}, err
	}
	b, err := Read[int32](reader)
	if err != nil {
		return Edge{}, err
	}
	mode, err := Read[byte](reader)
	if err != nil {
		return Edge{}, err
	}
	length, err := Read[float64](reader)
	if err != nil {
		return Edge{}, err
	}
	has_cost, err := Read[bool](reader)
	if err != nil {
		return Edge{}, err
	}
	cost, err := Read[float64](reader)
	if err != nil {
		return Edge{}, err
	}
	edge := NewEdge(a, b, Mode(mode), length)
	if has_cost {
		edge.Cost = Some(cost)
	}
	return edge, nil
}
