package graph

import (
	. "github.com/ttpr0/go-isometrics/util"
)

//*******************************************
// adjacency array
//*******************************************

type _AdjEntry struct {
	EdgeID  int32
	OtherID int32
}

// Compressed forward and backward adjacency of a graph.
type _Topology struct {
	fwd_start Array[int32]
	fwd_refs  Array[_AdjEntry]
	bwd_start Array[int32]
	bwd_refs  Array[_AdjEntry]
}

func (self *_Topology) GetAdjacency(node int32, dir Direction) []_AdjEntry {
	if dir == FORWARD {
		return self.fwd_refs[self.fwd_start[node]:self.fwd_start[node+1]]
	} else {
		return self.bwd_refs[self.bwd_start[node]:self.bwd_start[node+1]]
	}
}

func _BuildTopology(nodecount int, edges Array[Edge]) _Topology {
	fwd_start := NewArray[int32](nodecount + 1)
	bwd_start := NewArray[int32](nodecount + 1)
	for _, edge := range edges {
		fwd_start[edge.NodeA+1] += 1
		bwd_start[edge.NodeB+1] += 1
	}
	for i := 1; i <= nodecount; i++ {
		fwd_start[i] += fwd_start[i-1]
		bwd_start[i] += bwd_start[i-1]
	}

	fwd_refs := NewArray[_AdjEntry](len(edges))
	bwd_refs := NewArray[_AdjEntry](len(edges))
	fwd_pos := NewArray[int32](nodecount)
	bwd_pos := NewArray[int32](nodecount)
	copy(fwd_pos, fwd_start[:nodecount])
	copy(bwd_pos, bwd_start[:nodecount])
	for id, edge := range edges {
		fwd_refs[fwd_pos[edge.NodeA]] = _AdjEntry{EdgeID: int32(id), OtherID: edge.NodeB}
		fwd_pos[edge.NodeA] += 1
		bwd_refs[bwd_pos[edge.NodeB]] = _AdjEntry{EdgeID: int32(id), OtherID: edge.NodeA}
		bwd_pos[edge.NodeB] += 1
	}

	return _Topology{
		fwd_start: fwd_start,
		fwd_refs:  fwd_refs,
		bwd_start: bwd_start,
		bwd_refs:  bwd_refs,
	}
}
