package graph

import (
	"time"

	. "github.com/ttpr0/go-isometrics/util"
	"golang.org/x/exp/slog"
)

// Labels weakly connected components. Returns the label per node and the
// component sizes.
func WeakComponents(g *Graph) (Array[int32], List[int]) {
	labels := NewArray[int32](g.NodeCount())
	for i := range labels {
		labels[i] = -1
	}
	sizes := NewList[int](10)
	explorer := g.GetGraphExplorer()
	stack := NewList[int32](100)
	for i := 0; i < g.NodeCount(); i++ {
		if labels[i] != -1 {
			continue
		}
		label := int32(sizes.Length())
		size := 0
		labels[i] = label
		stack.Add(int32(i))
		for stack.Length() > 0 {
			curr := stack[stack.Length()-1]
			stack = stack[:stack.Length()-1]
			size += 1
			visit := func(ref EdgeRef) {
				if labels[ref.OtherID] == -1 {
					labels[ref.OtherID] = label
					stack.Add(ref.OtherID)
				}
			}
			explorer.ForAdjacentEdges(curr, FORWARD, ADJACENT_ALL, visit)
			explorer.ForAdjacentEdges(curr, BACKWARD, ADJACENT_ALL, visit)
		}
		sizes.Add(size)
	}
	return labels, sizes
}

// Keeps only the largest weakly connected component.
func LargestComponent(g *Graph, logger *slog.Logger) *Graph {
	logger = _Logger(logger)
	start := time.Now()
	if g.NodeCount() == 0 {
		return g
	}
	labels, sizes := WeakComponents(g)
	if sizes.Length() == 1 {
		return g
	}
	largest := 0
	for i, size := range sizes {
		if size > sizes[largest] {
			largest = i
		}
	}
	keep := NewArray[bool](g.NodeCount())
	for i, label := range labels {
		keep[i] = label == int32(largest)
	}
	pruned := Subgraph(g, keep)
	logger.Info("pruned to largest component", "components", sizes.Length(), "removed-nodes", g.NodeCount()-pruned.NodeCount(), "elapsed", time.Since(start))
	return pruned
}
