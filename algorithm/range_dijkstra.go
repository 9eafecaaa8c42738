package algorithm

import (
	"context"
	"math"

	"github.com/ttpr0/go-isometrics/graph"
	. "github.com/ttpr0/go-isometrics/util"
)

// queue polls between context checks
const _CTX_CHECK_INTERVAL = 1024

type DistFlag struct {
	Dist    float64
	Visited bool
}

type PQItem struct {
	item int32
	dist float64
}

func NewRangeDijkstra(g graph.IGraph) *RangeDijkstra {
	return &RangeDijkstra{g: g}
}

type RangeDijkstra struct {
	g graph.IGraph
}

func (self *RangeDijkstra) CreateSolver() ISolver {
	node_flags := NewFlags[DistFlag](int32(self.g.NodeCount()), DistFlag{Dist: math.Inf(1)})
	return &RangeDijkstraSolver{
		g:          self.g,
		explorer:   self.g.GetGraphExplorer(),
		node_flags: node_flags,
		heap:       NewPriorityQueue[PQItem, float64](100),
	}
}

type RangeDijkstraSolver struct {
	g          graph.IGraph
	explorer   graph.IGraphExplorer
	node_flags Flags[DistFlag]
	heap       PriorityQueue[PQItem, float64]
}

// CalcDistanceFromStart implements ISolver.
func (self *RangeDijkstraSolver) CalcDistanceFromStart(ctx context.Context, starts Array[Tuple[int32, float64]], max_range float64) error {
	self.node_flags.Reset()
	self.heap.Clear()
	return _CalcRangeDijkstra(ctx, self.explorer, starts, &self.node_flags, self.heap, max_range)
}

// GetDistance implements ISolver.
func (self *RangeDijkstraSolver) GetDistance(node int32) float64 {
	if !self.node_flags.IsTouched(node) {
		return math.Inf(1)
	}
	return self.node_flags.Get(node).Dist
}

// ForReached implements ISolver.
func (self *RangeDijkstraSolver) ForReached(callback func(node int32, dist float64)) {
	self.node_flags.ForTouched(func(id int32, flag *DistFlag) {
		if flag.Dist <= math.MaxFloat64 {
			callback(id, flag.Dist)
		}
	})
}

// Computes travel costs with a dijkstra bounded by max_range. Edges without
// cost are skipped.
func _CalcRangeDijkstra(ctx context.Context, explorer graph.IGraphExplorer, starts Array[Tuple[int32, float64]], node_flags *Flags[DistFlag], heap PriorityQueue[PQItem, float64], max_range float64) error {
	for _, item := range starts {
		start := item.A
		dist := item.B
		if dist > max_range {
			continue
		}
		start_flag := node_flags.Get(start)
		if dist < start_flag.Dist {
			start_flag.Dist = dist
			heap.Enqueue(PQItem{start, dist}, dist)
		}
	}

	count := 0
	for {
		curr_item, ok := heap.Dequeue()
		if !ok {
			break
		}
		count += 1
		if count%_CTX_CHECK_INTERVAL == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		curr_id := curr_item.item
		curr_flag := node_flags.Get(curr_id)
		if curr_flag.Visited || curr_flag.Dist < curr_item.dist {
			continue
		}
		curr_flag.Visited = true
		explorer.ForAdjacentEdges(curr_id, graph.FORWARD, graph.ADJACENT_EDGES, func(ref graph.EdgeRef) {
			other_id := ref.OtherID
			new_length := curr_flag.Dist + explorer.GetEdgeWeight(ref)
			if new_length > max_range {
				return
			}
			other_flag := node_flags.Get(other_id)
			if other_flag.Dist > new_length {
				other_flag.Dist = new_length
				heap.Enqueue(PQItem{other_id, new_length}, new_length)
			}
		})
	}
	return nil
}
