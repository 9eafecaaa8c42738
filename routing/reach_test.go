package routing

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/ttpr0/go-isometrics/algorithm"
	"github.com/ttpr0/go-isometrics/geo"
	"github.com/ttpr0/go-isometrics/graph"
	"golang.org/x/exp/slices"
)

var _proj = geo.NewLocalProjection(52.5)
var _origin = _proj.Proj(orb.Point{13.4, 52.5})

func _At(x, y float64) orb.Point {
	return _proj.ReProj(orb.Point{_origin[0] + x, _origin[1] + y})
}

// four walk nodes at 0, 100, 200 and 300 meters
func _LineGraph() *graph.Graph {
	builder := graph.NewGraphBuilder()
	for i := 0; i < 4; i++ {
		builder.AddNode(int64(i), graph.WALK, _At(float64(i)*100, 0))
	}
	for i := 0; i < 3; i++ {
		a := graph.NodeKey{Mode: graph.WALK, ID: int64(i)}
		b := graph.NodeKey{Mode: graph.WALK, ID: int64(i + 1)}
		builder.AddUndirectedEdge(a, b, graph.WALK, 100)
	}
	return graph.AnnotateSpeed(builder.Build(), graph.WALK, nil)
}

func _ReachedIDs(g *graph.Graph, r *Reachable) []int64 {
	ids := make([]int64, 0)
	for _, node := range r.Nodes() {
		ids = append(ids, g.GetNode(node).ID)
	}
	slices.Sort(ids)
	return ids
}

func TestReachLine(t *testing.T) {
	g := _LineGraph()

	r, err := Reach(context.Background(), g, nil, _At(0, 0), 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ids := _ReachedIDs(g, r); !slices.Equal(ids, []int64{0, 1, 2, 3}) {
		t.Errorf("reached = %v; want [0 1 2 3]", ids)
	}
	if r.WalkingDistance() != 0 {
		t.Errorf("walking distance = %v; want 0", r.WalkingDistance())
	}

	r, err = Reach(context.Background(), g, nil, _At(0, 0), 0.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ids := _ReachedIDs(g, r); !slices.Equal(ids, []int64{0}) {
		t.Errorf("reached = %v; want [0]", ids)
	}
}

func TestReachMonotone(t *testing.T) {
	g := _LineGraph()
	solver := algorithm.NewRangeDijkstra(g).CreateSolver()
	origin := _At(120, 20)

	prev := []int64{}
	for _, budget := range []float64{0.1, 0.5, 1, 1.5, 2, 3, 5} {
		r, err := Reach(context.Background(), g, solver, origin, budget)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		ids := _ReachedIDs(g, r)
		for _, id := range prev {
			if !slices.Contains(ids, id) {
				t.Errorf("budget %v: node %v lost", budget, id)
			}
		}
		prev = ids
	}
}

func TestReachBoundary(t *testing.T) {
	g := _LineGraph()
	// about 500m north of node 0, five minutes of walking
	r, err := Reach(context.Background(), g, nil, _At(0, 500), 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !r.IsEmpty() {
		t.Errorf("reached %v nodes; want none", r.NodeCount())
	}
	if r.WalkingDistance() != 300 {
		t.Errorf("walking distance = %v; want 300", r.WalkingDistance())
	}
	if math.Abs(r.AccessDistance()-500) > 1 {
		t.Errorf("access distance = %v; want ~500", r.AccessDistance())
	}
}

func TestReachTimes(t *testing.T) {
	g := _LineGraph()
	// 50m from node 1
	r, err := Reach(context.Background(), g, nil, _At(100, 50), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(r.WalkingDistance()-50) > 0.1 {
		t.Errorf("walking distance = %v; want ~50", r.WalkingDistance())
	}
	for i, node := range r.Nodes() {
		if r.GetTime(i) > 2 {
			t.Errorf("node %v reached after %v minutes", node, r.GetTime(i))
		}
	}
	// nodes 0, 1 and 2 reachable within the remaining 1.5 minutes
	if ids := _ReachedIDs(g, r); !slices.Equal(ids, []int64{0, 1, 2}) {
		t.Errorf("reached = %v; want [0 1 2]", ids)
	}
	if n := r.InducedEdges().Length(); n != 4 {
		t.Errorf("got %v induced edges; want 4", n)
	}
}

func TestReachErrors(t *testing.T) {
	empty := graph.NewGraphBuilder().Build()
	if _, err := Reach(context.Background(), empty, nil, _At(0, 0), 5); !errors.Is(err, ErrNoCenter) {
		t.Errorf("err = %v; want ErrNoCenter", err)
	}
	g := _LineGraph()
	if _, err := Reach(context.Background(), g, nil, orb.Point{math.NaN(), 52}, 5); !errors.Is(err, ErrInvalidOrigin) {
		t.Errorf("err = %v; want ErrInvalidOrigin", err)
	}
	if _, err := Reach(context.Background(), g, nil, orb.Point{200, 52}, 5); !errors.Is(err, ErrInvalidOrigin) {
		t.Errorf("err = %v; want ErrInvalidOrigin", err)
	}
}
