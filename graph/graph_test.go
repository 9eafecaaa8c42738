package graph

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/ttpr0/go-isometrics/geo"
)

var _proj = geo.NewLocalProjection(52.5)
var _origin = _proj.Proj(orb.Point{13.4, 52.5})

// lon/lat location x meters east and y meters north of the test origin
func _At(x, y float64) orb.Point {
	return _proj.ReProj(orb.Point{_origin[0] + x, _origin[1] + y})
}

// walk nodes 0..n-1 every 100m on a line, connected in both directions
func _LineGraph(n int) *Graph {
	builder := NewGraphBuilder()
	for i := 0; i < n; i++ {
		builder.AddNode(int64(i), WALK, _At(float64(i)*100, 0))
	}
	for i := 0; i < n-1; i++ {
		a := NodeKey{WALK, int64(i)}
		b := NodeKey{WALK, int64(i + 1)}
		builder.AddUndirectedEdge(a, b, WALK, 100)
	}
	return builder.Build()
}

// two bus stops north of the line graph
func _BusGraph() *Graph {
	builder := NewGraphBuilder()
	builder.AddNode(0, BUS, _At(50, 30))
	builder.AddNode(1, BUS, _At(250, 30))
	builder.AddEdge(NodeKey{BUS, 0}, NodeKey{BUS, 1}, BUS, 325)
	return builder.Build()
}

func _CountMode(g *Graph, mode Mode) int {
	return g.ModeCounts()[mode]
}

func TestAnnotateSpeed(t *testing.T) {
	builder := NewGraphBuilder()
	builder.AddNode(0, WALK, _At(0, 0))
	builder.AddNode(1, WALK, _At(100, 0))
	a := NodeKey{WALK, 0}
	b := NodeKey{WALK, 1}
	builder.AddEdge(a, b, WALK, 100)
	builder.AddEdge(b, a, WALK, 250)
	builder.AddEdge(a, b, UNKNOWN, 100)
	builder.AddEdge(a, b, WALK, math.NaN())
	builder.AddEdge(b, a, WALK, -5)
	g := AnnotateSpeed(builder.Build(), WALK, nil)

	if g.EdgeCount() != 3 {
		t.Fatalf("got %v edges; want 3", g.EdgeCount())
	}
	if e := g.GetEdge(0); !e.Cost.HasValue() || e.Cost.Value != 1 {
		t.Errorf("cost = %v; want 1", e.Cost)
	}
	if e := g.GetEdge(1); !e.Cost.HasValue() || e.Cost.Value != 2.5 {
		t.Errorf("cost = %v; want 2.5", e.Cost)
	}
	if e := g.GetEdge(2); e.Cost.HasValue() {
		t.Errorf("unknown mode edge has cost %v", e.Cost.Value)
	}

	// unknown mode edge is not traversable
	explorer := g.GetGraphExplorer()
	count := 0
	explorer.ForAdjacentEdges(0, FORWARD, ADJACENT_EDGES, func(ref EdgeRef) {
		count += 1
	})
	if count != 1 {
		t.Errorf("got %v traversable edges; want 1", count)
	}
	count = 0
	explorer.ForAdjacentEdges(0, FORWARD, ADJACENT_ALL, func(ref EdgeRef) {
		count += 1
	})
	if count != 2 {
		t.Errorf("got %v edges; want 2", count)
	}
}

func TestTravelCost(t *testing.T) {
	tests := map[Mode]float64{
		WALK:       6.0,
		BUS:        19.5,
		BIKE:       16.0,
		SUBWAY:     31.0,
		TRAM:       19.0,
		LIGHT_RAIL: 38.0,
	}
	for mode, speed := range tests {
		cost, ok := TravelCost(1000, mode)
		if !ok || cost != 1000/(speed*1000/60) {
			t.Errorf("%v: cost = %v", mode, cost)
		}
	}
	if _, ok := TravelCost(1000, ACCESS); ok {
		t.Errorf("access edges have no speed")
	}
	if _, ok := TravelCost(math.NaN(), WALK); ok {
		t.Errorf("missing length must not give a cost")
	}
}

func TestAnnotateOtherMode(t *testing.T) {
	g := AnnotateSpeed(_BusGraph(), WALK, nil)
	if g.GetEdge(0).Cost.HasValue() {
		t.Errorf("bus edge annotated with walking speed")
	}
	g = AnnotateSpeed(g, BUS, nil)
	if e := g.GetEdge(0); !e.Cost.HasValue() || e.Cost.Value != 1 {
		t.Errorf("cost = %v; want 1", e.Cost)
	}
}

func TestCompose(t *testing.T) {
	walk := AnnotateSpeed(_LineGraph(4), WALK, nil)
	bus := AnnotateSpeed(_BusGraph(), BUS, nil)
	g := Compose([]*Graph{walk, bus}, DefaultComposeOptions())

	if g.NodeCount() != 6 {
		t.Errorf("got %v nodes; want 6", g.NodeCount())
	}
	// 6 walk + 1 bus + 2*2 access
	if g.EdgeCount() != 11 {
		t.Errorf("got %v edges; want 11", g.EdgeCount())
	}
	if c := _CountMode(g, ACCESS); c != 4 {
		t.Errorf("got %v access edges; want 4", c)
	}

	// node ids of different modes are distinct
	walk_0, ok := g.GetNodeIndex(NodeKey{WALK, 0})
	if !ok {
		t.Fatalf("walk node 0 missing")
	}
	bus_0, ok := g.GetNodeIndex(NodeKey{BUS, 0})
	if !ok {
		t.Fatalf("bus node 0 missing")
	}
	if walk_0 == bus_0 {
		t.Errorf("walk and bus node share index")
	}

	// bus stop 0 (x=50) connects to walk node 0 or 1, stop 1 (x=250) to 2 or 3
	explorer := g.GetGraphExplorer()
	explorer.ForAdjacentEdges(bus_0, FORWARD, ADJACENT_EDGES, func(ref EdgeRef) {
		edge := g.GetEdge(ref.EdgeID)
		if edge.Mode != ACCESS {
			return
		}
		other := g.GetNode(ref.OtherID)
		if other.Mode != WALK || other.ID > 1 {
			t.Errorf("bus stop connected to %v", other)
		}
		if edge.Cost.Value != 0 {
			t.Errorf("access cost = %v; want 0", edge.Cost.Value)
		}
	})
}

func TestComposeIdempotent(t *testing.T) {
	walk := AnnotateSpeed(_LineGraph(4), WALK, nil)
	bus := AnnotateSpeed(_BusGraph(), BUS, nil)
	once := Compose([]*Graph{walk, bus}, DefaultComposeOptions())
	twice := Compose([]*Graph{once, bus}, DefaultComposeOptions())

	if once.NodeCount() != twice.NodeCount() || once.EdgeCount() != twice.EdgeCount() {
		t.Errorf("got %v/%v nodes/edges; want %v/%v", twice.NodeCount(), twice.EdgeCount(), once.NodeCount(), once.EdgeCount())
	}
	if _CountMode(once, ACCESS) != _CountMode(twice, ACCESS) {
		t.Errorf("repeated composition added access edges")
	}
}

func TestComposeEmptyTransit(t *testing.T) {
	walk := AnnotateSpeed(_LineGraph(4), WALK, nil)
	empty := NewGraphBuilder().Build()
	g := Connect(empty, walk, DefaultComposeOptions())

	if g.NodeCount() != walk.NodeCount() || g.EdgeCount() != walk.EdgeCount() {
		t.Errorf("got %v/%v nodes/edges; want %v/%v", g.NodeCount(), g.EdgeCount(), walk.NodeCount(), walk.EdgeCount())
	}
	for i, edge := range walk.Edges() {
		if g.GetEdge(i) != edge {
			t.Errorf("edge %v = %v; want %v", i, g.GetEdge(i), edge)
		}
	}
}

func TestComposeEmptyWalk(t *testing.T) {
	bus := AnnotateSpeed(_BusGraph(), BUS, nil)
	g := Compose([]*Graph{nil, bus}, DefaultComposeOptions())
	if c := _CountMode(g, ACCESS); c != 0 {
		t.Errorf("got %v access edges; want 0", c)
	}
}

func TestComposeRejectedConnections(t *testing.T) {
	walk := AnnotateSpeed(_LineGraph(4), WALK, nil)
	builder := NewGraphBuilder()
	// identical location as walk node 2
	builder.AddNode(0, TRAM, _At(200, 0))
	// far outside the pedestrian network
	builder.AddNode(1, TRAM, _At(5000, 5000))
	builder.AddEdge(NodeKey{TRAM, 0}, NodeKey{TRAM, 1}, TRAM, 7000)
	tram := AnnotateSpeed(builder.Build(), TRAM, nil)

	g := Connect(tram, walk, DefaultComposeOptions())
	if c := _CountMode(g, ACCESS); c != 0 {
		t.Errorf("got %v access edges; want 0", c)
	}
	if g.NodeCount() != 6 {
		t.Errorf("got %v nodes; want 6", g.NodeCount())
	}
}

func TestGetClosestNode(t *testing.T) {
	g := _LineGraph(4)
	id, dist, ok := g.GetClosestNode(_At(190, 10))
	if !ok || id != 2 {
		t.Fatalf("closest = %v; want 2", id)
	}
	if math.Abs(dist-math.Sqrt(200)) > 0.5 {
		t.Errorf("dist = %v; want ~14.1", dist)
	}

	empty := NewGraphBuilder().Build()
	if _, _, ok := empty.GetClosestNode(_At(0, 0)); ok {
		t.Errorf("found node in empty graph")
	}
}

func TestLargestComponent(t *testing.T) {
	builder := NewGraphBuilder()
	for i := 0; i < 5; i++ {
		builder.AddNode(int64(i), WALK, _At(float64(i)*100, 0))
	}
	builder.AddEdge(NodeKey{WALK, 0}, NodeKey{WALK, 1}, WALK, 100)
	builder.AddEdge(NodeKey{WALK, 2}, NodeKey{WALK, 1}, WALK, 100)
	builder.AddEdge(NodeKey{WALK, 3}, NodeKey{WALK, 4}, WALK, 100)
	g := LargestComponent(builder.Build(), nil)

	if g.NodeCount() != 3 || g.EdgeCount() != 2 {
		t.Errorf("got %v/%v nodes/edges; want 3/2", g.NodeCount(), g.EdgeCount())
	}
	if _, ok := g.GetNodeIndex(NodeKey{WALK, 4}); ok {
		t.Errorf("node 4 should be removed")
	}
}

func TestEncodeGraph(t *testing.T) {
	walk := AnnotateSpeed(_LineGraph(3), WALK, nil)
	g := Compose([]*Graph{walk, _BusGraph()}, DefaultComposeOptions())
	loaded, err := DecodeGraph(EncodeGraph(g))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loaded.NodeCount() != g.NodeCount() || loaded.EdgeCount() != g.EdgeCount() {
		t.Fatalf("got %v/%v nodes/edges; want %v/%v", loaded.NodeCount(), loaded.EdgeCount(), g.NodeCount(), g.EdgeCount())
	}
	for i, node := range g.Nodes() {
		if loaded.GetNode(i) != node {
			t.Errorf("node %v = %v; want %v", i, loaded.GetNode(i), node)
		}
	}
	for i, edge := range g.Edges() {
		if loaded.GetEdge(i) != edge {
			t.Errorf("edge %v = %v; want %v", i, loaded.GetEdge(i), edge)
		}
	}

	if _, err := DecodeGraph([]byte{1, 2, 3}); err == nil {
		t.Errorf("expected error for invalid data")
	}
}
