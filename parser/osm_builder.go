package parser

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"github.com/ttpr0/go-isometrics/geo"
	"github.com/ttpr0/go-isometrics/graph"
	. "github.com/ttpr0/go-isometrics/util"
)

//*******************************************
// osm graph builder
//*******************************************

type _TempNode struct {
	Loc    orb.Point
	Count  int32
	HasLoc bool
}

// Builds a mode graph from osm ways. Ways are split into edges at every node
// shared by more than one way and at way endpoints.
//
// Usage: CountWay for every way, SetNode for every node, AddWay for every way.
type _OSMGraphBuilder struct {
	mode      graph.Mode
	filter    TagFilter
	osm_nodes Dict[int64, _TempNode]
	builder   *graph.GraphBuilder
	ways      int
}

func _NewOSMGraphBuilder(mode graph.Mode, filter TagFilter) *_OSMGraphBuilder {
	return &_OSMGraphBuilder{
		mode:      mode,
		filter:    filter,
		osm_nodes: NewDict[int64, _TempNode](1000),
		builder:   graph.NewGraphBuilder(),
	}
}

func (self *_OSMGraphBuilder) CountWay(way *osm.Way) {
	if len(way.Nodes) < 2 || !self.filter.Match(way.Tags) {
		return
	}
	self.ways += 1
	l := len(way.Nodes)
	for i := 0; i < l; i++ {
		ndref := int64(way.Nodes[i].ID)
		node := self.osm_nodes[ndref]
		node.Count += 1
		self.osm_nodes[ndref] = node
	}
	first := int64(way.Nodes[0].ID)
	last := int64(way.Nodes[l-1].ID)
	node_a := self.osm_nodes[first]
	node_a.Count += 1
	self.osm_nodes[first] = node_a
	node_b := self.osm_nodes[last]
	node_b.Count += 1
	self.osm_nodes[last] = node_b
}

func (self *_OSMGraphBuilder) SetNode(node *osm.Node) {
	id := int64(node.ID)
	on, ok := self.osm_nodes[id]
	if !ok {
		return
	}
	on.Loc = orb.Point{node.Lon, node.Lat}
	on.HasLoc = true
	self.osm_nodes[id] = on
}

// Nodes without a location end the current edge.
func (self *_OSMGraphBuilder) AddWay(way *osm.Way) {
	if len(way.Nodes) < 2 || !self.filter.Match(way.Tags) {
		return
	}
	start := int64(0)
	has_start := false
	length := 0.0
	var prev orb.Point
	for _, way_node := range way.Nodes {
		curr := int64(way_node.ID)
		on, ok := self.osm_nodes[curr]
		if !ok || !on.HasLoc {
			has_start = false
			continue
		}
		if !has_start {
			start = curr
			has_start = true
			length = 0
			prev = on.Loc
			continue
		}
		length += geo.Haversine(prev, on.Loc)
		prev = on.Loc
		if on.Count > 1 {
			self._AddSegment(start, curr, length)
			start = curr
			length = 0
		}
	}
}

func (self *_OSMGraphBuilder) _AddSegment(start, end int64, length float64) {
	if start == end {
		return
	}
	self.builder.AddNode(start, self.mode, self.osm_nodes[start].Loc)
	self.builder.AddNode(end, self.mode, self.osm_nodes[end].Loc)
	key_a := graph.NodeKey{Mode: self.mode, ID: start}
	key_b := graph.NodeKey{Mode: self.mode, ID: end}
	self.builder.AddUndirectedEdge(key_a, key_b, self.mode, length)
}

func (self *_OSMGraphBuilder) WayCount() int {
	return self.ways
}

func (self *_OSMGraphBuilder) Build() *graph.Graph {
	return self.builder.Build()
}

// Builds a mode graph from an in-memory osm dataset.
func _BuildFromOSM(data *osm.OSM, mode graph.Mode, filter TagFilter) (*graph.Graph, int) {
	builder := _NewOSMGraphBuilder(mode, filter)
	for _, way := range data.Ways {
		builder.CountWay(way)
	}
	for _, node := range data.Nodes {
		builder.SetNode(node)
	}
	for _, way := range data.Ways {
		builder.AddWay(way)
	}
	return builder.Build(), builder.WayCount()
}
