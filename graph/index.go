package graph

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/quadtree"
	"github.com/ttpr0/go-isometrics/geo"
)

// *******************************************
// graph index interface
// *******************************************

type IGraphIndex interface {
	// Returns the closest node and its planar distance in meters.
	GetClosestNode(point orb.Point) (int32, float64, bool)
	// Tests if the point lies within the indexed extent padded by tolerance (meters).
	Covers(point orb.Point, tolerance float64) bool
}

//*******************************************
// quadtree index
//*******************************************

type _IndexPoint struct {
	loc orb.Point
	id  int32
}

func (self _IndexPoint) Point() orb.Point {
	return self.loc
}

// Nearest-neighbor index over node locations projected to a local planar
// frame. Read-only after construction.
type QuadTreeIndex struct {
	tree  *quadtree.Quadtree
	proj  geo.IProjection
	bound orb.Bound
	empty bool
}

// Builds an index over the given lon/lat locations, ids are the slice positions
// unless ids is given.
func NewQuadTreeIndex(locs []orb.Point, ids []int32) *QuadTreeIndex {
	if len(locs) == 0 {
		return &QuadTreeIndex{empty: true}
	}
	proj := geo.ProjectionForBound(orb.MultiPoint(locs).Bound())
	projected := make([]orb.Point, len(locs))
	for i, loc := range locs {
		projected[i] = proj.Proj(loc)
	}
	bound := orb.MultiPoint(projected).Bound()
	tree := quadtree.New(bound.Pad(1))
	for i, p := range projected {
		id := int32(i)
		if ids != nil {
			id = ids[i]
		}
		tree.Add(_IndexPoint{loc: p, id: id})
	}
	return &QuadTreeIndex{
		tree:  tree,
		proj:  proj,
		bound: bound,
	}
}

func (self *QuadTreeIndex) GetClosestNode(point orb.Point) (int32, float64, bool) {
	if self.empty || math.IsNaN(point[0]) || math.IsNaN(point[1]) {
		return -1, 0, false
	}
	p := self.proj.Proj(point)
	found := self.tree.Find(p)
	if found == nil {
		return -1, 0, false
	}
	item := found.(_IndexPoint)
	return item.id, geo.PlanarDist(p, item.loc), true
}

func (self *QuadTreeIndex) Covers(point orb.Point, tolerance float64) bool {
	if self.empty {
		return false
	}
	return self.bound.Pad(tolerance).Contains(self.proj.Proj(point))
}
