package graph

import (
	"math"

	"github.com/paulmach/orb"
	. "github.com/ttpr0/go-isometrics/util"
)

//*******************************************
// graph structs
//*******************************************

type Node struct {
	// identifier within the source graph of the nodes mode
	ID   int64
	Mode Mode
	Loc  orb.Point
}

func (self Node) Key() NodeKey {
	return NodeKey{Mode: self.Mode, ID: self.ID}
}

// Node identity across composed graphs.
//
// Identifiers of different mode graphs never collide.
type NodeKey struct {
	Mode Mode
	ID   int64
}

type Edge struct {
	NodeA int32
	NodeB int32
	Mode  Mode
	// length in meters, NaN if unknown
	Length float64
	// traversal cost in minutes, edges without cost are not traversable
	Cost Optional[float64]
}

func NewEdge(a, b int32, mode Mode, length float64) Edge {
	return Edge{
		NodeA:  a,
		NodeB:  b,
		Mode:   mode,
		Length: length,
		Cost:   None[float64](),
	}
}

func (self Edge) HasLength() bool {
	return !math.IsNaN(self.Length)
}

//*******************************************
// edgeref struct
//*******************************************

type EdgeRef struct {
	EdgeID  int32
	OtherID int32
}
