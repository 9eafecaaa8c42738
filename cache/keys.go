package cache

import (
	"fmt"
	"path"

	"github.com/ttpr0/go-isometrics/graph"
)

//*******************************************
// cache keys
//*******************************************

// GraphKey identifies a mode graph of a city. Graphs of windowed sources
// (timetables) are further keyed by their time window in seconds of day.
type GraphKey struct {
	City     string
	Mode     graph.Mode
	Windowed bool
	Start    int
	End      int
}

func (self GraphKey) Path() string {
	name := self.Mode.String()
	if self.Windowed {
		name = fmt.Sprintf("%s-%d-%d", name, self.Start, self.End)
	}
	return path.Join(self.City, "graphs", name)
}

// CityKey identifies per-city values such as sample points.
type CityKey struct {
	City string
	Name string
}

func (self CityKey) Path() string {
	return path.Join(self.City, self.Name)
}
