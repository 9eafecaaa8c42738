package graph

import (
	"encoding/json"
	"errors"

	"gopkg.in/yaml.v3"
)

//*******************************************
// enums
//*******************************************

type Direction byte

const (
	BACKWARD Direction = 0
	FORWARD  Direction = 1
)

type Adjacency byte

const (
	// only edges with a traversal cost
	ADJACENT_EDGES Adjacency = 0
	// every edge, including edges without cost
	ADJACENT_ALL Adjacency = 2
)

//*******************************************
// modes
//*******************************************

type Mode byte

const (
	UNKNOWN    Mode = 0
	WALK       Mode = 1
	BIKE       Mode = 2
	BUS        Mode = 3
	TRAM       Mode = 4
	SUBWAY     Mode = 5
	LIGHT_RAIL Mode = 6
	// zero-cost edge between a transit node and the pedestrian network
	ACCESS Mode = 7
)

// Modes a graph can be acquired for.
var MODES = []Mode{WALK, BIKE, BUS, TRAM, SUBWAY, LIGHT_RAIL}

func (self Mode) String() string {
	switch self {
	case WALK:
		return "walk"
	case BIKE:
		return "bike"
	case BUS:
		return "bus"
	case TRAM:
		return "tram"
	case SUBWAY:
		return "subway"
	case LIGHT_RAIL:
		return "light_rail"
	case ACCESS:
		return "access"
	}
	return ""
}

func ModeFromString(typ string) Mode {
	switch typ {
	case "walk":
		return WALK
	case "bike":
		return BIKE
	case "bus":
		return BUS
	case "tram":
		return TRAM
	case "subway":
		return SUBWAY
	case "light_rail":
		return LIGHT_RAIL
	case "access":
		return ACCESS
	}
	return UNKNOWN
}

// Transit modes are connected to the pedestrian network on composition.
func (self Mode) IsTransit() bool {
	switch self {
	case BUS, TRAM, SUBWAY, LIGHT_RAIL:
		return true
	}
	return false
}

func (self Mode) MarshalJSON() ([]byte, error) {
	return json.Marshal(self.String())
}
func (self *Mode) UnmarshalJSON(data []byte) error {
	var typ string
	if err := json.Unmarshal(data, &typ); err != nil {
		return err
	}
	mode := ModeFromString(typ)
	if mode == UNKNOWN {
		return errors.New("invalid mode: " + typ)
	}
	*self = mode
	return nil
}

func (self Mode) MarshalYAML() (any, error) {
	return self.String(), nil
}
func (self *Mode) UnmarshalYAML(value *yaml.Node) error {
	var typ string
	if err := value.Decode(&typ); err != nil {
		return err
	}
	mode := ModeFromString(typ)
	if mode == UNKNOWN {
		return errors.New("invalid mode: " + typ)
	}
	*self = mode
	return nil
}
