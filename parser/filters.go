package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/paulmach/osm"
	"github.com/ttpr0/go-isometrics/graph"
	. "github.com/ttpr0/go-isometrics/util"
)

//*******************************************
// tag filters
//*******************************************

type TagOperator byte

const (
	TAG_EXISTS    TagOperator = 0
	TAG_EQUAL     TagOperator = 1
	TAG_NOT_EQUAL TagOperator = 2
	TAG_MATCH     TagOperator = 3
	TAG_NOT_MATCH TagOperator = 4
)

// TagCondition is a single overpass style tag predicate.
type TagCondition struct {
	Key      string
	Operator TagOperator
	Value    string
	regex    *regexp.Regexp
}

func Exists(key string) TagCondition {
	return TagCondition{Key: key, Operator: TAG_EXISTS}
}
func Equal(key, value string) TagCondition {
	return TagCondition{Key: key, Operator: TAG_EQUAL, Value: value}
}
func NotEqual(key, value string) TagCondition {
	return TagCondition{Key: key, Operator: TAG_NOT_EQUAL, Value: value}
}
func Match(key, pattern string) TagCondition {
	return TagCondition{Key: key, Operator: TAG_MATCH, Value: pattern, regex: regexp.MustCompile(pattern)}
}
func NotMatch(key, pattern string) TagCondition {
	return TagCondition{Key: key, Operator: TAG_NOT_MATCH, Value: pattern, regex: regexp.MustCompile(pattern)}
}

// Negated conditions hold for objects missing the key, as in overpass.
func (self TagCondition) Match(tags osm.Tags) bool {
	has := tags.HasTag(self.Key)
	value := tags.Find(self.Key)
	switch self.Operator {
	case TAG_EXISTS:
		return has
	case TAG_EQUAL:
		return has && value == self.Value
	case TAG_NOT_EQUAL:
		return !has || value != self.Value
	case TAG_MATCH:
		return has && self.regex.MatchString(value)
	case TAG_NOT_MATCH:
		return !has || !self.regex.MatchString(value)
	}
	return false
}

func (self TagCondition) OverpassQL() string {
	switch self.Operator {
	case TAG_EXISTS:
		return fmt.Sprintf(`["%s"]`, self.Key)
	case TAG_EQUAL:
		return fmt.Sprintf(`["%s"="%s"]`, self.Key, self.Value)
	case TAG_NOT_EQUAL:
		return fmt.Sprintf(`["%s"!="%s"]`, self.Key, self.Value)
	case TAG_MATCH:
		return fmt.Sprintf(`["%s"~"%s"]`, self.Key, self.Value)
	case TAG_NOT_MATCH:
		return fmt.Sprintf(`["%s"!~"%s"]`, self.Key, self.Value)
	}
	return ""
}

// TagFilter is a conjunction of tag conditions selecting the ways of a mode.
type TagFilter List[TagCondition]

func (self TagFilter) Match(tags osm.Tags) bool {
	for _, cond := range self {
		if !cond.Match(tags) {
			return false
		}
	}
	return true
}

func (self TagFilter) OverpassQL() string {
	var builder strings.Builder
	for _, cond := range self {
		builder.WriteString(cond.OverpassQL())
	}
	return builder.String()
}

var _FILTERS = map[graph.Mode]TagFilter{
	graph.WALK: {
		Exists("highway"),
		NotMatch("area", "yes"),
		NotMatch("highway", "abandoned|bus_guideway|construction|cycleway|motor|planned|platform|proposed|raceway"),
		NotMatch("foot", "no"),
		NotMatch("service", "private"),
		NotMatch("access", "private"),
	},
	graph.BIKE: {
		Exists("highway"),
		NotMatch("area", "yes"),
		NotMatch("highway", "abandoned|bus_guideway|construction|corridor|elevator|escalator|footway|motor|planned|platform|proposed|raceway|steps"),
		NotMatch("bicycle", "no"),
		NotMatch("service", "private"),
		NotMatch("access", "private"),
	},
	graph.BUS: {
		Match("highway", "secondary|tertiary|residential|bus_stop"),
	},
	graph.LIGHT_RAIL: {
		Match("railway", "light_rail|station"),
		NotEqual("railway", "light_rail_entrance"),
		NotEqual("railway", "service_station"),
		NotEqual("station", "subway"),
	},
	graph.SUBWAY: {
		Match("railway", "subway|station"),
		NotEqual("railway", "subway_entrance"),
		NotEqual("railway", "service_station"),
		NotEqual("station", "light_rail"),
		NotEqual("service", "yard"),
	},
	graph.TRAM: {
		Match("railway", "tram|tram_stop"),
		NotEqual("railway", "tram_crossing"),
		NotEqual("train", "yes"),
		NotEqual("station", "subway"),
		NotEqual("station", "light_rail"),
	},
}

// Returns the way filter of a mode.
func FilterForMode(mode graph.Mode) (TagFilter, bool) {
	filter, ok := _FILTERS[mode]
	return filter, ok
}
