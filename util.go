package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

// Parses "lon,lat".
func ParsePlace(value string) (orb.Point, error) {
	tokens := strings.Split(value, ",")
	if len(tokens) != 2 {
		return orb.Point{}, fmt.Errorf("invalid place %q, expected lon,lat", value)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(tokens[0]), 64)
	if err != nil {
		return orb.Point{}, fmt.Errorf("invalid longitude: %w", err)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(tokens[1]), 64)
	if err != nil {
		return orb.Point{}, fmt.Errorf("invalid latitude: %w", err)
	}
	if lon < -180 || lon > 180 || lat < -90 || lat > 90 {
		return orb.Point{}, fmt.Errorf("place %q out of range", value)
	}
	return orb.Point{lon, lat}, nil
}

// Repeatable string flag.
type StringsFlag []string

func (self *StringsFlag) String() string {
	return strings.Join(*self, ",")
}

func (self *StringsFlag) Set(value string) error {
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			*self = append(*self, v)
		}
	}
	return nil
}
