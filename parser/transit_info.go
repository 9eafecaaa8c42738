package parser

import (
	"context"
	"fmt"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/osm"
	"github.com/ttpr0/go-isometrics/graph"
	. "github.com/ttpr0/go-isometrics/util"
)

//*******************************************
// transit routes and stations
//*******************************************

// ITransitInfoSource provides the route relations and stations of a transit
// mode. Both are returned as geojson, routes as one MultiLineString per
// relation and stations as points.
//
// Failures are reported as *FetchError, a region without any element gives
// EMPTY_RESPONSE.
type ITransitInfoSource interface {
	Routes(ctx context.Context, region Region, mode graph.Mode) (*geojson.FeatureCollection, error)
	Stations(ctx context.Context, region Region, mode graph.Mode) (*geojson.FeatureCollection, error)
}

var _ ITransitInfoSource = &OverpassSource{}

var _STATION_FILTERS = map[graph.Mode]TagFilter{
	graph.BUS: {
		Equal("highway", "bus_stop"),
	},
	graph.LIGHT_RAIL: {
		Match("railway", "station|halt"),
		Equal("station", "light_rail"),
	},
	graph.SUBWAY: {
		Match("railway", "station|halt"),
		Equal("station", "subway"),
	},
	graph.TRAM: {
		Equal("railway", "tram_stop"),
	},
}

// Returns the station node filter of a transit mode.
func StationFilterForMode(mode graph.Mode) (TagFilter, bool) {
	filter, ok := _STATION_FILTERS[mode]
	return filter, ok
}

// Selects the route relations of a mode together with their ways and nodes.
func RouteQuery(mode graph.Mode, bbox orb.Bound, timeout time.Duration) string {
	filter := TagFilter{Equal("route", mode.String())}
	return fmt.Sprintf("[out:json][timeout:%d];(relation%s(%s););(._;>;);out body;", _TimeoutSeconds(timeout), filter.OverpassQL(), _BBoxQL(bbox))
}

// Selects the nodes of a filter.
func StationQuery(filter TagFilter, bbox orb.Bound, timeout time.Duration) string {
	return fmt.Sprintf("[out:json][timeout:%d];(node%s(%s););out body;", _TimeoutSeconds(timeout), filter.OverpassQL(), _BBoxQL(bbox))
}

func (self *OverpassSource) Routes(ctx context.Context, region Region, mode graph.Mode) (*geojson.FeatureCollection, error) {
	logger := _Logger(self.Logger).With("source", "overpass", "city", region.Name, "mode", mode.String())
	if !mode.IsTransit() {
		return nil, _NewFetchError("overpass", NOT_FOUND, fmt.Errorf("no routes for mode %s", mode))
	}
	start := time.Now()
	data, err := self.Query(ctx, RouteQuery(mode, region.BoundingBox, self.RequestTimeout))
	if err != nil {
		return nil, err
	}
	routes := _BuildRoutes(data)
	if len(routes.Features) == 0 {
		return nil, _NewFetchError("overpass", EMPTY_RESPONSE, fmt.Errorf("no route relations"))
	}
	logger.Info("routes loaded", "routes", len(routes.Features), "elapsed", time.Since(start))
	return routes, nil
}

func (self *OverpassSource) Stations(ctx context.Context, region Region, mode graph.Mode) (*geojson.FeatureCollection, error) {
	logger := _Logger(self.Logger).With("source", "overpass", "city", region.Name, "mode", mode.String())
	filter, ok := StationFilterForMode(mode)
	if !ok {
		return nil, _NewFetchError("overpass", NOT_FOUND, fmt.Errorf("no stations for mode %s", mode))
	}
	start := time.Now()
	data, err := self.Query(ctx, StationQuery(filter, region.BoundingBox, self.RequestTimeout))
	if err != nil {
		return nil, err
	}
	stations := _BuildStations(data, filter)
	if len(stations.Features) == 0 {
		return nil, _NewFetchError("overpass", EMPTY_RESPONSE, fmt.Errorf("no stations"))
	}
	logger.Info("stations loaded", "stations", len(stations.Features), "elapsed", time.Since(start))
	return stations, nil
}

// One MultiLineString per route relation built from its way members. Ways
// with less than two known nodes are left out, relations without any line
// are skipped.
func _BuildRoutes(data *osm.OSM) *geojson.FeatureCollection {
	locs := NewDict[int64, orb.Point](len(data.Nodes))
	for _, node := range data.Nodes {
		locs[int64(node.ID)] = orb.Point{node.Lon, node.Lat}
	}
	ways := NewDict[int64, *osm.Way](len(data.Ways))
	for _, way := range data.Ways {
		ways[int64(way.ID)] = way
	}

	routes := geojson.NewFeatureCollection()
	for _, relation := range data.Relations {
		lines := orb.MultiLineString{}
		for _, member := range relation.Members {
			if member.Type != osm.TypeWay {
				continue
			}
			way, ok := ways[member.Ref]
			if !ok {
				continue
			}
			line := make(orb.LineString, 0, len(way.Nodes))
			for _, way_node := range way.Nodes {
				if loc, ok := locs[int64(way_node.ID)]; ok {
					line = append(line, loc)
				}
			}
			if len(line) >= 2 {
				lines = append(lines, line)
			}
		}
		if len(lines) == 0 {
			continue
		}
		feature := geojson.NewFeature(lines)
		feature.ID = int64(relation.ID)
		_SetTags(feature, relation.Tags, "route", "ref", "name", "operator")
		routes.Append(feature)
	}
	return routes
}

func _BuildStations(data *osm.OSM, filter TagFilter) *geojson.FeatureCollection {
	stations := geojson.NewFeatureCollection()
	for _, node := range data.Nodes {
		if !filter.Match(node.Tags) {
			continue
		}
		feature := geojson.NewFeature(orb.Point{node.Lon, node.Lat})
		feature.ID = int64(node.ID)
		_SetTags(feature, node.Tags, "name")
		stations.Append(feature)
	}
	return stations
}

func _SetTags(feature *geojson.Feature, tags osm.Tags, keys ...string) {
	for _, key := range keys {
		if value := tags.Find(key); value != "" {
			feature.Properties[key] = value
		}
	}
}
