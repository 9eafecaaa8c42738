package parser

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bluele/gcache"
	"github.com/paulmach/orb"
	"github.com/ttpr0/go-isometrics/geo"
	"github.com/ttpr0/go-isometrics/graph"
	. "github.com/ttpr0/go-isometrics/util"
	"golang.org/x/exp/slices"
	"golang.org/x/exp/slog"
)

//*******************************************
// gtfs structs
//*******************************************

type GTFSStop struct {
	StopID string  `csv:"stop_id"`
	Name   string  `csv:"stop_name"`
	Lat    float64 `csv:"stop_lat"`
	Lon    float64 `csv:"stop_lon"`
}

type GTFSRoute struct {
	RouteID   string `csv:"route_id"`
	RouteType int    `csv:"route_type"`
}

type GTFSTrip struct {
	RouteID string `csv:"route_id"`
	TripID  string `csv:"trip_id"`
}

type GTFSStopTime struct {
	TripID        string `csv:"trip_id"`
	ArrivalTime   string `csv:"arrival_time"`
	DepartureTime string `csv:"departure_time"`
	StopID        string `csv:"stop_id"`
	StopSequence  int    `csv:"stop_sequence"`
}

// GTFSFeed holds the tables of a feed needed to build transit graphs.
type GTFSFeed struct {
	Stops      List[GTFSStop]
	StopIndex  Dict[string, int64]
	RouteModes Dict[string, graph.Mode]
	TripRoutes Dict[string, string]
	StopTimes  Dict[string, List[GTFSStopTime]]
}

// Maps basic and extended gtfs route types to modes.
func ModeFromRouteType(route_type int) graph.Mode {
	switch {
	case route_type == 0:
		return graph.TRAM
	case route_type == 1:
		return graph.SUBWAY
	case route_type == 2:
		return graph.LIGHT_RAIL
	case route_type == 3:
		return graph.BUS
	case route_type >= 100 && route_type < 200:
		return graph.LIGHT_RAIL
	case route_type >= 400 && route_type < 500:
		return graph.SUBWAY
	case route_type >= 700 && route_type < 800:
		return graph.BUS
	case route_type >= 900 && route_type < 1000:
		return graph.TRAM
	}
	return graph.UNKNOWN
}

// Parses gtfs times of the form H:MM:SS. Hours may exceed 24.
func ParseGTFSTime(value string) (int, bool) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) != 3 {
		return 0, false
	}
	seconds := 0
	for _, part := range parts {
		num, err := strconv.Atoi(part)
		if err != nil || num < 0 {
			return 0, false
		}
		seconds = seconds*60 + num
	}
	return seconds, true
}

//*******************************************
// gtfs reader
//*******************************************

// Reads stops.txt, routes.txt, trips.txt and stop_times.txt from a gtfs archive.
func ReadGTFS(file string) (*GTFSFeed, error) {
	archive, err := zip.OpenReader(file)
	if err != nil {
		return nil, err
	}
	defer archive.Close()

	feed := &GTFSFeed{
		Stops:      NewList[GTFSStop](1000),
		StopIndex:  NewDict[string, int64](1000),
		RouteModes: NewDict[string, graph.Mode](100),
		TripRoutes: NewDict[string, string](1000),
		StopTimes:  NewDict[string, List[GTFSStopTime]](1000),
	}
	found := NewDict[string, bool](4)
	for _, f := range archive.File {
		name := strings.ToLower(path.Base(f.Name))
		reader, err := f.Open()
		if err != nil {
			return nil, err
		}
		switch name {
		case "stops.txt":
			for stop := range ReadCSV[GTFSStop](reader, ',') {
				if feed.StopIndex.ContainsKey(stop.StopID) {
					continue
				}
				feed.StopIndex[stop.StopID] = int64(feed.Stops.Length())
				feed.Stops.Add(stop)
			}
		case "routes.txt":
			for route := range ReadCSV[GTFSRoute](reader, ',') {
				feed.RouteModes[route.RouteID] = ModeFromRouteType(route.RouteType)
			}
		case "trips.txt":
			for trip := range ReadCSV[GTFSTrip](reader, ',') {
				feed.TripRoutes[trip.TripID] = trip.RouteID
			}
		case "stop_times.txt":
			for stop_time := range ReadCSV[GTFSStopTime](reader, ',') {
				times := feed.StopTimes[stop_time.TripID]
				times.Add(stop_time)
				feed.StopTimes[stop_time.TripID] = times
			}
		}
		reader.Close()
		found[name] = true
	}
	for _, name := range []string{"stops.txt", "routes.txt", "trips.txt", "stop_times.txt"} {
		if !found[name] {
			return nil, fmt.Errorf("missing %s", name)
		}
	}
	for trip, times := range feed.StopTimes {
		slices.SortFunc(times, func(a, b GTFSStopTime) int {
			return a.StopSequence - b.StopSequence
		})
		feed.StopTimes[trip] = times
	}
	return feed, nil
}

// Builds the graph of one mode from all trips departing inside [start, end]
// (seconds of day). Consecutive stops of a trip are connected by one edge per
// direction of travel, its length given by the great-circle distance.
func BuildTransitGraph(feed *GTFSFeed, mode graph.Mode, start, end int) *graph.Graph {
	builder := graph.NewGraphBuilder()
	seen := NewDict[Tuple[int64, int64], bool](1000)
	for trip, times := range feed.StopTimes {
		if feed.RouteModes[feed.TripRoutes[trip]] != mode {
			continue
		}
		for i := 0; i+1 < times.Length(); i++ {
			from := times[i]
			to := times[i+1]
			departure, ok := ParseGTFSTime(from.DepartureTime)
			if !ok {
				departure, ok = ParseGTFSTime(from.ArrivalTime)
			}
			if !ok || departure < start || departure > end {
				continue
			}
			id_a, ok_a := feed.StopIndex[from.StopID]
			id_b, ok_b := feed.StopIndex[to.StopID]
			if !ok_a || !ok_b || id_a == id_b {
				continue
			}
			key := MakeTuple(id_a, id_b)
			if seen[key] {
				continue
			}
			seen[key] = true
			stop_a := feed.Stops[id_a]
			stop_b := feed.Stops[id_b]
			loc_a := orb.Point{stop_a.Lon, stop_a.Lat}
			loc_b := orb.Point{stop_b.Lon, stop_b.Lat}
			builder.AddNode(id_a, mode, loc_a)
			builder.AddNode(id_b, mode, loc_b)
			builder.AddEdge(graph.NodeKey{Mode: mode, ID: id_a}, graph.NodeKey{Mode: mode, ID: id_b}, mode, geo.Haversine(loc_a, loc_b))
		}
	}
	return builder.Build()
}

//*******************************************
// gtfs source
//*******************************************

// GTFSSource builds transit graphs from the feed at
// <data>/<transport-association>/gtfs/GTFS.zip restricted to a time window.
//
// Parsed feeds are kept in memory so acquiring several modes and windows reads
// the archive once.
type GTFSSource struct {
	DataPath string
	Start    int
	End      int
	Logger   *slog.Logger
	feeds    gcache.Cache
}

func NewGTFSSource(data_path string, start, end int, logger *slog.Logger) *GTFSSource {
	feeds := gcache.New(4).LRU().LoaderFunc(func(key interface{}) (interface{}, error) {
		return ReadGTFS(key.(string))
	}).Build()
	return &GTFSSource{
		DataPath: data_path,
		Start:    start,
		End:      end,
		Logger:   logger,
		feeds:    feeds,
	}
}

// Returns a source sharing the parsed feeds for another time window.
func (self *GTFSSource) WithWindow(start, end int) *GTFSSource {
	return &GTFSSource{
		DataPath: self.DataPath,
		Start:    start,
		End:      end,
		Logger:   self.Logger,
		feeds:    self.feeds,
	}
}

func (self *GTFSSource) File(region Region) string {
	association := region.TransportAssociation
	if association == "" {
		association = region.Name
	}
	return filepath.Join(self.DataPath, association, "gtfs", "GTFS.zip")
}

func (self *GTFSSource) HasFeed(region Region) bool {
	return FileExists(self.File(region))
}

func (self *GTFSSource) Acquire(ctx context.Context, region Region, mode graph.Mode) (*graph.Graph, error) {
	logger := _Logger(self.Logger).With("source", "gtfs", "city", region.Name, "mode", mode.String(), "start", self.Start, "end", self.End)
	start := time.Now()
	logger.Info("acquire started")

	if !mode.IsTransit() {
		return nil, _NewFetchError("gtfs", NOT_FOUND, fmt.Errorf("mode %s is not served by gtfs feeds", mode))
	}
	if err := ctx.Err(); err != nil {
		return nil, _NewFetchError("gtfs", TIMEOUT, err)
	}
	file := self.File(region)
	value, err := self.feeds.Get(file)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, _NewFetchError("gtfs", NOT_FOUND, err)
		}
		return nil, _NewFetchError("gtfs", MALFORMED_PAYLOAD, err)
	}
	g := BuildTransitGraph(value.(*GTFSFeed), mode, self.Start, self.End)
	if g.IsEmpty() {
		return nil, _NewFetchError("gtfs", EMPTY_RESPONSE, fmt.Errorf("no %s trips between %d and %d", mode, self.Start, self.End))
	}
	logger.Info("acquire finished", "nodes", g.NodeCount(), "edges", g.EdgeCount(), "elapsed", time.Since(start))
	return g, nil
}
