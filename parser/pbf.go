package parser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/ttpr0/go-isometrics/graph"
	"golang.org/x/exp/slog"
)

//*******************************************
// pbf source
//*******************************************

// PBFSource reads mode graphs from local osm extracts at
// <data>/<city>/<city>.osm.pbf.
type PBFSource struct {
	DataPath string
	Logger   *slog.Logger
}

func NewPBFSource(data_path string, logger *slog.Logger) *PBFSource {
	return &PBFSource{DataPath: data_path, Logger: logger}
}

func (self *PBFSource) File(region Region) string {
	return filepath.Join(self.DataPath, region.Name, region.Name+".osm.pbf")
}

func (self *PBFSource) Acquire(ctx context.Context, region Region, mode graph.Mode) (*graph.Graph, error) {
	logger := _Logger(self.Logger).With("source", "pbf", "city", region.Name, "mode", mode.String())
	start := time.Now()
	logger.Info("acquire started")

	filter, ok := FilterForMode(mode)
	if !ok {
		return nil, _NewFetchError("pbf", NOT_FOUND, fmt.Errorf("no filter for mode %s", mode))
	}
	file, err := os.Open(self.File(region))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, _NewFetchError("pbf", NOT_FOUND, err)
		}
		return nil, _NewFetchError("pbf", UNREACHABLE, err)
	}
	defer file.Close()

	g, ways, err := _ParsePBF(ctx, file, mode, filter)
	if err != nil {
		if ctx.Err() != nil {
			return nil, _NewFetchError("pbf", TIMEOUT, err)
		}
		return nil, _NewFetchError("pbf", MALFORMED_PAYLOAD, err)
	}
	g, err = _FinishGraph(g, mode, logger)
	if err != nil {
		return nil, _NewFetchError("pbf", EMPTY_RESPONSE, err)
	}
	logger.Info("acquire finished", "ways", ways, "nodes", g.NodeCount(), "edges", g.EdgeCount(), "elapsed", time.Since(start))
	return g, nil
}

// Scans the extract three times: counting way nodes, collecting node
// locations and splitting ways into edges.
func _ParsePBF(ctx context.Context, file io.ReadSeeker, mode graph.Mode, filter TagFilter) (*graph.Graph, int, error) {
	builder := _NewOSMGraphBuilder(mode, filter)

	passes := []func(*osmpbf.Scanner){
		func(scanner *osmpbf.Scanner) {
			scanner.SkipNodes = true
			scanner.SkipRelations = true
			for scanner.Scan() {
				if way, ok := scanner.Object().(*osm.Way); ok {
					builder.CountWay(way)
				}
			}
		},
		func(scanner *osmpbf.Scanner) {
			scanner.SkipWays = true
			scanner.SkipRelations = true
			for scanner.Scan() {
				if node, ok := scanner.Object().(*osm.Node); ok {
					builder.SetNode(node)
				}
			}
		},
		func(scanner *osmpbf.Scanner) {
			scanner.SkipNodes = true
			scanner.SkipRelations = true
			for scanner.Scan() {
				if way, ok := scanner.Object().(*osm.Way); ok {
					builder.AddWay(way)
				}
			}
		},
	}
	for _, pass := range passes {
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			return nil, 0, err
		}
		scanner := osmpbf.New(ctx, file, runtime.GOMAXPROCS(-1))
		pass(scanner)
		err := scanner.Err()
		scanner.Close()
		if err != nil {
			return nil, 0, err
		}
	}
	return builder.Build(), builder.WayCount(), nil
}

// Prunes walk graphs to their largest component and rejects empty graphs.
func _FinishGraph(g *graph.Graph, mode graph.Mode, logger *slog.Logger) (*graph.Graph, error) {
	if g.IsEmpty() {
		return nil, fmt.Errorf("no %s ways found", mode)
	}
	if mode == graph.WALK {
		g = graph.LargestComponent(g, logger)
	}
	return g, nil
}

func _Logger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
