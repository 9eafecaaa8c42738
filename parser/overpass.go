package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"github.com/ttpr0/go-isometrics/graph"
	"golang.org/x/exp/slog"
)

//*******************************************
// overpass source
//*******************************************

const DEFAULT_OVERPASS_URL = "https://overpass-api.de/api/interpreter"

// OverpassSource downloads mode graphs from an overpass api.
type OverpassSource struct {
	URL            string
	RequestTimeout time.Duration
	MaxTries       uint
	RetryInterval  time.Duration
	Client         *http.Client
	Logger         *slog.Logger
}

func NewOverpassSource(base_url string, timeout time.Duration, logger *slog.Logger) *OverpassSource {
	if base_url == "" {
		base_url = DEFAULT_OVERPASS_URL
	}
	return &OverpassSource{
		URL:            base_url,
		RequestTimeout: timeout,
		MaxTries:       4,
		RetryInterval:  2 * time.Second,
		Client:         &http.Client{},
		Logger:         logger,
	}
}

// Builds the overpass query selecting all ways of a filter inside the bounding
// box together with their nodes.
func BuildQuery(filter TagFilter, bbox orb.Bound, timeout time.Duration) string {
	return fmt.Sprintf("[out:json][timeout:%d];(way%s(%s););(._;>;);out body;", _TimeoutSeconds(timeout), filter.OverpassQL(), _BBoxQL(bbox))
}

// Server side timeout of a query, 25 seconds if unset.
func _TimeoutSeconds(timeout time.Duration) int {
	seconds := int(timeout.Seconds())
	if seconds <= 0 {
		seconds = 25
	}
	return seconds
}

// Overpass expects south,west,north,east.
func _BBoxQL(bbox orb.Bound) string {
	return fmt.Sprintf("%v,%v,%v,%v", bbox.Min[1], bbox.Min[0], bbox.Max[1], bbox.Max[0])
}

func (self *OverpassSource) Acquire(ctx context.Context, region Region, mode graph.Mode) (*graph.Graph, error) {
	logger := _Logger(self.Logger).With("source", "overpass", "city", region.Name, "mode", mode.String())
	start := time.Now()
	logger.Info("acquire started")

	filter, ok := FilterForMode(mode)
	if !ok {
		return nil, _NewFetchError("overpass", NOT_FOUND, fmt.Errorf("no filter for mode %s", mode))
	}
	data, err := self.Query(ctx, BuildQuery(filter, region.BoundingBox, self.RequestTimeout))
	if err != nil {
		return nil, err
	}
	g, ways := _BuildFromOSM(data, mode, filter)
	g, err = _FinishGraph(g, mode, logger)
	if err != nil {
		return nil, _NewFetchError("overpass", EMPTY_RESPONSE, err)
	}
	logger.Info("acquire finished", "ways", ways, "nodes", g.NodeCount(), "edges", g.EdgeCount(), "elapsed", time.Since(start))
	return g, nil
}

// Runs an overpass query. Timeouts, rate limits and server errors are retried
// with exponential backoff.
func (self *OverpassSource) Query(ctx context.Context, query string) (*osm.OSM, error) {
	logger := _Logger(self.Logger)
	policy := backoff.NewExponentialBackOff()
	if self.RetryInterval > 0 {
		policy.InitialInterval = self.RetryInterval
	}
	tries := self.MaxTries
	if tries == 0 {
		tries = 1
	}
	notify := func(err error, wait time.Duration) {
		logger.Warn("overpass request failed, retrying", "error", err, "wait", wait)
	}
	data, err := backoff.Retry(ctx, func() (*osm.OSM, error) {
		return self._Request(ctx, query)
	}, backoff.WithBackOff(policy), backoff.WithMaxTries(tries), backoff.WithNotify(notify))
	if err != nil {
		return nil, _ClassifyError("overpass", err)
	}
	return data, nil
}

func (self *OverpassSource) _Request(ctx context.Context, query string) (*osm.OSM, error) {
	if self.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, self.RequestTimeout)
		defer cancel()
	}
	values := url.Values{}
	values.Set("data", query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, self.URL+"?"+values.Encode(), nil)
	if err != nil {
		return nil, backoff.Permanent(_NewFetchError("overpass", UNREACHABLE, err))
	}
	client := self.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, _ClassifyError("overpass", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusGatewayTimeout:
		return nil, _NewFetchError("overpass", TIMEOUT, fmt.Errorf("status %d", resp.StatusCode))
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, _NewFetchError("overpass", UNREACHABLE, fmt.Errorf("status %d", resp.StatusCode))
	case resp.StatusCode == http.StatusNotFound:
		return nil, backoff.Permanent(_NewFetchError("overpass", NOT_FOUND, fmt.Errorf("status %d", resp.StatusCode)))
	case resp.StatusCode != http.StatusOK:
		return nil, backoff.Permanent(_NewFetchError("overpass", MALFORMED_PAYLOAD, fmt.Errorf("status %d", resp.StatusCode)))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, _ClassifyError("overpass", err)
	}
	data := &osm.OSM{}
	if err := json.Unmarshal(body, data); err != nil {
		return nil, backoff.Permanent(_NewFetchError("overpass", MALFORMED_PAYLOAD, err))
	}
	if len(data.Nodes)+len(data.Ways)+len(data.Relations) == 0 {
		return nil, backoff.Permanent(_NewFetchError("overpass", EMPTY_RESPONSE, fmt.Errorf("no elements returned")))
	}
	return data, nil
}
