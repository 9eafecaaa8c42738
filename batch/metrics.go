package batch

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds the prometheus metrics of batch runs.
type Collector struct {
	registry *prometheus.Registry

	Queries       *prometheus.CounterVec
	QueryDuration *prometheus.HistogramVec
	ReachedNodes  prometheus.Histogram
	Area          *prometheus.HistogramVec
}

// Creates a collector with its own registry.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	queries := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Total number of isochrone queries",
		},
		[]string{"city", "budget", "result"},
	)
	query_duration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      "Duration of one reachability query and its metrics",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		},
		[]string{"city", "budget"},
	)
	reached_nodes := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reached_nodes",
			Help:      "Number of nodes reached per query",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
		},
	)
	area := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "isochrone_area_sqkm",
			Help:      "Hull area of successful isochrones in square kilometers",
			Buckets:   prometheus.LinearBuckets(0, 5, 20),
		},
		[]string{"city", "budget"},
	)

	registry.MustRegister(queries, query_duration, reached_nodes, area)

	return &Collector{
		registry:      registry,
		Queries:       queries,
		QueryDuration: query_duration,
		ReachedNodes:  reached_nodes,
		Area:          area,
	}
}

func (self *Collector) Registry() *prometheus.Registry {
	return self.registry
}

// Writes the current metric values in text format, e.g. for the node
// exporter textfile collector.
func (self *Collector) WriteToFile(file string) error {
	return prometheus.WriteToTextfile(file, self.registry)
}
