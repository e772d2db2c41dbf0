package graph

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics holds the Prometheus counters for the graph core, registered with
// promauto under the graph_core namespace.
var metrics = struct {
	PagesWritten   prometheus.Counter
	EdgesWritten   *prometheus.CounterVec
	StreamChunks   *prometheus.CounterVec
	StreamErrors   *prometheus.CounterVec
}{
	PagesWritten: promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "graph_core",
		Name:      "pages_written_total",
		Help:      "Number of graph_edge_page rows written by CreateEdges (one per distinct page a call touches).",
	}),
	EdgesWritten: promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "graph_core",
		Name:      "edges_written_total",
		Help:      "Number of (source, target) pairs written by CreateEdges, by edge type and direction.",
	}, []string{"edge_type", "direction"}),
	StreamChunks: promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "graph_core",
		Name:      "stream_chunks_total",
		Help:      "Number of PK-map lookup chunks issued while streaming traversal results.",
	}, []string{"edge_type", "direction"}),
	StreamErrors: promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "graph_core",
		Name:      "stream_errors_total",
		Help:      "Number of traversal streams that terminated because a PK-map lookup chunk failed.",
	}, []string{"edge_type", "direction"}),
}

func directionLabel(directionOut bool) string {
	if directionOut {
		return "out"
	}
	return "in"
}
