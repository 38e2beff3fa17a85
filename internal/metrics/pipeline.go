package metrics

import "github.com/prometheus/client_golang/prometheus"

// Pipeline Prometheus metrics.
var (
	PipelineNodeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_node_duration_seconds",
			Help:      "Query graph node execution time in seconds",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"node", "status"}, // status: ok / stopped / error
	)

	IngestStagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_stages_total",
			Help:      "Ingestion stage outcomes",
		},
		[]string{"stage", "status"},
	)

	IngestChunksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_chunks_total",
			Help:      "Chunks inserted into the vector store",
		},
	)

	RetrievalEmptyTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrieval_empty_total",
			Help:      "Questions for which retrieval found no documents",
		},
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers graph and ingestion metrics. Must be called once from main.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(PipelineNodeDuration)
	prometheus.MustRegister(IngestStagesTotal)
	prometheus.MustRegister(IngestChunksTotal)
	prometheus.MustRegister(RetrievalEmptyTotal)
	pipelineMetricsRegistered = true
}
