package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	QueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "logos_rag_query_duration_seconds",
			Help:    "Query processing duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"query_type"},
	)

	QueryTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logos_rag_query_total",
			Help: "Total number of queries processed",
		},
		[]string{"status"},
	)

	VectorResultsCount = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "logos_rag_vector_results_count",
			Help:    "Number of vector results per query",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
		},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logos_rag_cache_hits_total",
			Help: "Total cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logos_rag_cache_misses_total",
			Help: "Total cache misses",
		},
		[]string{"cache_type"},
	)

	DocumentsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logos_rag_documents_processed_total",
			Help: "Total documents processed by ingestion outcome",
		},
		[]string{"outcome"},
	)

	ChunksDeduplicated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "logos_rag_chunks_deduplicated_total",
			Help: "Chunks skipped because an identical chunk was already stored",
		},
	)

	ReferencesIndexed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "logos_rag_references_indexed_total",
			Help: "Scripture reference rows written to the index",
		},
	)

	UnparsedReferences = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "logos_rag_unparsed_references_total",
			Help: "Reference candidates that matched a pattern but failed normalization",
		},
	)

	ConceptsIndexed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "logos_rag_concepts_indexed_total",
			Help: "Concept rows written to the index",
		},
	)

	LLMTokensUsed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logos_rag_llm_tokens_used",
			Help: "Total LLM tokens used",
		},
		[]string{"model", "type"},
	)
)

func Init() {
	prometheus.MustRegister(QueryDuration)
	prometheus.MustRegister(QueryTotal)
	prometheus.MustRegister(VectorResultsCount)
	prometheus.MustRegister(CacheHits)
	prometheus.MustRegister(CacheMisses)
	prometheus.MustRegister(DocumentsProcessed)
	prometheus.MustRegister(ChunksDeduplicated)
	prometheus.MustRegister(ReferencesIndexed)
	prometheus.MustRegister(UnparsedReferences)
	prometheus.MustRegister(ConceptsIndexed)
	prometheus.MustRegister(LLMTokensUsed)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
