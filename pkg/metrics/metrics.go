// Package metrics defines the Prometheus metric collectors used by the Q&A
// service and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the service.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestsInFlight prometheus.Gauge
	HTTPRequestDuration  *prometheus.HistogramVec
	QuestionsTotal       *prometheus.CounterVec
	AnswerLatency        *prometheus.HistogramVec
	RetrievalFallbacks   *prometheus.CounterVec
	GenerationTotal      *prometheus.CounterVec
	GenerationFallbacks  prometheus.Counter
	CacheHitsTotal       *prometheus.CounterVec
	CacheMissesTotal     prometheus.Counter
	CorpusLoadsTotal     *prometheus.CounterVec
	CorpusSizeChars      prometheus.Gauge
	ChunksIngestedTotal  prometheus.Counter
}

// New creates the collectors and registers them with the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates the collectors and registers them with reg.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"method", "path"},
		),
		QuestionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "qa_questions_total",
				Help: "Total questions by outcome (answered, fallback, invalid, error).",
			},
			[]string{"outcome"},
		),
		AnswerLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "qa_answer_latency_seconds",
				Help:    "End-to-end answer latency in seconds.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"cache_status"},
		),
		RetrievalFallbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "qa_retrieval_fallbacks_total",
				Help: "Retrievals that produced no scoring unit, by ranker mode.",
			},
			[]string{"mode"},
		),
		GenerationTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "qa_generation_total",
				Help: "Generation calls by provider and status.",
			},
			[]string{"provider", "status"},
		),
		GenerationFallbacks: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "qa_generation_fallbacks_total",
				Help: "Answers served by the fallback generator.",
			},
		),
		CacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "qa_cache_hits_total",
				Help: "Answer cache hits by tier (memory, redis).",
			},
			[]string{"tier"},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "qa_cache_misses_total",
				Help: "Total number of answer cache misses.",
			},
		),
		CorpusLoadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "qa_corpus_loads_total",
				Help: "Corpus loads by source (cache, seed, remote) and status.",
			},
			[]string{"source", "status"},
		),
		CorpusSizeChars: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "qa_corpus_size_chars",
				Help: "Size of the loaded corpus in characters.",
			},
		),
		ChunksIngestedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "qa_chunks_ingested_total",
				Help: "Total chunks upserted into the vector store.",
			},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestsInFlight,
		m.HTTPRequestDuration,
		m.QuestionsTotal,
		m.AnswerLatency,
		m.RetrievalFallbacks,
		m.GenerationTotal,
		m.GenerationFallbacks,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.CorpusLoadsTotal,
		m.CorpusSizeChars,
		m.ChunksIngestedTotal,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
