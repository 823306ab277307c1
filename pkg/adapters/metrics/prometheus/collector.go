package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector implements MetricsCollector using Prometheus
type Collector struct {
	questions    *prometheus.CounterVec
	chatTurns    *prometheus.CounterVec
	llmCalls     *prometheus.CounterVec
	llmTokens    *prometheus.CounterVec
	searches     prometheus.Counter
	docsIndexed  *prometheus.CounterVec
	sectionCount prometheus.Gauge

	questionDuration *prometheus.HistogramVec
	chatDuration     *prometheus.HistogramVec
	llmLatency       *prometheus.HistogramVec
	searchDuration   prometheus.Histogram
	searchResults    prometheus.Histogram

	workerPoolIdle    prometheus.Gauge
	workerPoolBusy    prometheus.Gauge
	workerPoolStopped prometheus.Gauge
}

// NewCollector creates a new Prometheus metrics collector
func NewCollector() *Collector {
	return &Collector{
		questions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "baard_questions_total",
				Help: "Total number of one-shot questions answered",
			},
			[]string{"approach", "status"},
		),
		chatTurns: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "baard_chat_turns_total",
				Help: "Total number of chat turns answered",
			},
			[]string{"approach", "status"},
		),
		llmCalls: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "baard_llm_calls_total",
				Help: "Total number of LLM API calls",
			},
			[]string{"model"},
		),
		llmTokens: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "baard_llm_tokens_total",
				Help: "Total number of LLM tokens used",
			},
			[]string{"model", "type"},
		),
		searches: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "baard_searches_total",
				Help: "Total number of index searches",
			},
		),
		docsIndexed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "baard_documents_indexed_total",
				Help: "Total number of documents run through ingestion",
			},
			[]string{"status"},
		),
		sectionCount: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "baard_indexed_sections",
				Help: "Number of sections currently in the index",
			},
		),
		questionDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "baard_question_duration_seconds",
				Help:    "One-shot question duration in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"approach"},
		),
		chatDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "baard_chat_turn_duration_seconds",
				Help:    "Chat turn duration in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"approach"},
		),
		llmLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "baard_llm_latency_seconds",
				Help:    "LLM API call latency in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 20},
			},
			[]string{"model"},
		),
		searchDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "baard_search_duration_seconds",
				Help:    "Index search duration in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
		),
		searchResults: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "baard_search_results",
				Help:    "Number of sections returned per search",
				Buckets: []float64{0, 1, 3, 5, 10, 25, 50, 100},
			},
		),
		workerPoolIdle: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "baard_worker_pool_idle",
				Help: "Number of idle ingest workers",
			},
		),
		workerPoolBusy: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "baard_worker_pool_busy",
				Help: "Number of busy ingest workers",
			},
		),
		workerPoolStopped: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "baard_worker_pool_stopped",
				Help: "Number of stopped ingest workers",
			},
		),
	}
}

// RecordQuestion records a one-shot question outcome
func (c *Collector) RecordQuestion(approach, status string, duration time.Duration) {
	c.questions.WithLabelValues(approach, status).Inc()
	c.questionDuration.WithLabelValues(approach).Observe(duration.Seconds())
}

// RecordChatTurn records a chat turn outcome
func (c *Collector) RecordChatTurn(approach, status string, duration time.Duration) {
	c.chatTurns.WithLabelValues(approach, status).Inc()
	c.chatDuration.WithLabelValues(approach).Observe(duration.Seconds())
}

// RecordLLMCall records one LLM API call and its token usage
func (c *Collector) RecordLLMCall(model string, inputTokens, outputTokens int, duration time.Duration) {
	c.llmCalls.WithLabelValues(model).Inc()
	c.llmTokens.WithLabelValues(model, "input").Add(float64(inputTokens))
	c.llmTokens.WithLabelValues(model, "output").Add(float64(outputTokens))
	c.llmLatency.WithLabelValues(model).Observe(duration.Seconds())
}

// RecordSearch records one index search
func (c *Collector) RecordSearch(duration time.Duration, results int) {
	c.searches.Inc()
	c.searchDuration.Observe(duration.Seconds())
	c.searchResults.Observe(float64(results))
}

// RecordDocumentIndexed records the outcome of one ingestion run
func (c *Collector) RecordDocumentIndexed(status string, sections int) {
	c.docsIndexed.WithLabelValues(status).Inc()
}

// SetIndexedSections sets the current size of the index
func (c *Collector) SetIndexedSections(count int) {
	c.sectionCount.Set(float64(count))
}

// RecordWorkerPoolStatus records worker pool status
func (c *Collector) RecordWorkerPoolStatus(idle, busy, stopped int) {
	c.workerPoolIdle.Set(float64(idle))
	c.workerPoolBusy.Set(float64(busy))
	c.workerPoolStopped.Set(float64(stopped))
}
