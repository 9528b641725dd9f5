package analytics

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/shakespeare-qa/pkg/kafka"
)

// maxLatencySamples bounds the window percentiles are computed over.
const maxLatencySamples = 10000

type AggregatedStats struct {
	TotalQuestions      int64            `json:"total_questions"`
	Failures            int64            `json:"failures"`
	CacheHits           int64            `json:"cache_hits"`
	RetrievalFallbacks  int64            `json:"retrieval_fallbacks"`
	GenerationFallbacks int64            `json:"generation_fallbacks"`
	AvgLatencyMs        float64          `json:"avg_latency_ms"`
	P50LatencyMs        int64            `json:"p50_latency_ms"`
	P95LatencyMs        int64            `json:"p95_latency_ms"`
	P99LatencyMs        int64            `json:"p99_latency_ms"`
	Providers           map[string]int64 `json:"providers"`
	TopQuestions        []QuestionCount  `json:"top_questions"`
	TopKeywords         []QuestionCount  `json:"top_keywords"`
	QuestionsPerMinute  float64          `json:"questions_per_minute"`
	Since               time.Time        `json:"since"`
}

type QuestionCount struct {
	Text  string `json:"text"`
	Count int64  `json:"count"`
}

// Aggregator folds question events into running statistics.
type Aggregator struct {
	mu            sync.RWMutex
	total         int64
	failures      int64
	cacheHits     int64
	retrievalFB   int64
	generationFB  int64
	latencies     []int64
	next          int
	providers     map[string]int64
	questionCount map[string]int64
	keywordCount  map[string]int64
	startTime     time.Time

	logger *slog.Logger
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		latencies:     make([]int64, 0, 1024),
		providers:     make(map[string]int64),
		questionCount: make(map[string]int64),
		keywordCount:  make(map[string]int64),
		startTime:     time.Now().UTC(),
		logger:        slog.Default().With("component", "analytics-aggregator"),
	}
}

// Record folds one event into the statistics.
func (a *Aggregator) Record(e QuestionEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.total++
	if e.Failed {
		a.failures++
	}
	if e.Cached {
		a.cacheHits++
	}
	if e.RetrievalFallback {
		a.retrievalFB++
	}
	if e.GenerationFallback {
		a.generationFB++
	}
	if e.Provider != "" {
		a.providers[e.Provider]++
	}
	a.questionCount[normalizeQuestion(e.Question)]++
	for _, kw := range e.Keywords {
		a.keywordCount[kw]++
	}

	if len(a.latencies) < maxLatencySamples {
		a.latencies = append(a.latencies, e.LatencyMs)
	} else {
		a.latencies[a.next] = e.LatencyMs
		a.next = (a.next + 1) % maxLatencySamples
	}
}

// PublishBatch records events in-process, standing in for Kafka when it is
// disabled.
func (a *Aggregator) PublishBatch(_ context.Context, events []kafka.Event) error {
	for _, ev := range events {
		if qe, ok := ev.Value.(QuestionEvent); ok {
			a.Record(qe)
		}
	}
	return nil
}

// HandleMessage decodes a Kafka message into a QuestionEvent and records it.
// Undecodable messages are logged and skipped so they are committed.
func (a *Aggregator) HandleMessage(_ context.Context, _ []byte, value []byte) error {
	event, err := kafka.DecodeJSON[QuestionEvent](value)
	if err != nil {
		a.logger.Error("failed to decode question event", "error", err)
		return nil
	}
	a.Record(event)
	return nil
}

// Restore seeds counters from a persisted snapshot. Latency samples and
// per-question counts beyond the snapshot's top lists are not recoverable.
func (a *Aggregator) Restore(s AggregatedStats) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.total += s.TotalQuestions
	a.failures += s.Failures
	a.cacheHits += s.CacheHits
	a.retrievalFB += s.RetrievalFallbacks
	a.generationFB += s.GenerationFallbacks
	for p, n := range s.Providers {
		a.providers[p] += n
	}
	for _, q := range s.TopQuestions {
		a.questionCount[q.Text] += q.Count
	}
	for _, k := range s.TopKeywords {
		a.keywordCount[k.Text] += k.Count
	}
	if !s.Since.IsZero() && s.Since.Before(a.startTime) {
		a.startTime = s.Since
	}
}

func (a *Aggregator) Stats() AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := AggregatedStats{
		TotalQuestions:      a.total,
		Failures:            a.failures,
		CacheHits:           a.cacheHits,
		RetrievalFallbacks:  a.retrievalFB,
		GenerationFallbacks: a.generationFB,
		Providers:           make(map[string]int64, len(a.providers)),
		Since:               a.startTime,
	}
	for p, n := range a.providers {
		stats.Providers[p] = n
	}
	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	stats.TopQuestions = topN(a.questionCount, 10)
	stats.TopKeywords = topN(a.keywordCount, 10)
	if elapsed := time.Since(a.startTime).Minutes(); elapsed > 0 {
		stats.QuestionsPerMinute = float64(stats.TotalQuestions) / elapsed
	}
	return stats
}

func normalizeQuestion(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func topN(counts map[string]int64, n int) []QuestionCount {
	result := make([]QuestionCount, 0, len(counts))
	for text, count := range counts {
		result = append(result, QuestionCount{Text: text, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Text < result[j].Text
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
