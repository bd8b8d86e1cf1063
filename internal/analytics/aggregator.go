package analytics

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/kafka"
)

// maxLatencySamples bounds the latency window used for percentiles.
const maxLatencySamples = 10000

type AggregatedStats struct {
	TotalQueries      int64            `json:"total_queries"`
	ByModel           map[string]int64 `json:"by_model"`
	ByOutcome         map[string]int64 `json:"by_outcome"`
	BySource          map[string]int64 `json:"by_source"`
	CacheHits         int64            `json:"cache_hits"`
	CacheMisses       int64            `json:"cache_misses"`
	ZeroResultCount   int64            `json:"zero_result_count"`
	AvgLatencyMs      float64          `json:"avg_latency_ms"`
	P50LatencyMs      float64          `json:"p50_latency_ms"`
	P95LatencyMs      float64          `json:"p95_latency_ms"`
	P99LatencyMs      float64          `json:"p99_latency_ms"`
	AvgReturned       float64          `json:"avg_returned"`
	TopQueries        []QueryCount     `json:"top_queries"`
	ZeroResultQueries []QueryCount     `json:"zero_result_queries"`
	QueriesPerMinute  float64          `json:"queries_per_minute"`
}

type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// Aggregator folds QueryEvents into running statistics. Queries are
// counted by canonical form when the event carries one.
type Aggregator struct {
	mu          sync.RWMutex
	total       int64
	byModel     map[string]int64
	byOutcome   map[string]int64
	bySource    map[string]int64
	cacheHits   int64
	cacheMisses int64
	zeroResults int64
	returned    int64
	latencies   []float64
	latencyNext int
	queryCounts map[string]int64
	zeroQueries map[string]int64
	startTime   time.Time
	logger      *slog.Logger
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		byModel:     make(map[string]int64),
		byOutcome:   make(map[string]int64),
		bySource:    make(map[string]int64),
		latencies:   make([]float64, 0, 1024),
		queryCounts: make(map[string]int64),
		zeroQueries: make(map[string]int64),
		startTime:   time.Now(),
		logger:      slog.Default().With("component", "analytics-aggregator"),
	}
}

// Restore seeds the counters from a persisted snapshot so totals survive a
// restart. Latency samples and per-query counts are not restored.
func (a *Aggregator) Restore(s AggregatedStats) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.total = s.TotalQueries
	a.cacheHits = s.CacheHits
	a.cacheMisses = s.CacheMisses
	a.zeroResults = s.ZeroResultCount
	a.returned = int64(s.AvgReturned * float64(s.TotalQueries))
	for k, v := range s.ByModel {
		a.byModel[k] = v
	}
	for k, v := range s.ByOutcome {
		a.byOutcome[k] = v
	}
	for k, v := range s.BySource {
		a.bySource[k] = v
	}
}

// HandleEvent decodes QueryEvents from Kafka. Undecodable messages are
// logged and committed so they do not block the partition.
func HandleEvent(agg *Aggregator) kafka.MessageHandler {
	return func(ctx context.Context, key, value []byte) error {
		event, err := kafka.DecodeJSON[QueryEvent](value)
		if err != nil {
			agg.logger.Error("failed to decode query event", "key", string(key), "error", err)
			return nil
		}
		agg.Record(event)
		return nil
	}
}

func (a *Aggregator) Record(e QueryEvent) {
	q := e.Key()
	a.mu.Lock()
	defer a.mu.Unlock()

	a.total++
	a.byModel[e.Model]++
	a.byOutcome[e.Outcome]++
	a.bySource[string(e.Source)]++
	if e.CacheHit {
		a.cacheHits++
	} else {
		a.cacheMisses++
	}
	a.returned += int64(e.Returned)
	a.queryCounts[q]++
	if e.Returned == 0 {
		a.zeroResults++
		a.zeroQueries[q]++
	}

	if len(a.latencies) < maxLatencySamples {
		a.latencies = append(a.latencies, e.LatencyMs)
	} else {
		a.latencies[a.latencyNext] = e.LatencyMs
		a.latencyNext = (a.latencyNext + 1) % maxLatencySamples
	}
}

func (a *Aggregator) Stats() AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := AggregatedStats{
		TotalQueries:    a.total,
		ByModel:         copyCounts(a.byModel),
		ByOutcome:       copyCounts(a.byOutcome),
		BySource:        copyCounts(a.bySource),
		CacheHits:       a.cacheHits,
		CacheMisses:     a.cacheMisses,
		ZeroResultCount: a.zeroResults,
	}
	if a.total > 0 {
		stats.AvgReturned = float64(a.returned) / float64(a.total)
	}
	if len(a.latencies) > 0 {
		sorted := make([]float64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Float64s(sorted)
		var sum float64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = sum / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	stats.TopQueries = topN(a.queryCounts, 10)
	stats.ZeroResultQueries = topN(a.zeroQueries, 10)
	if elapsed := time.Since(a.startTime).Minutes(); elapsed > 0 {
		stats.QueriesPerMinute = float64(stats.TotalQueries) / elapsed
	}
	return stats
}

func copyCounts(m map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func percentile(sorted []float64, pct int) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// topN orders by count, then query text for a stable listing.
func topN(counts map[string]int64, n int) []QueryCount {
	result := make([]QueryCount, 0, len(counts))
	for query, count := range counts {
		result = append(result, QueryCount{Query: query, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Query < result[j].Query
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
