// Package analytics aggregates query events published by the evaluation
// services: volumes per retrieval model, latency percentiles, cache
// effectiveness and the queries that return nothing.
package analytics

import "time"

type Source string

const (
	SourceBatch Source = "batch"
	SourceHTTP  Source = "http"
)

// QueryEvent describes one evaluated query. Outcome uses the metrics
// outcome labels (ok, empty, parse_error, failed).
type QueryEvent struct {
	QueryID      string    `json:"query_id"`
	Query        string    `json:"query"`
	Canonical    string    `json:"canonical,omitempty"`
	Model        string    `json:"model"`
	Outcome      string    `json:"outcome"`
	Returned     int       `json:"returned"`
	TotalMatches int       `json:"total_matches"`
	LatencyMs    float64   `json:"latency_ms"`
	CacheHit     bool      `json:"cache_hit"`
	Source       Source    `json:"source"`
	RequestID    string    `json:"request_id,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// Key is the partition key: events for the same query land together.
func (e QueryEvent) Key() string {
	if e.Canonical != "" {
		return e.Canonical
	}
	return e.Query
}
