package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNewWithRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry(reg)
	m.QueriesTotal.WithLabelValues("BM25", OutcomeOK).Inc()
	m.QueriesTotal.WithLabelValues("BM25", OutcomeOK).Inc()
	m.CacheHitsTotal.Inc()

	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	got := map[string]float64{}
	for _, f := range families {
		for _, metric := range f.GetMetric() {
			if c := metric.GetCounter(); c != nil {
				got[f.GetName()] += c.GetValue()
			}
		}
	}
	if got["retrieval_queries_total"] != 2 {
		t.Errorf("retrieval_queries_total = %v, want 2", got["retrieval_queries_total"])
	}
	if got["retrieval_cache_hits_total"] != 1 {
		t.Errorf("retrieval_cache_hits_total = %v, want 1", got["retrieval_cache_hits_total"])
	}

	// a second registry must accept a second set of collectors
	NewWithRegistry(prometheus.NewRegistry())
}
