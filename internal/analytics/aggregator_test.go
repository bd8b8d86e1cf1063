package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAggregatorStats(t *testing.T) {
	a := NewAggregator()
	events := []QueryEvent{
		{Query: "heart rate", Canonical: "#OR( heart.body rate.body )", Model: "RankedBoolean", Outcome: "ok", Returned: 10, LatencyMs: 4, Source: SourceBatch},
		{Query: "heart  rate", Canonical: "#OR( heart.body rate.body )", Model: "RankedBoolean", Outcome: "ok", Returned: 10, LatencyMs: 2, CacheHit: true, Source: SourceHTTP},
		{Query: "zebra", Model: "BM25{b=0.75,k1=1.2,k3=0}", Outcome: "ok", Returned: 0, LatencyMs: 6, Source: SourceHTTP},
	}
	for _, e := range events {
		a.Record(e)
	}

	s := a.Stats()
	if s.TotalQueries != 3 || s.CacheHits != 1 || s.CacheMisses != 2 || s.ZeroResultCount != 1 {
		t.Errorf("counters = %+v", s)
	}
	if s.ByModel["RankedBoolean"] != 2 || s.BySource["http"] != 2 || s.ByOutcome["ok"] != 3 {
		t.Errorf("breakdowns = %v %v %v", s.ByModel, s.BySource, s.ByOutcome)
	}
	if s.AvgLatencyMs != 4 || s.P50LatencyMs != 4 || s.P99LatencyMs != 6 {
		t.Errorf("latency avg=%v p50=%v p99=%v", s.AvgLatencyMs, s.P50LatencyMs, s.P99LatencyMs)
	}
	if len(s.TopQueries) != 2 || s.TopQueries[0].Query != "#OR( heart.body rate.body )" || s.TopQueries[0].Count != 2 {
		t.Errorf("top queries = %v", s.TopQueries)
	}
	if len(s.ZeroResultQueries) != 1 || s.ZeroResultQueries[0].Query != "zebra" {
		t.Errorf("zero result queries = %v", s.ZeroResultQueries)
	}
}

func TestHandleEvent(t *testing.T) {
	a := NewAggregator()
	h := HandleEvent(a)
	data, _ := json.Marshal(QueryEvent{QueryID: "10", Query: "pulse", Model: "Indri{mu=2500,lambda=0.4}", Outcome: "ok", Returned: 3})
	if err := h(context.Background(), []byte("pulse"), data); err != nil {
		t.Fatal(err)
	}
	if err := h(context.Background(), nil, []byte("{broken")); err != nil {
		t.Errorf("bad message returned %v, want nil so it is committed", err)
	}
	if got := a.Stats().TotalQueries; got != 1 {
		t.Errorf("total = %d, want 1", got)
	}
}

func TestRestore(t *testing.T) {
	a := NewAggregator()
	a.Restore(AggregatedStats{TotalQueries: 5, ByModel: map[string]int64{"BM25": 5}, CacheHits: 2})
	a.Record(QueryEvent{Model: "BM25", Returned: 1})
	s := a.Stats()
	if s.TotalQueries != 6 || s.ByModel["BM25"] != 6 || s.CacheHits != 2 {
		t.Errorf("restored stats = %+v", s)
	}
}

type fakeSnapshots struct {
	snaps []AggregatedStats
	err   error
}

func (f fakeSnapshots) ListSnapshots(_ context.Context, limit int) ([]AggregatedStats, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.snaps) > limit {
		return f.snaps[:limit], nil
	}
	return f.snaps, nil
}

func TestHandler(t *testing.T) {
	a := NewAggregator()
	a.Record(QueryEvent{Query: "x", Returned: 1})

	tests := []struct {
		name  string
		snaps SnapshotLister
		path  string
		code  int
	}{
		{"stats", nil, "/api/v1/analytics", http.StatusOK},
		{"snapshots disabled", nil, "/api/v1/analytics/snapshots", http.StatusNotFound},
		{"snapshots", fakeSnapshots{snaps: []AggregatedStats{{TotalQueries: 1}, {TotalQueries: 2}}}, "/api/v1/analytics/snapshots?limit=1", http.StatusOK},
		{"bad limit", fakeSnapshots{}, "/api/v1/analytics/snapshots?limit=zero", http.StatusBadRequest},
		{"store down", fakeSnapshots{err: errors.New("down")}, "/api/v1/analytics/snapshots", http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(a, tt.snaps)
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.name == "stats" {
				h.Stats(rec, req)
			} else {
				h.Snapshots(rec, req)
			}
			if rec.Code != tt.code {
				t.Errorf("code = %d, want %d: %s", rec.Code, tt.code, rec.Body.String())
			}
		})
	}
}
