package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/searcher/retrieval"
)

type recorder struct {
	mu     sync.Mutex
	events []analytics.QueryEvent
}

func (r *recorder) Track(e analytics.QueryEvent) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func newMux(tr Tracker) *http.ServeMux {
	idx := index.NewMemoryIndex()
	idx.AddDocument("d1", map[string][]string{"body": {"heart", "rate", "monitor"}})
	idx.AddDocument("d2", map[string][]string{"body": {"heart", "attack", "rate"}})
	idx.AddDocument("d3", map[string][]string{"body": {"rate", "limit", "rate"}})

	params := retrieval.Params{B: 0.75, K1: 1.2, Mu: 2500, Lambda: 0.4}
	exec := executor.New(idx, executor.Config{
		Model:      retrieval.Model{Kind: retrieval.RankedBoolean},
		Analyzer:   tokenizer.Passthrough{},
		TieBreak:   ranker.TieBreakAscending,
		MaxResults: 2,
	}, nil)
	mux := http.NewServeMux()
	New(exec, params, nil, tr, false).Routes(mux)
	return mux
}

func get(mux *http.ServeMux, path string, params url.Values) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path+"?"+params.Encode(), nil))
	return rec
}

func TestSearch(t *testing.T) {
	tests := []struct {
		name    string
		params  url.Values
		code    int
		results []string
	}{
		{"ranked boolean", url.Values{"q": {"rate"}}, http.StatusOK, []string{"d3", "d1"}},
		{"limit", url.Values{"q": {"rate"}, "limit": {"1"}}, http.StatusOK, []string{"d3"}},
		{"model override", url.Values{"q": {"#and(heart rate)"}, "model": {"unrankedboolean"}}, http.StatusOK, []string{"d1", "d2"}},
		{"missing q", url.Values{}, http.StatusBadRequest, nil},
		{"bad limit", url.Values{"q": {"rate"}, "limit": {"-1"}}, http.StatusBadRequest, nil},
		{"unknown model", url.Values{"q": {"rate"}, "model": {"lsi"}}, http.StatusUnprocessableEntity, nil},
		{"parse error", url.Values{"q": {"#and(rate"}}, http.StatusBadRequest, nil},
		{"unsupported operator", url.Values{"q": {"#and(rate)"}, "model": {"bm25"}}, http.StatusUnprocessableEntity, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(newMux(nil), "/api/v1/search", tt.params)
			if rec.Code != tt.code {
				t.Fatalf("code = %d, want %d: %s", rec.Code, tt.code, rec.Body.String())
			}
			if tt.results == nil {
				return
			}
			var res executor.Result
			if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
				t.Fatal(err)
			}
			if len(res.Results) != len(tt.results) {
				t.Fatalf("results = %+v, want %v", res.Results, tt.results)
			}
			for i, id := range tt.results {
				if res.Results[i].ExternalID != id || res.Results[i].Rank != i+1 {
					t.Errorf("result %d = %+v, want %s", i, res.Results[i], id)
				}
			}
		})
	}
}

func TestParseErrorReportsToken(t *testing.T) {
	rec := get(newMux(nil), "/api/v1/search", url.Values{"q": {"#foo(rate)"}})
	var body map[string]any
	json.NewDecoder(rec.Body).Decode(&body)
	if body["token"] != "#foo" {
		t.Errorf("body = %v, want token #foo", body)
	}
}

func TestParseEndpoint(t *testing.T) {
	rec := get(newMux(nil), "/api/v1/parse", url.Values{"q": {"heart, rate"}, "model": {"bm25"}})
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["canonical"] != "#SUM( heart.body rate.body )" {
		t.Errorf("canonical = %q", body["canonical"])
	}
}

func TestSearchTracksEvents(t *testing.T) {
	tr := &recorder{}
	mux := newMux(tr)
	get(mux, "/api/v1/search", url.Values{"q": {"rate"}})
	get(mux, "/api/v1/search", url.Values{"q": {"#and(rate"}})
	if len(tr.events) != 2 {
		t.Fatalf("events = %+v", tr.events)
	}
	if e := tr.events[0]; e.Outcome != "ok" || e.Returned != 2 || e.Canonical != "#OR( rate.body )" || e.Source != analytics.SourceHTTP {
		t.Errorf("first event = %+v", e)
	}
	if tr.events[1].Outcome != "parse_error" {
		t.Errorf("second event = %+v", tr.events[1])
	}
}

func TestCacheEndpointsWhenDisabled(t *testing.T) {
	mux := newMux(nil)
	if rec := get(mux, "/api/v1/cache/stats", nil); rec.Code != http.StatusOK {
		t.Errorf("stats code = %d", rec.Code)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/cache/invalidate", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("invalidate code = %d", rec.Code)
	}
}
