package batch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/searcher/retrieval"
	apperrors "github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/errors"
)

func TestReadQueries(t *testing.T) {
	input := strings.Join([]string{
		"# topics 10-12",
		"10:#AND(heart rate)",
		"",
		"no colon here",
		"11: obama family tree ",
		"12:#wsum(0.5 a:b 0.5 c)",
		"bad id:x",
	}, "\n")
	qs, err := ReadQueries(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}
	want := []Query{
		{ID: "10", Text: "#AND(heart rate)", Line: 2},
		{ID: "11", Text: "obama family tree", Line: 5},
		{ID: "12", Text: "#wsum(0.5 a:b 0.5 c)", Line: 6},
	}
	if len(qs) != len(want) {
		t.Fatalf("got %d queries: %+v", len(qs), qs)
	}
	for i := range want {
		if qs[i] != want[i] {
			t.Errorf("query %d = %+v, want %+v", i, qs[i], want[i])
		}
	}
}

func corpus() *index.MemoryIndex {
	idx := index.NewMemoryIndex()
	idx.AddDocument("d1", map[string][]string{"body": {"heart", "rate", "monitor"}})
	idx.AddDocument("d2", map[string][]string{"body": {"heart", "attack", "rate"}})
	idx.AddDocument("d3", map[string][]string{"body": {"rate", "limit", "rate"}})
	return idx
}

func runner(kind retrieval.Kind, opts Options, c *cache.QueryCache, tr Tracker) *Runner {
	exec := executor.New(corpus(), executor.Config{
		Model:    retrieval.Model{Kind: kind, B: 0.75, K1: 1.2, Mu: 2500, Lambda: 0.4},
		Analyzer: tokenizer.Passthrough{},
		TieBreak: ranker.TieBreakAscending,
	}, nil)
	return New(exec, opts, c, tr, nil)
}

type recorder struct {
	mu     sync.Mutex
	events []analytics.QueryEvent
}

func (r *recorder) Track(e analytics.QueryEvent) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func TestRunWritesInInputOrder(t *testing.T) {
	queries := []Query{
		{ID: "1", Text: "#and(heart rate)"},
		{ID: "2", Text: "#and(heart"},
		{ID: "3", Text: "zebra"},
		{ID: "4", Text: "rate"},
	}
	rec := &recorder{}
	var out bytes.Buffer
	sum, err := runner(retrieval.UnrankedBoolean, Options{Workers: 3}, nil, rec).Run(context.Background(), queries, &out)
	if err != nil {
		t.Fatal(err)
	}
	want := strings.Join([]string{
		"1 Q0 d1 1 1 run-1",
		"1 Q0 d2 2 1 run-1",
		"4 Q0 d1 1 1 run-1",
		"4 Q0 d2 2 1 run-1",
		"4 Q0 d3 3 1 run-1",
	}, "\n") + "\n"
	if out.String() != want {
		t.Errorf("output:\n%s\nwant:\n%s", out.String(), want)
	}
	if sum != (Summary{Queries: 4, Evaluated: 3, Empty: 1, Skipped: 1}) {
		t.Errorf("summary = %+v", sum)
	}

	outcomes := map[string]string{}
	for _, e := range rec.events {
		outcomes[e.QueryID] = e.Outcome
	}
	wantOutcomes := map[string]string{"1": "ok", "2": "parse_error", "3": "empty", "4": "ok"}
	for id, o := range wantOutcomes {
		if outcomes[id] != o {
			t.Errorf("query %s outcome = %q, want %q", id, outcomes[id], o)
		}
	}
}

func TestRunAbortsOnFatalError(t *testing.T) {
	queries := []Query{
		{ID: "1", Text: "heart"},
		{ID: "2", Text: "#and(heart rate)"},
	}
	var out bytes.Buffer
	_, err := runner(retrieval.BM25, Options{Workers: 2}, nil, nil).Run(context.Background(), queries, &out)
	if !errors.Is(err, apperrors.ErrUnsupportedOperator) {
		t.Fatalf("err = %v, want ErrUnsupportedOperator", err)
	}
	if out.Len() != 0 {
		t.Errorf("aborted run wrote output: %q", out.String())
	}
}

type slowStore struct {
	index.Store
}

func (s slowStore) FetchPostings(ctx context.Context, term, field string) (*index.InvertedList, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(time.Second):
	}
	return s.Store.FetchPostings(ctx, term, field)
}

func TestRunSkipsTimedOutQueries(t *testing.T) {
	exec := executor.New(slowStore{corpus()}, executor.Config{
		Model:    retrieval.Model{Kind: retrieval.RankedBoolean},
		Analyzer: tokenizer.Passthrough{},
	}, nil)
	r := New(exec, Options{Workers: 1, QueryTimeout: 5 * time.Millisecond}, nil, nil, nil)
	sum, err := r.Run(context.Background(), []Query{{ID: "1", Text: "heart"}}, &bytes.Buffer{})
	if err != nil {
		t.Fatal(err)
	}
	if sum.Skipped != 1 {
		t.Errorf("summary = %+v, want one skipped query", sum)
	}
}

type memBackend struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (b *memBackend) GetJSON(_ context.Context, key string, dst any) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(v, dst)
}

func (b *memBackend) SetJSON(_ context.Context, key string, value any, _ time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, err := json.Marshal(value)
	b.data[key] = v
	return err
}

func (b *memBackend) Flush(context.Context) (int64, error) { return 0, nil }

func TestRunUsesCacheAcrossEquivalentQueries(t *testing.T) {
	c := cache.New(&memBackend{data: map[string][]byte{}}, time.Minute, nil)
	queries := []Query{
		{ID: "1", Text: "#OR(heart rate)"},
		{ID: "2", Text: "heart, rate"},
	}
	var out bytes.Buffer
	sum, err := runner(retrieval.RankedBoolean, Options{Workers: 1}, c, nil).Run(context.Background(), queries, &out)
	if err != nil {
		t.Fatal(err)
	}
	if sum.CacheHits != 1 {
		t.Errorf("cache hits = %d, want 1", sum.CacheHits)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 6 || !strings.HasPrefix(lines[3], "2 Q0 ") {
		t.Errorf("output:\n%s", out.String())
	}
}
