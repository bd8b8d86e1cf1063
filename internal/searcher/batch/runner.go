package batch

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/tracing"
)

// Tracker receives one event per evaluated query.
type Tracker interface {
	Track(event analytics.QueryEvent)
}

type Options struct {
	Workers      int
	QueryTimeout time.Duration
	Limit        int
	RunTag       string
	Trace        bool
}

type Runner struct {
	exec    *executor.Executor
	opts    Options
	cache   *cache.QueryCache
	tracker Tracker
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New builds a Runner. cache, tracker and m are optional.
func New(exec *executor.Executor, opts Options, c *cache.QueryCache, tracker Tracker, m *metrics.Metrics) *Runner {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.RunTag == "" {
		opts.RunTag = ranker.DefaultRunTag
	}
	return &Runner{
		exec:    exec,
		opts:    opts,
		cache:   c,
		tracker: tracker,
		metrics: m,
		logger:  slog.Default().With("component", "batch"),
	}
}

type Summary struct {
	Queries   int `json:"queries"`
	Evaluated int `json:"evaluated"`
	Empty     int `json:"empty"`
	Skipped   int `json:"skipped"`
	CacheHits int `json:"cache_hits"`
}

type outcome struct {
	result  *executor.Result
	skipped bool
	cached  bool
}

// Run evaluates queries with up to Workers in parallel and writes the TREC
// run to w in input order. Queries that fail to parse, time out or carry
// invalid weights are skipped; an unsupported operator or an index access
// failure aborts the run and nothing is written.
func (r *Runner) Run(ctx context.Context, queries []Query, w io.Writer) (Summary, error) {
	outcomes := make([]outcome, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)
	for i, q := range queries {
		g.Go(func() error {
			out, err := r.evaluate(gctx, q)
			if err != nil {
				return fmt.Errorf("query %s (line %d): %w", q.ID, q.Line, err)
			}
			outcomes[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Summary{Queries: len(queries)}, err
	}

	sum := Summary{Queries: len(queries)}
	bw := bufio.NewWriter(w)
	for i, out := range outcomes {
		switch {
		case out.skipped:
			sum.Skipped++
			continue
		case len(out.result.Results) == 0:
			sum.Empty++
		}
		sum.Evaluated++
		if out.cached {
			sum.CacheHits++
		}
		if err := ranker.WriteTREC(bw, queries[i].ID, r.opts.RunTag, out.result.Results); err != nil {
			return sum, fmt.Errorf("writing results of query %s: %w", queries[i].ID, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return sum, fmt.Errorf("writing results: %w", err)
	}
	r.logger.Info("batch complete",
		"queries", sum.Queries,
		"evaluated", sum.Evaluated,
		"empty", sum.Empty,
		"skipped", sum.Skipped,
		"cache_hits", sum.CacheHits,
	)
	return sum, nil
}

func (r *Runner) evaluate(ctx context.Context, q Query) (outcome, error) {
	ctx = logger.WithQueryID(ctx, q.ID)
	log := logger.FromContext(ctx)
	var span *tracing.Span
	if r.opts.Trace {
		ctx, span = tracing.StartSpan(ctx, "query", "")
		span.SetAttr("query_id", q.ID)
		defer func() {
			span.End()
			span.Log(log)
		}()
	}

	event := analytics.QueryEvent{
		QueryID: q.ID,
		Query:   q.Text,
		Model:   r.exec.Model().String(),
		Source:  analytics.SourceBatch,
	}
	defer func() { r.track(event) }()

	_, parseSpan := tracing.StartChildSpan(ctx, "parse")
	plan, err := r.exec.Prepare(q.Text)
	parseSpan.End()
	if err != nil {
		r.exec.CountParseError()
		event.Outcome = metrics.OutcomeParseError
		r.count(metrics.OutcomeParseError)
		if errors.Is(err, apperrors.ErrParse) {
			log.Warn("skipping query that does not parse", "line", q.Line, "error", err)
			return outcome{skipped: true}, nil
		}
		return outcome{}, err
	}
	event.Canonical = plan.Canonical

	limit := r.exec.Limit(r.opts.Limit)
	compute := func(ctx context.Context) (*executor.Result, error) {
		var res *executor.Result
		err := resilience.WithTimeout(ctx, r.opts.QueryTimeout, "query "+q.ID, func(ctx context.Context) error {
			var err error
			res, err = r.exec.Run(ctx, plan, limit)
			return err
		})
		return res, err
	}

	var (
		res    *executor.Result
		cached bool
	)
	if r.cache != nil {
		key := cache.Key(r.exec.Model(), plan.Canonical, limit, r.exec.TieBreak())
		res, cached, err = r.cache.GetOrCompute(ctx, key, compute)
	} else {
		res, err = compute(ctx)
	}

	switch {
	case err == nil:
	case apperrors.IsFatal(err) || errors.Is(err, context.Canceled):
		event.Outcome = metrics.OutcomeFailed
		r.count(metrics.OutcomeFailed)
		return outcome{}, err
	default:
		// per-query failures: timeouts and invalid weights
		event.Outcome = metrics.OutcomeFailed
		r.count(metrics.OutcomeFailed)
		log.Warn("skipping query", "line", q.Line, "error", err)
		return outcome{skipped: true}, nil
	}

	event.Outcome = metrics.OutcomeOK
	if len(res.Results) == 0 {
		event.Outcome = metrics.OutcomeEmpty
	}
	event.Returned = len(res.Results)
	event.TotalMatches = res.TotalMatches
	event.LatencyMs = res.LatencyMs
	event.CacheHit = cached
	r.count(event.Outcome)
	return outcome{result: res, cached: cached}, nil
}

func (r *Runner) count(outcome string) {
	if r.metrics != nil {
		r.metrics.BatchQueriesTotal.WithLabelValues(outcome).Inc()
	}
}

func (r *Runner) track(e analytics.QueryEvent) {
	if r.tracker != nil {
		r.tracker.Track(e)
	}
}
