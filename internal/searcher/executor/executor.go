// Package executor runs one query end to end: parse into an operator tree,
// evaluate it document-at-a-time under the configured retrieval model, and
// rank the scored documents.
package executor

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/searcher/qryop"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/searcher/retrieval"
	apperrors "github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/tracing"
)

type Config struct {
	Model    retrieval.Model
	Analyzer tokenizer.Analyzer
	TieBreak ranker.TieBreak
	// Limit is used when a caller passes a non-positive limit.
	Limit int
	// MaxResults caps any requested limit. Zero means no cap.
	MaxResults int
	// FieldWeights, when non-nil, rewrites body-only terms of Indri
	// queries into a weighted combination over all fields.
	FieldWeights map[string]float64
}

// Plan is a parsed query ready for evaluation. Canonical is the tree
// rendered back to query syntax; equal canonical forms evaluate equally.
type Plan struct {
	Query     string
	Root      qryop.ScoreOperator
	Canonical string
}

type Result struct {
	Query        string             `json:"query"`
	Canonical    string             `json:"canonical"`
	Model        string             `json:"model"`
	TotalMatches int                `json:"total_matches"`
	Results      []ranker.ScoredDoc `json:"results"`
	Stats        qryop.Stats        `json:"stats"`
	LatencyMs    float64            `json:"latency_ms"`
}

// Executor is safe for concurrent use; every Run gets its own evaluator.
type Executor struct {
	store   index.Store
	cfg     Config
	parser  *parser.Parser
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New builds an Executor over store. m may be nil.
func New(store index.Store, cfg Config, m *metrics.Metrics) *Executor {
	if cfg.Limit <= 0 {
		cfg.Limit = ranker.DefaultLimit
	}
	if cfg.TieBreak == "" {
		cfg.TieBreak = ranker.TieBreakDescending
	}
	if cfg.Analyzer == nil {
		cfg.Analyzer = tokenizer.English{}
	}
	return &Executor{
		store:   store,
		cfg:     cfg,
		parser:  parser.New(cfg.Model, cfg.Analyzer),
		metrics: m,
		logger:  slog.Default().With("component", "query-executor"),
	}
}

// WithModel returns an Executor sharing everything but the retrieval model.
func (e *Executor) WithModel(model retrieval.Model) *Executor {
	cfg := e.cfg
	cfg.Model = model
	return New(e.store, cfg, e.metrics)
}

func (e *Executor) Model() retrieval.Model   { return e.cfg.Model }
func (e *Executor) TieBreak() ranker.TieBreak { return e.cfg.TieBreak }
func (e *Executor) Store() index.Store        { return e.store }

// Limit resolves a requested result count against the configured default
// and cap.
func (e *Executor) Limit(requested int) int {
	if requested <= 0 {
		requested = e.cfg.Limit
	}
	if e.cfg.MaxResults > 0 && requested > e.cfg.MaxResults {
		requested = e.cfg.MaxResults
	}
	return requested
}

func (e *Executor) Prepare(query string) (*Plan, error) {
	root, err := e.parser.Parse(query)
	if err != nil {
		return nil, err
	}
	if e.cfg.FieldWeights != nil && e.cfg.Model.Kind == retrieval.Indri {
		root = parser.ExpandFields(root, e.cfg.FieldWeights)
	}
	return &Plan{Query: query, Root: root, Canonical: root.String()}, nil
}

// Run evaluates plan and ranks at most limit documents. A query whose
// operators all ended up without arguments yields an empty result.
func (e *Executor) Run(ctx context.Context, plan *Plan, limit int) (*Result, error) {
	start := time.Now()
	limit = e.Limit(limit)
	model := e.cfg.Model.String()
	log := logger.FromContext(ctx)

	evalCtx, evalSpan := tracing.StartChildSpan(ctx, "evaluate")
	ev := qryop.NewEvaluator(evalCtx, e.cfg.Model, e.store)
	scores, err := ev.Run(plan.Root)
	evalSpan.SetAttr("nodes", ev.Stats.NodesEvaluated)
	evalSpan.End()

	result := &Result{
		Query:     plan.Query,
		Canonical: plan.Canonical,
		Model:     model,
		Results:   []ranker.ScoredDoc{},
		Stats:     ev.Stats,
	}
	switch {
	case errors.Is(err, apperrors.ErrEmptyOperand):
		log.Warn("query has no evaluable terms", "query", plan.Query, "canonical", plan.Canonical)
		e.observe(model, metrics.OutcomeEmpty, result, start)
		return result, nil
	case err != nil:
		e.observe(model, metrics.OutcomeFailed, result, start)
		return nil, err
	}

	rankCtx, rankSpan := tracing.StartChildSpan(ctx, "rank")
	docs, err := ranker.Rank(rankCtx, scores, e.store, ranker.Options{Limit: limit, TieBreak: e.cfg.TieBreak})
	rankSpan.SetAttr("results", len(docs))
	rankSpan.End()
	if err != nil {
		e.observe(model, metrics.OutcomeFailed, result, start)
		return nil, err
	}

	result.TotalMatches = scores.Len()
	result.Results = docs
	e.observe(model, metrics.OutcomeOK, result, start)
	log.Debug("query evaluated",
		"query", plan.Query,
		"canonical", plan.Canonical,
		"model", model,
		"matches", result.TotalMatches,
		"results", len(docs),
		"postings", ev.Stats.PostingsFetched,
		"latency_ms", result.LatencyMs,
	)
	return result, nil
}

// Search is Prepare followed by Run.
func (e *Executor) Search(ctx context.Context, query string, limit int) (*Result, error) {
	_, span := tracing.StartChildSpan(ctx, "parse")
	plan, err := e.Prepare(query)
	span.End()
	if err != nil {
		e.CountParseError()
		return nil, err
	}
	return e.Run(ctx, plan, limit)
}

// CountParseError records a query rejected before evaluation.
func (e *Executor) CountParseError() {
	if e.metrics != nil {
		e.metrics.QueriesTotal.WithLabelValues(e.cfg.Model.String(), metrics.OutcomeParseError).Inc()
	}
}

func (e *Executor) observe(model, outcome string, r *Result, start time.Time) {
	elapsed := time.Since(start)
	r.LatencyMs = float64(elapsed.Microseconds()) / 1000
	if e.metrics == nil {
		return
	}
	e.metrics.QueriesTotal.WithLabelValues(model, outcome).Inc()
	e.metrics.EvalLatency.WithLabelValues(model).Observe(elapsed.Seconds())
	e.metrics.PostingsFetched.WithLabelValues(model).Add(float64(r.Stats.PostingsFetched))
	e.metrics.ProximityMatches.WithLabelValues(model).Add(float64(r.Stats.ProximityMatches))
	if outcome != metrics.OutcomeFailed {
		e.metrics.ResultsCount.WithLabelValues(model).Observe(float64(len(r.Results)))
	}
}
