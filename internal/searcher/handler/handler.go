// Package handler exposes query evaluation over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/searcher/retrieval"
	apperrors "github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/tracing"
)

// Tracker receives one event per search request.
type Tracker interface {
	Track(event analytics.QueryEvent)
}

type Handler struct {
	executor *executor.Executor
	params   retrieval.Params
	cache    *cache.QueryCache
	tracker  Tracker
	trace    bool
	logger   *slog.Logger
}

// New builds a Handler. params are used for models selected per request
// with ?model=; cache and tracker may be nil.
func New(exec *executor.Executor, params retrieval.Params, c *cache.QueryCache, tracker Tracker, trace bool) *Handler {
	return &Handler{
		executor: exec,
		params:   params,
		cache:    c,
		tracker:  tracker,
		trace:    trace,
		logger:   slog.Default().With("component", "search-handler"),
	}
}

// Routes registers the search endpoints on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/parse", h.Parse)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

// Search handles GET /api/v1/search?q=&model=&limit=.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	exec, limit, ok := h.request(w, r)
	if !ok {
		return
	}
	query := r.URL.Query().Get("q")

	if h.trace {
		var span *tracing.Span
		ctx, span = tracing.StartSpan(ctx, "search", logger.RequestID(ctx))
		defer func() {
			span.End()
			span.Log(log)
		}()
	}

	event := analytics.QueryEvent{
		Query:     query,
		Model:     exec.Model().String(),
		Source:    analytics.SourceHTTP,
		RequestID: logger.RequestID(ctx),
	}
	defer func() {
		if h.tracker != nil {
			h.tracker.Track(event)
		}
	}()

	_, parseSpan := tracing.StartChildSpan(ctx, "parse")
	plan, err := exec.Prepare(query)
	parseSpan.End()
	if err != nil {
		exec.CountParseError()
		event.Outcome = metrics.OutcomeParseError
		h.writeError(w, err)
		return
	}
	event.Canonical = plan.Canonical

	var (
		result *executor.Result
		cached bool
	)
	compute := func(ctx context.Context) (*executor.Result, error) {
		return exec.Run(ctx, plan, limit)
	}
	if h.cache != nil {
		key := cache.Key(exec.Model(), plan.Canonical, limit, exec.TieBreak())
		result, cached, err = h.cache.GetOrCompute(ctx, key, compute)
	} else {
		result, err = compute(ctx)
	}
	if err != nil {
		event.Outcome = metrics.OutcomeFailed
		log.Error("search failed", "query", query, "error", err)
		h.writeError(w, err)
		return
	}

	event.Outcome = metrics.OutcomeOK
	if len(result.Results) == 0 {
		event.Outcome = metrics.OutcomeEmpty
	}
	event.Returned = len(result.Results)
	event.TotalMatches = result.TotalMatches
	event.LatencyMs = result.LatencyMs
	event.CacheHit = cached

	log.Info("search completed",
		"query", query,
		"model", result.Model,
		"matches", result.TotalMatches,
		"returned", len(result.Results),
		"cache_hit", cached,
	)
	w.Header().Set("X-Cache", map[bool]string{true: "HIT", false: "MISS"}[cached])
	h.writeJSON(w, http.StatusOK, result)
}

// Parse handles GET /api/v1/parse?q=&model= and returns the canonical
// operator tree without evaluating it.
func (h *Handler) Parse(w http.ResponseWriter, r *http.Request) {
	exec, _, ok := h.request(w, r)
	if !ok {
		return
	}
	plan, err := exec.Prepare(r.URL.Query().Get("q"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{
		"query":     plan.Query,
		"canonical": plan.Canonical,
		"model":     exec.Model().String(),
	})
}

// request validates q, model and limit.
func (h *Handler) request(w http.ResponseWriter, r *http.Request) (*executor.Executor, int, bool) {
	q := r.URL.Query()
	if q.Get("q") == "" {
		h.writeError(w, fmt.Errorf("%w: query parameter 'q' is required", apperrors.ErrInvalidInput))
		return nil, 0, false
	}
	exec := h.executor
	if name := q.Get("model"); name != "" {
		model, err := retrieval.FromName(name, h.params)
		if err != nil {
			h.writeError(w, err)
			return nil, 0, false
		}
		if model != exec.Model() {
			exec = exec.WithModel(model)
		}
	}
	limit := 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			h.writeError(w, fmt.Errorf("%w: limit must be a positive integer", apperrors.ErrInvalidInput))
			return nil, 0, false
		}
		limit = n
	}
	return exec, exec.Limit(limit), true
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "caching is disabled"})
		return
	}
	deleted, err := h.cache.Invalidate(r.Context())
	if err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "cache invalidation failed"})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "keys_deleted": deleted})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

// writeError maps err to a status with apperrors.HTTPStatusCode. Parse
// errors also report the offending token.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatusCode(err)
	body := map[string]any{"error": err.Error()}
	if pe, ok := asParseError(err); ok {
		body["token"] = pe.Token
		body["offset"] = pe.Offset
	}
	if status >= http.StatusInternalServerError {
		body["error"] = http.StatusText(status)
	}
	h.writeJSON(w, status, body)
}

func asParseError(err error) (*apperrors.ParseError, bool) {
	var pe *apperrors.ParseError
	ok := errors.As(err, &pe)
	return pe, ok
}
