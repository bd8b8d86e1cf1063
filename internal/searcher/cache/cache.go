// Package cache memoizes ranked query results in Redis. Entries are keyed by
// the canonical form of the parsed query, so queries that differ only in
// spacing, keyword case or separators share an entry.
package cache

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/searcher/retrieval"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/resilience"
)

const keyPrefix = "result:"

// DefaultComputeTimeout bounds a shared evaluation once it no longer
// follows the caller that started it.
const DefaultComputeTimeout = 30 * time.Second

// Backend is the subset of pkg/redis.Client the cache uses.
type Backend interface {
	GetJSON(ctx context.Context, key string, dst any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	Flush(ctx context.Context) (int64, error)
}

type QueryCache struct {
	backend Backend
	ttl     time.Duration
	breaker *resilience.CircuitBreaker
	group   singleflight.Group
	timeout time.Duration
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// New wraps backend. Backend failures never fail a query: reads fall back
// to evaluation and writes are dropped, and after repeated failures the
// backend is skipped until the breaker closes again. m may be nil.
func New(backend Backend, ttl time.Duration, m *metrics.Metrics) *QueryCache {
	cbCfg := resilience.CircuitBreakerConfig{FailureThreshold: 5, ResetTimeout: 30 * time.Second}
	if m != nil {
		cbCfg.OnStateChange = func(name string, _, to resilience.State) {
			m.CircuitState.WithLabelValues(name).Set(float64(to))
		}
	}
	return &QueryCache{
		backend: backend,
		ttl:     ttl,
		breaker: resilience.NewCircuitBreaker("result-cache", cbCfg),
		timeout: DefaultComputeTimeout,
		metrics: m,
		logger:  slog.Default().With("component", "query-cache"),
	}
}

// Key identifies a result by everything that can change it.
func Key(model retrieval.Model, canonical string, limit int, tb ranker.TieBreak) string {
	raw := fmt.Sprintf("%s|%s|limit=%d|tie=%s", model.String(), canonical, limit, tb)
	sum := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, sum[:16])
}

func (c *QueryCache) Get(ctx context.Context, key string) (*executor.Result, bool) {
	var result executor.Result
	var found bool
	err := c.breaker.Execute(func() error {
		var err error
		found, err = c.backend.GetJSON(ctx, key, &result)
		return err
	})
	if err != nil {
		c.logger.Warn("cache get failed", "key", key, "error", err)
	}
	if err != nil || !found {
		c.misses.Add(1)
		if c.metrics != nil {
			c.metrics.CacheMissesTotal.Inc()
		}
		return nil, false
	}
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
	return &result, true
}

func (c *QueryCache) Set(ctx context.Context, key string, result *executor.Result) {
	err := c.breaker.Execute(func() error {
		return c.backend.SetJSON(ctx, key, result, c.ttl)
	})
	if err != nil {
		c.logger.Warn("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached result for key, or runs compute once
// for all concurrent callers asking for the same key. cached reports
// whether the result came from the backend.
//
// The shared compute runs detached from any single caller's cancellation,
// bounded by the cache's compute timeout. A caller whose own ctx ends stops
// waiting and gets ctx.Err(); the others still receive the result.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	key string,
	compute func(ctx context.Context) (*executor.Result, error),
) (result *executor.Result, cached bool, err error) {
	if r, ok := c.Get(ctx, key); ok {
		return r, true, nil
	}
	ch := c.group.DoChan(key, func() (any, error) {
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		r, err := compute(shared)
		if err != nil {
			return nil, err
		}
		c.Set(shared, key, r)
		return r, nil
	})
	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, false, res.Err
		}
		return res.Val.(*executor.Result), false, nil
	}
}

// Invalidate drops every cached result, e.g. after the index is rebuilt.
func (c *QueryCache) Invalidate(ctx context.Context) (int64, error) {
	deleted, err := c.backend.Flush(ctx)
	if err != nil {
		return deleted, fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return deleted, nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}
