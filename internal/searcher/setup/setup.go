// Package setup opens the index and the optional backing services
// (document table, result cache, analytics producer) from configuration
// and assembles the query executor the batch and HTTP front ends share.
package setup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/analytics/collector"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/docstore"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/searcher/retrieval"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/redis"
)

// Tracker is the method set shared by the batch runner and the HTTP
// handler for query events.
type Tracker interface {
	Track(event analytics.QueryEvent)
}

// Params collects the model parameters from cfg.
func Params(cfg *config.Config) retrieval.Params {
	r := cfg.Retrieval
	return retrieval.Params{
		NumDocs: r.NumDocs,
		B:       r.BM25.B,
		K1:      r.BM25.K1,
		K3:      r.BM25.K3,
		Mu:      r.Indri.Mu,
		Lambda:  r.Indri.Lambda,
	}
}

// ExecutorConfig resolves the configured model, tie break and limits.
// Field weights are passed on only when field expansion is switched on.
func ExecutorConfig(cfg *config.Config) (executor.Config, error) {
	model, err := retrieval.FromName(cfg.Retrieval.Algorithm, Params(cfg))
	if err != nil {
		return executor.Config{}, err
	}
	tb, err := ranker.ParseTieBreak(cfg.Search.TieBreak)
	if err != nil {
		return executor.Config{}, err
	}
	ec := executor.Config{
		Model:      model,
		TieBreak:   tb,
		Limit:      cfg.Search.DefaultLimit,
		MaxResults: cfg.Search.MaxResults,
	}
	if cfg.Retrieval.FieldExpansion {
		ec.FieldWeights = cfg.Retrieval.FieldWeights
	}
	return ec, nil
}

// Components are the opened services. Optional ones are nil when disabled
// in the configuration or, for the cache, unreachable at start-up.
type Components struct {
	Executor  *executor.Executor
	Params    retrieval.Params
	Segment   *segment.Reader
	Docstore  *docstore.Store
	Redis     *pkgredis.Client
	Cache     *cache.QueryCache
	Collector *collector.BatchCollector

	producer      *kafka.Producer
	stopCollector context.CancelFunc
	db            *postgres.Client
}

// Open opens the segment at cfg.Index.Path and the enabled backing
// services. cacheNamespace prefixes every Redis key so that services with
// different index builds do not share entries. The analytics collector, if
// any, runs until Close.
func Open(ctx context.Context, cfg *config.Config, cacheNamespace string, m *metrics.Metrics) (*Components, error) {
	ec, err := ExecutorConfig(cfg)
	if err != nil {
		return nil, err
	}

	c := &Components{Params: Params(cfg)}
	c.Segment, err = segment.OpenReader(cfg.Index.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening index %s: %v", apperrors.ErrIndexAccess, cfg.Index.Path, err)
	}
	slog.Info("index opened",
		"path", cfg.Index.Path,
		"terms", c.Segment.Terms(),
		"docs", c.Segment.DocCount(),
	)

	var store index.Store = c.Segment
	if cfg.Postgres.Enabled {
		c.db, err = postgres.New(ctx, cfg.Postgres)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("%w: %v", apperrors.ErrIndexAccess, err)
		}
		c.Docstore = docstore.New(c.db, m)
		store = index.Compose(c.Segment, c.Docstore, c.Docstore)
		slog.Info("document table served from postgres", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
	}
	c.Executor = executor.New(store, ec, m)

	if cfg.Redis.Enabled {
		c.Redis, err = pkgredis.NewClient(cfg.Redis, cacheNamespace)
		if err != nil {
			slog.Warn("redis unavailable, result caching disabled", "error", err)
		} else {
			c.Cache = cache.New(c.Redis, cfg.Redis.CacheTTL, m)
			slog.Info("result cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	if cfg.Kafka.Enabled {
		c.producer = kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.QueryEvents)
		c.Collector = collector.NewBatchCollector(c.producer, cfg.Analytics.BatchSize, cfg.Analytics.FlushInterval, m)
		var cctx context.Context
		cctx, c.stopCollector = context.WithCancel(context.WithoutCancel(ctx))
		c.Collector.Start(cctx)
		slog.Info("query events published", "topic", cfg.Kafka.Topics.QueryEvents)
	}
	return c, nil
}

// Tracker returns the analytics collector, or nil when events are not
// published.
func (c *Components) Tracker() Tracker {
	if c.Collector == nil {
		return nil
	}
	return c.Collector
}

// RegisterHealth adds a check per opened component. The cache only
// degrades the service.
func (c *Components) RegisterHealth(checker *health.Checker) {
	checker.Register("index", func(ctx context.Context) health.ComponentHealth {
		if c.Segment.DocCount() == 0 {
			return health.ComponentHealth{Status: health.StatusDown, Message: "index has no documents"}
		}
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("%d documents, %d terms", c.Segment.DocCount(), c.Segment.Terms()),
		}
	})
	if c.Docstore != nil {
		checker.Register("docstore", health.Ping(c.Docstore.Ping, health.StatusDown))
	}
	if c.Redis != nil {
		checker.Register("redis", health.Ping(c.Redis.Ping, health.StatusDegraded))
	}
}

// Close stops the collector after its final flush and closes everything
// that was opened.
func (c *Components) Close() error {
	var errs []error
	if c.Collector != nil {
		c.stopCollector()
		c.Collector.Close()
	}
	if c.producer != nil {
		errs = append(errs, c.producer.Close())
	}
	if c.Redis != nil {
		errs = append(errs, c.Redis.Close())
	}
	if c.db != nil {
		errs = append(errs, c.db.Close())
	}
	if c.Segment != nil {
		errs = append(errs, c.Segment.Close())
	}
	return errors.Join(errs...)
}
