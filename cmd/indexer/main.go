// Command indexer builds the segment file queries are evaluated against.
//
// Documents are JSON objects, one per line:
//
//	{"id":"GX000-01","fields":{"title":"...","body":"..."}}
//	{"id":"GX000-02","tokens":{"body":["already","analyzed"]}}
//
// Usage:
//
//	indexer --input docs.jsonl [--output data/index.spdx] [--docstore]
//	indexer --consume            # index the documents topic until SIGTERM
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/docstore"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/indexer/consumer"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/postgres"
)

func main() {
	fs := pflag.NewFlagSet("indexer", pflag.ExitOnError)
	configPath := fs.String("config", "configs/development.yaml", "path to config file")
	input := fs.String("input", "", "JSONL document file")
	output := fs.String("output", "", "segment file to write (overrides config)")
	consume := fs.Bool("consume", false, "index documents from the Kafka documents topic")
	passthrough := fs.Bool("passthrough", false, "only lower-case and split text fields, no stemming or stop words")
	importDocs := fs.Bool("docstore", false, "also load the document table into Postgres")
	fs.Parse(os.Args[1:])

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *output != "" {
		cfg.Index.Path = *output
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	if (*input == "") == !*consume {
		fmt.Fprintln(os.Stderr, "exactly one of --input or --consume is required")
		os.Exit(2)
	}

	var analyzer tokenizer.Analyzer = tokenizer.English{}
	if *passthrough {
		analyzer = tokenizer.Passthrough{}
	}
	builder := indexer.NewBuilder(cfg.Index.Path, analyzer)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *consume {
		err = consumeDocuments(ctx, cfg, builder)
	} else {
		err = loadFile(ctx, *input, builder)
	}
	if err != nil {
		slog.Error("indexing failed", "error", err)
		os.Exit(1)
	}

	if *importDocs {
		if err := importDocTable(context.WithoutCancel(ctx), cfg, builder); err != nil {
			slog.Error("document table import failed", "error", err)
			os.Exit(1)
		}
	}
	slog.Info("indexer stopped", "docs", builder.DocCount(), "path", cfg.Index.Path)
}

func loadFile(ctx context.Context, path string, b *indexer.Builder) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	start := time.Now()
	n, err := b.LoadJSONL(ctx, f)
	if err != nil {
		return err
	}
	slog.Info("documents loaded", "count", n, "elapsed", time.Since(start).Round(time.Millisecond))
	return b.Flush()
}

func consumeDocuments(ctx context.Context, cfg *config.Config, b *indexer.Builder) error {
	interval := cfg.Index.FlushInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := b.StartFlushLoop(ctx, interval)
	c := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.Documents, consumer.HandleDocument(b))
	defer c.Close()

	slog.Info("indexer consuming from kafka",
		"topic", cfg.Kafka.Topics.Documents,
		"group", cfg.Kafka.ConsumerGroup,
		"flush_interval", interval,
	)
	err := c.Start(ctx)
	cancel()
	<-done
	return err
}

func importDocTable(ctx context.Context, cfg *config.Config, b *indexer.Builder) error {
	db, err := postgres.New(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	defer db.Close()

	store := docstore.New(db, nil)
	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}
	docs := b.Snapshot().Docs
	if err := store.Import(ctx, docs); err != nil {
		return err
	}
	slog.Info("document table imported", "docs", len(docs))
	return nil
}
