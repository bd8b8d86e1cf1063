package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/searcher/batch"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/searcher/setup"
)

func newRunCmd() *cobra.Command {
	var (
		queryFile  string
		outputFile string
		workers    int
		timeout    time.Duration
		limit      int
		runTag     string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Evaluate a query file and write a TREC run file",
		Long: `Reads one query per line as "id:query" and writes up to the result
limit of "id Q0 docid rank score tag" lines per query, in input order.
Queries that do not parse or time out are skipped. An operator the model
does not support, or an unreadable index, aborts the run and no output
file is written.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if queryFile != "" {
				cfg.Batch.QueryFile = queryFile
			}
			if outputFile != "" {
				cfg.Batch.OutputFile = outputFile
			}
			if cmd.Flags().Changed("workers") {
				cfg.Batch.Workers = workers
			}
			if cmd.Flags().Changed("timeout") {
				cfg.Batch.QueryTimeout = timeout
			}
			if runTag != "" {
				cfg.Search.RunTag = runTag
			}
			if cfg.Batch.QueryFile == "" || cfg.Batch.OutputFile == "" {
				return fmt.Errorf("a query file and an output file are required")
			}

			ctx, stop := signalContext()
			defer stop()
			m, stopMetrics := startMetrics(cfg)
			defer stopMetrics()

			c, err := setup.Open(ctx, cfg, "qryeval:", m)
			if err != nil {
				return err
			}
			defer c.Close()

			in, err := os.Open(cfg.Batch.QueryFile)
			if err != nil {
				return fmt.Errorf("opening query file: %w", err)
			}
			defer in.Close()
			queries, err := batch.ReadQueries(in)
			if err != nil {
				return err
			}

			runner := batch.New(c.Executor, batch.Options{
				Workers:      cfg.Batch.Workers,
				QueryTimeout: cfg.Batch.QueryTimeout,
				Limit:        limit,
				RunTag:       cfg.Search.RunTag,
				Trace:        cfg.Tracing.Enabled,
			}, c.Cache, c.Tracker(), m)

			start := time.Now()
			sum, err := writeAtomically(cfg.Batch.OutputFile, func(f *os.File) (batch.Summary, error) {
				return runner.Run(ctx, queries, f)
			})
			if err != nil {
				return err
			}
			slog.Info("run written",
				"output", cfg.Batch.OutputFile,
				"model", c.Executor.Model().String(),
				"queries", sum.Queries,
				"skipped", sum.Skipped,
				"elapsed", time.Since(start).Round(time.Millisecond),
			)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&queryFile, "queries", "", "query file (default from config)")
	f.StringVar(&outputFile, "output", "", "TREC output file (default from config)")
	f.IntVar(&workers, "workers", 4, "queries evaluated in parallel")
	f.DurationVar(&timeout, "timeout", 0, "per-query evaluation timeout, 0 for none")
	f.IntVar(&limit, "limit", 0, "results per query (default from config)")
	f.StringVar(&runTag, "run-tag", "", "run tag in the last output column")
	return cmd
}

// outputMode matches what os.Create would give the run file under a 022 umask.
const outputMode = 0o644

// writeAtomically runs fn against a temporary file next to path and
// renames it into place only if fn succeeds.
func writeAtomically(path string, fn func(f *os.File) (batch.Summary, error)) (batch.Summary, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".qryeval-*")
	if err != nil {
		return batch.Summary{}, fmt.Errorf("creating output file: %w", err)
	}
	defer os.Remove(tmp.Name())

	sum, err := fn(tmp)
	if err == nil {
		if err = tmp.Chmod(outputMode); err != nil {
			err = fmt.Errorf("setting output file mode: %w", err)
		}
	}
	if closeErr := tmp.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("closing output file: %w", closeErr)
	}
	if err != nil {
		return sum, err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return sum, fmt.Errorf("writing output file: %w", err)
	}
	return sum, nil
}
