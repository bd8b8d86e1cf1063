package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/searcher/batch"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/internal/searcher/setup"
)

func newQueryCmd() *cobra.Command {
	var (
		id    string
		limit int
		plan  bool
	)
	cmd := &cobra.Command{
		Use:   "query QUERY...",
		Short: "Evaluate one query and print its TREC lines to stdout",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			text := strings.Join(args, " ")

			ctx, stop := signalContext()
			defer stop()
			m, stopMetrics := startMetrics(cfg)
			defer stopMetrics()

			c, err := setup.Open(ctx, cfg, "qryeval:", m)
			if err != nil {
				return err
			}
			defer c.Close()

			if plan {
				p, err := c.Executor.Prepare(text)
				if err != nil {
					return err
				}
				fmt.Fprintln(os.Stdout, p.Canonical)
				return nil
			}

			runner := batch.New(c.Executor, batch.Options{
				Workers:      1,
				QueryTimeout: cfg.Batch.QueryTimeout,
				Limit:        limit,
				RunTag:       cfg.Search.RunTag,
				Trace:        cfg.Tracing.Enabled,
			}, c.Cache, c.Tracker(), m)
			sum, err := runner.Run(ctx, []batch.Query{{ID: id, Text: text, Line: 1}}, os.Stdout)
			if err != nil {
				return err
			}
			if sum.Skipped > 0 {
				return fmt.Errorf("query was skipped, see log")
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&id, "id", "1", "query id in the first output column")
	f.IntVar(&limit, "limit", 0, "number of results (default from config)")
	f.BoolVar(&plan, "plan", false, "print the parsed operator tree instead of evaluating")
	return cmd
}
