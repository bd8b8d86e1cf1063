// Command qryeval evaluates structured queries against a segment file and
// writes ranked results in TREC run format.
//
// Usage:
//
//	qryeval run --params experiment.param
//	qryeval run --config configs/batch.yaml --queries queries.txt --output run.teIn
//	qryeval query --model bm25 '#SUM( heart rate )'
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/metrics"
)

type globalFlags struct {
	configPath string
	paramsPath string
	model      string
	tieBreak   string
	indexPath  string
	logLevel   string
	trace      bool
	serveStats bool
}

var flags globalFlags

var rootCmd = &cobra.Command{
	Use:           "qryeval",
	Short:         "Evaluate structured queries with a ranked retrieval model",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "YAML config file")
	pf.StringVar(&flags.paramsPath, "params", "", "legacy key=value parameter file (overrides --config)")
	pf.StringVar(&flags.model, "model", "", "retrieval model, e.g. RankedBoolean, BM25, Indri")
	pf.StringVar(&flags.tieBreak, "tiebreak", "", "order of equal scores by external id: desc or asc")
	pf.StringVar(&flags.indexPath, "index", "", "segment file to evaluate against")
	pf.StringVar(&flags.logLevel, "log-level", "", "debug, info, warn or error")
	pf.BoolVar(&flags.trace, "trace", false, "log parse/evaluate/rank spans per query")
	pf.BoolVar(&flags.serveStats, "metrics", false, "serve Prometheus metrics while running")

	rootCmd.AddCommand(newRunCmd(), newQueryCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads --params or --config and applies the command-line
// overrides. Logs go to stderr so result lines on stdout stay clean.
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if flags.paramsPath != "" {
		cfg, err = config.LoadParams(flags.paramsPath)
	} else {
		cfg, err = config.Load(flags.configPath)
	}
	if err != nil {
		return nil, err
	}
	if flags.model != "" {
		cfg.Retrieval.Algorithm = flags.model
	}
	if flags.tieBreak != "" {
		cfg.Search.TieBreak = flags.tieBreak
	}
	if flags.indexPath != "" {
		cfg.Index.Path = flags.indexPath
	}
	if flags.logLevel != "" {
		cfg.Logging.Level = flags.logLevel
	}
	if flags.trace {
		cfg.Tracing.Enabled = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger.SetupWriter(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	return cfg, nil
}

// startMetrics registers the collectors and, with --metrics, serves them
// for the duration of the command.
func startMetrics(cfg *config.Config) (*metrics.Metrics, func()) {
	m := metrics.New()
	if !flags.serveStats || !cfg.Metrics.Enabled {
		return m, func() {}
	}
	shutdown := metrics.StartServer(cfg.Metrics.Port)
	return m, func() {
		if err := shutdown(context.Background()); err != nil {
			slog.Error("metrics server shutdown", "error", err)
		}
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
