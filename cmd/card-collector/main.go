// Command card-collector fetches card metadata for every set code listed
// in the input file and writes per-set, combined, and run metadata
// artifacts to the output directory.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/fabtools/card-collector/internal/config"
	"github.com/fabtools/card-collector/internal/setlist"
	"github.com/fabtools/card-collector/pkg/batch"
	"github.com/fabtools/card-collector/pkg/catalog"
	"github.com/fabtools/card-collector/pkg/logging"
	"github.com/fabtools/card-collector/pkg/metrics"
	"github.com/fabtools/card-collector/pkg/pacer"
	"github.com/fabtools/card-collector/pkg/persist"
)

// Exit codes. Three classes: clean, complete-but-degraded, aborted.
const (
	exitOK       = 0
	exitDegraded = 1
	exitAborted  = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	// .env is optional; real environment always wins.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		return exitAborted
	}

	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.Logging.Level),
		Pretty: cfg.Logging.Pretty,
		Output: os.Stderr,
	})

	codes, err := setlist.Read(cfg.Input.SetCodesFile)
	if err != nil {
		logger.Error().Err(err).Msg("Cannot read set code list, aborting before any network activity")
		return exitAborted
	}
	if len(codes) == 0 {
		logger.Info().Str("path", cfg.Input.SetCodesFile).Msg("No set codes found, nothing to do")
		return exitOK
	}

	logger.Info().
		Int("sets", len(codes)).
		Str("output_dir", cfg.Output.Dir).
		Dur("pacing_interval", cfg.Pacing.Interval.Std()).
		Msg("Starting card collector run")

	gate := pacer.New(cfg.Pacing.Interval.Std())

	client, err := catalog.New(catalog.Config{
		BaseURL:   cfg.API.BaseURL,
		UserAgent: cfg.API.UserAgent,
		Timeout:   cfg.API.Timeout.Std(),
		MaxPages:  cfg.API.MaxPages,
		Pacer:     gate,
	})
	if err != nil {
		logger.Error().Err(err).Msg("Cannot create catalog client")
		return exitAborted
	}

	fetcher := catalog.WithRetry(client, catalog.RetryConfig{
		MaxAttempts:    cfg.Retry.MaxAttempts,
		InitialBackoff: cfg.Retry.InitialBackoff.Std(),
	})

	runner := batch.NewRunner(fetcher, gate)
	acc := runner.Run(context.Background(), codes)

	writer := persist.NewWriter(cfg.Output.Dir)
	report, err := writer.Write(acc)
	if err != nil {
		logger.Error().Err(err).Msg("Persistence fault, aborting run")
		return exitAborted
	}

	printSummary(acc, report, cfg.Output.Dir)
	logRequestTotals(logger)

	if len(acc.Failed) > 0 {
		return exitDegraded
	}
	return exitOK
}

// printSummary enumerates per-set outcomes so an operator can tell a
// transient network issue from a permanently invalid code.
func printSummary(acc *batch.Accumulator, report *persist.WriteReport, outDir string) {
	fmt.Println("\n=== Run Summary ===")
	fmt.Printf("Sets attempted: %d\n", acc.Attempted())
	fmt.Printf("Sets succeeded: %d\n", len(acc.Succeeded))
	fmt.Printf("Sets failed:    %d\n", len(acc.Failed))
	fmt.Printf("Cards written:  %d\n", report.CardsWritten)
	fmt.Printf("Files written:  %d\n", report.FilesWritten)
	fmt.Printf("Output dir:     %s\n", outDir)

	if len(acc.Succeeded) > 0 {
		fmt.Println("\nSucceeded:")
		for _, s := range acc.Succeeded {
			fmt.Printf("  %s (%d cards)\n", s.Code, len(s.Cards))
		}
	}
	if len(acc.Failed) > 0 {
		fmt.Println("\nFailed:")
		for _, f := range acc.Failed {
			fmt.Printf("  %s (%s): %v\n", f.Code, f.Kind, f.Err)
		}
	}
}

// logRequestTotals reports final counter values from the metrics registry.
func logRequestTotals(logger zerolog.Logger) {
	families, err := metrics.Gatherer.Gather()
	if err != nil {
		return
	}
	for _, mf := range families {
		if mf.GetName() != "collector_catalog_requests_total" {
			continue
		}
		total := 0.0
		for _, m := range mf.GetMetric() {
			total += m.GetCounter().GetValue()
		}
		logger.Debug().Float64("requests_total", total).Msg("Catalog request totals")
	}
}
