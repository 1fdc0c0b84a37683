// Package batch drives the sequential fetch loop over a list of set codes,
// isolating per-set failures and accumulating ordered outcomes.
package batch

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fabtools/card-collector/pkg/catalog"
)

// Prometheus metrics for batch processing.
var (
	setsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "collector_sets_processed_total",
		Help: "Total sets processed by outcome",
	}, []string{"outcome"})

	batchDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "collector_batch_duration_seconds",
		Help:    "Wall-clock duration of one whole batch run",
		Buckets: []float64{1, 5, 15, 60, 300, 900},
	})
)

// Pacer gates each outbound fetch.
type Pacer interface {
	Wait(ctx context.Context) error
}

// SetResult is one successfully fetched collection. Card order is as
// received from the catalog.
type SetResult struct {
	Code  string
	Cards []catalog.Card
}

// Failure is one fetch fault recorded in the ledger.
type Failure struct {
	Code string
	Kind catalog.ErrorKind
	Err  error
}

// Accumulator collects the outcomes of one batch run. Both slices keep
// input order, filtered by outcome; every input code lands in exactly one
// of them. It is owned by the Runner during the run and handed off to the
// persistence writer afterwards.
type Accumulator struct {
	Succeeded []SetResult
	Failed    []Failure
}

// Attempted returns the total number of codes processed.
func (a *Accumulator) Attempted() int {
	return len(a.Succeeded) + len(a.Failed)
}

// LatestCode returns the code of the last successful set in processing
// order, or "" if none succeeded.
func (a *Accumulator) LatestCode() string {
	if len(a.Succeeded) == 0 {
		return ""
	}
	return a.Succeeded[len(a.Succeeded)-1].Code
}

// TotalCards returns the number of card records across all successes.
func (a *Accumulator) TotalCards() int {
	n := 0
	for _, s := range a.Succeeded {
		n += len(s.Cards)
	}
	return n
}

// Runner processes set codes strictly sequentially: pace, fetch, record.
// A failed fetch never aborts the remaining codes, and no later code is
// dispatched before the current one has resolved.
type Runner struct {
	fetcher catalog.Fetcher
	pacer   Pacer
	logger  zerolog.Logger
}

// NewRunner creates a batch runner.
func NewRunner(fetcher catalog.Fetcher, pacer Pacer) *Runner {
	return &Runner{
		fetcher: fetcher,
		pacer:   pacer,
		logger:  log.With().Str("component", "batch-runner").Logger(),
	}
}

// Run processes every code in input order and returns the completed
// accumulator. Pacer faults (context cancellation) are recorded as
// network-kind failures for the affected code, keeping the loop total
// over the input.
func (r *Runner) Run(ctx context.Context, codes []string) *Accumulator {
	start := time.Now()
	defer func() {
		batchDurationSeconds.Observe(time.Since(start).Seconds())
	}()

	acc := &Accumulator{}

	r.logger.Info().Int("sets", len(codes)).Msg("Starting batch run")

	for i, code := range codes {
		if err := r.pacer.Wait(ctx); err != nil {
			r.record(acc, code, nil, err)
			continue
		}

		cards, err := r.fetcher.FetchSet(ctx, code)
		r.record(acc, code, cards, err)

		r.logger.Debug().
			Str("set_code", code).
			Int("position", i+1).
			Int("total", len(codes)).
			Msg("Set resolved")
	}

	r.logger.Info().
		Int("succeeded", len(acc.Succeeded)).
		Int("failed", len(acc.Failed)).
		Dur("duration", time.Since(start)).
		Msg("Batch run complete")

	return acc
}

// record routes one fetch outcome into the accumulator.
func (r *Runner) record(acc *Accumulator, code string, cards []catalog.Card, err error) {
	if err != nil {
		kind := catalog.KindOf(err)
		acc.Failed = append(acc.Failed, Failure{Code: code, Kind: kind, Err: err})
		setsProcessedTotal.WithLabelValues("failed").Inc()

		r.logger.Warn().
			Err(err).
			Str("set_code", code).
			Str("error_kind", string(kind)).
			Msg("Set fetch failed, continuing with remaining sets")
		return
	}

	acc.Succeeded = append(acc.Succeeded, SetResult{Code: code, Cards: cards})
	setsProcessedTotal.WithLabelValues("succeeded").Inc()
}
