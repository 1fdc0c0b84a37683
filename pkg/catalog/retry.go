package catalog

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for retry operations.
var (
	catalogRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "collector_catalog_retries_total",
		Help: "Total number of retry attempts by error kind",
	}, []string{"error_kind"})

	catalogRetryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "collector_catalog_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by error kind",
	}, []string{"error_kind"})
)

// RetryConfig holds the configuration for the retry decorator.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts (including the first).
	// 1 means a single attempt with no retry, which is the shipped default:
	// one attempt per set keeps a failed code's cost bounded.
	MaxAttempts int

	// InitialBackoff is the backoff before the first retry.
	InitialBackoff time.Duration

	// MaxBackoff caps the exponential backoff.
	MaxBackoff time.Duration

	// BackoffMultiplier is the multiplier for exponential backoff.
	BackoffMultiplier float64
}

// DefaultRetryConfig returns the default single-attempt configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       1,
		InitialBackoff:    2 * time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// retryFetcher decorates a Fetcher with exponential-backoff retry.
type retryFetcher struct {
	inner  Fetcher
	config RetryConfig
	logger zerolog.Logger
}

// WithRetry wraps a Fetcher so transient faults (network, 5xx remote
// status) are retried with exponential backoff and jitter. Permanent
// faults (4xx, decode) pass through immediately. With MaxAttempts <= 1
// the inner fetcher is returned unwrapped.
func WithRetry(inner Fetcher, cfg RetryConfig) Fetcher {
	if cfg.MaxAttempts <= 1 {
		return inner
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 2 * time.Second
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 30 * time.Second
	}
	if cfg.BackoffMultiplier <= 1 {
		cfg.BackoffMultiplier = 2.0
	}

	return &retryFetcher{
		inner:  inner,
		config: cfg,
		logger: log.With().Str("component", "catalog-retry").Logger(),
	}
}

// FetchSet implements Fetcher.
func (r *retryFetcher) FetchSet(ctx context.Context, code string) ([]Card, error) {
	var lastErr error
	backoff := r.config.InitialBackoff

	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		cards, err := r.inner.FetchSet(ctx, code)
		if err == nil {
			if attempt > 1 {
				r.logger.Info().
					Str("set_code", code).
					Int("attempt", attempt).
					Msg("Fetch succeeded after retry")
			}
			return cards, nil
		}

		lastErr = err

		if !retryable(err) {
			return nil, err
		}
		if attempt >= r.config.MaxAttempts {
			break
		}

		kind := KindOf(err)
		catalogRetriesTotal.WithLabelValues(string(kind)).Inc()

		// ±20% jitter so parallel collectors never sync up.
		jitter := time.Duration(float64(backoff) * (0.8 + rand.Float64()*0.4))

		r.logger.Debug().
			Str("set_code", code).
			Str("error_kind", string(kind)).
			Int("attempt", attempt).
			Dur("backoff", jitter).
			Msg("Retrying fetch after backoff")

		select {
		case <-ctx.Done():
			return nil, &Error{SetCode: code, Kind: ErrorKindNetwork, Err: ctx.Err()}
		case <-time.After(jitter):
		}

		backoff = time.Duration(float64(backoff) * r.config.BackoffMultiplier)
		if backoff > r.config.MaxBackoff {
			backoff = r.config.MaxBackoff
		}
	}

	kind := KindOf(lastErr)
	catalogRetryExhaustedTotal.WithLabelValues(string(kind)).Inc()
	r.logger.Warn().
		Str("set_code", code).
		Str("error_kind", string(kind)).
		Int("max_attempts", r.config.MaxAttempts).
		Msg("Retry attempts exhausted")

	return nil, &Error{
		SetCode: code,
		Kind:    kind,
		Message: fmt.Sprintf("%v after %d attempts", ErrRetryExhausted, r.config.MaxAttempts),
		Err:     lastErr,
	}
}
