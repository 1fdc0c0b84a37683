// Package pacer enforces a minimum delay between successive outbound
// requests so the collector stays under the catalog's informal throttling
// threshold. The interval is a fixed configuration constant; no adaptive
// backoff is derived from server feedback.
package pacer

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for pacing.
var (
	pacerWaitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "collector_pacer_waits_total",
		Help: "Total number of pacer gate passes",
	})

	pacerWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "collector_pacer_wait_seconds",
		Help:    "Time spent blocked in the pacer per gate pass",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2},
	})
)

// DefaultInterval matches the delay the catalog has tolerated in practice.
const DefaultInterval = 500 * time.Millisecond

// Pacer releases callers at most once per interval. The first call returns
// immediately. State is the timestamp of the last release only; the mutex
// keeps Wait safe if callers ever dispatch concurrently.
type Pacer struct {
	interval time.Duration

	mu   sync.Mutex
	last time.Time

	// now is overridable for tests.
	now func() time.Time
}

// New creates a Pacer with the given minimum interval between releases.
// A non-positive interval disables pacing.
func New(interval time.Duration) *Pacer {
	return &Pacer{
		interval: interval,
		now:      time.Now,
	}
}

// Interval returns the configured minimum interval.
func (p *Pacer) Interval() time.Duration {
	return p.interval
}

// Wait blocks until at least the configured interval has passed since the
// previous call to Wait returned. It returns early with the context error
// if ctx is cancelled while waiting.
func (p *Pacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	start := p.now()
	defer func() {
		pacerWaitsTotal.Inc()
		pacerWaitSeconds.Observe(p.now().Sub(start).Seconds())
	}()

	if p.interval <= 0 || p.last.IsZero() {
		p.last = p.now()
		return nil
	}

	remaining := p.interval - p.now().Sub(p.last)
	if remaining > 0 {
		timer := time.NewTimer(remaining)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	p.last = p.now()
	return nil
}
