// Package metrics provides the Prometheus registry reference for the card
// collector. All metrics are defined in their respective packages
// (catalog, pacer, batch, persist) via promauto to keep ownership local.
//
// This package documents the available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registerer used by the collector.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the matching gatherer, used by the CLI to report final
// request totals at the end of a run.
var Gatherer = prometheus.DefaultGatherer

// Metrics Documentation
//
// Catalog Metrics (pkg/catalog):
//   - collector_catalog_requests_total{status} (Counter): Requests by HTTP status
//   - collector_catalog_request_duration_seconds{set_code} (Histogram): Fetch duration per set
//   - collector_catalog_errors_total{kind} (Counter): Fetch faults by kind (network, remote-status, decode)
//   - collector_catalog_retries_total{error_kind} (Counter): Retry attempts by kind
//   - collector_catalog_retry_exhausted_total{error_kind} (Counter): Sets that exhausted retries
//
// Pacing Metrics (pkg/pacer):
//   - collector_pacer_waits_total (Counter): Pacer gate passes
//   - collector_pacer_wait_seconds (Histogram): Time blocked per gate pass
//
// Batch Metrics (pkg/batch):
//   - collector_sets_processed_total{outcome} (Counter): Sets by outcome (succeeded, failed)
//   - collector_batch_duration_seconds (Histogram): Whole-run duration
//
// Persistence Metrics (pkg/persist):
//   - collector_artifacts_written_total{representation} (Counter): Files written by representation
