package persist

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fabtools/card-collector/pkg/batch"
)

// RunMetadata is the immutable summary record of one batch run. It is
// built once after the batch completes and written exactly once.
type RunMetadata struct {
	RunID     string
	Timestamp time.Time
	Attempted int
	Succeeded int
	Failed    int
	Cards     int
	Latest    string
	Failures  []batch.Failure
}

// buildMetadata derives the run record from a completed accumulator.
func (w *Writer) buildMetadata(acc *batch.Accumulator) RunMetadata {
	latest := acc.LatestCode()
	if latest == "" {
		latest = LatestNone
	}

	return RunMetadata{
		RunID:     w.newRunID(),
		Timestamp: w.now().UTC(),
		Attempted: acc.Attempted(),
		Succeeded: len(acc.Succeeded),
		Failed:    len(acc.Failed),
		Cards:     acc.TotalCards(),
		Latest:    latest,
		Failures:  acc.Failed,
	}
}

// render produces the plain-text metadata record, including the failure
// ledger so operators can see which sets were skipped and why.
func (m RunMetadata) render() string {
	var b strings.Builder

	fmt.Fprintf(&b, "run_id: %s\n", m.RunID)
	fmt.Fprintf(&b, "run_timestamp: %s\n", m.Timestamp.Format(time.RFC3339))
	fmt.Fprintf(&b, "sets_attempted: %d\n", m.Attempted)
	fmt.Fprintf(&b, "sets_succeeded: %d\n", m.Succeeded)
	fmt.Fprintf(&b, "sets_failed: %d\n", m.Failed)
	fmt.Fprintf(&b, "cards_written: %d\n", m.Cards)
	fmt.Fprintf(&b, "latest_set: %s\n", m.Latest)

	if len(m.Failures) > 0 {
		b.WriteString("failed_sets:\n")
		for _, f := range m.Failures {
			fmt.Fprintf(&b, "  %s: %s\n", f.Code, f.Kind)
		}
	}

	return b.String()
}

// writeMetadata builds and writes the run metadata record.
func (w *Writer) writeMetadata(acc *batch.Accumulator, report *WriteReport) error {
	meta := w.buildMetadata(acc)
	path := filepath.Join(w.root, MetadataName)

	if err := w.writeText(path, meta.render()); err != nil {
		return err
	}
	report.FilesWritten++
	report.MetadataPath = path

	w.logger.Info().
		Str("run_id", meta.RunID).
		Int("attempted", meta.Attempted).
		Int("succeeded", meta.Succeeded).
		Int("failed", meta.Failed).
		Str("latest_set", meta.Latest).
		Msg("Run metadata written")

	return nil
}
