// Package persist serializes batch results to the output directory: one
// JSON and one plain-text file per set, combined artifacts across all
// sets, and a run metadata record.
package persist

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fabtools/card-collector/pkg/batch"
	"github.com/fabtools/card-collector/pkg/catalog"
)

// Prometheus metrics for persistence.
var (
	artifactsWrittenTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "collector_artifacts_written_total",
		Help: "Total artifact files written by representation",
	}, []string{"representation"})
)

// Artifact filenames within the output directory.
const (
	CombinedJSONName = "all_sets_combined.json"
	CombinedTextName = "all_sets_combined.txt"
	MetadataName     = "run_metadata.txt"
)

// LatestNone is the metadata sentinel written when no set succeeded.
const LatestNone = "none"

// WriteReport summarizes one completed write phase.
type WriteReport struct {
	FilesWritten int
	CardsWritten int
	MetadataPath string
}

// Writer persists an accumulator to a destination directory. Any write
// fault aborts the remaining phase and escalates: a storage fault likely
// affects all subsequent writes equally, so continuing would produce
// misleading partial output. Files already written stay in place.
type Writer struct {
	root   string
	logger zerolog.Logger

	// Overridable for deterministic tests.
	now      func() time.Time
	newRunID func() string
}

// NewWriter creates a writer rooted at dir.
func NewWriter(dir string) *Writer {
	return &Writer{
		root:     dir,
		logger:   log.With().Str("component", "persist-writer").Logger(),
		now:      time.Now,
		newRunID: func() string { return uuid.New().String() },
	}
}

// Write serializes every successful set, the combined artifacts, and the
// run metadata. Failed sets are never written as card-data files; they
// surface only in the metadata ledger, so a failed collection can never
// be mistaken for an empty one.
func (w *Writer) Write(acc *batch.Accumulator) (*WriteReport, error) {
	if err := os.MkdirAll(w.root, 0755); err != nil {
		return nil, fmt.Errorf("create output directory %s: %w", w.root, err)
	}

	report := &WriteReport{}

	for _, set := range acc.Succeeded {
		if err := w.writeSet(set, report); err != nil {
			return nil, err
		}
	}

	if err := w.writeCombined(acc, report); err != nil {
		return nil, err
	}

	if err := w.writeMetadata(acc, report); err != nil {
		return nil, err
	}

	report.CardsWritten = acc.TotalCards()

	w.logger.Info().
		Int("files", report.FilesWritten).
		Int("cards", report.CardsWritten).
		Str("path", w.root).
		Msg("Write phase complete")

	return report, nil
}

// writeSet writes both representations for one successful set.
func (w *Writer) writeSet(set batch.SetResult, report *WriteReport) error {
	jsonPath := filepath.Join(w.root, set.Code+"_cards.json")
	if err := w.writeJSON(jsonPath, set.Cards); err != nil {
		return err
	}
	report.FilesWritten++

	textPath := filepath.Join(w.root, set.Code+"_cards.txt")
	text := renderSet(set.Code, set.Cards)
	if err := w.writeText(textPath, text); err != nil {
		return err
	}
	report.FilesWritten++

	w.logger.Debug().
		Str("set_code", set.Code).
		Int("cards", len(set.Cards)).
		Msg("Set artifacts written")

	return nil
}

// writeCombined writes the all-sets artifacts, concatenating card records
// in accumulator order.
func (w *Writer) writeCombined(acc *batch.Accumulator, report *WriteReport) error {
	combined := make([]catalog.Card, 0, acc.TotalCards())
	for _, set := range acc.Succeeded {
		combined = append(combined, set.Cards...)
	}

	if err := w.writeJSON(filepath.Join(w.root, CombinedJSONName), combined); err != nil {
		return err
	}
	report.FilesWritten++

	var text string
	for _, set := range acc.Succeeded {
		text += renderSet(set.Code, set.Cards)
	}
	if err := w.writeText(filepath.Join(w.root, CombinedTextName), text); err != nil {
		return err
	}
	report.FilesWritten++

	return nil
}

// writeJSON writes cards as an indented JSON array, re-encoding the raw
// records field-accurately.
func (w *Writer) writeJSON(path string, cards []catalog.Card) error {
	if cards == nil {
		cards = []catalog.Card{}
	}
	data, err := json.MarshalIndent(cards, "", "  ")
	if err != nil {
		return fmt.Errorf("serialize %s: %w", filepath.Base(path), err)
	}
	if err := writeFileAtomic(path, append(data, '\n')); err != nil {
		return err
	}
	artifactsWrittenTotal.WithLabelValues("json").Inc()
	return nil
}

// writeText writes a plain-text artifact.
func (w *Writer) writeText(path, text string) error {
	if err := writeFileAtomic(path, []byte(text)); err != nil {
		return err
	}
	artifactsWrittenTotal.WithLabelValues("text").Inc()
	return nil
}

// writeFileAtomic writes via a temp file and rename so an artifact is
// either fully written or absent, never truncated.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", filepath.Base(path), err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename to %s: %w", path, err)
	}
	return nil
}
