// Package report renders a finished scan to disk: a dated candidates file
// in the configured format plus a JSON failures file.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"breakout-scanner/internal/interfaces"
	"breakout-scanner/internal/types"
)

type Writer struct {
	dir   string
	saver rowSaver
	now   func() time.Time
}

var _ interfaces.ReportWriter = (*Writer)(nil)

func NewWriter(dir, format string) (*Writer, error) {
	if dir == "" {
		dir = "reports"
	}
	s := newRowSaver(format)
	if s == nil {
		return nil, fmt.Errorf("unsupported report format %q (use: csv, json, parquet)", format)
	}
	return &Writer{dir: dir, saver: s, now: time.Now}, nil
}

// Write persists breakout candidates (results classified FULL or PARTIAL)
// and, when present, the per-symbol failures. It returns the candidates
// file path, or "" when there were no candidates.
func (w *Writer) Write(results []types.BreakoutResult, failures map[string]string) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", err
	}
	stamp := w.now().Format("20060102_150405")

	if len(failures) > 0 {
		if err := w.writeFailures(failures, stamp); err != nil {
			return "", err
		}
	}

	rows := make([]Row, 0, len(results))
	for _, r := range results {
		if r.Classification == types.None {
			continue
		}
		rows = append(rows, Row{
			Symbol:         r.Symbol,
			Classification: string(r.Classification),
			ReferenceHigh:  r.ReferenceHigh,
			LatestClose:    r.LatestClose,
			PriceExcess:    r.PriceExcess,
			VolumeRatio:    r.VolumeRatio,
			ATR:            r.ATR,
			Timestamp:      r.Timestamp.Format("2006-01-02"),
		})
	}
	if len(rows) == 0 {
		return "", nil
	}

	path := filepath.Join(w.dir, fmt.Sprintf("breakout_stocks_%s.%s", stamp, w.saver.Extension()))
	if err := w.saver.Save(rows, path); err != nil {
		return "", err
	}
	return path, nil
}

type failureEntry struct {
	Symbol string `json:"symbol"`
	Reason string `json:"reason"`
}

func (w *Writer) writeFailures(failures map[string]string, stamp string) error {
	entries := make([]failureEntry, 0, len(failures))
	for sym, reason := range failures {
		entries = append(entries, failureEntry{Symbol: sym, Reason: reason})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Symbol < entries[j].Symbol })

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(w.dir, fmt.Sprintf("scan_failures_%s.json", stamp))
	return os.WriteFile(path, data, 0o644)
}
