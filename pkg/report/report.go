// Package report carries a finished run's ranking to its sinks.
package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/japaniel/goodthings/pkg/analyser"
	"github.com/japaniel/goodthings/pkg/period"
)

// Report is the outcome of one pipeline run.
type Report struct {
	RunID       string
	UserID      string
	Period      period.Period
	TargetMonth time.Time // first day of the month, JST
	Ranked      []analyser.TermCount
	GeneratedAt time.Time
}

// MonthKey formats the target month as YYYY-MM.
func (r Report) MonthKey() string { return r.TargetMonth.Format("2006-01") }

// Row is the flat record written to JSON and spreadsheet sinks.
type Row struct {
	UserID      string `json:"user_id"`
	TargetMonth string `json:"target_month"`
	Word        string `json:"word"`
	Count       int    `json:"count"`
}

// Rows flattens the ranking in rank order.
func (r Report) Rows() []Row {
	rows := make([]Row, 0, len(r.Ranked))
	for _, tc := range r.Ranked {
		rows = append(rows, Row{
			UserID:      r.UserID,
			TargetMonth: r.TargetMonth.Format("2006-01-02"),
			Word:        tc.Term,
			Count:       tc.Count,
		})
	}
	return rows
}

// JSONWriter writes monthly_keywords_<YYYY-MM>.json files into Dir.
type JSONWriter struct {
	Dir string
}

// Path returns the file a report for month is written to.
func (w JSONWriter) Path(r Report) string {
	return filepath.Join(w.Dir, fmt.Sprintf("monthly_keywords_%s.json", r.MonthKey()))
}

// Persist writes the rows of r, replacing any previous file for the month.
func (w JSONWriter) Persist(ctx context.Context, r Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r.Rows()); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	path := w.Path(r)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return os.Rename(tmp, path)
}

// Name identifies the sink in logs.
func (w JSONWriter) Name() string { return "json" }
