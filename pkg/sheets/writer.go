// Package sheets publishes monthly keyword rankings to a Google Sheets
// worksheet.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/japaniel/goodthings/pkg/report"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Header is the first row written to the worksheet.
var Header = []any{"単語", "出現回数"}

// Config holds the configuration for the Google Sheets writer.
type Config struct {
	ServiceAccountPath string
	SpreadsheetID      string
	// SheetName selects the worksheet; empty means the first one.
	SheetName string
}

// Validate checks if the configuration is usable.
func (c Config) Validate() error {
	if c.SpreadsheetID == "" {
		return errors.New("spreadsheet id is not set")
	}
	return nil
}

// Writer replaces the worksheet contents with a report's ranking.
type Writer struct {
	service *sheets.Service
	config  Config
	logger  *slog.Logger
}

// NewWriter creates a writer authenticated with the service account key in
// config. Extra client options are appended, which lets tests point the
// service at a local endpoint.
func NewWriter(ctx context.Context, config Config, logger *slog.Logger, opts ...option.ClientOption) (*Writer, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	var clientOpts []option.ClientOption
	if config.ServiceAccountPath != "" {
		jsonKey, err := os.ReadFile(config.ServiceAccountPath)
		if err != nil {
			return nil, fmt.Errorf("unable to read service account key file: %w", err)
		}
		jwtConfig, err := google.JWTConfigFromJSON(jsonKey, sheets.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("unable to parse service account key: %w", err)
		}
		clientOpts = append(clientOpts, option.WithTokenSource(jwtConfig.TokenSource(ctx)))
	}
	clientOpts = append(clientOpts, opts...)

	service, err := sheets.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	return &Writer{service: service, config: config, logger: logger}, nil
}

// Persist writes the header and ranked rows from A1, then clears any rows
// left over below them from a longer previous ranking.
func (w *Writer) Persist(ctx context.Context, r report.Report) error {
	values := [][]any{Header}
	for _, row := range r.Rows() {
		values = append(values, []any{row.Word, row.Count})
	}
	endRow := len(values)

	_, err := w.service.Spreadsheets.Values.
		Update(w.config.SpreadsheetID, w.rng(fmt.Sprintf("A1:B%d", endRow)), &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("update sheet: %w", err)
	}

	current, err := w.service.Spreadsheets.Values.
		Get(w.config.SpreadsheetID, w.rng("A:B")).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("read sheet: %w", err)
	}

	if n := len(current.Values); n > endRow {
		stale := w.rng(fmt.Sprintf("A%d:B%d", endRow+1, n))
		_, err := w.service.Spreadsheets.Values.
			BatchClear(w.config.SpreadsheetID, &sheets.BatchClearValuesRequest{Ranges: []string{stale}}).
			Context(ctx).
			Do()
		if err != nil {
			return fmt.Errorf("clear stale rows: %w", err)
		}
		w.logger.Debug("cleared stale sheet rows", "range", stale)
	}

	w.logger.Info("sheet updated", "spreadsheet_id", w.config.SpreadsheetID, "rows_written", endRow-1)
	return nil
}

// Name identifies the sink in logs.
func (w *Writer) Name() string { return "sheets" }

func (w *Writer) rng(cells string) string {
	if w.config.SheetName == "" {
		return cells
	}
	return fmt.Sprintf("'%s'!%s", w.config.SheetName, cells)
}
