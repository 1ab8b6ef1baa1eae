// Package notion collects journal text from a Notion database.
package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/japaniel/goodthings/pkg/apperr"
	"github.com/japaniel/goodthings/pkg/period"
)

const (
	DefaultBaseURL = "https://api.notion.com"
	APIVersion     = "2022-06-28"

	monthPageSize = 100
	maxBodySize   = 10 * 1024 * 1024
)

// Default property names of the journal database.
var (
	DefaultDateProperty   = "日付"
	DefaultTextProperties = []string{"良かったこと１", "良かったこと２", "良かったこと３"}
)

// Credentials authenticate against the Notion API.
type Credentials struct {
	Token string
}

// Record is one journal entry: its date and its text fields in property order.
// Absent properties are left out of Fields.
type Record struct {
	ID     string
	Date   time.Time
	Fields []string
}

// Collector queries a journal database and assembles the raw corpus.
type Collector struct {
	BaseURL        string
	HTTPClient     *http.Client
	DateProperty   string
	TextProperties []string
	Logger         *slog.Logger
}

// NewCollector returns a Collector for the public Notion API with the default
// journal property names.
func NewCollector() *Collector {
	return &Collector{
		BaseURL:        DefaultBaseURL,
		HTTPClient:     &http.Client{Timeout: 30 * time.Second},
		DateProperty:   DefaultDateProperty,
		TextProperties: DefaultTextProperties,
	}
}

// Collect returns the text of every record selected by p, fields joined by a
// single space and records joined by a single space. Zero matching records
// yield an empty string and a nil error.
func (c *Collector) Collect(ctx context.Context, creds Credentials, databaseID string, p period.Period) (string, error) {
	records, err := c.Records(ctx, creds, databaseID, p)
	if err != nil {
		return "", err
	}
	return Corpus(records), nil
}

// Records fetches the records selected by p, newest first.
func (c *Collector) Records(ctx context.Context, creds Credentials, databaseID string, p period.Period) ([]Record, error) {
	if strings.TrimSpace(creds.Token) == "" {
		return nil, apperr.Configurationf("notion.token", "notion token is not set")
	}
	if strings.TrimSpace(databaseID) == "" {
		return nil, apperr.Configurationf("notion.database_id", "notion database id is not set")
	}
	if _, err := uuid.Parse(databaseID); err != nil {
		return nil, apperr.Configurationf("notion.database_id", "malformed database id %q: %v", databaseID, err)
	}

	req := queryRequest{
		Sorts: []sortSpec{{Property: c.dateProperty(), Direction: "descending"}},
	}
	if start, end, ok := p.Window(); ok {
		req.PageSize = monthPageSize
		req.Filter = &filter{And: []propertyFilter{
			{Property: c.dateProperty(), Date: dateFilter{OnOrAfter: start.Format(time.RFC3339)}},
			{Property: c.dateProperty(), Date: dateFilter{OnOrBefore: end.Format(time.RFC3339)}},
		}}
	} else {
		req.PageSize = p.Limit()
	}

	var records []Record
	for {
		resp, err := c.query(ctx, creds, databaseID, req)
		if err != nil {
			return nil, err
		}
		for _, pg := range resp.Results {
			rec, ok := c.toRecord(pg, p.Mode() == period.ModeMonth)
			if !ok {
				continue
			}
			if !p.Contains(rec.Date) {
				c.logger().Debug("dropping record outside period", "page", pg.ID, "date", rec.Date, "period", p.String())
				continue
			}
			records = append(records, rec)
		}
		// Recent mode is a single page by definition.
		if p.Mode() == period.ModeRecent || !resp.HasMore || resp.NextCursor == "" {
			break
		}
		req.StartCursor = resp.NextCursor
	}

	c.logger().Info("collected journal records", "period", p.String(), "records", len(records))
	return records, nil
}

// Corpus joins the non-empty fields of records with single spaces.
func Corpus(records []Record) string {
	var parts []string
	for _, r := range records {
		for _, f := range r.Fields {
			if strings.TrimSpace(f) == "" {
				continue
			}
			parts = append(parts, f)
		}
	}
	return strings.Join(parts, " ")
}

func (c *Collector) query(ctx context.Context, creds Credentials, databaseID string, body queryRequest) (*queryResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}

	url := fmt.Sprintf("%s/v1/databases/%s/query", strings.TrimRight(c.baseURL(), "/"), databaseID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, apperr.Configurationf("notion.base_url", "build request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+creds.Token)
	req.Header.Set("Notion-Version", APIVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, apperr.Transient("notion query", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, apperr.Transient("notion query", fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return nil, classify(resp.StatusCode, data)
	}

	var out queryResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, apperr.Transient("notion query", fmt.Errorf("decode response: %w", err))
	}
	return &out, nil
}

// classify maps a non-200 Notion response onto the error taxonomy.
func classify(status int, body []byte) error {
	var ae apiError
	_ = json.Unmarshal(body, &ae)
	detail := errors.New(http.StatusText(status))
	if ae.Message != "" {
		detail = fmt.Errorf("%s: %s", ae.Code, ae.Message)
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return apperr.Configurationf("notion.token", "notion rejected the token (status %d): %v", status, detail)
	case status == http.StatusNotFound || status == http.StatusBadRequest:
		return apperr.Configurationf("notion.database_id", "notion rejected the query (status %d): %v", status, detail)
	default:
		return apperr.Transient("notion query", fmt.Errorf("status %d: %w", status, detail))
	}
}

// toRecord extracts a page's date and text fields. Undated pages are only
// dropped when dated is set; otherwise they keep a zero Date.
func (c *Collector) toRecord(pg page, dated bool) (Record, bool) {
	rec := Record{ID: pg.ID}
	dp, ok := pg.Properties[c.dateProperty()]
	switch {
	case !ok || dp.Date == nil || dp.Date.Start == "":
		if dated {
			c.logger().Warn("skipping page without date", "page", pg.ID)
			return Record{}, false
		}
	default:
		date, err := parseDate(dp.Date.Start, period.JST)
		if err != nil && dated {
			c.logger().Warn("skipping page with unreadable date", "page", pg.ID, "date", dp.Date.Start, "error", err)
			return Record{}, false
		}
		rec.Date = date
	}

	for _, name := range c.textProperties() {
		prop, ok := pg.Properties[name]
		if !ok {
			continue
		}
		rec.Fields = append(rec.Fields, prop.text())
	}
	return rec, true
}

func (c *Collector) baseURL() string {
	if c.BaseURL == "" {
		return DefaultBaseURL
	}
	return c.BaseURL
}

func (c *Collector) httpClient() *http.Client {
	if c.HTTPClient == nil {
		return http.DefaultClient
	}
	return c.HTTPClient
}

func (c *Collector) dateProperty() string {
	if c.DateProperty == "" {
		return DefaultDateProperty
	}
	return c.DateProperty
}

func (c *Collector) textProperties() []string {
	if len(c.TextProperties) == 0 {
		return DefaultTextProperties
	}
	return c.TextProperties
}

func (c *Collector) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}
