package notion

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/japaniel/goodthings/pkg/apperr"
	"github.com/japaniel/goodthings/pkg/period"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDatabaseID = "0f5c3a7e9b8d4c2a8e1f6a7b9c0d1e2f"

// fakeNotion serves canned query pages and records the request bodies.
type fakeNotion struct {
	mu       sync.Mutex
	requests []queryRequest
	pages    [][]map[string]any
	status   int
	body     string
}

func (f *fakeNotion) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if r.Header.Get("Authorization") != "Bearer secret" || r.Header.Get("Notion-Version") != APIVersion {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.requests = append(f.requests, req)

	if f.status != 0 {
		w.WriteHeader(f.status)
		_, _ = w.Write([]byte(f.body))
		return
	}

	idx := 0
	if req.StartCursor != "" {
		fmt.Sscanf(req.StartCursor, "cursor-%d", &idx)
	}
	resp := map[string]any{"results": f.pages[idx], "has_more": idx+1 < len(f.pages)}
	if idx+1 < len(f.pages) {
		resp["next_cursor"] = fmt.Sprintf("cursor-%d", idx+1)
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func entry(id, date string, texts ...string) map[string]any {
	props := map[string]any{
		"日付": map[string]any{"type": "date", "date": map[string]any{"start": date}},
	}
	for i, t := range texts {
		if t == "-" {
			continue // property absent
		}
		props[DefaultTextProperties[i]] = map[string]any{
			"type":      "rich_text",
			"rich_text": []map[string]any{{"plain_text": t}},
		}
	}
	return map[string]any{"id": id, "properties": props}
}

func newTestCollector(t *testing.T, f *fakeNotion) *Collector {
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	c := NewCollector()
	c.BaseURL = srv.URL
	c.HTTPClient = srv.Client()
	return c
}

func TestCollectRecentJoinsFields(t *testing.T) {
	f := &fakeNotion{pages: [][]map[string]any{{
		entry("a", "2025-01-03", "散歩", "", "コーヒー"),
		entry("b", "2025-01-02", "読書", "-", "-"),
	}}}
	c := newTestCollector(t, f)

	text, err := c.Collect(context.Background(), Credentials{Token: "secret"}, testDatabaseID, period.Recent(30))
	require.NoError(t, err)
	assert.Equal(t, "散歩 コーヒー 読書", text)

	require.Len(t, f.requests, 1)
	assert.Nil(t, f.requests[0].Filter)
	assert.Equal(t, 30, f.requests[0].PageSize)
	assert.Equal(t, []sortSpec{{Property: "日付", Direction: "descending"}}, f.requests[0].Sorts)
}

func undated(id, text string) map[string]any {
	return map[string]any{"id": id, "properties": map[string]any{
		"日付": map[string]any{"type": "date", "date": nil},
		DefaultTextProperties[0]: map[string]any{
			"type":      "rich_text",
			"rich_text": []map[string]any{{"plain_text": text}},
		},
	}}
}

func TestCollectRecentKeepsUndatedPages(t *testing.T) {
	f := &fakeNotion{pages: [][]map[string]any{{
		entry("a", "2025-01-03", "散歩"),
		undated("b", "読書"),
	}}}
	c := newTestCollector(t, f)

	text, err := c.Collect(context.Background(), Credentials{Token: "secret"}, testDatabaseID, period.Recent(30))
	require.NoError(t, err)
	assert.Equal(t, "散歩 読書", text)
}

func TestCollectMonthDropsUndatedPages(t *testing.T) {
	f := &fakeNotion{pages: [][]map[string]any{{
		entry("a", "2025-01-03", "散歩"),
		undated("b", "読書"),
	}}}
	c := newTestCollector(t, f)

	text, err := c.Collect(context.Background(), Credentials{Token: "secret"}, testDatabaseID, period.Month(2025, time.January))
	require.NoError(t, err)
	assert.Equal(t, "散歩", text)
}

func TestCollectMonthFiltersInJSTAndPaginates(t *testing.T) {
	f := &fakeNotion{pages: [][]map[string]any{
		{
			entry("last", "2025-01-31T23:59:59.000+09:00", "月末"),
			entry("leak", "2025-02-01T00:00:00.000+09:00", "翌月"),
		},
		{
			entry("first", "2025-01-01", "元日"),
			entry("prev", "2024-12-31T23:59:59+09:00", "大晦日"),
		},
	}}
	c := newTestCollector(t, f)

	text, err := c.Collect(context.Background(), Credentials{Token: "secret"}, testDatabaseID, period.Month(2025, time.January))
	require.NoError(t, err)
	assert.Equal(t, "月末 元日", text)

	require.Len(t, f.requests, 2)
	first := f.requests[0]
	require.NotNil(t, first.Filter)
	require.Len(t, first.Filter.And, 2)
	assert.Equal(t, "2025-01-01T00:00:00+09:00", first.Filter.And[0].Date.OnOrAfter)
	assert.Equal(t, "2025-01-31T23:59:59+09:00", first.Filter.And[1].Date.OnOrBefore)
	assert.Equal(t, "cursor-1", f.requests[1].StartCursor)
}

func TestCollectNoRecordsIsEmpty(t *testing.T) {
	f := &fakeNotion{pages: [][]map[string]any{{}}}
	c := newTestCollector(t, f)

	text, err := c.Collect(context.Background(), Credentials{Token: "secret"}, testDatabaseID, period.Month(2025, time.March))
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestCollectConfigurationErrors(t *testing.T) {
	c := NewCollector()
	ctx := context.Background()

	_, err := c.Collect(ctx, Credentials{}, testDatabaseID, period.Recent(0))
	require.ErrorIs(t, err, apperr.ErrConfiguration)
	assert.Contains(t, err.Error(), "notion.token")

	_, err = c.Collect(ctx, Credentials{Token: "secret"}, "", period.Recent(0))
	require.ErrorIs(t, err, apperr.ErrConfiguration)
	assert.Contains(t, err.Error(), "notion.database_id")

	_, err = c.Collect(ctx, Credentials{Token: "secret"}, "not-an-id", period.Recent(0))
	require.ErrorIs(t, err, apperr.ErrConfiguration)
}

func TestCollectClassifiesHTTPFailures(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, apperr.ErrConfiguration},
		{http.StatusNotFound, apperr.ErrConfiguration},
		{http.StatusTooManyRequests, apperr.ErrTransientIO},
		{http.StatusBadGateway, apperr.ErrTransientIO},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			f := &fakeNotion{status: tt.status, body: `{"object":"error","code":"x","message":"nope"}`}
			c := newTestCollector(t, f)
			_, err := c.Collect(context.Background(), Credentials{Token: "secret"}, testDatabaseID, period.Recent(5))
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCollectNetworkFailureIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	c := NewCollector()
	c.BaseURL = srv.URL
	_, err := c.Collect(context.Background(), Credentials{Token: "secret"}, testDatabaseID, period.Recent(5))
	require.ErrorIs(t, err, apperr.ErrTransientIO)
	assert.True(t, apperr.IsRetryable(err))
}

func TestCorpusSkipsBlankFields(t *testing.T) {
	got := Corpus([]Record{
		{Fields: []string{"", "  "}},
		{Fields: []string{"晴れ", "", "雨"}},
	})
	assert.Equal(t, "晴れ 雨", got)
	assert.False(t, strings.Contains(got, "  "))
}
