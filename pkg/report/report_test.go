package report

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/japaniel/goodthings/pkg/analyser"
	"github.com/japaniel/goodthings/pkg/period"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() Report {
	return Report{
		RunID:       "01J0000000000000000000000",
		UserID:      "user-1",
		Period:      period.Month(2025, time.January),
		TargetMonth: time.Date(2025, time.January, 1, 0, 0, 0, 0, period.JST),
		Ranked:      []analyser.TermCount{{Term: "散歩", Count: 4}, {Term: "コーヒー", Count: 2}},
	}
}

func TestJSONWriterShape(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "output")
	w := JSONWriter{Dir: dir}

	require.NoError(t, w.Persist(context.Background(), sample()))

	path := filepath.Join(dir, "monthly_keywords_2025-01.json")
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.True(t, strings.Contains(string(data), "\"word\": \"散歩\""), "japanese must not be escaped")
	assert.True(t, strings.HasPrefix(string(data), "[\n  {"))

	var rows []map[string]any
	require.NoError(t, json.Unmarshal(data, &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, map[string]any{
		"user_id":      "user-1",
		"target_month": "2025-01-01",
		"word":         "散歩",
		"count":        float64(4),
	}, rows[0])
}

func TestJSONWriterEmptyReportClearsFile(t *testing.T) {
	dir := t.TempDir()
	w := JSONWriter{Dir: dir}
	r := sample()
	require.NoError(t, w.Persist(context.Background(), r))

	r.Ranked = nil
	require.NoError(t, w.Persist(context.Background(), r))

	data, err := os.ReadFile(w.Path(r))
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(data))
}
