package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, lvl)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}

func TestJSONTimestampsAreJST(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "info", "json")
	require.NoError(t, err)

	logger.Info("hello")
	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.True(t, strings.HasSuffix(rec["time"].(string), "+09:00"), "got %v", rec["time"])
}

func TestStageLogsElapsed(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "debug", "console")
	require.NoError(t, err)

	done := Stage(logger, "collect", "period", "2025-01")
	done()

	out := buf.String()
	assert.Contains(t, out, "stage started")
	assert.Contains(t, out, "stage finished")
	assert.Contains(t, out, "elapsed=")
	assert.Contains(t, out, "period=2025-01")
}

func TestInvalidFormat(t *testing.T) {
	_, err := New(&bytes.Buffer{}, "info", "xml")
	assert.Error(t, err)
}
