// Package logging configures slog for the command line tools.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/japaniel/goodthings/pkg/period"
)

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level: %s", level)
	}
}

// New builds a logger writing to w. format is "console" (text) or "json".
// Timestamps are rendered in JST.
func New(w io.Writer, level, format string) (*slog.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) == 0 && a.Key == slog.TimeKey && a.Value.Kind() == slog.KindTime {
				return slog.String(slog.TimeKey, a.Value.Time().In(period.JST).Format("2006-01-02 15:04:05.000 -07:00"))
			}
			return a
		},
	}

	var handler slog.Handler
	switch format {
	case "", "console", "text":
		handler = slog.NewTextHandler(w, opts)
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		return nil, fmt.Errorf("invalid log format: %s", format)
	}
	return slog.New(handler), nil
}

// Stage logs the start of a labelled step and returns a func that logs its
// end with the elapsed time.
//
//	done := logging.Stage(logger, "collect")
//	defer done()
func Stage(logger *slog.Logger, name string, args ...any) func() {
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()
	logger.Debug("stage started", append([]any{"stage", name}, args...)...)
	return func() {
		logger.Info("stage finished", append([]any{"stage", name, "elapsed", time.Since(start).Round(time.Millisecond)}, args...)...)
	}
}
