package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/japaniel/goodthings/pkg/apperr"
	"github.com/japaniel/goodthings/pkg/period"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(context.Context, period.Period) error { return nil }

func TestNewRejectsBadSpec(t *testing.T) {
	_, err := New("every day", noop, nil)
	require.ErrorIs(t, err, apperr.ErrConfiguration)
	assert.Contains(t, err.Error(), "schedule.cron")

	_, err = New(DefaultSpec, nil, nil)
	assert.Error(t, err)
}

func TestNextUsesJST(t *testing.T) {
	s, err := New("", noop, nil)
	require.NoError(t, err)

	// 2025-01-31 22:00 UTC is already 2025-02-01 07:00 in Tokyo.
	next := s.Next(time.Date(2025, time.January, 31, 22, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2025, time.March, 1, 6, 0, 0, 0, period.JST).Unix(), next.Unix())

	next = s.Next(time.Date(2025, time.January, 15, 0, 0, 0, 0, period.JST))
	assert.Equal(t, time.Date(2025, time.February, 1, 6, 0, 0, 0, period.JST).Unix(), next.Unix())
}

func TestTickAnalysesPreviousMonth(t *testing.T) {
	var got period.Period
	s, err := New(DefaultSpec, func(_ context.Context, p period.Period) error {
		got = p
		return nil
	}, nil)
	require.NoError(t, err)
	s.now = func() time.Time { return time.Date(2025, time.January, 1, 6, 0, 0, 0, period.JST) }

	s.tick(context.Background())
	assert.Equal(t, period.Month(2024, time.December), got)
}

func TestRunStopsOnCancel(t *testing.T) {
	s, err := New(DefaultSpec, noop, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- s.Run(ctx) }()
	cancel()

	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
