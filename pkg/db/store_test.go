package db

import (
	"context"
	"testing"
	"time"

	"github.com/japaniel/goodthings/pkg/analyser"
	"github.com/japaniel/goodthings/pkg/dictionary"
	"github.com/japaniel/goodthings/pkg/period"
	"github.com/japaniel/goodthings/pkg/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	s, err := Open(ctx, DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	applied, err := s.Migrate(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, applied)
	return s
}

func TestMigrateCreatesSchema(t *testing.T) {
	s := setupTestDB(t)
	for _, table := range []string{"stop_words", "user_dict", "monthly_keywords"} {
		var name string
		err := s.DB().QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		require.NoError(t, err, "table %s missing", table)
	}

	// A second run has nothing left to apply.
	applied, err := s.Migrate(context.Background())
	require.NoError(t, err)
	assert.Zero(t, applied)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "mysql", "")
	assert.Error(t, err)
}

func TestStopWords(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, s.AddStopWord(ctx, "u1", "今日"))
	require.NoError(t, s.AddStopWord(ctx, "u1", " 明日 "))
	require.NoError(t, s.AddStopWord(ctx, "u2", "今日"))
	require.ErrorIs(t, s.AddStopWord(ctx, "u1", "今日"), ErrExists)
	require.Error(t, s.AddStopWord(ctx, "u1", "  "))

	words, err := s.StopWords(ctx, "u1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"今日", "明日"}, words)

	removed, err := s.RemoveStopWord(ctx, "u1", "今日")
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = s.RemoveStopWord(ctx, "u1", "今日")
	require.NoError(t, err)
	assert.False(t, removed)

	words, err = s.StopWords(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, []string{"今日"}, words)
}

func TestUserDictionary(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, s.AddEntry(ctx, "u1", dictionary.Entry{Surface: "朝活", Reading: "アサカツ"}))
	require.NoError(t, s.AddEntry(ctx, "u1", dictionary.Entry{Surface: "朝活", Reading: "アサカツドウ"}))
	require.NoError(t, s.AddEntry(ctx, "u1", dictionary.Entry{Surface: "推し活", POS: "カスタム", Reading: "オシカツ", Pronunciation: "オシカツ"}))
	require.ErrorIs(t, s.AddEntry(ctx, "u1", dictionary.Entry{Surface: "朝活", Reading: "アサカツ"}), ErrExists)

	entries, err := s.Entries(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []dictionary.Entry{
		{Surface: "朝活", POS: "名詞", Reading: "アサカツ", Pronunciation: "アサカツ"},
		{Surface: "朝活", POS: "名詞", Reading: "アサカツドウ", Pronunciation: "アサカツドウ"},
		{Surface: "推し活", POS: "カスタム", Reading: "オシカツ", Pronunciation: "オシカツ"},
	}, entries)

	n, err := s.RemoveEntry(ctx, "u1", "朝活")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	other, err := s.Entries(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestReplaceMonthlyKeywordsIsIdempotent(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	jan := time.Date(2025, time.January, 1, 0, 0, 0, 0, period.JST)
	feb := time.Date(2025, time.February, 1, 0, 0, 0, 0, period.JST)

	five := []analyser.TermCount{{Term: "散歩", Count: 5}, {Term: "コーヒー", Count: 4}, {Term: "本", Count: 3}, {Term: "雨", Count: 2}, {Term: "猫", Count: 1}}
	require.NoError(t, s.ReplaceMonthlyKeywords(ctx, "u1", jan, five))
	require.NoError(t, s.ReplaceMonthlyKeywords(ctx, "u1", jan, five))
	require.NoError(t, s.ReplaceMonthlyKeywords(ctx, "u1", feb, five[:1]))

	history, err := s.History(ctx, "u1", 0)
	require.NoError(t, err)
	require.Len(t, history, 6)
	assert.Equal(t, "2025-02", history[0].Month())
	assert.Equal(t, "2025-01", history[1].Month())
	assert.Equal(t, 1, history[1].Rank)
	assert.Equal(t, "散歩", history[1].Word)

	// A rerun with a smaller N leaves only N rows.
	require.NoError(t, s.ReplaceMonthlyKeywords(ctx, "u1", jan, five[:2]))
	history, err = s.History(ctx, "u1", 0)
	require.NoError(t, err)
	assert.Len(t, history, 3)

	// An empty ranking clears the month.
	require.NoError(t, s.Persist(ctx, report.Report{UserID: "u1", TargetMonth: jan}))
	history, err = s.History(ctx, "u1", 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "2025-02", history[0].Month())
}

func TestHistoryLimitsMonths(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	for m := time.January; m <= time.March; m++ {
		month := time.Date(2025, m, 1, 0, 0, 0, 0, period.JST)
		require.NoError(t, s.ReplaceMonthlyKeywords(ctx, "u1", month, []analyser.TermCount{{Term: "晴れ", Count: 2}, {Term: "雨", Count: 1}}))
	}

	history, err := s.History(ctx, "u1", 2)
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, "2025-03", history[0].Month())
	assert.Equal(t, "2025-02", history[3].Month())
}

func TestRejectsBlankUser(t *testing.T) {
	s := setupTestDB(t)
	_, err := s.StopWords(context.Background(), " ")
	assert.Error(t, err)
}
