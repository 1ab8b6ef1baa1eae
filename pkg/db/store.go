package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/japaniel/goodthings/pkg/analyser"
	"github.com/japaniel/goodthings/pkg/dictionary"
	"github.com/japaniel/goodthings/pkg/report"
)

// ErrExists is returned when adding a stop word or dictionary entry the user
// already has.
var ErrExists = errors.New("already registered")

// isUniqueConstraintErr returns true when the error indicates a unique/constraint violation
func isUniqueConstraintErr(err error) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "unique") ||
		strings.Contains(s, "constraint failed") ||
		strings.Contains(s, "duplicate key")
}

// checkUser rejects blank ids, and ids that are not UUIDs on Postgres where
// user_id is a uuid column.
func (s *Store) checkUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("userID must be non-empty")
	}
	if s.driver == DriverPostgres {
		if _, err := uuid.Parse(userID); err != nil {
			return fmt.Errorf("userID %q is not a uuid: %w", userID, err)
		}
	}
	return nil
}

func exec(ctx context.Context, db DBExecutor, b squirrel.Sqlizer) (sql.Result, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	return db.ExecContext(ctx, query, args...)
}

func query(ctx context.Context, db DBExecutor, b squirrel.Sqlizer) (*sql.Rows, error) {
	q, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	return db.QueryContext(ctx, q, args...)
}

// AddStopWord registers word for userID.
func (s *Store) AddStopWord(ctx context.Context, userID, word string) error {
	if err := s.checkUser(userID); err != nil {
		return err
	}
	word = strings.TrimSpace(word)
	if word == "" {
		return fmt.Errorf("word must be non-empty")
	}
	_, err := exec(ctx, s.db, s.sb.Insert("stop_words").
		Columns("user_id", "word").
		Values(userID, word))
	if isUniqueConstraintErr(err) {
		return fmt.Errorf("stop word %q: %w", word, ErrExists)
	}
	if err != nil {
		return fmt.Errorf("insert stop word: %w", err)
	}
	return nil
}

// RemoveStopWord deletes word and reports whether it existed.
func (s *Store) RemoveStopWord(ctx context.Context, userID, word string) (bool, error) {
	if err := s.checkUser(userID); err != nil {
		return false, err
	}
	res, err := exec(ctx, s.db, s.sb.Delete("stop_words").
		Where(squirrel.Eq{"user_id": userID, "word": strings.TrimSpace(word)}))
	if err != nil {
		return false, fmt.Errorf("delete stop word: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// StopWords returns the user's stop words in word order.
func (s *Store) StopWords(ctx context.Context, userID string) ([]string, error) {
	if err := s.checkUser(userID); err != nil {
		return nil, err
	}
	rows, err := query(ctx, s.db, s.sb.Select("word").
		From("stop_words").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("word"))
	if err != nil {
		return nil, fmt.Errorf("select stop words: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var w string
		if err := rows.Scan(&w); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// AddEntry registers a user dictionary entry. The same word may carry
// several readings; an identical (word, reading) pair is ErrExists.
func (s *Store) AddEntry(ctx context.Context, userID string, e dictionary.Entry) error {
	if err := s.checkUser(userID); err != nil {
		return err
	}
	e.Surface = strings.TrimSpace(e.Surface)
	if e.Surface == "" {
		return fmt.Errorf("word must be non-empty")
	}
	if e.POS == "" {
		e.POS = dictionary.NounPOS
	}
	if e.Pronunciation == "" {
		e.Pronunciation = e.Reading
	}
	_, err := exec(ctx, s.db, s.sb.Insert("user_dict").
		Columns("user_id", "word", "part_of_speech", "reading", "pronunciation").
		Values(userID, e.Surface, e.POS, e.Reading, e.Pronunciation))
	if isUniqueConstraintErr(err) {
		return fmt.Errorf("entry %q (%s): %w", e.Surface, e.Reading, ErrExists)
	}
	if err != nil {
		return fmt.Errorf("insert user dictionary entry: %w", err)
	}
	return nil
}

// RemoveEntry deletes every reading of word and returns how many rows went.
func (s *Store) RemoveEntry(ctx context.Context, userID, word string) (int64, error) {
	if err := s.checkUser(userID); err != nil {
		return 0, err
	}
	res, err := exec(ctx, s.db, s.sb.Delete("user_dict").
		Where(squirrel.Eq{"user_id": userID, "word": strings.TrimSpace(word)}))
	if err != nil {
		return 0, fmt.Errorf("delete user dictionary entry: %w", err)
	}
	return res.RowsAffected()
}

// Entries returns the user's dictionary entries in insertion order.
func (s *Store) Entries(ctx context.Context, userID string) ([]dictionary.Entry, error) {
	if err := s.checkUser(userID); err != nil {
		return nil, err
	}
	rows, err := query(ctx, s.db, s.sb.Select("word", "part_of_speech", "reading", "pronunciation").
		From("user_dict").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("id"))
	if err != nil {
		return nil, fmt.Errorf("select user dictionary: %w", err)
	}
	defer rows.Close()

	var out []dictionary.Entry
	for rows.Next() {
		var e dictionary.Entry
		if err := rows.Scan(&e.Surface, &e.POS, &e.Reading, &e.Pronunciation); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ReplaceMonthlyKeywords deletes the stored ranking for (userID, month) and
// inserts ranked in its place, in one transaction. Reruns never duplicate rows.
func (s *Store) ReplaceMonthlyKeywords(ctx context.Context, userID string, month time.Time, ranked []analyser.TermCount) (err error) {
	if err := s.checkUser(userID); err != nil {
		return err
	}
	target := monthStart(month)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = exec(ctx, tx, s.sb.Delete("monthly_keywords").
		Where(squirrel.Eq{"user_id": userID, "target_month": target})); err != nil {
		return fmt.Errorf("delete monthly keywords: %w", err)
	}

	if len(ranked) > 0 {
		ins := s.sb.Insert("monthly_keywords").
			Columns("user_id", "target_month", "word", "count", "rank")
		for i, tc := range ranked {
			ins = ins.Values(userID, target, tc.Term, tc.Count, i+1)
		}
		if _, err = exec(ctx, tx, ins); err != nil {
			return fmt.Errorf("insert monthly keywords: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Persist stores a pipeline report.
func (s *Store) Persist(ctx context.Context, r report.Report) error {
	return s.ReplaceMonthlyKeywords(ctx, r.UserID, r.TargetMonth, r.Ranked)
}

// Name identifies the sink in logs.
func (s *Store) Name() string { return "database" }

// History returns stored keywords, newest month first and rank order within a
// month. months > 0 limits the result to that many distinct months.
func (s *Store) History(ctx context.Context, userID string, months int) ([]MonthlyKeyword, error) {
	if err := s.checkUser(userID); err != nil {
		return nil, err
	}
	monthCol := "target_month"
	if s.driver == DriverPostgres {
		monthCol = "to_char(target_month, 'YYYY-MM-DD')"
	}
	rows, err := query(ctx, s.db, s.sb.Select("user_id", monthCol, "word", "count", "rank").
		From("monthly_keywords").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("target_month DESC", "rank ASC"))
	if err != nil {
		return nil, fmt.Errorf("select monthly keywords: %w", err)
	}
	defer rows.Close()

	var (
		out      []MonthlyKeyword
		seen     int
		lastSeen string
	)
	for rows.Next() {
		var (
			k     MonthlyKeyword
			month string
		)
		if err := rows.Scan(&k.UserID, &month, &k.Word, &k.Count, &k.Rank); err != nil {
			return nil, err
		}
		if month != lastSeen {
			seen++
			lastSeen = month
		}
		if months > 0 && seen > months {
			break
		}
		k.TargetMonth, err = parseMonth(month)
		if err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

func monthStart(t time.Time) string {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).Format("2006-01-02")
}

func parseMonth(s string) (time.Time, error) {
	// pgx may hand back a full timestamp when the column is read as text.
	if len(s) > len("2006-01-02") {
		s = s[:len("2006-01-02")]
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse target month %q: %w", s, err)
	}
	return t, nil
}
