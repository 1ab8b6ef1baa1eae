package dictionary

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// LoadEntriesCSV reads a word,part_of_speech,reading,pronunciation file.
// Extra columns are ignored; a missing pronunciation defaults to the reading.
func LoadEntriesCSV(path string, hasHeader bool) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var entries []Entry
	for line := 1; ; line++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if line == 1 && hasHeader {
			continue
		}
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		if len(rec) < 3 {
			return nil, fmt.Errorf("%s line %d: want at least 3 columns, got %d", path, line, len(rec))
		}
		e := Entry{Surface: rec[0], POS: rec[1], Reading: rec[2]}
		if len(rec) > 3 {
			e.Pronunciation = rec[3]
		}
		entries = append(entries, e.withDefaults())
	}
	return entries, nil
}

// LoadStopWords reads one word per line. Lines are trimmed and blanks skipped.
func LoadStopWords(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var words []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		w := strings.TrimSpace(sc.Text())
		if w == "" {
			continue
		}
		words = append(words, w)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return words, nil
}

// FileLexicon serves stop words and dictionary entries from local files.
// A path left empty, or pointing at a missing file, contributes nothing.
type FileLexicon struct {
	StopWordsPath string
	EntriesPath   string
	EntriesHeader bool
}

func (l FileLexicon) StopWords(ctx context.Context, userID string) ([]string, error) {
	if l.StopWordsPath == "" {
		return nil, nil
	}
	words, err := LoadStopWords(l.StopWordsPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return words, err
}

func (l FileLexicon) Entries(ctx context.Context, userID string) ([]Entry, error) {
	if l.EntriesPath == "" {
		return nil, nil
	}
	entries, err := LoadEntriesCSV(l.EntriesPath, l.EntriesHeader)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return entries, err
}
