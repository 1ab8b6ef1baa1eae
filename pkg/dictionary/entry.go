// Package dictionary compiles user-maintained vocabulary into a dictionary
// the analyser loads next to its system dictionary.
package dictionary

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/width"
)

// NounPOS is the part-of-speech tag given to entries added through the CLI.
const NounPOS = "名詞"

// Entry is one custom vocabulary item.
type Entry struct {
	Surface       string // The literal text to recognize (e.g. "朝活")
	POS           string // Part of speech (e.g. "名詞"); any tag is accepted
	Reading       string // Katakana reading (e.g. "アサカツ")
	Pronunciation string // Usually identical to Reading
}

// Line renders the entry in the MeCab source-dictionary format. Context ids
// and cost are left at 0; the compiler assigns real values.
func (e Entry) Line() string {
	return strings.Join([]string{
		e.Surface, "0", "0", "0",
		e.POS, "*", e.POS, "*", "*", "*",
		e.Reading, e.Pronunciation, e.Pronunciation,
	}, ",")
}

// Validate rejects entries that cannot be written as a single dictionary line.
func (e Entry) Validate() error {
	if strings.TrimSpace(e.Surface) == "" {
		return errors.New("surface form is empty")
	}
	for name, v := range map[string]string{
		"surface":       e.Surface,
		"pos":           e.POS,
		"reading":       e.Reading,
		"pronunciation": e.Pronunciation,
	} {
		if strings.ContainsAny(v, ",\"\r\n\t ") {
			return fmt.Errorf("%s %q contains a separator character", name, v)
		}
	}
	return nil
}

// withDefaults fills blank POS and pronunciation.
func (e Entry) withDefaults() Entry {
	e.Surface = strings.TrimSpace(e.Surface)
	e.POS = strings.TrimSpace(e.POS)
	e.Reading = strings.TrimSpace(e.Reading)
	e.Pronunciation = strings.TrimSpace(e.Pronunciation)
	if e.POS == "" {
		e.POS = NounPOS
	}
	if e.Pronunciation == "" {
		e.Pronunciation = e.Reading
	}
	return e
}

// Dedupe keeps the first entry for every surface form, preserving order.
func Dedupe(entries []Entry) (kept []Entry, dropped int) {
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		if seen[e.Surface] {
			dropped++
			continue
		}
		seen[e.Surface] = true
		kept = append(kept, e)
	}
	return kept, dropped
}

// NormalizeReading trims s, widens half-width katakana and turns hiragana
// into katakana.
func NormalizeReading(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'ぁ' && r <= 'ゖ' {
			return r + 0x60
		}
		return r
	}, width.Widen.String(strings.TrimSpace(s)))
}

// ValidateReading accepts full-width katakana ァ..ン, ヴ and the prolonged
// sound mark only.
func ValidateReading(s string) error {
	if s == "" {
		return errors.New("reading is empty")
	}
	for _, r := range s {
		if (r >= 'ァ' && r <= 'ン') || r == 'ヴ' || r == 'ー' {
			continue
		}
		return fmt.Errorf("reading %q must be katakana (found %q)", s, r)
	}
	return nil
}
