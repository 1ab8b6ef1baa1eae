// Package analyser tokenizes journal text and counts the nouns in it.
package analyser

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ikawaha/kagome-dict/dict"
	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"
	"github.com/japaniel/goodthings/pkg/apperr"
	"github.com/japaniel/goodthings/pkg/dictionary"
)

// NounPOS is the primary part-of-speech tag counted by Frequencies.
const NounPOS = "名詞"

// Token represents a single analyzed unit of text.
type Token struct {
	Surface       string   // The text as it appears (e.g. "行っ")
	BaseForm      string   // The dictionary form (e.g. "行く")
	Reading       string   // Katakana reading (e.g. "イッ"), empty when unknown
	PartsOfSpeech []string // Kagome feature list
	// PrimaryPOS stores the first (primary) part of speech if available.
	PrimaryPOS string
	// Custom is set for tokens matched by the user dictionary.
	Custom bool
}

// Sentence represents a sentence containing tokens.
type Sentence struct {
	Text   string
	Tokens []Token
}

// StopWords is a set of surface forms excluded from counting. Matching is
// exact and case-sensitive.
type StopWords map[string]struct{}

// NewStopWords builds a set from words as given. Empty strings are ignored;
// nothing else is normalised.
func NewStopWords(words ...string) StopWords {
	s := make(StopWords, len(words))
	for _, w := range words {
		if w == "" {
			continue
		}
		s[w] = struct{}{}
	}
	return s
}

// Contains reports whether w is a stop word.
func (s StopWords) Contains(w string) bool {
	_, ok := s[w]
	return ok
}

// Frequencies maps noun surface forms to occurrence counts.
type Frequencies map[string]int

// Analyzer handles text segmentation. It is immutable once built and safe
// for concurrent use.
type Analyzer struct {
	t *tokenizer.Tokenizer
}

// NewAnalyzer creates a tokenizer over the system dictionary with the compiled
// user dictionary attached. systemDictionary is "ipa" (or empty) for the
// bundled IPA dictionary, otherwise the path of a kagome dictionary zip.
// Every failure is a TokenizerUnavailable error.
func NewAnalyzer(systemDictionary string, compiled *dictionary.Compiled) (*Analyzer, error) {
	if compiled == nil {
		return nil, apperr.Tokenizer(errors.New("no compiled dictionary"))
	}

	sys, err := loadSystemDictionary(systemDictionary)
	if err != nil {
		return nil, apperr.Tokenizer(err)
	}

	opts := []tokenizer.Option{tokenizer.OmitBosEos()}
	// An empty artifact carries no terms, so there is nothing to attach.
	if !compiled.Empty() {
		udict, err := dict.NewUserDict(compiled.Path)
		if err != nil {
			return nil, apperr.Tokenizer(fmt.Errorf("load user dictionary %s: %w", compiled.Path, err))
		}
		opts = append(opts, tokenizer.UserDict(udict))
	}

	t, err := tokenizer.New(sys, opts...)
	if err != nil {
		return nil, apperr.Tokenizer(err)
	}
	return &Analyzer{t: t}, nil
}

func loadSystemDictionary(location string) (*dict.Dict, error) {
	if location == "" || location == dictionary.BuiltinSystemDictionary {
		return ipa.Dict(), nil
	}
	d, err := dict.LoadDictFile(location)
	if err != nil {
		return nil, fmt.Errorf("load system dictionary %s: %w", location, err)
	}
	return d, nil
}

// Analyze breaks text into tokens with readings and base forms.
func (a *Analyzer) Analyze(text string) []Token {
	tokens := a.t.Tokenize(text)
	var result []Token

	for _, token := range tokens {
		if token.Class == tokenizer.DUMMY {
			continue
		}
		if strings.TrimSpace(token.Surface) == "" {
			continue
		}

		features := token.Features()
		tok := Token{
			Surface:       token.Surface,
			BaseForm:      token.Surface,
			PartsOfSpeech: features,
		}
		if len(features) > 0 {
			tok.PrimaryPOS = features[0]
		}

		if token.Class == tokenizer.USER {
			// User dictionary features: pos, segmentation, reading.
			tok.Custom = true
			if len(features) > 2 && features[2] != "*" {
				tok.Reading = features[2]
			}
		} else {
			// IPA features: 0-3 POS, 4-5 conjugation, 6 base form, 7 reading, 8 pronunciation.
			if len(features) > 6 && features[6] != "*" {
				tok.BaseForm = features[6]
			}
			if len(features) > 7 && features[7] != "*" {
				tok.Reading = features[7]
			}
		}
		result = append(result, tok)
	}

	return result
}

// AnalyzeDocument splits the text into sentences and tokenizes each sentence.
func (a *Analyzer) AnalyzeDocument(text string) []Sentence {
	var result []Sentence
	for _, s := range splitSentences(text) {
		if strings.TrimSpace(s) == "" {
			continue
		}
		result = append(result, Sentence{Text: s, Tokens: a.Analyze(s)})
	}
	return result
}

// Frequencies counts noun surface forms in text, skipping stop words.
// Identical inputs always produce identical mappings.
func (a *Analyzer) Frequencies(text string, stop StopWords) Frequencies {
	freqs := make(Frequencies)
	for _, s := range a.AnalyzeDocument(text) {
		for _, tok := range s.Tokens {
			if tok.PrimaryPOS != NounPOS || tok.Surface == "" {
				continue
			}
			if stop.Contains(tok.Surface) {
				continue
			}
			freqs[tok.Surface]++
		}
	}
	return freqs
}

func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	for _, r := range text {
		current.WriteRune(r)
		// 。(3002), ！(FF01), ？(FF1F) and newlines end a sentence.
		if r == '。' || r == '！' || r == '？' || r == '\n' {
			sentences = append(sentences, current.String())
			current.Reset()
		}
	}
	if current.Len() > 0 {
		sentences = append(sentences, current.String())
	}
	return sentences
}
