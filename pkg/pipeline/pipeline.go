// Package pipeline runs one keyword extraction: collect journal text, build
// the user dictionary, count nouns, rank them and hand the result to sinks.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/japaniel/goodthings/pkg/analyser"
	"github.com/japaniel/goodthings/pkg/apperr"
	"github.com/japaniel/goodthings/pkg/dictionary"
	"github.com/japaniel/goodthings/pkg/logging"
	"github.com/japaniel/goodthings/pkg/notion"
	"github.com/japaniel/goodthings/pkg/period"
	"github.com/japaniel/goodthings/pkg/report"
	"github.com/oklog/ulid/v2"
)

// DefaultTopN is the ranking length used when Settings.TopN is zero.
const DefaultTopN = 5

// Collector fetches the raw corpus for a period.
type Collector interface {
	Collect(ctx context.Context, creds notion.Credentials, sourceID string, p period.Period) (string, error)
}

// Lexicon supplies a user's stop words and custom dictionary entries.
type Lexicon interface {
	StopWords(ctx context.Context, userID string) ([]string, error)
	Entries(ctx context.Context, userID string) ([]dictionary.Entry, error)
}

// DictionaryBuilder compiles entries into a per-run dictionary.
type DictionaryBuilder interface {
	Build(ctx context.Context, entries []dictionary.Entry, systemDictionary string) (*dictionary.Compiled, error)
}

// Analyzers hands out an analyzer for a system and compiled dictionary.
// *analyser.Cache satisfies it.
type Analyzers interface {
	Get(systemDictionary string, compiled *dictionary.Compiled) (*analyser.Analyzer, error)
}

// Persister receives the finished report.
type Persister interface {
	Persist(ctx context.Context, r report.Report) error
	Name() string
}

// Settings are the per-deployment knobs of a run.
type Settings struct {
	Credentials      notion.Credentials
	SourceID         string
	SystemDictionary string
	TopN             int
	// Timeout bounds each external I/O step. Zero means no bound.
	Timeout time.Duration
}

// Pipeline wires the stages together. Runs are strictly sequential inside;
// separate runs may execute concurrently and share only Analyzers.
type Pipeline struct {
	Collector  Collector
	Lexicon    Lexicon
	Builder    DictionaryBuilder
	Analyzers  Analyzers
	Persisters []Persister
	Settings   Settings
	Logger     *slog.Logger

	// OnTransition observes every state change.
	OnTransition func(runID string, from, to State)
	// Now is swapped in tests.
	Now func() time.Time
}

// Request selects whose journal and which period to analyse.
type Request struct {
	UserID string
	Period period.Period
}

// Result describes a finished run.
type Result struct {
	RunID       string
	State       State
	Period      period.Period
	TargetMonth time.Time
	// Empty is set when the period held no text.
	Empty       bool
	Frequencies analyser.Frequencies
	Ranked      []analyser.TermCount
	StartedAt   time.Time
	FinishedAt  time.Time
}

type run struct {
	p     *Pipeline
	id    string
	state State
	log   *slog.Logger
}

func (r *run) to(next State) {
	prev := r.state
	r.state = next
	r.log.Debug("pipeline transition", "from", prev, "to", next)
	if r.p.OnTransition != nil {
		r.p.OnTransition(r.id, prev, next)
	}
}

func (r *run) fail(stage State, err error) error {
	r.to(Failed)
	return &StageError{Stage: stage, Err: err}
}

// Run executes the pipeline once. On failure the returned error is a
// *StageError naming the stage; the result is nil.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	r := &run{p: p, id: ulid.Make().String(), state: Idle}
	r.log = p.logger().With("run_id", r.id, "user_id", req.UserID, "period", req.Period.String())

	started := p.now()
	res := &Result{
		RunID:       r.id,
		Period:      req.Period,
		TargetMonth: req.Period.TargetMonth(started),
		StartedAt:   started,
	}

	// Collecting text.
	r.to(CollectingText)
	text, err := p.collect(ctx, req)
	if err != nil {
		return nil, r.fail(CollectingText, err)
	}

	if strings.TrimSpace(text) == "" {
		r.log.Info("no journal text for period")
		res.Empty = true
		res.Frequencies = analyser.Frequencies{}
		res.Ranked = []analyser.TermCount{}
		r.to(Persisting)
		if err := p.persist(ctx, r, req, res); err != nil {
			return nil, r.fail(Persisting, err)
		}
		return p.finish(r, res), nil
	}

	// Building the dictionary.
	r.to(BuildingDictionary)
	stop, compiled, err := p.buildDictionary(ctx, req)
	if err != nil {
		return nil, r.fail(BuildingDictionary, err)
	}
	defer func() {
		if err := compiled.Remove(); err != nil {
			r.log.Warn("failed to remove compiled dictionary", "dir", compiled.Dir, "error", err)
		}
	}()

	// Analysing.
	r.to(Analysing)
	done := logging.Stage(r.log, "analyse")
	a, err := p.Analyzers.Get(p.Settings.SystemDictionary, compiled)
	if err != nil {
		done()
		if apperr.KindOf(err) == 0 {
			err = apperr.Tokenizer(err)
		}
		return nil, r.fail(Analysing, err)
	}
	res.Frequencies = a.Frequencies(text, stop)
	done()

	// Ranking.
	r.to(Ranking)
	res.Ranked = analyser.Rank(res.Frequencies, p.topN())
	r.log.Info("ranked keywords", "distinct_nouns", len(res.Frequencies), "kept", len(res.Ranked))

	// Persisting.
	r.to(Persisting)
	if err := p.persist(ctx, r, req, res); err != nil {
		return nil, r.fail(Persisting, err)
	}
	return p.finish(r, res), nil
}

func (p *Pipeline) finish(r *run, res *Result) *Result {
	r.to(Done)
	res.State = Done
	res.FinishedAt = p.now()
	r.log.Info("pipeline finished", "elapsed", res.FinishedAt.Sub(res.StartedAt).Round(time.Millisecond), "empty", res.Empty)
	return res
}

func (p *Pipeline) collect(ctx context.Context, req Request) (string, error) {
	defer logging.Stage(p.logger(), "collect", "period", req.Period.String())()
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	text, err := p.Collector.Collect(ctx, p.Settings.Credentials, p.Settings.SourceID, req.Period)
	if err != nil {
		return "", classify(err, "collect journal text")
	}
	return text, nil
}

func (p *Pipeline) buildDictionary(ctx context.Context, req Request) (analyser.StopWords, *dictionary.Compiled, error) {
	defer logging.Stage(p.logger(), "build dictionary")()
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	var (
		words   []string
		entries []dictionary.Entry
	)
	if p.Lexicon != nil {
		var err error
		if words, err = p.Lexicon.StopWords(ctx, req.UserID); err != nil {
			return nil, nil, classify(fmt.Errorf("load stop words: %w", err), "load stop words")
		}
		if entries, err = p.Lexicon.Entries(ctx, req.UserID); err != nil {
			return nil, nil, classify(fmt.Errorf("load dictionary entries: %w", err), "load dictionary entries")
		}
	}

	compiled, err := p.Builder.Build(ctx, entries, p.Settings.SystemDictionary)
	if err != nil {
		if apperr.KindOf(err) == 0 {
			err = apperr.DictionaryBuildf("%v", err)
		}
		return nil, nil, err
	}
	return analyser.NewStopWords(words...), compiled, nil
}

func (p *Pipeline) persist(ctx context.Context, r *run, req Request, res *Result) error {
	rep := report.Report{
		RunID:       r.id,
		UserID:      req.UserID,
		Period:      req.Period,
		TargetMonth: res.TargetMonth,
		Ranked:      res.Ranked,
		GeneratedAt: p.now(),
	}
	for _, sink := range p.Persisters {
		done := logging.Stage(r.log, "persist", "sink", sink.Name())
		sctx, cancel := p.withTimeout(ctx)
		err := sink.Persist(sctx, rep)
		cancel()
		done()
		if err != nil {
			return classify(fmt.Errorf("%s: %w", sink.Name(), err), "persist")
		}
	}
	return nil
}

// classify keeps an error's kind and treats anything unclassified as a
// transient I/O failure.
func classify(err error, op string) error {
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	return apperr.Transient(op, err)
}

func (p *Pipeline) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.Settings.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.Settings.Timeout)
}

func (p *Pipeline) topN() int {
	if p.Settings.TopN <= 0 {
		return DefaultTopN
	}
	return p.Settings.TopN
}

func (p *Pipeline) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.Default()
	}
	return p.Logger
}
