// Package schedule triggers the monthly analysis on a cron expression in JST.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/japaniel/goodthings/pkg/apperr"
	"github.com/japaniel/goodthings/pkg/period"
	"github.com/robfig/cron/v3"
)

// DefaultSpec runs at 06:00 JST on the first day of every month.
const DefaultSpec = "0 6 1 * *"

// Job analyses one period. The scheduler passes the month before the tick.
type Job func(ctx context.Context, p period.Period) error

// Scheduler runs Job on a standard five-field cron expression. A tick that
// fires while the previous run is still going is skipped.
type Scheduler struct {
	cron     *cron.Cron
	spec     string
	schedule cron.Schedule
	logger   *slog.Logger
	job      Job
	now      func() time.Time
}

// New validates spec and registers job.
func New(spec string, job Job, logger *slog.Logger) (*Scheduler, error) {
	if job == nil {
		return nil, errors.New("job must not be nil")
	}
	if spec == "" {
		spec = DefaultSpec
	}
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, apperr.Configurationf("schedule.cron", "invalid cron expression %q: %v", spec, err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	l := cronLogger{logger}
	c := cron.New(
		cron.WithLocation(period.JST),
		cron.WithLogger(l),
		cron.WithChain(cron.Recover(l), cron.SkipIfStillRunning(l)),
	)
	return &Scheduler{
		cron:     c,
		spec:     spec,
		schedule: sched,
		logger:   logger,
		job:      job,
		now:      time.Now,
	}, nil
}

// Run blocks, firing the job until ctx is cancelled, then waits for a
// running job to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.spec, func() { s.tick(ctx) }); err != nil {
		return fmt.Errorf("add cron: %w", err)
	}
	s.cron.Start()
	for _, e := range s.cron.Entries() {
		s.logger.Info("scheduler started", "next_run", e.Next.In(period.JST))
	}
	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
	return nil
}

// tick runs the job for the month preceding the current JST time.
func (s *Scheduler) tick(ctx context.Context) {
	p := period.Previous(s.now().In(period.JST))
	log := s.logger.With("period", p.String())
	log.Info("scheduled run starting")
	if err := s.job(ctx, p); err != nil {
		log.Error("scheduled run failed", "error", err, "retryable", apperr.IsRetryable(err))
		return
	}
	log.Info("scheduled run finished")
}

// Next returns the first activation after t, in JST.
func (s *Scheduler) Next(t time.Time) time.Time {
	return s.schedule.Next(t.In(period.JST))
}

// cronLogger adapts slog to cron's logger interface.
type cronLogger struct{ l *slog.Logger }

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error("cron: "+msg, append([]any{"error", err}, keysAndValues...)...)
}
