// Package jobs runs periodic subscription maintenance on cron schedules.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// jobTimeout bounds a single run.
const jobTimeout = 5 * time.Minute

// Maintainer is the subscription upkeep the jobs drive.
type Maintainer interface {
	ExpireLapsed(ctx context.Context) (int, error)
	PruneEvents(ctx context.Context, retention time.Duration) (int64, error)
}

// Config holds cron schedules. An empty schedule disables its job.
type Config struct {
	ExpirySweep    string
	EventPrune     string
	EventRetention time.Duration
}

// Scheduler owns the cron runner.
type Scheduler struct {
	cron   *cron.Cron
	subs   Maintainer
	cfg    Config
	logger *slog.Logger
}

// New schedules the configured jobs. Schedules use the standard five-field
// cron syntax or descriptors such as "@hourly", evaluated in UTC.
func New(subs Maintainer, cfg Config, logger *slog.Logger) (*Scheduler, error) {
	cl := cronLogger{logger: logger}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		subs:   subs,
		cfg:    cfg,
		logger: logger,
	}

	if cfg.ExpirySweep != "" {
		if _, err := s.cron.AddFunc(cfg.ExpirySweep, s.RunExpirySweep); err != nil {
			return nil, fmt.Errorf("invalid expiry sweep schedule %q: %w", cfg.ExpirySweep, err)
		}
	}
	if cfg.EventPrune != "" && cfg.EventRetention > 0 {
		if _, err := s.cron.AddFunc(cfg.EventPrune, s.RunEventPrune); err != nil {
			return nil, fmt.Errorf("invalid event prune schedule %q: %w", cfg.EventPrune, err)
		}
	}
	return s, nil
}

// Len returns the number of scheduled jobs.
func (s *Scheduler) Len() int {
	return len(s.cron.Entries())
}

// Start runs the scheduler in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Job scheduler started", "jobs", s.Len())
}

// Stop stops scheduling and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("Job scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("jobs still running: %w", ctx.Err())
	}
}

// RunExpirySweep cancels subscriptions whose paid period is over.
func (s *Scheduler) RunExpirySweep() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	start := time.Now()
	n, err := s.subs.ExpireLapsed(ctx)
	if err != nil {
		s.logger.Error("Expiry sweep failed", "error", err)
		return
	}
	s.logger.Info("Expiry sweep completed", "expired", n, "duration_ms", time.Since(start).Milliseconds())
}

// RunEventPrune forgets processed event IDs older than the retention.
func (s *Scheduler) RunEventPrune() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	n, err := s.subs.PruneEvents(ctx, s.cfg.EventRetention)
	if err != nil {
		s.logger.Error("Event prune failed", "error", err)
		return
	}
	s.logger.Info("Event prune completed", "pruned", n, "retention", s.cfg.EventRetention)
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
