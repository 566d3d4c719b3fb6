// Package scheduler runs the periodic remote sync jobs.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is a unit of scheduled work. It receives a context that is cancelled
// when the scheduler stops.
type Job func(ctx context.Context)

// Scheduler runs jobs on fixed intervals. A job that is still running when
// its next tick arrives is skipped rather than run twice.
type Scheduler struct {
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
	log    *slog.Logger
}

func New(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	cronLog := cron.PrintfLogger(log.New(log.Writer(), "scheduler: ", log.LstdFlags))
	return &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.Recover(cronLog),
			cron.SkipIfStillRunning(cronLog),
		)),
		ctx:    ctx,
		cancel: cancel,
		log:    logger,
	}
}

// Every registers job to run every interval. Intervals under a second are
// rejected.
func (s *Scheduler) Every(name string, interval time.Duration, job Job) error {
	if interval < time.Second {
		return fmt.Errorf("scheduler: interval %s for %q is below one second", interval, name)
	}
	_, err := s.cron.AddFunc("@every "+interval.String(), func() {
		start := time.Now()
		job(s.ctx)
		s.log.Debug("scheduler: job finished", "job", name, "took", time.Since(start))
	})
	if err != nil {
		return fmt.Errorf("scheduler: add %q: %w", name, err)
	}
	s.log.Info("scheduler: job registered", "job", name, "every", interval)
	return nil
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop waits for running jobs to return, then cancels their context.
// In-flight fetches finish instead of being recorded as failures.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.cancel()
	s.log.Info("scheduler: stopped")
}

// Jobs reports how many jobs are registered.
func (s *Scheduler) Jobs() int { return len(s.cron.Entries()) }
