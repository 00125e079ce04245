// Package scheduler registers the cron-driven daily job-seeding and
// hourly window-processing triggers, plus the retry sweep, against an
// engine.Engine.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"logbatcher/internal/engine"
	"logbatcher/internal/metrics"
)

// Config selects the cron expressions driving the two main triggers.
// The retry sweep runs at the top of every hourly tick, ahead of the
// main hourly call.
type Config struct {
	DailyCron  string
	HourlyCron string
}

// Scheduler owns the single cooperative cron loop for one process.
type Scheduler struct {
	cron   *cron.Cron
	eng    *engine.Engine
	logger *zap.Logger

	wg sync.WaitGroup
}

// New builds a Scheduler bound to eng; triggers are not registered
// until Start is called.
func New(eng *engine.Engine, cfg Config, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := cron.New()
	s := &Scheduler{cron: c, eng: eng, logger: logger}

	dailyCron := cfg.DailyCron
	if dailyCron == "" {
		dailyCron = "0 0 * * *"
	}
	hourlyCron := cfg.HourlyCron
	if hourlyCron == "" {
		hourlyCron = "0 * * * *"
	}

	if _, err := c.AddFunc(dailyCron, s.runDailyTrigger); err != nil {
		logger.Error("scheduler: invalid daily cron expression", zap.String("expr", dailyCron), zap.Error(err))
	}
	if _, err := c.AddFunc(hourlyCron, s.runHourlyTrigger); err != nil {
		logger.Error("scheduler: invalid hourly cron expression", zap.String("expr", hourlyCron), zap.Error(err))
	}

	return s
}

// Start begins the cron loop.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the cron loop from firing new triggers and blocks until
// either all in-flight triggers settle or timeout elapses, whichever
// is first (best-effort drain).
func (s *Scheduler) Stop(timeout time.Duration) {
	stopCtx := s.cron.Stop()

	drained := make(chan struct{})
	go func() {
		<-stopCtx.Done()
		s.wg.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-time.After(timeout):
		s.logger.Warn("scheduler: drain timeout elapsed with triggers still in flight")
	}
}

func (s *Scheduler) track(fn func()) {
	s.wg.Add(1)
	defer s.wg.Done()
	fn()
}

// runDailyTrigger seeds today's job row. Side effect only; idempotent.
func (s *Scheduler) runDailyTrigger() {
	s.track(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := s.eng.CreateDailyJobs(ctx, ""); err != nil {
			s.logger.Error("scheduler: daily trigger failed", zap.Error(err))
			metrics.SchedulerTicks.WithLabelValues("daily", "error").Inc()
			return
		}
		metrics.SchedulerTicks.WithLabelValues("daily", "ok").Inc()
	})
}

// runHourlyTrigger runs the retry sweep, then processes the
// immediately preceding clock hour. A failing tick logs and returns;
// subsequent ticks are unaffected.
func (s *Scheduler) runHourlyTrigger() {
	s.track(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		sweepStart := time.Now()
		if _, err := s.eng.RetryFailedJobs(ctx); err != nil {
			s.logger.Error("scheduler: retry sweep failed", zap.Error(err))
		}
		metrics.RetrySweepSeconds.Observe(time.Since(sweepStart).Seconds())

		if _, err := s.eng.RunHourlyJob(ctx); err != nil {
			s.logger.Error("scheduler: hourly trigger failed", zap.Error(err))
			metrics.SchedulerTicks.WithLabelValues("hourly", "error").Inc()
			return
		}
		metrics.SchedulerTicks.WithLabelValues("hourly", "ok").Inc()
	})
}
