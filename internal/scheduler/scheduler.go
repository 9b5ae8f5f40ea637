// Package scheduler runs the periodic maintenance jobs of the API process.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	defaultJobTimeout = 2 * time.Minute
	errAddJobFmt      = "failed to schedule %s (%q): %w"
)

// Reaper removes upload locks older than a cutoff.
type Reaper interface {
	ReapStaleLocks(ctx context.Context, olderThan time.Duration) (int, error)
}

type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger
}

func New(logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cronLogger{logger: logger}),
			cron.WithChain(cron.Recover(cronLogger{logger: logger}), cron.SkipIfStillRunning(cronLogger{logger: logger})),
		),
		logger: logger,
	}
}

// AddReaper schedules the stale-lock reaper. An empty spec leaves it
// disabled and reports false.
func (s *Scheduler) AddReaper(spec string, reaper Reaper, olderThan time.Duration) (bool, error) {
	if spec == "" {
		s.logger.Info("stale upload lock reaper disabled")
		return false, nil
	}

	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), defaultJobTimeout)
		defer cancel()

		n, err := reaper.ReapStaleLocks(ctx, olderThan)
		if err != nil {
			s.logger.Error("stale upload lock reaper failed", zap.Error(err))
			return
		}
		if n > 0 {
			s.logger.Info("reaped stale upload locks", zap.Int("count", n))
		}
	})
	if err != nil {
		return false, fmt.Errorf(errAddJobFmt, "lock reaper", spec, err)
	}
	return true, nil
}

// Sweeper drops expired entries from an in-memory cache.
type Sweeper interface {
	Sweep() int
}

// AddSweep schedules a cache sweep under name.
func (s *Scheduler) AddSweep(spec, name string, sweeper Sweeper) error {
	_, err := s.cron.AddFunc(spec, func() {
		if n := sweeper.Sweep(); n > 0 {
			s.logger.Debug("swept expired cache entries", zap.String("cache", name), zap.Int("count", n))
		}
	})
	if err != nil {
		return fmt.Errorf(errAddJobFmt, name, spec, err)
	}
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop prevents new runs and waits for a running job until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("scheduler stop timed out with a job still running")
	}
}

func (s *Scheduler) Len() int {
	return len(s.cron.Entries())
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	logger *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
