/**
 * @description
 * Cron scheduler setup for the daily automated savings job.
 */
package app

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Scheduler manages the cron jobs.
type Scheduler struct {
	cron     *cron.Cron
	service  *Service
	logger   *slog.Logger
	schedule string
}

// NewScheduler creates a new scheduler instance.
func NewScheduler(service *Service, logger *slog.Logger, schedule string) *Scheduler {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
	c := cron.New(cron.WithChain(cron.Recover(cronLogger)))

	return &Scheduler{
		cron:     c,
		service:  service,
		logger:   logger,
		schedule: schedule,
	}
}

// Start registers the jobs and starts the cron scheduler.
func (s *Scheduler) Start() {
	if _, err := s.cron.AddFunc(s.schedule, s.runAutomation); err != nil {
		s.logger.Error("failed to schedule automated savings job", "error", err)
	} else {
		s.logger.Info("scheduled automated savings job", "schedule", s.schedule)
	}

	s.cron.Start()
}

// Stop gracefully stops the cron scheduler.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) runAutomation() {
	s.logger.Info("starting automated savings job")
	ctx := context.Background()

	result, err := s.service.RunDailyAutomation(ctx)
	if err != nil {
		s.logger.Error("automated savings job failed", "error", err)
		return
	}

	s.logger.Info("automated savings job finished", "success", result.Success, "failed", result.Failed)
}
