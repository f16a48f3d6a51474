// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler refreshes the menu on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/olegiv/ocms-menubot/internal/cache"
)

// DefaultRefreshTimeout bounds one scheduled refresh.
const DefaultRefreshTimeout = 2 * time.Minute

// Refresher reloads the menu.
type Refresher interface {
	Refresh(ctx context.Context) (*cache.Epoch, error)
}

// Scheduler runs periodic menu refreshes.
type Scheduler struct {
	refresher Refresher
	schedule  string
	timeout   time.Duration
	cron      *cron.Cron
	entryID   cron.EntryID
	logger    *slog.Logger
}

// New creates a scheduler for schedule, a standard cron expression or a
// descriptor such as "@every 15m".
func New(refresher Refresher, schedule string, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	cl := cronLogger{logger: logger}
	return &Scheduler{
		refresher: refresher,
		schedule:  schedule,
		timeout:   DefaultRefreshTimeout,
		logger:    logger,
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
	}
}

// Start registers the refresh job and starts the cron loop.
func (s *Scheduler) Start() error {
	id, err := s.cron.AddFunc(s.schedule, func() {
		_ = s.RunNow(context.Background())
	})
	if err != nil {
		return err
	}
	s.entryID = id

	s.cron.Start()
	s.logger.Info("scheduler started", "schedule", s.schedule, "next_run", s.NextRun())
	return nil
}

// Stop waits for a running refresh and stops the scheduler.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

// NextRun returns when the next refresh is due, zero before Start.
func (s *Scheduler) NextRun() time.Time {
	if s.entryID == 0 {
		return time.Time{}
	}
	return s.cron.Entry(s.entryID).Next
}

// RunNow performs one refresh outside the schedule.
func (s *Scheduler) RunNow(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	epoch, err := s.refresher.Refresh(ctx)
	if err != nil {
		s.logger.Error("scheduled menu refresh failed", "error", err, "took", time.Since(start))
		return err
	}
	if epoch == nil {
		return errors.New("refresh returned no epoch")
	}
	s.logger.Debug("scheduled menu refresh done", "version", epoch.Version, "took", time.Since(start))
	return nil
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append([]any{"error", err}, keysAndValues...)...)
}
