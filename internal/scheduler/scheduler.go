// Package scheduler fires the daily recurring-expense pass at a fixed
// wall-clock time in a configured timezone and exposes a manual trigger
// for the API's fire-and-forget endpoint.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"gastos/internal/config"
	"gastos/internal/log"
)

// Pass is the unit of work the scheduler drives.
type Pass interface {
	ProcessDue(ctx context.Context) (int, error)
}

// Scheduler owns the cron timer for the daily pass. Overlap between a cron
// tick and a manual trigger is harmless: the storage layer's conditional
// claim admits a single materialization per template per month.
type Scheduler struct {
	cron   *cron.Cron
	pass   Pass
	logger *log.Logger

	location *time.Location
	spec     string
}

// New builds a scheduler from the configured HH:MM wall-clock time and IANA
// timezone. The pass runs every day at that local time, daylight saving
// shifts included.
func New(cfg *config.Config, pass Pass, logger *log.Logger) (*Scheduler, error) {
	hour, minute, err := config.ParseHHMM(cfg.SchedulerTime)
	if err != nil {
		return nil, fmt.Errorf("scheduler time: %w", err)
	}
	location, err := time.LoadLocation(cfg.SchedulerTimezone)
	if err != nil {
		return nil, fmt.Errorf("scheduler timezone: %w", err)
	}

	s := &Scheduler{
		pass:     pass,
		logger:   logger.WithComponent(log.ComponentScheduler),
		location: location,
		spec:     fmt.Sprintf("%d %d * * *", minute, hour),
	}
	s.cron = cron.New(cron.WithLocation(location))

	if _, err := s.cron.AddFunc(s.spec, s.tick); err != nil {
		return nil, fmt.Errorf("register cron entry %q: %w", s.spec, err)
	}
	return s, nil
}

// Start launches the timer. It returns immediately; ticks run on the cron
// goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Scheduler started",
		"spec", s.spec,
		"timezone", s.location.String())
}

// Stop halts the timer and waits for an in-flight pass to finish.
func (s *Scheduler) Stop(ctx context.Context) error {
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
		s.logger.Info("Scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler shutdown: %w", ctx.Err())
	}
}

// RunNow triggers a pass asynchronously and returns at once, so the HTTP
// handler behind the manual endpoint can acknowledge without waiting.
func (s *Scheduler) RunNow() {
	s.logger.Info("Manual recurring pass requested")
	go s.tick()
}

func (s *Scheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	processed, err := s.pass.ProcessDue(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Recurring pass failed",
			"processed", processed,
			"error", err)
		return
	}
	s.logger.InfoContext(ctx, "Recurring pass completed", "processed", processed)
}
