// Package scheduler fires a generation trigger on a cron schedule, normally
// once per ROP period.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"mercator-hq/ropsim/pkg/generator"
)

// Triggerer runs one generation.
type Triggerer interface {
	Trigger(ctx context.Context, source generator.Source) generator.Result
}

// Config configures a Scheduler.
type Config struct {
	// Schedule is a standard five-field cron expression or a descriptor such
	// as "@every 15m". Empty disables scheduling.
	Schedule string

	// Location is the time zone the schedule is evaluated in. Nil means
	// time.Local.
	Location *time.Location
}

// Scheduler runs a Triggerer on a cron schedule. Overlapping runs are
// skipped, so a slow generation delays rather than stacks the next one.
type Scheduler struct {
	cfg     Config
	target  Triggerer
	logger  *slog.Logger
	mu      sync.Mutex
	cron    *cron.Cron
	stop    chan struct{}
	running bool
}

// New creates a scheduler for target.
func New(cfg Config, target Triggerer, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cfg:    cfg,
		target: target,
		logger: logger.With("component", "scheduler"),
	}
}

// DefaultSchedule returns the cron expression firing once per period.
// Periods that divide an hour evenly map to minute steps aligned to the hour;
// anything else falls back to a fixed interval.
func DefaultSchedule(period time.Duration) string {
	minutes := int(period / time.Minute)
	if period%time.Minute == 0 && minutes > 0 && minutes < 60 && 60%minutes == 0 {
		return fmt.Sprintf("*/%d * * * *", minutes)
	}
	return "@every " + period.String()
}

// Validate checks that expr parses as a schedule.
func Validate(expr string) error {
	if _, err := cron.ParseStandard(expr); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", expr, err)
	}
	return nil
}

// Start begins firing triggers. It returns nil without starting when the
// schedule is empty. The scheduler stops when ctx is done or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}
	if s.cfg.Schedule == "" {
		s.logger.Info("rop schedule not configured, skipping scheduler")
		return nil
	}
	if err := Validate(s.cfg.Schedule); err != nil {
		return err
	}

	loc := s.cfg.Location
	if loc == nil {
		loc = time.Local
	}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	if _, err := c.AddFunc(s.cfg.Schedule, func() { s.fire(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule generation: %w", err)
	}

	c.Start()
	s.cron = c
	s.stop = make(chan struct{})
	s.running = true

	s.logger.Info("rop scheduler started", "schedule", s.cfg.Schedule, "location", loc.String())

	go func(stop <-chan struct{}) {
		select {
		case <-ctx.Done():
			s.Stop()
		case <-stop:
		}
	}(s.stop)

	return nil
}

// Run starts the scheduler and blocks until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	s.Stop()
	return nil
}

func (s *Scheduler) fire(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	res := s.target.Trigger(ctx, generator.SourceSchedule)
	if !res.OK() {
		s.logger.Warn("scheduled generation failed", "trigger_id", res.TriggerID, "reason", res.Reason)
	}
}

// Stop stops the scheduler and waits for a running trigger to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	done := s.cron.Stop()
	<-done.Done()
	close(s.stop)
	s.running = false
	s.logger.Info("rop scheduler stopped")
}

// IsRunning reports whether the scheduler is running.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the next scheduled trigger time, or nil when not running.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}
