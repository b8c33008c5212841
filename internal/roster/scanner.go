package roster

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/alfredjeanlab/muster/internal/model"
)

// DefaultSchedule runs the reminder scan once a minute.
const DefaultSchedule = "@every 60s"

// TakeDue removes and returns every event scheduled for the minute
// containing now. A minute that is never scanned is never revisited.
func (r *Roster) TakeDue(ctx context.Context, now time.Time) ([]*model.Event, error) {
	minute := now.UTC().Truncate(time.Minute)
	return r.store.TakeEvents(ctx, func(e *model.Event) bool {
		return e.ScheduledAt.UTC().Truncate(time.Minute).Equal(minute)
	})
}

// ReminderFunc delivers the start-time reminder for an event that has just
// been removed from the registry.
type ReminderFunc func(ctx context.Context, event *model.Event)

// Scanner periodically takes due events off the registry and hands each
// to a ReminderFunc.
type Scanner struct {
	roster   *Roster
	schedule string
	remind   ReminderFunc
	logger   *slog.Logger

	mu     sync.Mutex
	cron   *cron.Cron
	cancel context.CancelFunc
}

// NewScanner creates a scanner that runs on the given cron schedule
// (DefaultSchedule if empty).
func NewScanner(r *Roster, schedule string, remind ReminderFunc, logger *slog.Logger) *Scanner {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{roster: r, schedule: schedule, remind: remind, logger: logger}
}

// Tick performs one scan at now and returns the events it reminded.
func (s *Scanner) Tick(ctx context.Context, now time.Time) ([]*model.Event, error) {
	due, err := s.roster.TakeDue(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("taking due events: %w", err)
	}
	for _, e := range due {
		s.logger.Info("event starting", "event", e.Name, "participants", len(e.Participants()))
		if s.remind != nil {
			s.remind(ctx, e)
		}
	}
	return due, nil
}

// Start schedules Tick on the scanner's cron schedule.
func (s *Scanner) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := cron.New(cron.WithLocation(time.UTC))
	if _, err := c.AddFunc(s.schedule, func() {
		if _, err := s.Tick(ctx, s.roster.now()); err != nil && ctx.Err() == nil {
			s.logger.Error("reminder scan failed", "err", err)
		}
	}); err != nil {
		cancel()
		return fmt.Errorf("parsing reminder schedule %q: %w", s.schedule, err)
	}
	c.Start()

	s.cron = c
	s.cancel = cancel
	s.logger.Info("reminder scanner started", "schedule", s.schedule)
	return nil
}

// Stop halts the schedule and waits for a running scan to finish.
func (s *Scanner) Stop() {
	s.mu.Lock()
	c, cancel := s.cron, s.cancel
	s.cron, s.cancel = nil, nil
	s.mu.Unlock()
	if c == nil {
		return
	}
	cancel()
	<-c.Stop().Done()
}
