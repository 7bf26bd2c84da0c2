package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// pollInterval is how often the scheduler checks the clock
const pollInterval = 60 * time.Second

// Scheduler fires the pipeline once daily at a fixed wall-clock time
type Scheduler struct {
	at    string // HH:MM
	fire  func(ctx context.Context)
	now   func() time.Time
	sleep func(time.Duration)
	log   *logrus.Entry
}

// NewScheduler creates a daily scheduler. at must be an HH:MM wall-clock time.
func NewScheduler(at string, fire func(ctx context.Context), log *logrus.Entry) (*Scheduler, error) {
	if _, err := time.Parse("15:04", at); err != nil {
		return nil, fmt.Errorf("invalid schedule time %q: %w", at, err)
	}
	return &Scheduler{
		at:    at,
		fire:  fire,
		now:   time.Now,
		sleep: time.Sleep,
		log:   log,
	}, nil
}

// WithClock replaces the clock and sleep functions, used by tests
func (s *Scheduler) WithClock(now func() time.Time, sleep func(time.Duration)) *Scheduler {
	s.now = now
	s.sleep = sleep
	return s
}

// Start polls the clock every minute and fires once per day when the
// configured time arrives. A poll landing past the due minute still fires;
// each firing moves the due time one day forward. Returns when ctx is
// cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.log.WithField("at", s.at).Info("scheduler started")

	due := s.nextDue(s.now())

	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopped")
			return ctx.Err()
		default:
		}

		now := s.now()
		if !now.Before(due) {
			s.log.WithField("time", now.Format(time.RFC3339)).Info("firing scheduled pipeline run")
			s.fire(ctx)
			due = due.Add(24 * time.Hour)
		}

		s.sleep(pollInterval)
	}
}

// nextDue returns the first occurrence of the configured wall-clock time
// that is not in the past
func (s *Scheduler) nextDue(now time.Time) time.Time {
	at, _ := time.Parse("15:04", s.at)
	due := time.Date(now.Year(), now.Month(), now.Day(), at.Hour(), at.Minute(), 0, 0, now.Location())
	if now.After(due) {
		due = due.Add(24 * time.Hour)
	}
	return due
}
