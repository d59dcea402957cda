// Package cron provides scheduled background jobs using robfig/cron.
package cron

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Purger drops expired entries and reports how many were removed.
type Purger interface {
	Purge(now time.Time) int
}

// Scheduler manages background scheduled jobs using robfig/cron.
type Scheduler struct {
	cron     *cron.Cron
	schedule string
	logger   *slog.Logger
	now      func() time.Time

	mu      sync.Mutex
	purgers map[string]Purger
	order   []string
}

// NewScheduler creates a scheduler that runs every registered purger on the
// given 5-field cron schedule.
func NewScheduler(schedule string, logger *slog.Logger) *Scheduler {
	// Create cron with seconds disabled (standard 5-field format)
	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))))

	return &Scheduler{
		cron:     c,
		schedule: schedule,
		logger:   logger,
		now:      time.Now,
		purgers:  make(map[string]Purger),
	}
}

// Register adds a named purger. Registering a name twice replaces it.
func (s *Scheduler) Register(name string, p Purger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.purgers[name]; !ok {
		s.order = append(s.order, name)
	}
	s.purgers[name] = p
}

// Start begins scheduled jobs.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, func() { s.purgeAll() }); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("cron scheduler started",
		slog.String("schedule", s.schedule),
		slog.Int("jobs", len(s.cron.Entries())),
	)
	return nil
}

// Stop gracefully stops all scheduled jobs.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("cron scheduler stopping")
	return s.cron.Stop()
}

// purgeAll runs every purger and returns the removed count per name.
func (s *Scheduler) purgeAll() map[string]int {
	s.mu.Lock()
	names := append([]string(nil), s.order...)
	purgers := make([]Purger, len(names))
	for i, name := range names {
		purgers[i] = s.purgers[name]
	}
	s.mu.Unlock()

	now := s.now()
	removed := make(map[string]int, len(names))
	total := 0
	for i, name := range names {
		n := purgers[i].Purge(now)
		removed[name] = n
		total += n

		s.logger.Debug("purged expired entries",
			slog.String("store", name),
			slog.Int("removed", n),
		)
	}

	s.logger.Info("scheduled purge completed",
		slog.Int("stores", len(names)),
		slog.Int("removed", total),
	)
	return removed
}
