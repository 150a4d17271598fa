// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package sweeper periodically reports tasks that ran past their scheduled
// end.
package sweeper

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/suiteops/internal/bus"
	"github.com/ManuGH/suiteops/internal/domain/events"
	"github.com/ManuGH/suiteops/internal/domain/model"
	"github.com/ManuGH/suiteops/internal/log"
	"github.com/ManuGH/suiteops/internal/metrics"
	"github.com/ManuGH/suiteops/internal/store"
)

const (
	DefaultInterval = 5 * time.Minute
	// DefaultRenotifyAfter bounds how long a reported task is suppressed
	// while waiting for the overdue handler to stamp it.
	DefaultRenotifyAfter = time.Hour
	defaultBatch         = 500
)

type Config struct {
	Interval      time.Duration
	RenotifyAfter time.Duration
	BatchSize     int
}

// Sweeper publishes task.overdue for actionable tasks whose scheduled end
// has passed and that were never reported.
type Sweeper struct {
	tasks  store.TaskRepo
	pub    bus.Publisher
	cfg    Config
	now    func() time.Time
	logger zerolog.Logger

	mu       sync.Mutex
	reported map[string]time.Time
	lastRun  time.Time
	lastErr  error
}

func New(tasks store.TaskRepo, pub bus.Publisher, cfg Config) *Sweeper {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.RenotifyAfter <= 0 {
		cfg.RenotifyAfter = DefaultRenotifyAfter
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatch
	}
	return &Sweeper{
		tasks:    tasks,
		pub:      pub,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   log.WithComponent("sweeper"),
		reported: make(map[string]time.Time),
	}
}

// Run sweeps once immediately and then every interval until ctx ends.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.logger.Info().Dur("interval", s.cfg.Interval).Msg("overdue sweeper started")
	s.sweepLogged(ctx)
	for {
		select {
		case <-ticker.C:
			s.sweepLogged(ctx)
		case <-ctx.Done():
			s.logger.Info().Msg("overdue sweeper stopped")
			return nil
		}
	}
}

func (s *Sweeper) sweepLogged(ctx context.Context) {
	if _, err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
		s.logger.Error().Err(err).Msg("overdue sweep failed")
	}
}

// Sweep publishes one event per newly overdue task and returns how many
// were published.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	now := s.now()
	overdue, err := s.tasks.ListTasks(ctx, store.TaskFilter{
		Statuses: []model.TaskState{
			model.TaskPending, model.TaskAssigned, model.TaskInProgress, model.TaskPaused,
		},
		ScheduledEndBefore: &now,
		OverdueUnnotified:  true,
		Limit:              s.cfg.BatchSize,
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastRun, s.lastErr = now, err
	if err != nil {
		return 0, err
	}
	for id, at := range s.reported {
		if now.Sub(at) >= s.cfg.RenotifyAfter {
			delete(s.reported, id)
		}
	}

	published := 0
	for _, t := range overdue {
		if _, seen := s.reported[t.ID]; seen {
			continue
		}
		ev := events.TaskOverdueEvent{
			Meta:         events.NewMeta(ctx),
			TaskID:       t.ID,
			AssignedTo:   t.AssignedTo,
			ScheduledEnd: *t.ScheduledEnd,
		}
		if err := s.pub.Publish(ctx, ev); err != nil {
			s.lastErr = err
			return published, err
		}
		s.reported[t.ID] = now
		published++
		s.logger.Info().
			Str(log.FieldTaskID, t.ID).
			Str(log.FieldEmployeeID, t.AssignedTo).
			Time("scheduled_end", *t.ScheduledEnd).
			Msg("task overdue")
	}
	metrics.AddOverdueReported(published)
	return published, nil
}

// LastRun reports when the last sweep started and how it ended.
func (s *Sweeper) LastRun() (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun, s.lastErr
}
