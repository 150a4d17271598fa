// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package queue

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/suiteops/internal/log"
)

// Clock abstracts time for the scheduler.
type Clock interface {
	Now() time.Time
	NewTimer(d time.Duration) Timer
}

// Timer abstracts time.Timer.
type Timer interface {
	C() <-chan time.Time
	Stop() bool
}

// RealClock implements Clock using the time package.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }
func (RealClock) NewTimer(d time.Duration) Timer {
	return &realTimer{t: time.NewTimer(d)}
}

type realTimer struct {
	t *time.Timer
}

func (r *realTimer) C() <-chan time.Time { return r.t.C }
func (r *realTimer) Stop() bool          { return r.t.Stop() }

// TimeOfDay is a wall-clock time in the scheduler's location.
type TimeOfDay struct {
	Hour, Minute int
}

// ParseTimeOfDay parses "HH:MM" in 24-hour form.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q: want HH:MM", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return TimeOfDay{}, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return TimeOfDay{}, fmt.Errorf("invalid minute in %q", s)
	}
	return TimeOfDay{Hour: h, Minute: m}, nil
}

func (t TimeOfDay) String() string { return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute) }

// Next returns the first occurrence of t strictly after now, in now's
// location.
func (t TimeOfDay) Next(now time.Time) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), t.Hour, t.Minute, 0, 0, now.Location())
	if !next.After(now) {
		next = time.Date(now.Year(), now.Month(), now.Day()+1, t.Hour, t.Minute, 0, 0, now.Location())
	}
	return next
}

// DailyJob enqueues one job per calendar day.
type DailyJob struct {
	Queue   *Queue
	JobType string
	At      TimeOfDay
	Payload func(day time.Time) any
}

// JobID is deterministic per day so that several schedulers sharing a
// backend enqueue the job once.
func (d DailyJob) JobID(day time.Time) string {
	return d.JobType + ":" + day.Format("2006-01-02")
}

// Scheduler fires DailyJobs at their time of day.
type Scheduler struct {
	clock    Clock
	location *time.Location
	logger   zerolog.Logger

	mu   sync.Mutex
	jobs []DailyJob
}

// NewScheduler creates a scheduler evaluating times in loc (UTC if nil).
func NewScheduler(loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		clock:    RealClock{},
		location: loc,
		logger:   log.WithComponent("queue.scheduler"),
	}
}

// WithClock replaces the clock; used by tests.
func (s *Scheduler) WithClock(c Clock) *Scheduler {
	s.clock = c
	return s
}

// Add registers a daily job.
func (s *Scheduler) Add(job DailyJob) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, job)
}

// Run blocks until ctx is cancelled, enqueueing each job when due.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	jobs := append([]DailyJob(nil), s.jobs...)
	s.mu.Unlock()
	if len(jobs) == 0 {
		<-ctx.Done()
		return nil
	}

	for {
		now := s.clock.Now().In(s.location)
		due, idx := s.nextDue(jobs, now)
		s.logger.Debug().
			Str(log.FieldJobType, jobs[idx].JobType).
			Time("next_run", due).
			Msg("next scheduled job")

		timer := s.clock.NewTimer(due.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C():
		}

		for _, j := range jobs {
			if j.At.Next(due.Add(-time.Minute)).Equal(due) {
				s.Fire(ctx, j, due)
			}
		}
	}
}

func (s *Scheduler) nextDue(jobs []DailyJob, now time.Time) (time.Time, int) {
	best, idx := jobs[0].At.Next(now), 0
	for i, j := range jobs[1:] {
		if n := j.At.Next(now); n.Before(best) {
			best, idx = n, i+1
		}
	}
	return best, idx
}

// Fire enqueues job for the calendar day of at.
func (s *Scheduler) Fire(ctx context.Context, job DailyJob, at time.Time) {
	var payload any = struct{}{}
	if job.Payload != nil {
		payload = job.Payload(at)
	}
	enq, err := job.Queue.Add(ctx, job.JobType, payload, WithJobID(job.JobID(at)))
	if err != nil {
		s.logger.Error().Err(err).Str(log.FieldJobType, job.JobType).Msg("scheduled enqueue failed")
		return
	}
	s.logger.Info().
		Str(log.FieldJobType, job.JobType).
		Str(log.FieldJobID, enq.ID).
		Msg("scheduled job enqueued")
}
