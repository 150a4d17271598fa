// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/ManuGH/suiteops/internal/log"
	"github.com/ManuGH/suiteops/internal/metrics"
	"github.com/ManuGH/suiteops/internal/telemetry"
)

// Processor handles one attempt of a job. Returning an error schedules a
// retry unless the job is out of attempts or the error is Permanent.
type Processor func(ctx context.Context, job Job) (Result, error)

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// RunnerConfig tunes the consumer side of a queue.
type RunnerConfig struct {
	Workers      int
	PollInterval time.Duration
	// JobTimeout bounds a single attempt.
	JobTimeout time.Duration
	// Lease is how long a claimed job stays invisible to other consumers.
	// It must exceed JobTimeout.
	Lease time.Duration
	// RateLimit caps claims per second across all workers; 0 disables it.
	RateLimit float64
	Burst     int
}

// DefaultRunnerConfig returns conservative defaults.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		Workers:      4,
		PollInterval: time.Second,
		JobTimeout:   30 * time.Second,
		Lease:        2 * time.Minute,
	}
}

func (c RunnerConfig) withDefaults() RunnerConfig {
	d := DefaultRunnerConfig()
	if c.Workers <= 0 {
		c.Workers = d.Workers
	}
	if c.PollInterval <= 0 {
		c.PollInterval = d.PollInterval
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = d.JobTimeout
	}
	if c.Lease <= c.JobTimeout {
		c.Lease = c.JobTimeout + c.JobTimeout/2 + time.Second
	}
	if c.Burst <= 0 {
		c.Burst = c.Workers
	}
	return c
}

// Runner consumes one queue with a pool of workers.
type Runner struct {
	backend Backend
	queue   string
	cfg     RunnerConfig
	limiter *rate.Limiter
	logger  zerolog.Logger
	tracer  trace.Tracer
	now     func() time.Time

	mu         sync.RWMutex
	processors map[string]Processor
}

// NewRunner builds a consumer for queue on backend.
func NewRunner(backend Backend, queue string, cfg RunnerConfig) *Runner {
	cfg = cfg.withDefaults()
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	return &Runner{
		backend:    backend,
		queue:      queue,
		cfg:        cfg,
		limiter:    rate.NewLimiter(limit, cfg.Burst),
		logger:     log.WithComponent("queue.runner").With().Str(log.FieldQueue, queue).Logger(),
		tracer:     telemetry.Tracer("suiteops/queue"),
		now:        func() time.Time { return time.Now().UTC() },
		processors: make(map[string]Processor),
	}
}

// Handle registers p for jobs of jobType, replacing any previous processor.
func (r *Runner) Handle(jobType string, p Processor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.processors[jobType] = p
}

func (r *Runner) processor(jobType string) (Processor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.processors[jobType]
	return p, ok
}

// Run starts the workers and blocks until ctx is cancelled. In-flight
// attempts are allowed to finish within JobTimeout.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info().
		Int("workers", r.cfg.Workers).
		Dur("poll_interval", r.cfg.PollInterval).
		Dur("job_timeout", r.cfg.JobTimeout).
		Msg("queue runner started")

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < r.cfg.Workers; i++ {
		worker := i
		g.Go(func() error {
			r.work(gctx, worker)
			return nil
		})
	}
	g.Go(func() error {
		r.reportDepth(gctx)
		return nil
	})
	err := g.Wait()
	r.logger.Info().Msg("queue runner stopped")
	return err
}

func (r *Runner) work(ctx context.Context, worker int) {
	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		processed, err := r.ProcessNext(ctx)
		if err != nil && ctx.Err() == nil {
			r.logger.Error().Err(err).Int(log.FieldWorker, worker).Msg("queue poll failed")
		}
		if processed {
			timer.Reset(0)
		} else {
			timer.Reset(r.cfg.PollInterval)
		}
	}
}

func (r *Runner) reportDepth(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.PollInterval * 5)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats, err := r.backend.Stats(ctx, r.queue)
			if err != nil {
				continue
			}
			metrics.SetQueueDepth(r.queue, string(StateWaiting), stats.Waiting)
			metrics.SetQueueDepth(r.queue, string(StateActive), stats.Active)
			metrics.SetQueueDepth(r.queue, string(StateFailed), stats.Failed)
		}
	}
}

// ProcessNext claims and processes at most one due job. It reports whether
// a job was claimed.
func (r *Runner) ProcessNext(ctx context.Context) (bool, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return false, err
	}
	job, ok, err := r.backend.Claim(ctx, r.queue, r.now(), r.cfg.Lease)
	if err != nil || !ok {
		return false, err
	}
	// A claimed attempt runs to completion even when the runner stops.
	r.process(context.WithoutCancel(ctx), job)
	return true, nil
}

func (r *Runner) process(ctx context.Context, job Job) {
	ctx = log.ContextWithJobID(ctx, job.ID)
	logger := r.logger.With().
		Str(log.FieldJobID, job.ID).
		Str(log.FieldJobType, job.Type).
		Int(log.FieldAttempt, job.Attempts).
		Int(log.FieldMaxAttempts, job.MaxAttempts).
		Logger()

	if job.Attempts > job.MaxAttempts {
		// Lease expired on the final attempt, e.g. the worker crashed.
		r.fail(ctx, logger, job, "attempts exhausted after lease expiry", 0)
		return
	}
	p, ok := r.processor(job.Type)
	if !ok {
		r.fail(ctx, logger, job, fmt.Errorf("%w: %s", ErrUnknownJobType, job.Type).Error(), 0)
		return
	}

	attemptCtx, cancel := context.WithTimeout(ctx, r.cfg.JobTimeout)
	defer cancel()
	attemptCtx, span := r.tracer.Start(attemptCtx, "job.attempt",
		trace.WithAttributes(telemetry.JobAttributes(job.ID, job.Queue, job.Type, job.Attempts)...))
	defer span.End()

	start := time.Now()
	result, err := invokeProcessor(attemptCtx, p, job)
	elapsed := time.Since(start)

	if err == nil {
		outcome := metrics.JobCompleted
		if result.Skipped {
			outcome = metrics.JobSkipped
		}
		span.SetAttributes(telemetry.JobOutcomeAttributes(outcome, elapsed.Milliseconds())...)
		raw, mErr := json.Marshal(result)
		if mErr != nil {
			raw = nil
		}
		if cErr := r.backend.Complete(ctx, job.ID, raw, r.now()); cErr != nil {
			logger.Error().Err(cErr).Msg("failed to record job completion")
			return
		}
		metrics.ObserveJob(job.Queue, job.Type, outcome, elapsed.Seconds())
		if result.Skipped {
			logger.Info().Str("reason", result.Reason).Msg("job skipped")
		} else {
			logger.Debug().Dur("duration", elapsed).Msg("job completed")
		}
		return
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) || job.Exhausted() {
		span.SetAttributes(telemetry.JobOutcomeAttributes(metrics.JobFailed, elapsed.Milliseconds())...)
		r.fail(ctx, logger, job, err.Error(), elapsed)
		return
	}

	delay := job.Backoff.Next(job.Attempts)
	span.SetAttributes(telemetry.JobOutcomeAttributes(metrics.JobRetried, elapsed.Milliseconds())...)
	if rErr := r.backend.Retry(ctx, job.ID, r.now().Add(delay), err.Error(), r.now()); rErr != nil {
		logger.Error().Err(rErr).Msg("failed to schedule job retry")
		return
	}
	metrics.ObserveJob(job.Queue, job.Type, metrics.JobRetried, elapsed.Seconds())
	logger.Warn().Err(err).Dur(log.FieldRetryIn, delay).Msg("job attempt failed, retrying")
}

func (r *Runner) fail(ctx context.Context, logger zerolog.Logger, job Job, reason string, elapsed time.Duration) {
	if err := r.backend.Fail(ctx, job.ID, reason, r.now()); err != nil {
		logger.Error().Err(err).Msg("failed to record job failure")
		return
	}
	metrics.ObserveJob(job.Queue, job.Type, metrics.JobFailed, elapsed.Seconds())
	logger.Error().Str("last_error", reason).Msg("job failed permanently")
}

func invokeProcessor(ctx context.Context, p Processor, job Job) (res Result, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("processor panic: %v\n%s", rec, debug.Stack())
		}
	}()
	return p(ctx, job)
}
