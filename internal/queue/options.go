// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package queue

import (
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// BackoffType selects how retry delays grow.
type BackoffType string

const (
	BackoffExponential BackoffType = "exponential"
	BackoffFixed       BackoffType = "fixed"
)

const (
	DefaultAttempts     = 3
	DefaultBackoffDelay = time.Second
)

// Backoff describes the delay before a retry.
type Backoff struct {
	Type  BackoffType   `json:"type"`
	Delay time.Duration `json:"delay"`
}

// Next returns the delay before the retry that follows the given attempt
// (1-based): Delay for fixed, Delay*2^(attempt-1) for exponential.
func (b Backoff) Next(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := b.Delay
	if delay <= 0 {
		delay = DefaultBackoffDelay
	}
	if b.Type == BackoffFixed {
		return backoff.NewConstantBackOff(delay).NextBackOff()
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = delay
	eb.RandomizationFactor = 0
	eb.Multiplier = 2
	eb.MaxInterval = time.Duration(math.MaxInt64)
	eb.MaxElapsedTime = 0
	eb.Reset()

	next := delay
	for i := 0; i < attempt; i++ {
		next = eb.NextBackOff()
	}
	return next
}

// Options controls how a job is enqueued.
type Options struct {
	Attempts int
	Backoff  Backoff
	// JobID makes enqueueing idempotent: a second Add with the same id
	// returns the existing job.
	JobID string
	Delay time.Duration
}

// DefaultOptions returns three attempts with exponential backoff from 1s.
func DefaultOptions() Options {
	return Options{
		Attempts: DefaultAttempts,
		Backoff:  Backoff{Type: BackoffExponential, Delay: DefaultBackoffDelay},
	}
}

// Option mutates Options.
type Option func(*Options)

func WithAttempts(n int) Option { return func(o *Options) { o.Attempts = n } }

func WithBackoff(t BackoffType, delay time.Duration) Option {
	return func(o *Options) { o.Backoff = Backoff{Type: t, Delay: delay} }
}

func WithJobID(id string) Option { return func(o *Options) { o.JobID = id } }

func WithDelay(d time.Duration) Option { return func(o *Options) { o.Delay = d } }

func buildOptions(base Options, opts []Option) Options {
	o := base
	for _, fn := range opts {
		fn(&o)
	}
	if o.Attempts < 1 {
		o.Attempts = 1
	}
	if o.Backoff.Type == "" {
		o.Backoff.Type = BackoffExponential
	}
	if o.Backoff.Delay <= 0 {
		o.Backoff.Delay = DefaultBackoffDelay
	}
	return o
}
