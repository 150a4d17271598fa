// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package bus dispatches domain events to subscribed handlers.
//
// Publish never blocks on handler work. Each handler registered for an event
// runs on its own goroutine, started in registration order, with a bounded
// context detached from the publisher's cancellation. A handler failure (error,
// panic or timeout) is logged and counted; it never reaches the publisher and
// never prevents sibling handlers from running.
package bus

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/suiteops/internal/domain/events"
	"github.com/ManuGH/suiteops/internal/log"
	"github.com/ManuGH/suiteops/internal/metrics"
	"github.com/ManuGH/suiteops/internal/telemetry"
)

// DefaultHandlerTimeout bounds a single handler invocation.
const DefaultHandlerTimeout = 30 * time.Second

var (
	// ErrClosed is returned by Publish and Subscribe after Close.
	ErrClosed = errors.New("event bus closed")
	// ErrDuplicateHandler is returned when a handler id is registered twice
	// for the same event.
	ErrDuplicateHandler = errors.New("handler already subscribed")
)

// Handler reacts to one event. Returned errors are observed, not propagated.
type Handler func(ctx context.Context, ev events.Event) error

// Publisher is the narrow surface services depend on.
type Publisher interface {
	Publish(ctx context.Context, ev events.Event) error
}

// PanicError wraps a value recovered from a handler panic.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string { return fmt.Sprintf("handler panic: %v", e.Value) }

type subscription struct {
	id      string
	handler Handler
}

// Options configures a Bus.
type Options struct {
	HandlerTimeout time.Duration
}

// Bus is an in-process, asynchronous event bus.
type Bus struct {
	mu      sync.RWMutex
	subs    map[events.Name][]subscription
	closed  bool
	timeout time.Duration
	tracer  trace.Tracer
	wg      sync.WaitGroup
}

// New creates an empty bus.
func New(opts Options) *Bus {
	timeout := opts.HandlerTimeout
	if timeout <= 0 {
		timeout = DefaultHandlerTimeout
	}
	return &Bus{
		subs:    make(map[events.Name][]subscription),
		timeout: timeout,
		tracer:  telemetry.Tracer("suiteops/bus"),
	}
}

// Subscribe registers h under id for events named name.
func (b *Bus) Subscribe(name events.Name, id string, h Handler) error {
	if h == nil {
		return fmt.Errorf("subscribe %s/%s: nil handler", name, id)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	for _, s := range b.subs[name] {
		if s.id == id {
			return fmt.Errorf("subscribe %s/%s: %w", name, id, ErrDuplicateHandler)
		}
	}
	b.subs[name] = append(b.subs[name], subscription{id: id, handler: h})
	return nil
}

// Subscriptions returns the handler ids registered for name, in order.
func (b *Bus) Subscriptions(name events.Name) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	ids := make([]string, 0, len(b.subs[name]))
	for _, s := range b.subs[name] {
		ids = append(ids, s.id)
	}
	return ids
}

// Names returns every event name with at least one handler, sorted.
func (b *Bus) Names() []events.Name {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]events.Name, 0, len(b.subs))
	for name, subs := range b.subs {
		if len(subs) > 0 {
			out = append(out, name)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Publish schedules every handler subscribed to ev and returns immediately.
// An event with no handlers is a no-op.
func (b *Bus) Publish(ctx context.Context, ev events.Event) error {
	if ev == nil {
		return errors.New("publish: nil event")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	name := ev.Name()

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrClosed
	}
	subs := append([]subscription(nil), b.subs[name]...)
	b.wg.Add(len(subs))
	b.mu.RUnlock()

	metrics.IncEventPublished(string(name))
	if len(subs) == 0 {
		metrics.IncEventUnhandled(string(name))
		logger := log.WithComponentFromContext(ctx, "bus")
		logger.Debug().
			Str(log.FieldEvent, string(name)).
			Msg("no handlers subscribed")
		return nil
	}

	base := context.WithoutCancel(ctx)
	if cid := ev.Metadata().CorrelationID; cid != "" && log.CorrelationIDFromContext(base) == "" {
		base = log.ContextWithCorrelationID(base, cid)
	}
	for _, s := range subs {
		go b.dispatch(base, ev, s)
	}
	return nil
}

func (b *Bus) dispatch(ctx context.Context, ev events.Event, s subscription) {
	defer b.wg.Done()

	name := string(ev.Name())
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	ctx, span := b.tracer.Start(ctx, "event.handle",
		trace.WithAttributes(telemetry.EventAttributes(name, s.id, ev.Metadata().CorrelationID)...))
	defer span.End()

	start := time.Now()
	err := invoke(ctx, s.handler, ev)
	elapsed := time.Since(start)

	outcome := metrics.OutcomeOK
	var pe *PanicError
	switch {
	case err == nil:
	case errors.As(err, &pe):
		outcome = metrics.OutcomePanic
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		outcome = metrics.OutcomeTimeout
	default:
		outcome = metrics.OutcomeError
	}
	metrics.ObserveHandler(name, s.id, outcome, elapsed.Seconds())

	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, outcome)

	logger := log.WithComponentFromContext(ctx, "bus")
	evt := logger.Error().
		Err(err).
		Str(log.FieldEvent, name).
		Str(log.FieldHandler, s.id).
		Str("outcome", outcome).
		Dur("duration", elapsed)
	if pe != nil {
		evt = evt.Bytes("stack", pe.Stack)
	}
	evt.Msg("event handler failed")
}

func invoke(ctx context.Context, h Handler, ev events.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return h(ctx, ev)
}

// Drain waits until every handler started so far has returned, or ctx ends.
// Callers that keep publishing concurrently should Close first.
func (b *Bus) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting publishes. In-flight handlers keep running; use
// Drain to wait for them.
func (b *Bus) Close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
}
