// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package bus

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ManuGH/suiteops/internal/domain/events"
	"github.com/ManuGH/suiteops/internal/log"
	"github.com/ManuGH/suiteops/internal/metrics"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	m := &dto.Metric{}
	require.NoError(t, c.Write(m))
	return m.GetCounter().GetValue()
}

func drain(t *testing.T, b *Bus) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, b.Drain(ctx))
}

func TestPublish_NoHandlersIsNoop(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	b := New(Options{})
	before := counterValue(t, metrics.EventsUnhandledTotal.WithLabelValues(string(events.EmployeeClockIn)))

	require.NoError(t, b.Publish(context.Background(), events.EmployeeClockInEvent{EmployeeID: "e1"}))
	drain(t, b)

	after := counterValue(t, metrics.EventsUnhandledTotal.WithLabelValues(string(events.EmployeeClockIn)))
	assert.Equal(t, before+1, after)
}

func TestPublish_NoHandlersLogsEvent(t *testing.T) {
	var buf bytes.Buffer
	log.Configure(log.Config{Level: "debug", Output: &buf})
	t.Cleanup(func() { log.Configure(log.Config{}) })

	b := New(Options{})
	require.NoError(t, b.Publish(context.Background(), events.EmployeeClockOutEvent{EmployeeID: "e1"}))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "bus", entry[log.FieldComponent])
	assert.Equal(t, string(events.EmployeeClockOut), entry[log.FieldEvent])
	assert.Equal(t, "no handlers subscribed", entry["message"])
}

func TestPublish_ReturnsBeforeHandlersFinish(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	b := New(Options{})
	release := make(chan struct{})
	var ran atomic.Bool
	require.NoError(t, b.Subscribe(events.TaskCreated, "slow", func(ctx context.Context, ev events.Event) error {
		<-release
		ran.Store(true)
		return nil
	}))

	require.NoError(t, b.Publish(context.Background(), events.TaskCreatedEvent{TaskID: "t1"}))
	assert.False(t, ran.Load())

	close(release)
	drain(t, b)
	assert.True(t, ran.Load())
}

func TestPublish_FailureIsolation(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	b := New(Options{})
	var mu sync.Mutex
	var seen []string
	record := func(id string) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, id)
	}

	require.NoError(t, b.Subscribe(events.TaskAssigned, "fails", func(ctx context.Context, ev events.Event) error {
		record("fails")
		return errors.New("store unavailable")
	}))
	require.NoError(t, b.Subscribe(events.TaskAssigned, "panics", func(ctx context.Context, ev events.Event) error {
		record("panics")
		panic("boom")
	}))
	require.NoError(t, b.Subscribe(events.TaskAssigned, "ok", func(ctx context.Context, ev events.Event) error {
		record("ok")
		return nil
	}))

	before := counterValue(t, metrics.HandlerRunsTotal.WithLabelValues(string(events.TaskAssigned), "panics", metrics.OutcomePanic))

	err := b.Publish(context.Background(), events.TaskAssignedEvent{TaskID: "t1", AssignedTo: "e1"})
	require.NoError(t, err)
	drain(t, b)

	assert.ElementsMatch(t, []string{"fails", "panics", "ok"}, seen)
	after := counterValue(t, metrics.HandlerRunsTotal.WithLabelValues(string(events.TaskAssigned), "panics", metrics.OutcomePanic))
	assert.Equal(t, before+1, after)
}

func TestPublish_DetachedFromPublisherCancellation(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	b := New(Options{})
	started := make(chan struct{})
	result := make(chan error, 1)
	require.NoError(t, b.Subscribe(events.TaskCompleted, "waits", func(ctx context.Context, ev events.Event) error {
		close(started)
		select {
		case <-ctx.Done():
			result <- ctx.Err()
		case <-time.After(50 * time.Millisecond):
			result <- nil
		}
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, b.Publish(ctx, events.TaskCompletedEvent{TaskID: "t1"}))
	<-started
	cancel()

	drain(t, b)
	assert.NoError(t, <-result)
}

func TestPublish_HandlerTimeout(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	b := New(Options{HandlerTimeout: 20 * time.Millisecond})
	require.NoError(t, b.Subscribe(events.NoteFollowUpDue, "stuck", func(ctx context.Context, ev events.Event) error {
		<-ctx.Done()
		return ctx.Err()
	}))

	before := counterValue(t, metrics.HandlerRunsTotal.WithLabelValues(string(events.NoteFollowUpDue), "stuck", metrics.OutcomeTimeout))
	require.NoError(t, b.Publish(context.Background(), events.NoteFollowUpDueEvent{NoteID: "n1"}))
	drain(t, b)

	after := counterValue(t, metrics.HandlerRunsTotal.WithLabelValues(string(events.NoteFollowUpDue), "stuck", metrics.OutcomeTimeout))
	assert.Equal(t, before+1, after)
}

func TestPublish_CarriesCorrelationID(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	b := New(Options{})
	got := make(chan string, 1)
	require.NoError(t, b.Subscribe(events.SuiteCheckedIn, "cid", func(ctx context.Context, ev events.Event) error {
		got <- log.CorrelationIDFromContext(ctx)
		return nil
	}))

	ev := events.SuiteCheckedInEvent{Meta: events.Meta{CorrelationID: "corr-42"}, SuiteID: "s1"}
	require.NoError(t, b.Publish(context.Background(), ev))
	drain(t, b)
	assert.Equal(t, "corr-42", <-got)
}

func TestSubscribe_Ordering(t *testing.T) {
	b := New(Options{})
	noop := func(context.Context, events.Event) error { return nil }
	require.NoError(t, b.Subscribe(events.SuiteCheckedOut, "b", noop))
	require.NoError(t, b.Subscribe(events.SuiteCheckedOut, "a", noop))
	require.NoError(t, b.Subscribe(events.SuiteOutOfOrder, "c", noop))

	assert.Equal(t, []string{"b", "a"}, b.Subscriptions(events.SuiteCheckedOut))
	assert.Equal(t, []events.Name{events.SuiteCheckedOut, events.SuiteOutOfOrder}, b.Names())

	err := b.Subscribe(events.SuiteCheckedOut, "a", noop)
	assert.ErrorIs(t, err, ErrDuplicateHandler)
	assert.Error(t, b.Subscribe(events.SuiteCheckedOut, "nil", nil))
}

func TestClose_RejectsPublish(t *testing.T) {
	b := New(Options{})
	b.Close()
	assert.ErrorIs(t, b.Publish(context.Background(), events.EmployeeClockOutEvent{EmployeeID: "e1"}), ErrClosed)
	assert.ErrorIs(t, b.Subscribe(events.EmployeeClockOut, "late", func(context.Context, events.Event) error { return nil }), ErrClosed)
}

func TestPublish_NilEvent(t *testing.T) {
	b := New(Options{})
	assert.Error(t, b.Publish(context.Background(), nil))
}
