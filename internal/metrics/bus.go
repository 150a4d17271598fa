// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Handler outcome labels.
const (
	OutcomeOK      = "ok"
	OutcomeError   = "error"
	OutcomePanic   = "panic"
	OutcomeTimeout = "timeout"
)

var (
	EventsPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "suiteops_events_published_total",
		Help: "Total number of domain events published by name",
	}, []string{"event"})

	EventsUnhandledTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "suiteops_events_unhandled_total",
		Help: "Total number of domain events published with no subscribed handler",
	}, []string{"event"})

	HandlerRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "suiteops_event_handler_runs_total",
		Help: "Total number of event handler invocations by event, handler and outcome",
	}, []string{"event", "handler", "outcome"})

	HandlerDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "suiteops_event_handler_duration_seconds",
		Help:    "Event handler execution time",
		Buckets: prometheus.DefBuckets,
	}, []string{"event"})
)

// IncEventPublished records a published event.
func IncEventPublished(event string) {
	EventsPublishedTotal.WithLabelValues(label(event)).Inc()
}

// IncEventUnhandled records a publish that found no subscriber.
func IncEventUnhandled(event string) {
	EventsUnhandledTotal.WithLabelValues(label(event)).Inc()
}

// ObserveHandler records one handler invocation.
func ObserveHandler(event, handler, outcome string, seconds float64) {
	HandlerRunsTotal.WithLabelValues(label(event), label(handler), label(outcome)).Inc()
	HandlerDuration.WithLabelValues(label(event)).Observe(seconds)
}

func label(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
