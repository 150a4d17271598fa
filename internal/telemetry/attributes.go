// SPDX-License-Identifier: MIT

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Common attribute keys for consistent tracing across the engine.
const (
	// Event bus attributes
	EventNameKey     = "event.name"
	EventHandlerKey  = "event.handler"
	EventCorrelation = "event.correlation_id"

	// Job attributes
	JobIDKey       = "job.id"
	JobQueueKey    = "job.queue"
	JobTypeKey     = "job.type"
	JobAttemptKey  = "job.attempt"
	JobOutcomeKey  = "job.outcome"
	JobDurationKey = "job.duration_ms"

	// HTTP attributes (operator surface)
	HTTPMethodKey     = "http.method"
	HTTPRouteKey      = "http.route"
	HTTPStatusCodeKey = "http.status_code"
	HTTPRequestIDKey  = "http.request_id"

	// Error attributes
	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// EventAttributes creates event-dispatch span attributes.
func EventAttributes(name, handler, correlationID string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 3)
	attrs = append(attrs, attribute.String(EventNameKey, name))
	if handler != "" {
		attrs = append(attrs, attribute.String(EventHandlerKey, handler))
	}
	if correlationID != "" {
		attrs = append(attrs, attribute.String(EventCorrelation, correlationID))
	}
	return attrs
}

// JobAttributes creates job-attempt span attributes.
func JobAttributes(id, queue, jobType string, attempt int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(JobIDKey, id),
		attribute.String(JobQueueKey, queue),
		attribute.String(JobTypeKey, jobType),
		attribute.Int(JobAttemptKey, attempt),
	}
}

// JobOutcomeAttributes records how an attempt ended.
func JobOutcomeAttributes(outcome string, durationMS int64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(JobOutcomeKey, outcome),
		attribute.Int64(JobDurationKey, durationMS),
	}
}

// HTTPAttributes creates request span attributes. A zero status is omitted.
func HTTPAttributes(method, route string, status int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPRouteKey, route),
	}
	if status > 0 {
		attrs = append(attrs, attribute.Int(HTTPStatusCodeKey, status))
	}
	return attrs
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(_ error, errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
