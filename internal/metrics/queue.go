// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Job outcome labels.
const (
	JobCompleted = "completed"
	JobSkipped   = "skipped"
	JobRetried   = "retried"
	JobFailed    = "failed"
)

var (
	JobsEnqueuedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "suiteops_jobs_enqueued_total",
		Help: "Total number of jobs enqueued by queue and type",
	}, []string{"queue", "type"})

	JobsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "suiteops_jobs_processed_total",
		Help: "Total number of job attempts by queue, type and outcome",
	}, []string{"queue", "type", "outcome"})

	JobAttemptDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "suiteops_job_attempt_duration_seconds",
		Help:    "Duration of a single job attempt",
		Buckets: []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
	}, []string{"queue", "type"})

	QueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "suiteops_queue_jobs",
		Help: "Number of jobs per queue and state (last poll)",
	}, []string{"queue", "state"})

	NotificationsCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "suiteops_notifications_created_total",
		Help: "Notification records materialized by type",
	}, []string{"type"})

	NotificationsCleanedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "suiteops_notifications_cleaned_total",
		Help: "Read notification records deleted by the cleanup job",
	})
)

func IncJobEnqueued(queue, jobType string) {
	JobsEnqueuedTotal.WithLabelValues(label(queue), label(jobType)).Inc()
}

func ObserveJob(queue, jobType, outcome string, seconds float64) {
	JobsProcessedTotal.WithLabelValues(label(queue), label(jobType), label(outcome)).Inc()
	JobAttemptDuration.WithLabelValues(label(queue), label(jobType)).Observe(seconds)
}

func SetQueueDepth(queue, state string, n int) {
	QueueDepth.WithLabelValues(label(queue), label(state)).Set(float64(n))
}

func AddNotificationsCreated(notificationType string, n int) {
	NotificationsCreatedTotal.WithLabelValues(label(notificationType)).Add(float64(n))
}

func AddNotificationsCleaned(n int) {
	NotificationsCleanedTotal.Add(float64(n))
}
