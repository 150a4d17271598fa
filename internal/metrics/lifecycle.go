// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "suiteops_transitions_total",
		Help: "Applied state transitions by entity, from and to state",
	}, []string{"entity", "from", "to"})

	TransitionsRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "suiteops_transitions_rejected_total",
		Help: "Rejected state transitions by entity and reason class",
	}, []string{"entity", "reason"}) // reason=invalid|precondition

	AutoTasksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "suiteops_auto_tasks_total",
		Help: "Automatically created tasks by trigger and outcome",
	}, []string{"trigger", "outcome"}) // outcome=created|exists|error

	OverdueTasksReportedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "suiteops_overdue_tasks_reported_total",
		Help: "Tasks reported overdue by the sweeper",
	})
)

func RecordTransition(entity, from, to string) {
	TransitionsTotal.WithLabelValues(label(entity), label(from), label(to)).Inc()
}

func RecordTransitionRejected(entity, reason string) {
	TransitionsRejectedTotal.WithLabelValues(label(entity), label(reason)).Inc()
}

func RecordAutoTask(trigger, outcome string) {
	AutoTasksTotal.WithLabelValues(label(trigger), label(outcome)).Inc()
}

func AddOverdueReported(n int) {
	OverdueTasksReportedTotal.Add(float64(n))
}
