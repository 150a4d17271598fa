// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, g.Write(&m))
	return m.GetGauge().GetValue()
}

func histogramCount(t *testing.T, o prometheus.Observer) uint64 {
	t.Helper()
	h, ok := o.(prometheus.Histogram)
	require.True(t, ok)
	var m dto.Metric
	require.NoError(t, h.Write(&m))
	return m.GetHistogram().GetSampleCount()
}

func TestLabel_EmptyBecomesUnknown(t *testing.T) {
	assert.Equal(t, "unknown", label(""))
	assert.Equal(t, "task.created", label("task.created"))
}

func TestBusMetrics(t *testing.T) {
	published := EventsPublishedTotal.WithLabelValues("suite.checked_out")
	before := counterValue(t, published)
	IncEventPublished("suite.checked_out")
	assert.Equal(t, before+1, counterValue(t, published))

	unhandled := EventsUnhandledTotal.WithLabelValues("unknown")
	before = counterValue(t, unhandled)
	IncEventUnhandled("")
	assert.Equal(t, before+1, counterValue(t, unhandled))

	runs := HandlerRunsTotal.WithLabelValues("task.assigned", "notify", OutcomeError)
	beforeRuns := counterValue(t, runs)
	beforeObs := histogramCount(t, HandlerDuration.WithLabelValues("task.assigned"))
	ObserveHandler("task.assigned", "notify", OutcomeError, 0.01)
	assert.Equal(t, beforeRuns+1, counterValue(t, runs))
	assert.Equal(t, beforeObs+1, histogramCount(t, HandlerDuration.WithLabelValues("task.assigned")))
}

func TestLifecycleMetrics(t *testing.T) {
	tr := TransitionsTotal.WithLabelValues("suite", "OCCUPIED", "VACANT_DIRTY")
	before := counterValue(t, tr)
	RecordTransition("suite", "OCCUPIED", "VACANT_DIRTY")
	assert.Equal(t, before+1, counterValue(t, tr))

	rej := TransitionsRejectedTotal.WithLabelValues("task", "precondition")
	before = counterValue(t, rej)
	RecordTransitionRejected("task", "precondition")
	assert.Equal(t, before+1, counterValue(t, rej))

	auto := AutoTasksTotal.WithLabelValues("checkout", "exists")
	before = counterValue(t, auto)
	RecordAutoTask("checkout", "exists")
	RecordAutoTask("checkout", "exists")
	assert.Equal(t, before+2, counterValue(t, auto))

	before = counterValue(t, OverdueTasksReportedTotal)
	AddOverdueReported(3)
	assert.Equal(t, before+3, counterValue(t, OverdueTasksReportedTotal))
}

func TestQueueMetrics(t *testing.T) {
	enq := JobsEnqueuedTotal.WithLabelValues("notifications", "send-notification")
	before := counterValue(t, enq)
	IncJobEnqueued("notifications", "send-notification")
	assert.Equal(t, before+1, counterValue(t, enq))

	proc := JobsProcessedTotal.WithLabelValues("notifications", "send-notification", JobRetried)
	before = counterValue(t, proc)
	ObserveJob("notifications", "send-notification", JobRetried, 0.2)
	assert.Equal(t, before+1, counterValue(t, proc))

	SetQueueDepth("notifications", "waiting", 7)
	assert.Equal(t, 7.0, gaugeValue(t, QueueDepth.WithLabelValues("notifications", "waiting")))
	SetQueueDepth("notifications", "waiting", 2)
	assert.Equal(t, 2.0, gaugeValue(t, QueueDepth.WithLabelValues("notifications", "waiting")))

	created := NotificationsCreatedTotal.WithLabelValues("TASK_ASSIGNED")
	before = counterValue(t, created)
	AddNotificationsCreated("TASK_ASSIGNED", 4)
	assert.Equal(t, before+4, counterValue(t, created))

	before = counterValue(t, NotificationsCleanedTotal)
	AddNotificationsCleaned(5)
	assert.Equal(t, before+5, counterValue(t, NotificationsCleanedTotal))
}

func TestPromhttpExposure(t *testing.T) {
	IncJobEnqueued("notifications", "cleanup")

	srv := httptest.NewServer(promhttp.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `suiteops_jobs_enqueued_total{queue="notifications",type="cleanup"}`)
}
