// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package control

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/suiteops/internal/control/auth"
	"github.com/ManuGH/suiteops/internal/domain/model"
	"github.com/ManuGH/suiteops/internal/health"
	"github.com/ManuGH/suiteops/internal/log"
	"github.com/ManuGH/suiteops/internal/queue"
)

func newFailedQueue(t *testing.T) *queue.Queue {
	t.Helper()
	ctx := context.Background()
	backend := queue.NewMemoryBackend()
	q := queue.New("notifications", backend, queue.DefaultOptions())

	job, err := q.Add(ctx, "send-notification", map[string]string{"recipientId": "emp-1"})
	require.NoError(t, err)
	claimed, ok, err := backend.Claim(ctx, q.Name(), time.Now().Add(time.Second), time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, job.ID, claimed.ID)
	require.NoError(t, backend.Fail(ctx, job.ID, "recipient not found", time.Now()))

	_, err = q.Add(ctx, "send-notification", map[string]string{"recipientId": "emp-2"})
	require.NoError(t, err)
	return q
}

func newTestRouter(t *testing.T, queues ...QueueInspector) http.Handler {
	t.Helper()
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{Name: "suiteops_test_total", Help: "test"}))
	return NewRouter(Deps{
		Health: health.NewManager("test"),
		Resolver: auth.NewStaticResolver(
			auth.Binding{Token: "mgr-token", ActorID: "mgr-1", Role: model.RoleManager},
			auth.Binding{Token: "hk-token", ActorID: "hk-1", Role: model.RoleHousekeeper},
		),
		Queues:   queues,
		Gatherer: reg,
	})
}

func get(h http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestFailedJobs_RequiresActor(t *testing.T) {
	h := newTestRouter(t, newFailedQueue(t))

	rec := get(h, "/api/jobs/failed", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = get(h, "/api/jobs/failed", "wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestFailedJobs_ForbiddenWithoutReportPermission(t *testing.T) {
	h := newTestRouter(t, newFailedQueue(t))

	rec := get(h, "/api/jobs/failed", "hk-token")
	require.Equal(t, http.StatusForbidden, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "FORBIDDEN", body["code"])
	assert.ElementsMatch(t, []any{"view_reports", "manage_settings"}, body["requiredPermissions"])
}

func TestFailedJobs_ListsFailedOnly(t *testing.T) {
	h := newTestRouter(t, newFailedQueue(t))

	rec := get(h, "/api/jobs/failed?queue=notifications&limit=10", "mgr-token")
	require.Equal(t, http.StatusOK, rec.Code)

	var body failedJobs
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "notifications", body.Queue)
	require.Len(t, body.Jobs, 1)
	assert.Equal(t, queue.StateFailed, body.Jobs[0].State)
	assert.Equal(t, "recipient not found", body.Jobs[0].LastError)
}

func TestFailedJobs_BadInput(t *testing.T) {
	h := newTestRouter(t, newFailedQueue(t))

	assert.Equal(t, http.StatusBadRequest, get(h, "/api/jobs/failed?limit=-1", "mgr-token").Code)
	assert.Equal(t, http.StatusBadRequest, get(h, "/api/jobs/failed?limit=abc", "mgr-token").Code)
	assert.Equal(t, http.StatusNotFound, get(h, "/api/jobs/failed?queue=reports", "mgr-token").Code)
}

type brokenQueue struct{}

func (brokenQueue) Name() string { return "notifications" }

func (brokenQueue) Failed(context.Context, int) ([]queue.Job, error) {
	return nil, errors.New("connection refused")
}

func (brokenQueue) Stats(context.Context) (queue.Stats, error) {
	return queue.Stats{}, errors.New("connection refused")
}

func TestFailedJobs_BackendUnavailable(t *testing.T) {
	h := newTestRouter(t, brokenQueue{})

	var buf bytes.Buffer
	log.Configure(log.Config{Output: &buf})
	t.Cleanup(func() { log.Configure(log.Config{}) })

	rec := get(h, "/api/jobs/failed", "mgr-token")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")

	assert.Contains(t, buf.String(), `"message":"queue backend read failed"`)
	assert.Contains(t, buf.String(), `"error":"connection refused"`)
	assert.Contains(t, buf.String(), `"component":"control"`)
}

func TestQueues_Stats(t *testing.T) {
	h := newTestRouter(t, newFailedQueue(t))

	rec := get(h, "/api/queues", "mgr-token")
	require.Equal(t, http.StatusOK, rec.Code)

	var body []queueStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body, 1)
	assert.Equal(t, "notifications", body[0].Queue)
	assert.Equal(t, 1, body[0].Waiting)
	assert.Equal(t, 1, body[0].Failed)
}

func TestHealthEndpointsAndMetrics_NoAuth(t *testing.T) {
	h := newTestRouter(t)

	assert.Equal(t, http.StatusOK, get(h, "/healthz", "").Code)
	assert.Equal(t, http.StatusOK, get(h, "/readyz", "").Code)

	rec := get(h, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "suiteops_test_total")
}
