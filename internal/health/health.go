// SPDX-License-Identifier: MIT

// Package health provides liveness and readiness checks for the daemon's
// store, queue and background loops.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ManuGH/suiteops/internal/log"
	"github.com/ManuGH/suiteops/internal/queue"
)

// Status represents the overall health/readiness status
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// DefaultCheckTimeout bounds a single checker.
const DefaultCheckTimeout = 2 * time.Second

// CheckResult represents the result of a component health check
type CheckResult struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// HealthResponse represents the full health check response
type HealthResponse struct {
	Status    Status                 `json:"status"`
	Version   string                 `json:"version,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Uptime    int64                  `json:"uptimeSeconds"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// ReadinessResponse represents the readiness check response
type ReadinessResponse struct {
	Ready     bool                   `json:"ready"`
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// Checker defines the interface for health checks
type Checker interface {
	Name() string
	Check(ctx context.Context) CheckResult
}

// Manager manages health and readiness checks
type Manager struct {
	version  string
	started  time.Time
	timeout  time.Duration
	checkers []Checker
}

func NewManager(version string) *Manager {
	return &Manager{
		version: version,
		started: time.Now(),
		timeout: DefaultCheckTimeout,
	}
}

func (m *Manager) RegisterChecker(checker Checker) {
	m.checkers = append(m.checkers, checker)
}

// run evaluates every checker and folds the results into one status.
func (m *Manager) run(ctx context.Context) (Status, map[string]CheckResult) {
	status := StatusHealthy
	results := make(map[string]CheckResult, len(m.checkers))
	for _, checker := range m.checkers {
		cctx, cancel := context.WithTimeout(ctx, m.timeout)
		result := checker.Check(cctx)
		cancel()
		results[checker.Name()] = result

		switch result.Status {
		case StatusUnhealthy:
			status = StatusUnhealthy
		case StatusDegraded:
			if status == StatusHealthy {
				status = StatusDegraded
			}
		}
	}
	return status, results
}

// Health performs a liveness check. Component checks only run when
// verbose is set; the process being able to answer is enough otherwise.
func (m *Manager) Health(ctx context.Context, verbose bool) HealthResponse {
	resp := HealthResponse{
		Status:    StatusHealthy,
		Version:   m.version,
		Timestamp: time.Now(),
		Uptime:    int64(time.Since(m.started).Seconds()),
	}
	if verbose && len(m.checkers) > 0 {
		resp.Status, resp.Checks = m.run(ctx)
	}
	return resp
}

// Ready performs a readiness check. Degraded components keep the daemon
// ready; unhealthy ones do not.
func (m *Manager) Ready(ctx context.Context) ReadinessResponse {
	resp := ReadinessResponse{
		Ready:     true,
		Status:    StatusHealthy,
		Timestamp: time.Now(),
	}
	if len(m.checkers) == 0 {
		return resp
	}
	resp.Status, resp.Checks = m.run(ctx)
	resp.Ready = resp.Status != StatusUnhealthy
	return resp
}

// ServeHealth handles HTTP health check requests
func (m *Manager) ServeHealth(w http.ResponseWriter, r *http.Request) {
	logger := log.WithComponentFromContext(r.Context(), "health")
	verbose := r.URL.Query().Get("verbose") == "true"

	resp := m.Health(r.Context(), verbose)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK) // Always 200 for liveness

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Error().Err(err).Str(log.FieldEvent, "health.encode_error").Msg("failed to encode health response")
	}
	logger.Debug().
		Str(log.FieldEvent, "health.checked").
		Str("status", string(resp.Status)).
		Bool("verbose", verbose).
		Msg("health check performed")
}

// ServeReady handles HTTP readiness check requests
func (m *Manager) ServeReady(w http.ResponseWriter, r *http.Request) {
	logger := log.WithComponentFromContext(r.Context(), "readiness")

	resp := m.Ready(r.Context())

	w.Header().Set("Content-Type", "application/json")
	if resp.Ready {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Error().Err(err).Str(log.FieldEvent, "readiness.encode_error").Msg("failed to encode readiness response")
	}
	logger.Debug().
		Str(log.FieldEvent, "readiness.checked").
		Str("status", string(resp.Status)).
		Bool("ready", resp.Ready).
		Msg("readiness check performed")
}

// FuncChecker adapts a ping-style function. Any error is unhealthy.
type FuncChecker struct {
	name string
	fn   func(ctx context.Context) error
}

func NewFuncChecker(name string, fn func(ctx context.Context) error) *FuncChecker {
	return &FuncChecker{name: name, fn: fn}
}

func (c *FuncChecker) Name() string { return c.name }

func (c *FuncChecker) Check(ctx context.Context) CheckResult {
	if err := c.fn(ctx); err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	return CheckResult{Status: StatusHealthy}
}

// QueueStatser is the read side of a queue.
type QueueStatser interface {
	Name() string
	Stats(ctx context.Context) (queue.Stats, error)
}

// QueueChecker reports a queue unhealthy when its backend cannot be read
// and degraded once failed jobs reach the threshold.
type QueueChecker struct {
	q               QueueStatser
	degradedAtFails int
}

// NewQueueChecker creates a checker for q. A threshold of zero never
// degrades.
func NewQueueChecker(q QueueStatser, degradedAtFails int) *QueueChecker {
	return &QueueChecker{q: q, degradedAtFails: degradedAtFails}
}

func (c *QueueChecker) Name() string { return "queue." + c.q.Name() }

func (c *QueueChecker) Check(ctx context.Context) CheckResult {
	st, err := c.q.Stats(ctx)
	if err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	msg := fmt.Sprintf("waiting=%d active=%d failed=%d", st.Waiting, st.Active, st.Failed)
	if c.degradedAtFails > 0 && st.Failed >= c.degradedAtFails {
		return CheckResult{Status: StatusDegraded, Message: msg}
	}
	return CheckResult{Status: StatusHealthy, Message: msg}
}

// LastRunChecker checks that a periodic loop ran recently and succeeded.
type LastRunChecker struct {
	name       string
	maxAge     time.Duration
	getLastRun func() (time.Time, error)
	now        func() time.Time
}

// NewLastRunChecker creates a checker for a loop expected to run at least
// every maxAge.
func NewLastRunChecker(name string, maxAge time.Duration, getLastRun func() (time.Time, error)) *LastRunChecker {
	return &LastRunChecker{name: name, maxAge: maxAge, getLastRun: getLastRun, now: time.Now}
}

func (c *LastRunChecker) Name() string {
	return c.name
}

func (c *LastRunChecker) Check(ctx context.Context) CheckResult {
	lastRun, lastErr := c.getLastRun()

	if lastRun.IsZero() {
		return CheckResult{
			Status:  StatusDegraded,
			Message: "no run yet",
		}
	}
	if lastErr != nil {
		return CheckResult{
			Status:  StatusDegraded,
			Error:   lastErr.Error(),
			Message: "last run failed",
		}
	}
	if c.maxAge > 0 && c.now().Sub(lastRun) > c.maxAge {
		return CheckResult{
			Status:  StatusUnhealthy,
			Message: fmt.Sprintf("last run %s ago", c.now().Sub(lastRun).Round(time.Second)),
		}
	}
	return CheckResult{
		Status:  StatusHealthy,
		Message: "last run successful",
	}
}
