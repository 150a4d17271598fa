// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package control is the operator HTTP surface: health checks, metrics and
// inspection of jobs that exhausted their retries.
package control

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ManuGH/suiteops/internal/control/auth"
	"github.com/ManuGH/suiteops/internal/control/authz"
	"github.com/ManuGH/suiteops/internal/control/middleware"
	"github.com/ManuGH/suiteops/internal/control/problem"
	"github.com/ManuGH/suiteops/internal/health"
	"github.com/ManuGH/suiteops/internal/log"
	"github.com/ManuGH/suiteops/internal/queue"
)

const (
	defaultFailedLimit = 50
	maxFailedLimit     = 500
)

// QueueInspector is the read side of a queue.
type QueueInspector interface {
	Name() string
	Failed(ctx context.Context, limit int) ([]queue.Job, error)
	Stats(ctx context.Context) (queue.Stats, error)
}

type Deps struct {
	Health   *health.Manager
	Resolver *auth.StaticResolver
	Queues   []QueueInspector
	// Gatherer defaults to prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer
	Stack    middleware.StackConfig
}

type server struct {
	queues map[string]QueueInspector
}

// NewRouter builds the operator router.
func NewRouter(d Deps) http.Handler {
	if d.Gatherer == nil {
		d.Gatherer = prometheus.DefaultGatherer
	}
	if d.Health == nil {
		d.Health = health.NewManager("")
	}
	if d.Resolver == nil {
		d.Resolver = auth.NewStaticResolver()
	}
	s := &server{queues: make(map[string]QueueInspector, len(d.Queues))}
	for _, q := range d.Queues {
		s.queues[q.Name()] = q
	}

	r := chi.NewRouter()
	middleware.ApplyStack(r, d.Stack)

	r.Get("/healthz", d.Health.ServeHealth)
	r.Get("/readyz", d.Health.ServeReady)
	r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Use(auth.Authenticate(d.Resolver))
		r.With(authz.RequireOperation(authz.OpJobsListFailed)).Get("/queues", s.handleQueues)
		r.With(authz.RequireOperation(authz.OpJobsListFailed)).Get("/jobs/failed", s.handleFailed)
	})
	return r
}

// NewServer wraps h with the timeouts the daemon serves it with.
func NewServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

type queueStats struct {
	Queue string `json:"queue"`
	queue.Stats
}

func (s *server) handleQueues(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(s.queues))
	for name := range s.queues {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]queueStats, 0, len(names))
	for _, name := range names {
		st, err := s.queues[name].Stats(r.Context())
		if err != nil {
			s.backendError(w, r, name, err)
			return
		}
		out = append(out, queueStats{Queue: name, Stats: st})
	}
	writeJSON(w, r, out)
}

type failedJobs struct {
	Queue string      `json:"queue"`
	Jobs  []queue.Job `json:"jobs"`
}

func (s *server) handleFailed(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("queue")
	if name == "" && len(s.queues) == 1 {
		for only := range s.queues {
			name = only
		}
	}
	q, ok := s.queues[name]
	if !ok {
		problem.Write(w, r, http.StatusNotFound, "jobs/unknown-queue", "Unknown Queue", "UNKNOWN_QUEUE",
			"queue "+strconv.Quote(name)+" is not served", nil)
		return
	}

	limit := defaultFailedLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			problem.Write(w, r, http.StatusBadRequest, "jobs/invalid-limit", "Invalid Limit", "INVALID_INPUT",
				"limit must be a positive integer", nil)
			return
		}
		limit = min(n, maxFailedLimit)
	}

	jobs, err := q.Failed(r.Context(), limit)
	if err != nil {
		s.backendError(w, r, name, err)
		return
	}
	if jobs == nil {
		jobs = []queue.Job{}
	}
	writeJSON(w, r, failedJobs{Queue: name, Jobs: jobs})
}

func (s *server) backendError(w http.ResponseWriter, r *http.Request, name string, err error) {
	logger := log.WithComponentFromContext(r.Context(), "control")
	logger.Error().
		Err(err).
		Str(log.FieldQueue, name).
		Msg("queue backend read failed")
	problem.Write(w, r, http.StatusServiceUnavailable, "jobs/backend-unavailable", "Queue Unavailable", "BACKEND_UNAVAILABLE",
		"queue backend could not be read", nil)
}

func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger := log.WithComponentFromContext(r.Context(), "control")
		logger.Warn().Err(err).Msg("encode response")
	}
}
