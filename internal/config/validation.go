// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/suiteops/internal/domain/model"
	"github.com/ManuGH/suiteops/internal/queue"
)

// Validate reports every problem in cfg at once.
func Validate(cfg Config) error {
	var p []string
	add := func(format string, args ...any) { p = append(p, fmt.Sprintf(format, args...)) }

	if _, err := zerolog.ParseLevel(cfg.Log.Level); err != nil {
		add("log.level %q is not a valid level", cfg.Log.Level)
	}
	if !slices.Contains([]string{"json", "console"}, cfg.Log.Format) {
		add("log.format must be json or console")
	}

	switch cfg.Store.Backend {
	case BackendMemory:
	case BackendSQLite:
		if cfg.Store.Path == "" {
			add("store.path is required for the sqlite backend")
		}
	default:
		add("store.backend must be memory or sqlite, got %q", cfg.Store.Backend)
	}

	q := cfg.Queue
	switch q.Backend {
	case BackendMemory:
	case BackendSQLite:
		if q.Path == "" {
			add("queue.path is required for the sqlite backend")
		}
	case BackendRedis:
		if q.Redis.Addr == "" {
			add("queue.redis.addr is required for the redis backend")
		}
	default:
		add("queue.backend must be memory, sqlite or redis, got %q", q.Backend)
	}
	if q.Workers < 1 {
		add("queue.workers must be at least 1")
	}
	if q.Attempts < 1 {
		add("queue.attempts must be at least 1")
	}
	if q.PollInterval <= 0 || q.JobTimeout <= 0 || q.Lease <= 0 {
		add("queue.pollInterval, queue.jobTimeout and queue.lease must be positive")
	}
	if q.Lease <= q.JobTimeout {
		add("queue.lease (%s) must exceed queue.jobTimeout (%s)", q.Lease, q.JobTimeout)
	}
	if bt := queue.BackoffType(q.Backoff.Type); bt != queue.BackoffExponential && bt != queue.BackoffFixed {
		add("queue.backoff.type must be exponential or fixed")
	}
	if q.Backoff.Delay < 0 {
		add("queue.backoff.delay must not be negative")
	}
	if q.RateLimit < 0 || (q.RateLimit > 0 && q.Burst < 1) {
		add("queue.rateLimit must be >= 0 with burst >= 1")
	}

	n := cfg.Notifications
	if n.Retention < 24*time.Hour {
		add("notifications.retention must be at least 24h")
	}
	if _, err := queue.ParseTimeOfDay(n.CleanupAt); err != nil {
		add("notifications.cleanupAt: %v", err)
	}
	if _, err := time.LoadLocation(n.Timezone); err != nil {
		add("notifications.timezone %q: %v", n.Timezone, err)
	}

	if cfg.Bus.HandlerTimeout <= 0 {
		add("bus.handlerTimeout must be positive")
	}
	if cfg.Sweeper.Interval <= 0 {
		add("sweeper.interval must be positive")
	}

	if cfg.HTTP.RateLimit < 0 {
		add("http.rateLimit must not be negative")
	}
	seen := map[string]struct{}{}
	for i, t := range cfg.HTTP.Tokens {
		if t.Token == "" || t.ActorID == "" {
			add("http.tokens[%d] needs token and actorId", i)
		}
		if _, dup := seen[t.Token]; dup && t.Token != "" {
			add("http.tokens[%d] duplicates an earlier token", i)
		}
		seen[t.Token] = struct{}{}
		if !validRole(model.Role(t.Role)) {
			add("http.tokens[%d].role %q is not a known role", i, t.Role)
		}
	}

	if cfg.Telemetry.Enabled {
		if cfg.Telemetry.Exporter != "grpc" && cfg.Telemetry.Exporter != "http" {
			add("telemetry.exporter must be grpc or http")
		}
		if cfg.Telemetry.SamplingRate < 0 || cfg.Telemetry.SamplingRate > 1 {
			add("telemetry.samplingRate must be within [0, 1]")
		}
	}

	if len(p) > 0 {
		return &ValidationError{Problems: p}
	}
	return nil
}

func validRole(r model.Role) bool {
	switch r {
	case model.RoleHousekeeper, model.RoleMaintenance, model.RoleFrontDesk,
		model.RoleSupervisor, model.RoleManager, model.RoleAdmin:
		return true
	}
	return false
}
