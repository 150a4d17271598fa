// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/suiteops/internal/log"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SUITEOPS_"

// envReader applies overrides from a lookup function. Invalid values are
// logged and the current value kept.
type envReader struct {
	lookup func(string) (string, bool)
	logger zerolog.Logger
}

func newEnvReader(lookup func(string) (string, bool)) envReader {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	return envReader{lookup: lookup, logger: log.WithComponent("config")}
}

func (r envReader) get(key string) (string, bool) {
	v, ok := r.lookup(EnvPrefix + key)
	if !ok || v == "" {
		return "", false
	}
	lower := strings.ToLower(key)
	ev := r.logger.Debug().Str("key", EnvPrefix+key).Str("source", "environment")
	if strings.Contains(lower, "password") || strings.Contains(lower, "token") {
		ev = ev.Bool("sensitive", true)
	} else {
		ev = ev.Str("value", v)
	}
	ev.Msg("using environment variable")
	return v, true
}

func (r envReader) invalid(key, value, kind string) {
	r.logger.Warn().
		Str("key", EnvPrefix+key).
		Str("value", value).
		Msgf("invalid %s in environment variable, keeping configured value", kind)
}

func (r envReader) str(key string, dst *string) {
	if v, ok := r.get(key); ok {
		*dst = v
	}
}

func (r envReader) int(key string, dst *int) {
	v, ok := r.get(key)
	if !ok {
		return
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		r.invalid(key, v, "integer")
		return
	}
	*dst = i
}

func (r envReader) float(key string, dst *float64) {
	v, ok := r.get(key)
	if !ok {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		r.invalid(key, v, "float")
		return
	}
	*dst = f
}

func (r envReader) duration(key string, dst *time.Duration) {
	v, ok := r.get(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.invalid(key, v, "duration")
		return
	}
	*dst = d
}

// bool accepts true/false, 1/0 and yes/no, case-insensitively.
func (r envReader) bool(key string, dst *bool) {
	v, ok := r.get(key)
	if !ok {
		return
	}
	switch strings.ToLower(v) {
	case "true", "1", "yes":
		*dst = true
	case "false", "0", "no":
		*dst = false
	default:
		r.invalid(key, v, "boolean")
	}
}

func (r envReader) apply(cfg *Config) {
	r.str("LOG_LEVEL", &cfg.Log.Level)
	r.str("LOG_FORMAT", &cfg.Log.Format)

	r.str("STORE_BACKEND", &cfg.Store.Backend)
	r.str("STORE_PATH", &cfg.Store.Path)

	r.str("QUEUE_BACKEND", &cfg.Queue.Backend)
	r.str("QUEUE_PATH", &cfg.Queue.Path)
	r.str("QUEUE_REDIS_ADDR", &cfg.Queue.Redis.Addr)
	r.str("QUEUE_REDIS_PASSWORD", &cfg.Queue.Redis.Password)
	r.int("QUEUE_REDIS_DB", &cfg.Queue.Redis.DB)
	r.str("QUEUE_REDIS_PREFIX", &cfg.Queue.Redis.Prefix)
	r.int("QUEUE_WORKERS", &cfg.Queue.Workers)
	r.duration("QUEUE_POLL_INTERVAL", &cfg.Queue.PollInterval)
	r.duration("QUEUE_JOB_TIMEOUT", &cfg.Queue.JobTimeout)
	r.duration("QUEUE_LEASE", &cfg.Queue.Lease)
	r.int("QUEUE_ATTEMPTS", &cfg.Queue.Attempts)
	r.str("QUEUE_BACKOFF_TYPE", &cfg.Queue.Backoff.Type)
	r.duration("QUEUE_BACKOFF_DELAY", &cfg.Queue.Backoff.Delay)
	r.float("QUEUE_RATE_LIMIT", &cfg.Queue.RateLimit)
	r.int("QUEUE_BURST", &cfg.Queue.Burst)

	r.duration("NOTIFICATIONS_RETENTION", &cfg.Notifications.Retention)
	r.str("NOTIFICATIONS_CLEANUP_AT", &cfg.Notifications.CleanupAt)
	r.str("NOTIFICATIONS_TIMEZONE", &cfg.Notifications.Timezone)

	r.duration("BUS_HANDLER_TIMEOUT", &cfg.Bus.HandlerTimeout)

	r.duration("SWEEPER_INTERVAL", &cfg.Sweeper.Interval)
	r.duration("SWEEPER_RENOTIFY_AFTER", &cfg.Sweeper.RenotifyAfter)

	r.str("HTTP_LISTEN", &cfg.HTTP.Listen)
	r.int("HTTP_RATE_LIMIT", &cfg.HTTP.RateLimit)
	// A single operator token can be supplied without a file.
	if tok, ok := r.get("HTTP_TOKEN"); ok {
		cfg.HTTP.Tokens = append(cfg.HTTP.Tokens, TokenConfig{Token: tok, ActorID: "operator", Role: "ADMIN"})
	}

	r.bool("TELEMETRY_ENABLED", &cfg.Telemetry.Enabled)
	r.str("TELEMETRY_EXPORTER", &cfg.Telemetry.Exporter)
	r.str("TELEMETRY_ENDPOINT", &cfg.Telemetry.Endpoint)
	r.str("TELEMETRY_ENVIRONMENT", &cfg.Telemetry.Environment)
	r.float("TELEMETRY_SAMPLING_RATE", &cfg.Telemetry.SamplingRate)
}
