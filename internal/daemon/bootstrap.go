// SPDX-License-Identifier: MIT

// Package daemon wires configuration into a running suiteops process and
// owns its lifecycle.
package daemon

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/suiteops/internal/config"
	"github.com/ManuGH/suiteops/internal/control/auth"
	"github.com/ManuGH/suiteops/internal/domain/model"
	"github.com/ManuGH/suiteops/internal/log"
	"github.com/ManuGH/suiteops/internal/queue"
	"github.com/ManuGH/suiteops/internal/store"
	"github.com/ManuGH/suiteops/internal/store/memory"
	sqlstore "github.com/ManuGH/suiteops/internal/store/sqlite"
	"github.com/ManuGH/suiteops/internal/telemetry"
)

const serviceName = "suiteops"

// ConfigureLogging (re)initialises the global logger from cfg.
func ConfigureLogging(cfg config.LogConfig, version string) {
	var out io.Writer = os.Stdout
	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}
	log.Configure(log.Config{
		Level:   cfg.Level,
		Output:  out,
		Service: serviceName,
		Version: version,
	})
}

func telemetryConfig(cfg config.TelemetryConfig, version string) telemetry.Config {
	return telemetry.Config{
		Enabled:        cfg.Enabled,
		ServiceName:    serviceName,
		ServiceVersion: version,
		Environment:    cfg.Environment,
		ExporterType:   cfg.Exporter,
		Endpoint:       cfg.Endpoint,
		SamplingRate:   cfg.SamplingRate,
	}
}

// pingFunc reports whether a backend is reachable.
type pingFunc func(ctx context.Context) error

func openStore(ctx context.Context, cfg config.StoreConfig) (store.Store, pingFunc, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return memory.New(), func(context.Context) error { return nil }, nil
	case config.BackendSQLite:
		st, err := sqlstore.Open(ctx, cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return st, st.DB.PingContext, nil
	}
	return nil, nil, fmt.Errorf("store %q: %w", cfg.Backend, ErrUnknownBackend)
}

func openQueueBackend(ctx context.Context, cfg config.QueueConfig) (queue.Backend, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return queue.NewMemoryBackend(), nil
	case config.BackendSQLite:
		b, err := queue.OpenSQLite(ctx, cfg.Path)
		if err != nil {
			return nil, err
		}
		return b, nil
	case config.BackendRedis:
		b, err := queue.DialRedis(ctx, queue.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		})
		if err != nil {
			return nil, err
		}
		return b, nil
	}
	return nil, fmt.Errorf("queue %q: %w", cfg.Backend, ErrUnknownBackend)
}

func queueOptions(cfg config.QueueConfig) queue.Options {
	o := queue.DefaultOptions()
	if cfg.Attempts > 0 {
		o.Attempts = cfg.Attempts
	}
	if cfg.Backoff.Type != "" {
		o.Backoff = queue.Backoff{Type: queue.BackoffType(cfg.Backoff.Type), Delay: cfg.Backoff.Delay}
	}
	return o
}

func runnerConfig(cfg config.QueueConfig) queue.RunnerConfig {
	return queue.RunnerConfig{
		Workers:      cfg.Workers,
		PollInterval: cfg.PollInterval,
		JobTimeout:   cfg.JobTimeout,
		Lease:        cfg.Lease,
		RateLimit:    cfg.RateLimit,
		Burst:        cfg.Burst,
	}
}

func tokenBindings(tokens []config.TokenConfig) []auth.Binding {
	out := make([]auth.Binding, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, auth.Binding{Token: t.Token, ActorID: t.ActorID, Role: model.Role(t.Role)})
	}
	return out
}

// WaitForShutdown returns a context cancelled on SIGINT or SIGTERM.
func WaitForShutdown() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
