// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/suiteops/internal/bus"
	"github.com/ManuGH/suiteops/internal/config"
	"github.com/ManuGH/suiteops/internal/control"
	"github.com/ManuGH/suiteops/internal/control/auth"
	"github.com/ManuGH/suiteops/internal/control/middleware"
	"github.com/ManuGH/suiteops/internal/handlers"
	"github.com/ManuGH/suiteops/internal/health"
	"github.com/ManuGH/suiteops/internal/log"
	"github.com/ManuGH/suiteops/internal/notify"
	"github.com/ManuGH/suiteops/internal/queue"
	"github.com/ManuGH/suiteops/internal/service"
	"github.com/ManuGH/suiteops/internal/store"
	"github.com/ManuGH/suiteops/internal/sweeper"
	"github.com/ManuGH/suiteops/internal/telemetry"
)

// ShutdownTimeout bounds graceful shutdown after Run's context ends.
const ShutdownTimeout = 30 * time.Second

// Failed notification jobs at or above this count mark the queue degraded.
const degradedFailedJobs = 100

// ShutdownHook is a function that performs cleanup during graceful shutdown.
// Hooks are executed in reverse registration order (LIFO).
type ShutdownHook func(ctx context.Context) error

type namedHook struct {
	name string
	hook ShutdownHook
}

type Options struct {
	Version string
	// Holder enables live reload of the log level and API tokens.
	Holder *config.ConfigHolder
	// ReloadSignal triggers a manual reload when Holder is set.
	ReloadSignal os.Signal
	// Gatherer backs /metrics; defaults to the global registry.
	Gatherer prometheus.Gatherer
}

// App owns every long-lived component of the daemon: stores, event bus,
// notification runner, daily scheduler, overdue sweeper and the operator
// API.
type App struct {
	cfg    config.Config
	opts   Options
	logger zerolog.Logger

	store     store.Store
	queue     *queue.Queue
	bus       *bus.Bus
	service   *service.Service
	runner    *queue.Runner
	scheduler *queue.Scheduler
	sweeper   *sweeper.Sweeper
	resolver  *auth.StaticResolver
	handler   http.Handler

	mu       sync.Mutex
	started  bool
	stopping bool
	addr     string
	hooks    []namedHook
}

// New opens the configured backends and wires the components together.
// On error everything opened so far is closed again.
func New(ctx context.Context, cfg config.Config, opts Options) (_ *App, err error) {
	a := &App{cfg: cfg, opts: opts, logger: log.WithComponent("daemon")}
	defer func() {
		if err != nil {
			_ = a.Shutdown(context.WithoutCancel(ctx))
		}
	}()

	provider, terr := telemetry.NewProvider(ctx, telemetryConfig(cfg.Telemetry, opts.Version))
	if terr != nil {
		a.logger.Warn().Err(terr).Msg("telemetry initialization failed, continuing without tracing")
	} else {
		a.RegisterShutdownHook("telemetry", provider.Shutdown)
	}

	st, ping, err := openStore(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	a.store = st
	a.RegisterShutdownHook("store", func(context.Context) error { return st.Close() })

	backend, err := openQueueBackend(ctx, cfg.Queue)
	if err != nil {
		return nil, fmt.Errorf("open queue: %w", err)
	}
	a.RegisterShutdownHook("queue", func(context.Context) error { return backend.Close() })
	a.queue = queue.New(notify.QueueName, backend, queueOptions(cfg.Queue))

	// The bus hook is registered last so it runs first: handlers still
	// write to the store and the queue while draining.
	a.bus = bus.New(bus.Options{HandlerTimeout: cfg.Bus.HandlerTimeout})
	a.RegisterShutdownHook("bus", func(ctx context.Context) error {
		a.bus.Close()
		return a.bus.Drain(ctx)
	})

	if _, err = handlers.Register(a.bus, handlers.Deps{
		Suites:    st,
		Tasks:     st,
		Employees: st,
		Notifier:  notify.NewProducer(a.queue),
		Publisher: a.bus,
	}); err != nil {
		return nil, err
	}
	a.service = service.New(service.Deps{Store: st, Publisher: a.bus})

	a.runner = queue.NewRunner(backend, notify.QueueName, runnerConfig(cfg.Queue))
	notify.NewProcessor(st, st, cfg.Notifications.Retention).Register(a.runner)

	loc, err := time.LoadLocation(cfg.Notifications.Timezone)
	if err != nil {
		return nil, fmt.Errorf("notifications timezone: %w", err)
	}
	cleanupAt, err := queue.ParseTimeOfDay(cfg.Notifications.CleanupAt)
	if err != nil {
		return nil, fmt.Errorf("notifications cleanup time: %w", err)
	}
	a.scheduler = queue.NewScheduler(loc)
	a.scheduler.Add(queue.DailyJob{Queue: a.queue, JobType: notify.JobCleanup, At: cleanupAt})

	a.sweeper = sweeper.New(st, a.bus, sweeper.Config{
		Interval:      cfg.Sweeper.Interval,
		RenotifyAfter: cfg.Sweeper.RenotifyAfter,
	})

	hm := health.NewManager(opts.Version)
	hm.RegisterChecker(health.NewFuncChecker("store", ping))
	hm.RegisterChecker(health.NewQueueChecker(a.queue, degradedFailedJobs))
	hm.RegisterChecker(health.NewLastRunChecker("sweeper", 3*max(cfg.Sweeper.Interval, sweeper.DefaultInterval), a.sweeper.LastRun))

	stack := middleware.StackConfig{
		RateLimit:     cfg.HTTP.RateLimit,
		EnableMetrics: true,
		EnableLogging: true,
	}
	if cfg.Telemetry.Enabled {
		stack.TracingService = serviceName + "/control"
	}
	a.resolver = auth.NewStaticResolver(tokenBindings(cfg.HTTP.Tokens)...)
	a.handler = control.NewRouter(control.Deps{
		Health:   hm,
		Resolver: a.resolver,
		Queues:   []control.QueueInspector{a.queue},
		Gatherer: opts.Gatherer,
		Stack:    stack,
	})
	return a, nil
}

// Service exposes the domain operations.
func (a *App) Service() *service.Service { return a.service }

// Store exposes the record store, e.g. for seeding.
func (a *App) Store() store.Store { return a.store }

// Handler is the operator API router.
func (a *App) Handler() http.Handler { return a.handler }

// Addr is the bound operator API address once Run is listening.
func (a *App) Addr() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.addr
}

// Run starts every background component and blocks until ctx is cancelled
// or one of them fails. It always shuts the app down before returning.
func (a *App) Run(ctx context.Context) error {
	a.mu.Lock()
	if a.started {
		a.mu.Unlock()
		return ErrAlreadyStarted
	}
	a.started = true
	a.mu.Unlock()

	a.logger.Info().
		Str("version", a.opts.Version).
		Str("store", a.cfg.Store.Backend).
		Str("queue", a.cfg.Queue.Backend).
		Str("listen", a.cfg.HTTP.Listen).
		Msg("starting suiteops daemon")

	var ln net.Listener
	if a.cfg.HTTP.Listen != "" {
		var err error
		ln, err = net.Listen("tcp", a.cfg.HTTP.Listen)
		if err != nil {
			return errors.Join(fmt.Errorf("operator API: %w", err), a.shutdownDetached(ctx))
		}
		a.mu.Lock()
		a.addr = ln.Addr().String()
		a.mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	a.watchConfig(gctx, g)

	g.Go(func() error { return a.runner.Run(gctx) })
	g.Go(func() error { return a.scheduler.Run(gctx) })
	g.Go(func() error { return a.sweeper.Run(gctx) })

	if ln != nil {
		srv := control.NewServer(a.cfg.HTTP.Listen, a.handler)
		g.Go(func() error {
			a.logger.Info().Str("addr", ln.Addr().String()).Msg("operator API listening")
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error().Err(err).Str(log.FieldEvent, "api.server.failed").Msg("operator API failed")
				return fmt.Errorf("operator API: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			sctx, cancel := context.WithTimeout(context.WithoutCancel(gctx), ShutdownTimeout)
			defer cancel()
			return srv.Shutdown(sctx)
		})
	}

	err := g.Wait()
	if err != nil {
		a.logger.Error().Err(err).Msg("component failed, shutting down")
	}
	return errors.Join(err, a.shutdownDetached(ctx))
}

func (a *App) shutdownDetached(ctx context.Context) error {
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ShutdownTimeout)
	defer cancel()
	return a.Shutdown(sctx)
}

// watchConfig applies reloaded configuration while the app runs.
func (a *App) watchConfig(ctx context.Context, g *errgroup.Group) {
	h := a.opts.Holder
	if h == nil {
		return
	}
	if err := h.StartWatcher(ctx); err != nil {
		a.logger.Warn().Err(err).Str(log.FieldEvent, "config.watcher_start_failed").Msg("failed to start config watcher")
	}

	updates := make(chan config.Config, 1)
	h.Subscribe(updates)
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case cfg := <-updates:
				a.apply(cfg)
			}
		}
	})

	if a.opts.ReloadSignal == nil {
		return
	}
	g.Go(func() error {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, a.opts.ReloadSignal)
		defer signal.Stop(sig)
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-sig:
				a.logger.Info().
					Str(log.FieldEvent, "config.reload_signal").
					Str("signal", a.opts.ReloadSignal.String()).
					Msg("received reload signal, reloading config")
				if err := h.Reload(ctx); err != nil {
					a.logger.Warn().Err(err).Str(log.FieldEvent, "config.reload_failed").Msg("config reload failed")
				}
			}
		}
	})
}

func (a *App) apply(cfg config.Config) {
	ConfigureLogging(cfg.Log, a.opts.Version)
	a.resolver.Replace(tokenBindings(cfg.HTTP.Tokens)...)
	a.logger.Info().Str(log.FieldEvent, "config.applied").Msg("reloaded configuration applied")
}

// RegisterShutdownHook registers a cleanup function to be called during shutdown.
// Hooks are executed in reverse registration order (LIFO).
func (a *App) RegisterShutdownHook(name string, hook ShutdownHook) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.hooks = append(a.hooks, namedHook{name: name, hook: hook})
}

// Shutdown runs every shutdown hook once. Later calls are no-ops.
func (a *App) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	if a.stopping {
		a.mu.Unlock()
		return nil
	}
	a.stopping = true
	hooks := append([]namedHook(nil), a.hooks...)
	a.mu.Unlock()

	a.logger.Info().Int("hooks", len(hooks)).Msg("shutting down")

	var errs []error
	for i := len(hooks) - 1; i >= 0; i-- {
		hook := hooks[i]
		hookStart := time.Now()
		if err := hook.hook(ctx); err != nil {
			a.logger.Error().
				Err(err).
				Str("hook", hook.name).
				Dur("duration", time.Since(hookStart)).
				Msg("shutdown hook failed")
			errs = append(errs, fmt.Errorf("hook %s: %w", hook.name, err))
			continue
		}
		a.logger.Debug().
			Str("hook", hook.name).
			Dur("duration", time.Since(hookStart)).
			Msg("shutdown hook completed")
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}
	a.logger.Info().Msg("daemon stopped cleanly")
	return nil
}
