// SPDX-License-Identifier: MIT

package config

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/ManuGH/suiteops/internal/log"
)

const reloadDebounce = 500 * time.Millisecond

// ConfigHolder serves the current configuration and swaps it atomically on
// reload. A reload that fails to load or validate keeps the old value.
type ConfigHolder struct {
	mu      sync.RWMutex
	current Config
	loader  *Loader
	watcher *fsnotify.Watcher
	logger  zerolog.Logger

	listenMu  sync.RWMutex
	listeners []chan<- Config
}

func NewConfigHolder(initial Config, loader *Loader) *ConfigHolder {
	return &ConfigHolder{
		current: initial,
		loader:  loader,
		logger:  log.WithComponent("config"),
	}
}

func (h *ConfigHolder) Get() Config {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// Reload re-reads the configuration and notifies listeners on success.
func (h *ConfigHolder) Reload(_ context.Context) error {
	h.logger.Info().Str(log.FieldEvent, "config.reload_start").Msg("reloading configuration")

	next, err := h.loader.Load()
	if err != nil {
		h.logger.Error().Err(err).Str(log.FieldEvent, "config.reload_failed").Msg("configuration reload rejected")
		return fmt.Errorf("reload config: %w", err)
	}

	h.mu.Lock()
	prev := h.current
	h.current = next
	h.mu.Unlock()

	h.logChanges(prev, next)
	h.notify(next)
	h.logger.Info().Str(log.FieldEvent, "config.reload_success").Msg("configuration reloaded")
	return nil
}

// StartWatcher reloads on writes to the config file until ctx ends. Without
// a file path it does nothing.
func (h *ConfigHolder) StartWatcher(ctx context.Context) error {
	path := h.loader.Path()
	if path == "" {
		h.logger.Info().Str(log.FieldEvent, "config.watcher_disabled").Msg("no config file, watcher disabled")
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(path); err != nil {
		_ = w.Close()
		return fmt.Errorf("watch config file: %w", err)
	}
	h.watcher = w
	h.logger.Info().Str(log.FieldEvent, "config.watcher_started").Str("path", path).Msg("watching config file")
	go h.watchLoop(ctx, w)
	return nil
}

func (h *ConfigHolder) watchLoop(ctx context.Context, w *fsnotify.Watcher) {
	defer func() { _ = w.Close() }()

	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info().Str(log.FieldEvent, "config.watcher_stopped").Msg("config watcher stopped")
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			// Editors and renameio replace the file, which drops the watch.
			if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
				_ = w.Add(ev.Name)
			}
			if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Write) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(reloadDebounce, func() {
				_ = h.Reload(ctx)
			})
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			h.logger.Error().Err(err).Str(log.FieldEvent, "config.watcher_error").Msg("config watcher error")
		}
	}
}

// Subscribe registers ch for reloaded configurations. Sends never block;
// a full channel misses the update.
func (h *ConfigHolder) Subscribe(ch chan<- Config) {
	h.listenMu.Lock()
	defer h.listenMu.Unlock()
	h.listeners = append(h.listeners, ch)
}

func (h *ConfigHolder) notify(cfg Config) {
	h.listenMu.RLock()
	defer h.listenMu.RUnlock()
	for _, ch := range h.listeners {
		select {
		case ch <- cfg:
		default:
			h.logger.Warn().Str(log.FieldEvent, "config.listener_skip").Msg("listener channel full, update skipped")
		}
	}
}

// logChanges reports changed settings. Log level and tokens apply live;
// the rest wait for a restart.
func (h *ConfigHolder) logChanges(prev, next Config) {
	if prev.Log.Level != next.Log.Level {
		h.logger.Info().Str("old", prev.Log.Level).Str("new", next.Log.Level).Msg("config changed: log.level")
	}
	if prev.Notifications.Retention != next.Notifications.Retention {
		h.logger.Info().Dur("old", prev.Notifications.Retention).Dur("new", next.Notifications.Retention).Msg("config changed: notifications.retention (restart required)")
	}
	if prev.Sweeper.Interval != next.Sweeper.Interval {
		h.logger.Info().Dur("old", prev.Sweeper.Interval).Dur("new", next.Sweeper.Interval).Msg("config changed: sweeper.interval (restart required)")
	}
	if len(prev.HTTP.Tokens) != len(next.HTTP.Tokens) {
		h.logger.Info().Int("old", len(prev.HTTP.Tokens)).Int("new", len(next.HTTP.Tokens)).Msg("config changed: http.tokens")
	}
}
