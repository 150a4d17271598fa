// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package health

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/ManuGH/suiteops/internal/config"
	"github.com/ManuGH/suiteops/internal/log"
)

// PerformStartupChecks validates the environment before the daemon opens
// its stores.
func PerformStartupChecks(cfg config.Config) error {
	logger := log.WithComponent("startup-check")
	logger.Info().Msg("running pre-flight startup checks")

	if cfg.Store.Backend == config.BackendSQLite {
		if err := checkDataDir(logger, filepath.Dir(cfg.Store.Path)); err != nil {
			return fmt.Errorf("store directory check failed: %w", err)
		}
	} else {
		logger.Warn().
			Str("store_backend", cfg.Store.Backend).
			Msg("store is in memory; suites, tasks and notifications are lost on restart")
	}
	if cfg.Queue.Backend == config.BackendSQLite {
		if err := checkDataDir(logger, filepath.Dir(cfg.Queue.Path)); err != nil {
			return fmt.Errorf("queue directory check failed: %w", err)
		}
	}

	if cfg.HTTP.Listen != "" {
		if err := checkListenAddr(cfg.HTTP.Listen); err != nil {
			return err
		}
		if len(cfg.HTTP.Tokens) == 0 {
			logger.Warn().Msg("no API tokens configured; operator endpoints will reject every request")
		}
	}

	logger.Info().Msg("startup checks passed")
	return nil
}

// checkDataDir creates path if needed and verifies it is writable.
func checkDataDir(logger zerolog.Logger, path string) error {
	if err := os.MkdirAll(path, 0o750); err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}

	testFile := filepath.Join(path, ".write_test")
	if err := os.WriteFile(testFile, []byte("ok"), 0o600); err != nil {
		return fmt.Errorf("directory is not writable: %s (error: %v)", path, err)
	}
	_ = os.Remove(testFile)

	logger.Debug().Str("path", path).Msg("data directory is writable")
	return nil
}

func checkListenAddr(addr string) error {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	n, err := strconv.Atoi(port)
	if err != nil || n < 0 || n > 65535 {
		return fmt.Errorf("invalid listen port %q in %q", port, addr)
	}
	return nil
}
