// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// SPDX-License-Identifier: MIT
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/ManuGH/suiteops/internal/config"
	"github.com/ManuGH/suiteops/internal/daemon"
	"github.com/ManuGH/suiteops/internal/health"
	"github.com/ManuGH/suiteops/internal/log"
	"github.com/ManuGH/suiteops/internal/version"
)

// envConfigPath names the config file when --config is not given.
const envConfigPath = config.EnvPrefix + "CONFIG"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) > 0 {
		switch args[0] {
		case "config":
			return runConfigCLI(args[1:])
		case "healthcheck":
			return runHealthcheckCLI(args[1:])
		case "storage":
			return runStorageCLI(args[1:])
		}
	}

	fs := flag.NewFlagSet("suiteopsd", flag.ContinueOnError)
	showVersion := fs.Bool("version", false, "print version and exit")
	configPath := fs.String("config", "", "path to config file (YAML); defaults to $"+envConfigPath)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if *showVersion {
		fmt.Println(version.String())
		return 0
	}

	// Safe defaults until the configuration is loaded.
	log.Configure(log.Config{Level: "info", Service: "suiteops", Version: version.Version})
	logger := log.WithComponent("daemon")

	path := resolveConfigPath(*configPath)
	loader := config.NewLoader(path)
	cfg, err := loader.Load()
	if err != nil {
		logger.Error().
			Err(err).
			Str(log.FieldEvent, "config.load_failed").
			Str("config_path", path).
			Msg("failed to load configuration")
		return 1
	}
	daemon.ConfigureLogging(cfg.Log, version.Version)
	logger = log.WithComponent("daemon")
	if path != "" {
		logger.Info().Str(log.FieldEvent, "config.loaded").Str("path", path).Msg("loaded configuration from file")
	} else {
		logger.Info().Str(log.FieldEvent, "config.loaded").Str("source", "env").Msg("no config file, using defaults and environment")
	}

	if err := health.PerformStartupChecks(cfg); err != nil {
		logger.Error().Err(err).Str(log.FieldEvent, "startup.check_failed").Msg("startup checks failed")
		return 1
	}

	ctx, stop := daemon.WaitForShutdown()
	defer stop()

	opts := daemon.Options{Version: version.Version}
	if path != "" {
		opts.Holder = config.NewConfigHolder(cfg, loader)
		opts.ReloadSignal = syscall.SIGHUP
	}
	app, err := daemon.New(ctx, cfg, opts)
	if err != nil {
		logger.Error().Err(err).Str(log.FieldEvent, "daemon.init_failed").Msg("failed to initialize daemon")
		return 1
	}
	if err := app.Run(ctx); err != nil {
		logger.Error().Err(err).Str(log.FieldEvent, "daemon.failed").Msg("daemon exited with error")
		return 1
	}
	return 0
}

func resolveConfigPath(flagValue string) string {
	if p := strings.TrimSpace(flagValue); p != "" {
		return p
	}
	return strings.TrimSpace(os.Getenv(envConfigPath))
}
