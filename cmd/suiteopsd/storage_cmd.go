// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ManuGH/suiteops/internal/config"
	"github.com/ManuGH/suiteops/internal/persistence/sqlite"
)

func runStorageCLI(args []string) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printStorageUsage(os.Stdout)
		return 0
	}

	switch args[0] {
	case "verify":
		return runStorageVerify(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown subcommand: %s\n\n", args[0])
		printStorageUsage(os.Stderr)
		return 2
	}
}

func printStorageUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "Usage:")
	_, _ = fmt.Fprintln(w, "  suiteopsd storage verify [--path PATH | --file config.yaml] [--mode quick|full]")
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintln(w, "Without --path, every SQLite database named by the configuration is checked.")
}

// sqlitePaths lists the databases cfg keeps on disk.
func sqlitePaths(cfg config.Config) []string {
	var paths []string
	if cfg.Store.Backend == config.BackendSQLite {
		paths = append(paths, cfg.Store.Path)
	}
	if cfg.Queue.Backend == config.BackendSQLite && cfg.Queue.Path != cfg.Store.Path {
		paths = append(paths, cfg.Queue.Path)
	}
	return paths
}

func runStorageVerify(args []string) int {
	fs := flag.NewFlagSet("suiteopsd storage verify", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var path string
	var mode string
	fs.StringVar(&path, "path", "", "path to a SQLite database file")
	fs.StringVar(&mode, "mode", "quick", "verification mode: quick or full")
	file := fileFlag(fs)

	if err := fs.Parse(args); err != nil {
		return 2
	}

	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode != "quick" && mode != "full" {
		fmt.Fprintf(os.Stderr, "Error: invalid mode %q. Use 'quick' or 'full'.\n", mode)
		return 2
	}

	paths := []string{path}
	if path == "" {
		cfg, err := config.NewLoader(resolveConfigPath(*file)).Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Configuration error:\n  %v\n", err)
			return 1
		}
		paths = sqlitePaths(cfg)
		if len(paths) == 0 {
			fmt.Fprintln(os.Stderr, "Error: no SQLite databases configured")
			return 2
		}
	}

	exitCode := 0
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = 1
			continue
		}
		if code := doVerify(p, mode); code != 0 {
			exitCode = code
		}
	}
	return exitCode
}

func doVerify(path string, mode string) int {
	fmt.Fprintf(os.Stderr, "verifying integrity of %s (mode: %s)\n", path, mode)

	issues, err := sqlite.VerifyIntegrity(path, mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "verification interrupted: %v\n", err)
		return 1
	}
	if issues != nil {
		fmt.Fprintln(os.Stderr, "corruption detected:")
		for _, issue := range issues {
			fmt.Fprintf(os.Stderr, "  - %s\n", issue)
		}
		return 1
	}

	fmt.Printf("%s: ok\n", path)
	return 0
}
