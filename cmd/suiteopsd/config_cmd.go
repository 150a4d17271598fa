// SPDX-License-Identifier: MIT

package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ManuGH/suiteops/internal/config"
)

const redacted = "***"

func runConfigCLI(args []string) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printConfigUsage()
		return 0
	}

	switch args[0] {
	case "validate":
		return runConfigValidate(args[1:])
	case "dump":
		return runConfigDump(args[1:], os.Stdout)
	case "init":
		return runConfigInit(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown subcommand: %s\n\n", args[0])
		printConfigUsage()
		return 2
	}
}

func printConfigUsage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  suiteopsd config validate [--file|-f config.yaml]")
	fmt.Fprintln(os.Stderr, "  suiteopsd config dump [--file|-f config.yaml]")
	fmt.Fprintln(os.Stderr, "  suiteopsd config init --file|-f config.yaml [--force]")
}

func fileFlag(fs *flag.FlagSet) *string {
	var file string
	fs.StringVar(&file, "file", "", "path to YAML configuration file")
	fs.StringVar(&file, "f", "", "path to YAML configuration file (shorthand)")
	return &file
}

func runConfigValidate(args []string) int {
	fs := flag.NewFlagSet("suiteopsd config validate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	file := fileFlag(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	path := resolveConfigPath(*file)
	if path == "" {
		fmt.Fprintf(os.Stderr, "Error: --file is required (or set $%s)\n", envConfigPath)
		return 2
	}
	if _, err := config.NewLoader(path).Load(); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error in %s:\n  %v\n", path, err)
		return 1
	}
	fmt.Printf("%s is valid\n", path)
	return 0
}

// runConfigDump prints the effective configuration (defaults, file, env)
// with API tokens redacted.
func runConfigDump(args []string, out io.Writer) int {
	fs := flag.NewFlagSet("suiteopsd config dump", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	file := fileFlag(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	path := resolveConfigPath(*file)
	cfg, err := config.NewLoader(path).Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error:\n  %v\n", err)
		return 1
	}
	for i := range cfg.HTTP.Tokens {
		cfg.HTTP.Tokens[i].Token = redacted
	}
	if cfg.Queue.Redis.Password != "" {
		cfg.Queue.Redis.Password = redacted
	}

	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding configuration: %v\n", err)
		return 1
	}
	_ = enc.Close()
	return 0
}

func runConfigInit(args []string) int {
	fs := flag.NewFlagSet("suiteopsd config init", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	file := fileFlag(fs)
	force := fs.Bool("force", false, "overwrite an existing file")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	path := strings.TrimSpace(*file)
	if path == "" {
		fmt.Fprintln(os.Stderr, "Error: --file is required")
		return 2
	}
	if _, err := os.Stat(path); err == nil && !*force {
		fmt.Fprintf(os.Stderr, "Error: %s exists (use --force to overwrite)\n", path)
		return 1
	}
	if err := config.WriteFile(path, config.Default()); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", path, err)
		return 1
	}
	fmt.Printf("wrote default configuration to %s\n", path)
	return 0
}
