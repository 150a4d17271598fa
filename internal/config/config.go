// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package config loads the daemon configuration: defaults, then a strict
// YAML file, then SUITEOPS_* environment overrides, then validation.
package config

import "time"

// Backend names shared by store and queue sections.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

type Config struct {
	Log           LogConfig           `yaml:"log"`
	Store         StoreConfig         `yaml:"store"`
	Queue         QueueConfig         `yaml:"queue"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Bus           BusConfig           `yaml:"bus"`
	Sweeper       SweeperConfig       `yaml:"sweeper"`
	HTTP          HTTPConfig          `yaml:"http"`
	Telemetry     TelemetryConfig     `yaml:"telemetry"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json | console
}

type StoreConfig struct {
	Backend string `yaml:"backend"` // memory | sqlite
	Path    string `yaml:"path"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

type BackoffConfig struct {
	Type  string        `yaml:"type"` // exponential | fixed
	Delay time.Duration `yaml:"delay"`
}

type QueueConfig struct {
	Backend      string        `yaml:"backend"` // memory | sqlite | redis
	Path         string        `yaml:"path"`
	Redis        RedisConfig   `yaml:"redis"`
	Workers      int           `yaml:"workers"`
	PollInterval time.Duration `yaml:"pollInterval"`
	JobTimeout   time.Duration `yaml:"jobTimeout"`
	Lease        time.Duration `yaml:"lease"`
	Attempts     int           `yaml:"attempts"`
	Backoff      BackoffConfig `yaml:"backoff"`
	// RateLimit is jobs per second across all workers. Zero disables it.
	RateLimit float64 `yaml:"rateLimit"`
	Burst     int     `yaml:"burst"`
}

type NotificationsConfig struct {
	Retention time.Duration `yaml:"retention"`
	CleanupAt string        `yaml:"cleanupAt"` // HH:MM, daily
	Timezone  string        `yaml:"timezone"`
}

type BusConfig struct {
	HandlerTimeout time.Duration `yaml:"handlerTimeout"`
}

type SweeperConfig struct {
	Interval      time.Duration `yaml:"interval"`
	RenotifyAfter time.Duration `yaml:"renotifyAfter"`
}

// TokenConfig binds a static bearer token to an operator identity.
type TokenConfig struct {
	Token   string `yaml:"token"`
	ActorID string `yaml:"actorId"`
	Role    string `yaml:"role"`
}

type HTTPConfig struct {
	Listen string        `yaml:"listen"`
	Tokens []TokenConfig `yaml:"tokens,omitempty"`
	// RateLimit is requests per minute per client IP. Zero disables it.
	RateLimit int `yaml:"rateLimit"`
}

type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"` // grpc | http
	Endpoint     string  `yaml:"endpoint"`
	Environment  string  `yaml:"environment"`
	SamplingRate float64 `yaml:"samplingRate"`
}

// Default returns the configuration used before any file or env override.
func Default() Config {
	return Config{
		Log:   LogConfig{Level: "info", Format: "json"},
		Store: StoreConfig{Backend: BackendSQLite, Path: "data/suiteops.db"},
		Queue: QueueConfig{
			Backend:      BackendSQLite,
			Path:         "data/queue.db",
			Redis:        RedisConfig{Addr: "localhost:6379", Prefix: "suiteops"},
			Workers:      4,
			PollInterval: 500 * time.Millisecond,
			JobTimeout:   30 * time.Second,
			Lease:        2 * time.Minute,
			Attempts:     3,
			Backoff:      BackoffConfig{Type: "exponential", Delay: time.Second},
			RateLimit:    0,
			Burst:        1,
		},
		Notifications: NotificationsConfig{
			Retention: 30 * 24 * time.Hour,
			CleanupAt: "03:00",
			Timezone:  "Local",
		},
		Bus:     BusConfig{HandlerTimeout: 30 * time.Second},
		Sweeper: SweeperConfig{Interval: 5 * time.Minute, RenotifyAfter: time.Hour},
		HTTP:    HTTPConfig{Listen: ":8089", RateLimit: 120},
		Telemetry: TelemetryConfig{
			Exporter:     "grpc",
			Endpoint:     "localhost:4317",
			Environment:  "production",
			SamplingRate: 1.0,
		},
	}
}
