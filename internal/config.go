// Package internal holds process-level configuration.
package internal

import (
	"log/slog"
	"strings"
	"time"
)

type Config struct {
	Host     string `env:"HOST,default=0.0.0.0"`
	Port     int    `env:"PORT,default=8080"`
	LogLevel string `env:"LOG_LEVEL,default=info"`

	// QueueLimit bounds each participant's outgoing queue; the oldest
	// message is dropped on overflow. Zero disables the bound.
	QueueLimit int `env:"QUEUE_LIMIT,default=1024"`

	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT,default=5s"`
	MonitorInterval time.Duration `env:"MONITOR_INTERVAL,default=30s"`
	RestartInterval time.Duration `env:"RESTART_INTERVAL,default=200ms"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`

	// SeedExamples controls whether the Examples project is populated
	// at startup and on reset.
	SeedExamples bool `env:"SEED_EXAMPLES,default=true"`
}

// Level parses the configured log level, defaulting to info.
func (c Config) Level() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
