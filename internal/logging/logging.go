// Package logging builds the structured loggers used across folio.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/dshills/folio/internal/config"
)

// ParseLevel parses a level name. Unknown names yield info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Config configures a logger.
type Config struct {
	// Level is the minimum level to output.
	Level slog.Level
	// Leveler overrides Level when set, e.g. a *slog.LevelVar changed on
	// config reload.
	Leveler slog.Leveler
	// JSON selects the JSON handler instead of text.
	JSON bool
	// Output is where logs are written. Defaults to os.Stderr.
	Output io.Writer
	// Service is attached to every record when set.
	Service string
}

// DefaultConfig returns the default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:   slog.LevelInfo,
		Output:  os.Stderr,
		Service: "folio",
	}
}

// FromSettings converts loaded settings into a logger configuration.
func FromSettings(lc config.LogConfig, w io.Writer) Config {
	cfg := DefaultConfig()
	cfg.Level = ParseLevel(lc.Level)
	cfg.JSON = lc.Format == "json"
	if w != nil {
		cfg.Output = w
	}
	return cfg
}

// New creates a logger.
func New(cfg Config) *slog.Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: cfg.Level}
	if cfg.Leveler != nil {
		opts.Level = cfg.Leveler
	}
	var h slog.Handler
	if cfg.JSON {
		h = slog.NewJSONHandler(cfg.Output, opts)
	} else {
		h = slog.NewTextHandler(cfg.Output, opts)
	}
	l := slog.New(h)
	if cfg.Service != "" {
		l = l.With("service", cfg.Service)
	}
	return l
}

// Component returns a sub-logger tagged with a component name.
func Component(l *slog.Logger, name string) *slog.Logger {
	if l == nil {
		l = slog.Default()
	}
	return l.With("component", name)
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}
