// Package logging builds the structured logger shared by all components.
//
// Logs always go to stderr: stdout carries the MCP protocol when serving.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// DebugEnv forces debug level logging when set to a non-empty value other than "0"
const DebugEnv = "BINLOCATE_DEBUG"

// ParseLevel converts a config level name into a slog level
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", name)
}

// New creates a text logger writing to w (stderr when nil).
// An unknown level name falls back to info.
func New(w io.Writer, level string) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}

	lvl, err := ParseLevel(level)
	if err != nil {
		lvl = slog.LevelInfo
	}
	if v := os.Getenv(DebugEnv); v != "" && v != "0" {
		lvl = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// Discard returns a logger that drops everything
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// OrDiscard returns logger, or a discarding logger when it is nil
func OrDiscard(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return Discard()
	}
	return logger
}
