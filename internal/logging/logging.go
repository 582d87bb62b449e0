// Package logging configures the process-wide logger for harness runs.
package logging

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// Setup installs a text slog handler on stderr as the default logger.
// An empty level means info.
func Setup(level string) error {
	var l slog.Level
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		l = slog.LevelInfo
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q", level)
	}

	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})
	slog.SetDefault(slog.New(h))
	return nil
}
