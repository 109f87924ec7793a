package cli

import (
	"log/slog"
	"os"
)

// newLogger returns a stderr text logger. Progress goes to stdout
// separately, so quiet mode only keeps warnings and errors.
func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
