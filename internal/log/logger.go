// Package log wraps slog so every record carries the component that
// emitted it (server, worker), which keeps interleaved logs attributable
// when both binaries write to the same sink.
package log

import (
	"log/slog"
	"os"
)

// Logger tags every record with its owning component.
type Logger struct {
	*slog.Logger
	component string
}

// Config holds logger configuration. A nil Handler falls back to a text
// handler on stdout at the configured level.
type Config struct {
	Level     slog.Level
	Component string
	Handler   slog.Handler
}

// New creates a logger for the given component.
func New(config Config) *Logger {
	handler := config.Handler
	if handler == nil {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: config.Level,
		})
	}

	return &Logger{
		Logger:    slog.New(handler),
		component: config.Component,
	}
}

// Info logs at Info level with the component attribute.
func (l *Logger) Info(msg string, args ...any) {
	l.Logger.Info(msg, append([]any{"component", l.component}, args...)...)
}

// Warn logs at Warn level with the component attribute.
func (l *Logger) Warn(msg string, args ...any) {
	l.Logger.Warn(msg, append([]any{"component", l.component}, args...)...)
}

// Error logs at Error level with the component attribute.
func (l *Logger) Error(msg string, args ...any) {
	l.Logger.Error(msg, append([]any{"component", l.component}, args...)...)
}

// SetDefault installs the logger as the process-wide slog default, so
// packages logging through slog directly share the same handler.
func SetDefault(logger *Logger) {
	slog.SetDefault(logger.Logger)
}
