package utils

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// Logger provides leveled logging throughout the application.
// Messages keep the "[component] text" convention; slog carries the level and time.
type Logger struct {
	slog *slog.Logger
}

// NewLogger creates an info-level colored Logger writing to stdout.
func NewLogger() *Logger {
	return NewLoggerWithOptions(os.Stdout, "info", true)
}

// NewLoggerWithOptions creates a Logger on w with the given minimum level
// ("debug", "info", "warn", "error").
func NewLoggerWithOptions(w io.Writer, level string, color bool) *Logger {
	handler := tint.NewHandler(w, &tint.Options{
		Level:      ParseLevel(level),
		TimeFormat: time.DateTime,
		NoColor:    !color,
	})
	return &Logger{slog: slog.New(handler)}
}

// ParseLevel converts a level name to slog.Level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

// Slog exposes the underlying structured logger.
func (l *Logger) Slog() *slog.Logger { return l.slog }

func (l *Logger) logf(level slog.Level, format string, args ...any) {
	ctx := context.Background()
	if !l.slog.Enabled(ctx, level) {
		return
	}
	l.slog.Log(ctx, level, fmt.Sprintf(format, args...))
}

func (l *Logger) Info(format string, args ...any) {
	l.logf(slog.LevelInfo, format, args...)
}

func (l *Logger) Warn(format string, args ...any) {
	l.logf(slog.LevelWarn, format, args...)
}

func (l *Logger) Error(format string, args ...any) {
	l.logf(slog.LevelError, format, args...)
}

func (l *Logger) Debug(format string, args ...any) {
	l.logf(slog.LevelDebug, format, args...)
}
