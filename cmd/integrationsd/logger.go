package main

import (
	"context"
	"log/slog"
	"os"

	glog "github.com/goliatone/go-logger/glog"
)

// slogLogger adapts the structured stdlib logger to the glog contract so the
// service layer stays backend-agnostic.
type slogLogger struct {
	inner *slog.Logger
}

func newSlogLogger(level slog.Level) *slogLogger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return &slogLogger{inner: slog.New(handler)}
}

func (l *slogLogger) Trace(message string, args ...any) {
	l.inner.Log(context.Background(), slog.LevelDebug-4, message, args...)
}

func (l *slogLogger) Debug(message string, args ...any) {
	l.inner.Debug(message, args...)
}

func (l *slogLogger) Info(message string, args ...any) {
	l.inner.Info(message, args...)
}

func (l *slogLogger) Warn(message string, args ...any) {
	l.inner.Warn(message, args...)
}

func (l *slogLogger) Error(message string, args ...any) {
	l.inner.Error(message, args...)
}

func (l *slogLogger) Fatal(message string, args ...any) {
	l.inner.Error(message, args...)
	os.Exit(1)
}

func (l *slogLogger) WithContext(context.Context) glog.Logger {
	return l
}

func (l *slogLogger) WithFields(fields map[string]any) glog.Logger {
	if len(fields) == 0 {
		return l
	}
	args := make([]any, 0, len(fields)*2)
	for key, value := range fields {
		args = append(args, key, value)
	}
	return &slogLogger{inner: l.inner.With(args...)}
}

var _ glog.Logger = (*slogLogger)(nil)
var _ glog.FieldsLogger = (*slogLogger)(nil)

func parseLogLevel(raw string) slog.Level {
	switch raw {
	case "debug", "trace":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
