// Copyright (c) clearwater-iot contributors.
// Licensed under the MIT License.
package log

import (
	"context"
	"log/slog"
	"runtime"
	"time"
)

type (
	// Logger is a wrapper around an slog.Logger with additional helpers and
	// nil checking, so components can log unconditionally without checking
	// whether the caller configured a logger.
	Logger struct{ Wrapped *slog.Logger }

	// Attrs is implemented by errors (and other values) that expose extra
	// slog attributes beyond their Error() string.
	Attrs interface {
		Attrs() []slog.Attr
	}
)

// Wrap the first non-nil slog.Logger, so a per-component override (e.g. a
// command executor's own Logger option) takes precedence over an
// application-wide default. Returns a Logger wrapping nil if all are nil;
// a nil-wrapped Logger silently discards everything.
func Wrap(loggers ...*slog.Logger) Logger {
	for _, logger := range loggers {
		if logger != nil {
			return Logger{logger}
		}
	}
	return Logger{}
}

// Log is designed to build logging wrappers; callers should prefer Debug,
// Info, Warn, or Err.
// See: https://pkg.go.dev/log/slog#hdr-Wrapping_output_methods
func (l Logger) Log(
	ctx context.Context,
	level slog.Level,
	msg string,
	attrs ...slog.Attr,
) {
	if !l.Enabled(ctx, level) {
		return
	}

	var pcs [1]uintptr
	runtime.Callers(3, pcs[:])

	r := slog.NewRecord(time.Now(), level, msg, pcs[0])
	r.AddAttrs(attrs...)
	_ = l.Wrapped.Handler().Handle(ctx, r)
}

// Debug logs a message at debug level.
func (l Logger) Debug(ctx context.Context, msg string, attrs ...slog.Attr) {
	l.Log(ctx, slog.LevelDebug, msg, attrs...)
}

// Info logs a message at info level.
func (l Logger) Info(ctx context.Context, msg string, attrs ...slog.Attr) {
	l.Log(ctx, slog.LevelInfo, msg, attrs...)
}

// Warn logs an error at warn level; used for errors that are recoverable or
// expected (e.g. a single malformed message) rather than application-fatal.
func (l Logger) Warn(ctx context.Context, err error, attrs ...slog.Attr) {
	l.logErr(ctx, slog.LevelWarn, err, attrs...)
}

// Err logs an error at error level.
func (l Logger) Err(ctx context.Context, err error, attrs ...slog.Attr) {
	l.logErr(ctx, slog.LevelError, err, attrs...)
}

func (l Logger) logErr(
	ctx context.Context,
	level slog.Level,
	err error,
	attrs ...slog.Attr,
) {
	if a, ok := err.(Attrs); ok {
		l.Log(ctx, level, err.Error(), append(a.Attrs(), attrs...)...)
	} else {
		l.Log(ctx, level, err.Error(), attrs...)
	}
}

// Enabled indicates whether the logger is enabled for the given level.
func (l Logger) Enabled(ctx context.Context, level slog.Level) bool {
	return l.Wrapped != nil && l.Wrapped.Enabled(ctx, level)
}
