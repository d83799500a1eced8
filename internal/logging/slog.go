package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

var (
	opLogger atomic.Pointer[slog.Logger]
	logLevel = new(slog.LevelVar)
)

func init() {
	logLevel.Set(slog.LevelInfo)
	opLogger.Store(slog.New(newHandler("text", os.Stderr)))
}

// Op returns the operational logger for daemon and transport logs.
// This is separate from the request Logger which logs individual API calls.
func Op() *slog.Logger {
	return opLogger.Load()
}

// SetLevelFromString sets the log level from a string.
// Valid values: "debug", "info", "warn", "error". Unknown values are ignored.
func SetLevelFromString(level string) {
	switch strings.ToLower(level) {
	case "debug":
		logLevel.Set(slog.LevelDebug)
	case "info":
		logLevel.Set(slog.LevelInfo)
	case "warn", "warning":
		logLevel.Set(slog.LevelWarn)
	case "error":
		logLevel.Set(slog.LevelError)
	}
}

// InitStructured reconfigures the operational logger.
// format: "text" (default) or "json" (Loki/ELK compatible)
func InitStructured(format, level string) {
	InitStructuredTo(os.Stderr, format, level)
}

// InitStructuredTo is InitStructured with an explicit destination.
func InitStructuredTo(w io.Writer, format, level string) {
	SetLevelFromString(level)
	opLogger.Store(slog.New(newHandler(format, w)).With("service", "songcache"))
}

// OpWithRequest returns the operational logger annotated with request and
// trace identifiers. Empty values are omitted.
func OpWithRequest(requestID, traceID string) *slog.Logger {
	l := opLogger.Load()
	var args []any
	if requestID != "" {
		args = append(args, "request_id", requestID)
	}
	if traceID != "" {
		args = append(args, "trace_id", traceID)
	}
	if len(args) == 0 {
		return l
	}
	return l.With(args...)
}

func newHandler(format string, w io.Writer) slog.Handler {
	opts := &slog.HandlerOptions{Level: logLevel}
	if format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}
