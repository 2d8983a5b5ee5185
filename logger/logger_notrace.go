//go:build !debug_trace
// +build !debug_trace

// logger_notrace.go makes Tracef a no-op unless built with the debug_trace tag:
// per-packet tracing is too expensive to keep in regular builds.

package logger

import (
	"context"
)

// Tracef is just a shorthand for Logf(ctx, logger.LevelTrace, ...)
func Tracef(ctx context.Context, format string, args ...any) {}
