// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package logger

import (
	"context"
)

// loggerKey is unexported so that no other package can collide with it.
type loggerKey struct{}

// WithContext returns a copy of ctx carrying logger.
func WithContext(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext retrieves the logger stored in ctx. A nil ctx or a ctx without
// a logger yields a logger that discards everything.
func FromContext(ctx context.Context) Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(loggerKey{}).(Logger); ok {
			return logger
		}
	}

	return nullLogger
}

// Named is a shorthand for FromContext(ctx).WithName(name).
func Named(ctx context.Context, name string) Logger {
	return FromContext(ctx).WithName(name)
}
