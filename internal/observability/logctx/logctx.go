// Package logctx carries a request-scoped logger on the context, so handlers
// and use cases log with the request's trace and correlation fields attached.
package logctx

import (
	"context"

	"github.com/paysys/payment-integration/internal/observability"
)

type loggerKey struct{}

// With stores the logger on the context.
func With(ctx context.Context, logger observability.Logger) context.Context {
	if ctx == nil || logger == nil {
		return ctx
	}
	return context.WithValue(ctx, loggerKey{}, logger)
}

// From returns the context logger, or nil when none was stored.
func From(ctx context.Context) observability.Logger {
	if ctx == nil {
		return nil
	}
	logger, _ := ctx.Value(loggerKey{}).(observability.Logger)
	return logger
}

// FromOr prefers the context logger, then the fallback, and never returns nil.
func FromOr(ctx context.Context, fallback observability.Logger) observability.Logger {
	if logger := From(ctx); logger != nil {
		return logger
	}
	if fallback != nil {
		return fallback
	}
	return observability.NopLogger()
}
