// Package shield provides the HTTP middleware shared by the weaver servers:
// security headers that still allow same-origin framing, body limits,
// request tracing and HEAD handling.
//
// Usage:
//
//	r := chi.NewRouter()
//	for _, mw := range shield.DefaultStack(logger) {
//	    r.Use(mw)
//	}
package shield

import (
	"context"
	"log/slog"
	"net/http"
)

type contextKey string

// LoggerKey is the context key for the per-request structured logger.
const LoggerKey contextKey = "shield_logger"

// DefaultStack returns the middleware applied to every weaver route.
// Order: HeadToGet → WithLogger → TraceID → MaxBody. Headers are set per
// route group since the host page and the preview need different framing
// rules. A nil logger leaves slog.Default() as the base.
func DefaultStack(logger *slog.Logger) []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		HeadToGet,
		WithLogger(logger),
		TraceID,
		MaxBody(1 << 20),
	}
}

// WithLogger stores logger under LoggerKey. TraceID derives its
// per-request logger from it.
func WithLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if logger == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), LoggerKey, logger)))
		})
	}
}
