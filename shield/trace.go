package shield

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"

	"github.com/hazyhaar/weaver/kit"
)

// TraceID tags each request with a random ID, stored under kit.RequestIDKey,
// echoed in X-Trace-ID, and attached to a per-request logger under LoggerKey.
// The request logger extends the one WithLogger installed, if any.
func TraceID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := make([]byte, 4)
		rand.Read(id)
		traceID := hex.EncodeToString(id)

		ctx := kit.WithTransport(r.Context(), "http")
		ctx = kit.WithRequestID(ctx, traceID)
		w.Header().Set("X-Trace-ID", traceID)

		logger := GetLogger(ctx).With(
			"trace_id", traceID,
			"method", r.Method,
			"path", r.URL.Path,
		)
		ctx = context.WithValue(ctx, LoggerKey, logger)
		logger.Debug("request")

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetLogger retrieves the per-request logger, slog.Default() when unset.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(LoggerKey).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}
