package logger

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/trexinity/another/pkg/interfaces"
)

// HTTPMiddleware logs every request and stores a request-scoped logger in
// the context. It expects chi's RequestID middleware to run first.
func HTTPMiddleware(logger interfaces.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ctx := r.Context()
			reqID := middleware.GetReqID(ctx)
			if reqID != "" {
				ctx = WithRequestID(ctx, reqID)
			}
			reqLogger := logger.WithContext(ctx)
			ctx = WithContext(ctx, reqLogger)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			fields := []interfaces.Field{
				interfaces.String("method", r.Method),
				interfaces.String("path", r.URL.Path),
				interfaces.Int("status", ww.Status()),
				interfaces.Int("bytes", ww.BytesWritten()),
				interfaces.Any("duration_ms", time.Since(start).Milliseconds()),
			}

			switch {
			case ww.Status() >= http.StatusInternalServerError:
				reqLogger.Error("HTTP request failed", fields...)
			case ww.Status() >= http.StatusBadRequest:
				reqLogger.Warn("HTTP request rejected", fields...)
			default:
				reqLogger.Debug("HTTP request completed", fields...)
			}
		})
	}
}
