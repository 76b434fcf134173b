package api

import (
	"bufio"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/modelgate/gateway/internal/correlation"
	"github.com/modelgate/gateway/internal/limits"
	"github.com/modelgate/gateway/internal/normalize"
	"github.com/modelgate/gateway/internal/observability"
)

// LoggingMiddleware assigns a correlation ID, echoes it on the response,
// and logs one line per completed request.
func LoggingMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if next == nil {
		next = http.NotFoundHandler()
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var correlationID string
		r, correlationID = correlation.EnsureRequest(r)
		if correlationID != "" {
			w.Header().Set(correlation.HeaderName, correlationID)
		}

		start := time.Now()
		recorder := newStatusResponseWriter(w)
		next.ServeHTTP(recorder, r)
		logger.InfoContext(r.Context(),
			"request complete",
			"correlation_id", correlationID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", recorder.StatusCode(),
			"latency_ms", time.Since(start).Milliseconds(),
		)
	})
}

// RateLimitMiddleware rejects over-limit requests with a 429 canonical
// envelope before they reach the upstream dispatch.
func RateLimitMiddleware(limiter *limits.Limiter, obs *observability.Runtime, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		result := limiter.CheckRequest(r)
		if result == nil {
			next.ServeHTTP(w, r)
			return
		}

		if obs != nil {
			obs.RecordRateLimited(r.URL.Path)
		}
		if result.RetryAfterSeconds > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfterSeconds))
		}
		writeEnvelope(w, normalize.NewErrorEnvelope(result.Message, http.StatusTooManyRequests, map[string]any{
			"code": result.Code,
		}))
	})
}

type statusResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newStatusResponseWriter(w http.ResponseWriter) *statusResponseWriter {
	return &statusResponseWriter{ResponseWriter: w}
}

func (w *statusResponseWriter) WriteHeader(statusCode int) {
	if w.statusCode == 0 {
		w.statusCode = statusCode
	}
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusResponseWriter) Write(p []byte) (int, error) {
	if w.statusCode == 0 {
		w.statusCode = http.StatusOK
	}
	return w.ResponseWriter.Write(p)
}

func (w *statusResponseWriter) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (w *statusResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, http.ErrNotSupported
	}
	return hijacker.Hijack()
}

func (w *statusResponseWriter) StatusCode() int {
	if w.statusCode == 0 {
		return http.StatusOK
	}
	return w.statusCode
}
