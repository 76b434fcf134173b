package observability

import (
	"context"
	"log/slog"

	oteltrace "go.opentelemetry.io/otel/trace"
)

// spanContextHandler stamps trace_id and span_id onto every log record
// emitted while an OpenTelemetry span is recording, so a gateway log line
// can be joined against the trace for the same chat request.
type spanContextHandler struct {
	inner slog.Handler
}

// NewTraceLogHandler wraps inner so records carry the active span's
// trace_id and span_id. A nil inner falls back to slog.Default().Handler().
func NewTraceLogHandler(inner slog.Handler) slog.Handler {
	if inner == nil {
		inner = slog.Default().Handler()
	}
	return &spanContextHandler{inner: inner}
}

func (h *spanContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *spanContextHandler) Handle(ctx context.Context, record slog.Record) error {
	span := oteltrace.SpanFromContext(ctx)
	if span == nil || !span.IsRecording() {
		return h.inner.Handle(ctx, record)
	}
	sc := span.SpanContext()
	if !sc.IsValid() {
		return h.inner.Handle(ctx, record)
	}
	record.AddAttrs(
		slog.String("trace_id", sc.TraceID().String()),
		slog.String("span_id", sc.SpanID().String()),
	)
	return h.inner.Handle(ctx, record)
}

func (h *spanContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &spanContextHandler{inner: h.inner.WithAttrs(attrs)}
}

func (h *spanContextHandler) WithGroup(name string) slog.Handler {
	return &spanContextHandler{inner: h.inner.WithGroup(name)}
}
