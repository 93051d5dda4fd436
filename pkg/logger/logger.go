// Package logger decorates slog handlers with the ids carried by the request context.
package logger

import (
	"context"
	"log/slog"

	"github.com/abgdnv/catalogadmin/pkg/web"
	"go.opentelemetry.io/otel/trace"
)

// ContextHandler adds trace_id, request_id and session_id to records logged with a
// context that carries them.
type ContextHandler struct {
	slog.Handler
}

func NewContextHandler(handler slog.Handler) *ContextHandler {
	return &ContextHandler{Handler: handler}
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		r.AddAttrs(slog.String("trace_id", span.SpanContext().TraceID().String()))
	}
	if reqID, ok := web.GetRequestID(ctx); ok {
		r.AddAttrs(slog.String("request_id", reqID))
	}
	if sessID, ok := web.GetSessionID(ctx); ok {
		r.AddAttrs(slog.String("session_id", sessID))
	}
	return h.Handler.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *ContextHandler) WithGroup(group string) slog.Handler {
	return &ContextHandler{Handler: h.Handler.WithGroup(group)}
}
