package tracing

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// HeaderTraceparent is the W3C trace context header.
const HeaderTraceparent = "traceparent"

var propagator = propagation.TraceContext{}

// Inject writes the traceparent (and tracestate) of the span in ctx into h.
// A header already present is kept, and nothing is written when ctx holds
// no valid span.
func Inject(ctx context.Context, h http.Header) {
	if h.Get(HeaderTraceparent) != "" {
		return
	}
	propagator.Inject(ctx, propagation.HeaderCarrier(h))
}

// Extract returns ctx with the remote span described by h, if any.
func Extract(ctx context.Context, h http.Header) context.Context {
	return propagator.Extract(ctx, propagation.HeaderCarrier(h))
}

// TraceID returns the hex trace id of the span in ctx, or "" when there is
// none.
func TraceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return ""
	}
	return sc.TraceID().String()
}
