package otelx

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// TraceContext is the W3C traceparent/tracestate pair stored alongside a
// deferred unit of work (an outbox row) so it can be resumed later.
type TraceContext struct {
	Parent string
	State  string
}

// CaptureTraceContext serializes the span in ctx with the global propagator.
func CaptureTraceContext(ctx context.Context) TraceContext {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	return TraceContext{Parent: carrier.Get("traceparent"), State: carrier.Get("tracestate")}
}

func (tc TraceContext) Empty() bool { return tc.Parent == "" && tc.State == "" }

// Resume returns ctx carrying the captured span as its remote parent.
func (tc TraceContext) Resume(ctx context.Context) context.Context {
	if tc.Empty() {
		return ctx
	}
	carrier := propagation.MapCarrier{"traceparent": tc.Parent, "tracestate": tc.State}
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}
