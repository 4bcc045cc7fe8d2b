package otelx

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestTraceContextRoundTrip(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	captured := CaptureTraceContext(ctx)
	if captured.Empty() || captured.Parent == "" {
		t.Fatal("expected traceparent")
	}

	restored := trace.SpanContextFromContext(captured.Resume(context.Background()))
	if restored.TraceID() != traceID {
		t.Fatalf("trace id mismatch: %s", restored.TraceID())
	}
}

func TestResumeEmptyIsNoop(t *testing.T) {
	ctx := context.Background()
	if got := (TraceContext{}).Resume(ctx); got != ctx {
		t.Fatal("expected unchanged context when no trace data")
	}
}

func TestNormalize(t *testing.T) {
	cfg := Config{SampleRatio: 3}.Normalize()
	if cfg.SampleRatio != 1 || cfg.OTLPEndpoint != "localhost:4317" {
		t.Fatalf("unexpected normalized config: %+v", cfg)
	}
	if got := (Config{OTLPEndpoint: "http://collector:4317"}).Normalize().OTLPEndpoint; got != "collector:4317" {
		t.Fatalf("expected scheme stripped, got %q", got)
	}
}

func TestSetupDisabledIsNoop(t *testing.T) {
	shutdown, err := Setup(context.Background(), Config{ServiceName: "test"})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}
