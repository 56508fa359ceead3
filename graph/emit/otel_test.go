package emit

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newTestTracer(t *testing.T) (*OTelEmitter, *tracetest.InMemoryExporter) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return NewOTelEmitter(tp.Tracer("test")), exporter
}

func attributeMap(attrs []attribute.KeyValue) map[string]interface{} {
	m := make(map[string]interface{}, len(attrs))
	for _, kv := range attrs {
		m[string(kv.Key)] = kv.Value.AsInterface()
	}
	return m
}

func TestOTelEmitter_Emit(t *testing.T) {
	o, exporter := newTestTracer(t)

	o.Emit(Event{
		ThreadID: "t-1",
		Step:     1,
		NodeID:   "research",
		Msg:      MsgNodeEnd,
		Meta: map[string]interface{}{
			"duration_ms": int64(20),
			"tokens_in":   150,
			"next":        "validator",
		},
	})

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	span := spans[0]
	if span.Name != MsgNodeEnd {
		t.Errorf("span name = %q, want %q", span.Name, MsgNodeEnd)
	}

	attrs := attributeMap(span.Attributes)
	checks := map[string]interface{}{
		"threadgraph.thread_id":        "t-1",
		"threadgraph.step":             int64(1),
		"threadgraph.node_id":          "research",
		"threadgraph.llm.tokens_in":    int64(150),
		"threadgraph.node.duration_ms": int64(20),
		"next":                         "validator",
	}
	for k, want := range checks {
		if got := attrs[k]; got != want {
			t.Errorf("%s = %v, want %v", k, got, want)
		}
	}

	if d := span.EndTime.Sub(span.StartTime); d.Milliseconds() != 20 {
		t.Errorf("span duration = %v, want 20ms", d)
	}
}

func TestOTelEmitter_ErrorStatus(t *testing.T) {
	o, exporter := newTestTracer(t)

	o.Emit(Event{ThreadID: "t-1", Msg: MsgRunError, Meta: map[string]interface{}{"error": "boom"}})

	span := exporter.GetSpans()[0]
	if span.Status.Code != codes.Error {
		t.Errorf("status = %v, want Error", span.Status.Code)
	}
	if span.Status.Description != "boom" {
		t.Errorf("description = %q, want boom", span.Status.Description)
	}
	if len(span.Events) == 0 {
		t.Error("expected a recorded error event")
	}
}

func TestOTelEmitter_EmitBatch(t *testing.T) {
	o, exporter := newTestTracer(t)

	events := []Event{
		{ThreadID: "t", Step: 1, Msg: MsgNodeStart},
		{ThreadID: "t", Step: 1, Msg: MsgNodeEnd},
	}
	if err := o.EmitBatch(context.Background(), events); err != nil {
		t.Fatalf("EmitBatch: %v", err)
	}
	if got := len(exporter.GetSpans()); got != 2 {
		t.Errorf("got %d spans, want 2", got)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := o.EmitBatch(ctx, events); err == nil {
		t.Error("EmitBatch with cancelled context returned nil")
	}
}
