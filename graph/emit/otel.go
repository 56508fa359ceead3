package emit

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OTelEmitter implements Emitter by recording each event as an OpenTelemetry
// span named after event.Msg.
//
// Spans carry threadgraph.thread_id, threadgraph.step and
// threadgraph.node_id plus every Meta entry. A string Meta["error"] marks the
// span as failed.
//
//	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
//	emitter := emit.NewOTelEmitter(tp.Tracer("threadgraph"))
type OTelEmitter struct {
	tracer trace.Tracer
}

// NewOTelEmitter creates an OTelEmitter that records spans with tracer.
func NewOTelEmitter(tracer trace.Tracer) *OTelEmitter {
	return &OTelEmitter{tracer: tracer}
}

// Emit records the event as a span that starts and ends immediately.
// Events with a duration_ms entry get a start time backdated by that
// duration.
func (o *OTelEmitter) Emit(event Event) {
	o.record(context.Background(), event)
}

// EmitBatch records several events under ctx, so they share its trace.
func (o *OTelEmitter) EmitBatch(ctx context.Context, events []Event) error {
	for _, event := range events {
		if err := ctx.Err(); err != nil {
			return err
		}
		o.record(ctx, event)
	}
	return nil
}

func (o *OTelEmitter) record(ctx context.Context, event Event) {
	end := time.Now()
	start := end
	if d, ok := durationMS(event.Meta["duration_ms"]); ok {
		start = end.Add(-d)
	}

	_, span := o.tracer.Start(ctx, event.Msg, trace.WithTimestamp(start))
	span.SetAttributes(
		attribute.String("threadgraph.thread_id", event.ThreadID),
		attribute.Int("threadgraph.step", event.Step),
		attribute.String("threadgraph.node_id", event.NodeID),
	)
	span.SetAttributes(metaAttributes(event.Meta)...)

	if msg, ok := event.Meta["error"].(string); ok {
		span.SetStatus(codes.Error, msg)
		span.RecordError(errors.New(msg))
	}
	span.End(trace.WithTimestamp(end))
}

func durationMS(v interface{}) (time.Duration, bool) {
	switch d := v.(type) {
	case int64:
		return time.Duration(d) * time.Millisecond, true
	case int:
		return time.Duration(d) * time.Millisecond, true
	case float64:
		return time.Duration(d * float64(time.Millisecond)), true
	default:
		return 0, false
	}
}

// metaAttributes converts event metadata to span attributes in key order.
// Token counts and the model name use the threadgraph.llm namespace.
func metaAttributes(meta map[string]interface{}) []attribute.KeyValue {
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	attrs := make([]attribute.KeyValue, 0, len(keys))
	for _, key := range keys {
		attrKey := key
		switch key {
		case "tokens_in", "tokens_out", "model":
			attrKey = "threadgraph.llm." + key
		case "duration_ms":
			attrKey = "threadgraph.node.duration_ms"
		}

		switch v := meta[key].(type) {
		case string:
			attrs = append(attrs, attribute.String(attrKey, v))
		case int:
			attrs = append(attrs, attribute.Int(attrKey, v))
		case int64:
			attrs = append(attrs, attribute.Int64(attrKey, v))
		case float64:
			attrs = append(attrs, attribute.Float64(attrKey, v))
		case bool:
			attrs = append(attrs, attribute.Bool(attrKey, v))
		case time.Duration:
			attrs = append(attrs, attribute.Int64(attrKey, v.Milliseconds()))
		case []string:
			attrs = append(attrs, attribute.StringSlice(attrKey, v))
		default:
			attrs = append(attrs, attribute.String(attrKey, fmt.Sprintf("%v", v)))
		}
	}
	return attrs
}
