package emit

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapEmitter_Levels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	z := NewZapEmitter(zap.New(core))

	z.Emit(Event{ThreadID: "t-1", Msg: MsgRunStart})
	z.Emit(Event{ThreadID: "t-1", Step: 1, NodeID: "clarity", Msg: MsgNodeEnd, Meta: map[string]interface{}{"duration_ms": int64(4)}})
	z.Emit(Event{ThreadID: "t-1", Msg: MsgRunError, Meta: map[string]interface{}{"error": "boom"}})

	entries := logs.All()
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}

	want := []zapcore.Level{zapcore.InfoLevel, zapcore.DebugLevel, zapcore.ErrorLevel}
	for i, e := range entries {
		if e.Level != want[i] {
			t.Errorf("entry %d (%s) level = %v, want %v", i, e.Message, e.Level, want[i])
		}
		if e.LoggerName != "engine" {
			t.Errorf("entry %d logger = %q, want engine", i, e.LoggerName)
		}
	}

	fields := entries[1].ContextMap()
	if fields["thread_id"] != "t-1" || fields["node"] != "clarity" {
		t.Errorf("node_end fields = %v", fields)
	}
	if fields["duration_ms"] != int64(4) {
		t.Errorf("duration_ms = %v, want 4", fields["duration_ms"])
	}
}

func TestZapEmitter_RespectsLevel(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	z := NewZapEmitter(zap.New(core))

	z.Emit(Event{ThreadID: "t", Step: 1, NodeID: "a", Msg: MsgNodeStart})
	if logs.Len() != 0 {
		t.Errorf("debug event logged at info level")
	}
}

func TestZapEmitter_NilLogger(t *testing.T) {
	NewZapEmitter(nil).Emit(Event{Msg: MsgRunStart})
}
