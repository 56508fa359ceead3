package emit

import (
	"sort"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapEmitter implements Emitter by logging each event through a zap logger.
// Run errors are logged at error level, node and checkpoint events at
// debug level, everything else at info.
type ZapEmitter struct {
	logger *zap.Logger
}

// NewZapEmitter creates a ZapEmitter. A nil logger discards events.
func NewZapEmitter(logger *zap.Logger) *ZapEmitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapEmitter{logger: logger.Named("engine")}
}

// Emit implements Emitter.
func (z *ZapEmitter) Emit(event Event) {
	fields := make([]zap.Field, 0, 3+len(event.Meta))
	fields = append(fields, zap.String("thread_id", event.ThreadID))
	if event.Step > 0 {
		fields = append(fields, zap.Int("step", event.Step))
	}
	if event.NodeID != "" {
		fields = append(fields, zap.String("node", event.NodeID))
	}

	keys := make([]string, 0, len(event.Meta))
	for k := range event.Meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fields = append(fields, zap.Any(k, event.Meta[k]))
	}

	if ce := z.logger.Check(levelFor(event.Msg), event.Msg); ce != nil {
		ce.Write(fields...)
	}
}

func levelFor(msg string) zapcore.Level {
	switch msg {
	case MsgRunError:
		return zapcore.ErrorLevel
	case MsgNodeStart, MsgNodeEnd, MsgRoute, MsgCheckpointSaved:
		return zapcore.DebugLevel
	default:
		return zapcore.InfoLevel
	}
}
