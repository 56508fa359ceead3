package emit

import "testing"

func TestMulti_FansOut(t *testing.T) {
	a, b := NewBufferedEmitter(), NewBufferedEmitter()
	m := Multi{a, nil, b, NewNullEmitter()}

	m.Emit(Event{ThreadID: "t", Msg: MsgRunStart})

	if len(a.History("t")) != 1 || len(b.History("t")) != 1 {
		t.Errorf("event not delivered to every emitter")
	}
}

func TestEmitterImplementations(t *testing.T) {
	var _ Emitter = (*NullEmitter)(nil)
	var _ Emitter = (*BufferedEmitter)(nil)
	var _ Emitter = (*LogEmitter)(nil)
	var _ Emitter = (*ZapEmitter)(nil)
	var _ Emitter = (*OTelEmitter)(nil)
	var _ Emitter = Multi(nil)
}
