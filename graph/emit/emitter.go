package emit

// Emitter receives observability events from workflow execution.
//
// Implementations should be:
//   - Non-blocking: avoid slowing down the run that emits
//   - Thread-safe: runs on distinct threads emit concurrently
//   - Resilient: never panic, never fail the run
//
// Emitters observe; they never influence execution. An event is emitted
// after the fact it describes has happened (for example "checkpoint_saved"
// only after the store acknowledged the write).
type Emitter interface {
	// Emit sends an observability event to the configured backend.
	Emit(event Event)
}

// Multi fans every event out to each non-nil emitter in order.
type Multi []Emitter

// Emit implements Emitter.
func (m Multi) Emit(event Event) {
	for _, e := range m {
		if e != nil {
			e.Emit(event)
		}
	}
}
