package emit

// Event names emitted by the engine.
const (
	MsgRunStart        = "run_start"
	MsgRunResume       = "run_resume"
	MsgNodeStart       = "node_start"
	MsgNodeEnd         = "node_end"
	MsgRoute           = "route"
	MsgCheckpointSaved = "checkpoint_saved"
	MsgRunEnd          = "run_end"
	MsgRunError        = "run_error"
)

// Event represents an observability event emitted during execution.
//
// Common Meta keys:
//   - "duration_ms": step duration in milliseconds
//   - "error": error text
//   - "next": node chosen by routing
//   - "ceiling": step ceiling of the run
//   - "checkpoint_step": cumulative step counter stored for the thread
type Event struct {
	// ThreadID identifies the conversation the event belongs to.
	ThreadID string

	// Step is the step number within the current invocation (1-indexed).
	// Zero for run-level events.
	Step int

	// NodeID identifies the node the event concerns. Empty for run-level
	// events.
	NodeID string

	// Msg is the event name, one of the Msg* constants.
	Msg string

	// Meta carries additional structured data.
	Meta map[string]interface{}
}
