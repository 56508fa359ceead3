package emit

import "sync"

// BufferedEmitter implements Emitter by keeping events in memory, grouped by
// thread. It is used by tests and by the CLI's state view to show what the
// last turn did.
//
// Events accumulate for the lifetime of the emitter; call Clear to drop a
// thread's history.
type BufferedEmitter struct {
	mu     sync.RWMutex
	events map[string][]Event // threadID -> events
}

// HistoryFilter selects events from a thread's history. Zero fields do not
// filter; set fields are combined with AND.
type HistoryFilter struct {
	NodeID  string
	Msg     string
	MinStep *int
	MaxStep *int
}

// NewBufferedEmitter creates an empty BufferedEmitter.
func NewBufferedEmitter() *BufferedEmitter {
	return &BufferedEmitter{
		events: make(map[string][]Event),
	}
}

// Emit stores an event.
func (b *BufferedEmitter) Emit(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.events[event.ThreadID] = append(b.events[event.ThreadID], event)
}

// History returns a copy of every event recorded for threadID, in emission
// order. The result is never nil.
func (b *BufferedEmitter) History(threadID string) []Event {
	return b.Filter(threadID, HistoryFilter{})
}

// Filter returns the events of threadID that match filter.
func (b *BufferedEmitter) Filter(threadID string, filter HistoryFilter) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	result := []Event{}
	for _, event := range b.events[threadID] {
		if filter.matches(event) {
			result = append(result, event)
		}
	}
	return result
}

// Nodes returns the node IDs of the node_end events of threadID, which is
// the order in which steps completed.
func (b *BufferedEmitter) Nodes(threadID string) []string {
	var nodes []string
	for _, e := range b.Filter(threadID, HistoryFilter{Msg: MsgNodeEnd}) {
		nodes = append(nodes, e.NodeID)
	}
	return nodes
}

func (f HistoryFilter) matches(event Event) bool {
	if f.NodeID != "" && event.NodeID != f.NodeID {
		return false
	}
	if f.Msg != "" && event.Msg != f.Msg {
		return false
	}
	if f.MinStep != nil && event.Step < *f.MinStep {
		return false
	}
	if f.MaxStep != nil && event.Step > *f.MaxStep {
		return false
	}
	return true
}

// Clear removes the events of threadID, or of every thread when threadID is
// empty.
func (b *BufferedEmitter) Clear(threadID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if threadID == "" {
		b.events = make(map[string][]Event)
		return
	}
	delete(b.events, threadID)
}
