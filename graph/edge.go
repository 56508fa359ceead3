package graph

// End is the terminal sentinel. A static edge to End, or a routing function
// returning End, finishes the run and returns the current state.
const End = "__end__"

// RouteFunc selects the successor of a node from the merged state.
//
// It must be a pure function of the state it is given: no clocks, no
// randomness, no hidden globals. The engine re-applies it to a stored
// checkpoint when a thread is resumed, and the answer has to match the one
// an uninterrupted run would have produced.
//
// Common patterns:
//   - Threshold: state.Float("score") > 0.8
//   - Presence: state.String("result") != ""
//   - Bounded loop: state.Int("attempts") >= 3 || state.String("result") == "ok"
type RouteFunc func(state State) string

// edge is the single outgoing mechanism of a node: either a fixed target or
// a routing function with its allowed targets.
type edge struct {
	to      string
	route   RouteFunc
	allowed map[string]bool
	targets []string // allowed targets in declaration order
}

func (e edge) conditional() bool { return e.route != nil }
