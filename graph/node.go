package graph

import "context"

// Node is a named processing step in the workflow graph.
//
// A node receives a read-only snapshot of the thread's state and returns a
// partial update. It may perform blocking I/O (an LLM call, a lookup) but
// must not mutate the state it was given or keep a reference to it after
// returning. A non-nil error aborts the run; the engine surfaces it to the
// caller wrapped in a *StepExecutionError and does not retry.
//
// Bounded retry belongs in the graph: loop back through a conditional edge
// and count attempts in a state field.
type Node interface {
	Run(ctx context.Context, state State) (Update, error)
}

// NodeFunc is a function adapter that implements the Node interface.
//
// Example:
//
//	greet := graph.NodeFunc(func(ctx context.Context, s graph.State) (graph.Update, error) {
//	    return graph.Update{"greeting": "hello " + s.String("name")}, nil
//	})
type NodeFunc func(ctx context.Context, state State) (Update, error)

// Run implements the Node interface for NodeFunc.
func (f NodeFunc) Run(ctx context.Context, state State) (Update, error) {
	return f(ctx, state)
}
