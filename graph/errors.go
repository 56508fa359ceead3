// Package graph provides the core execution engine for ThreadGraph.
package graph

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for use with errors.Is. Each typed error below matches
// exactly one of them.
var (
	// ErrInvalidGraph indicates a structurally unsound workflow definition.
	ErrInvalidGraph = errors.New("invalid graph")

	// ErrRouting indicates a routing function chose a node outside its
	// declared target set.
	ErrRouting = errors.New("routing error")

	// ErrMalformedUpdate indicates a step's partial update violated the
	// field kinds declared in the schema.
	ErrMalformedUpdate = errors.New("malformed update")

	// ErrRecursionLimitExceeded indicates a run reached its step ceiling.
	// This points at an unbounded or misconfigured cycle, not a transient
	// condition.
	ErrRecursionLimitExceeded = errors.New("recursion limit exceeded")

	// ErrStepExecution indicates a step function failed.
	ErrStepExecution = errors.New("step execution failed")
)

// InvalidGraphError is returned by Builder.Build. It lists every problem
// found so a definition can be fixed in one pass.
type InvalidGraphError struct {
	Problems []string
}

func (e *InvalidGraphError) Error() string {
	return "invalid graph: " + strings.Join(e.Problems, "; ")
}

// Is reports whether target is ErrInvalidGraph.
func (e *InvalidGraphError) Is(target error) bool { return target == ErrInvalidGraph }

// RoutingError is returned when a routing function yields a target that is
// neither a declared allowed target nor End. The checkpoint written before
// the offending step remains the durable state.
type RoutingError struct {
	ThreadID string
	From     string
	Target   string
	Allowed  []string
	Cause    error
}

func (e *RoutingError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("routing from %q failed: %v", e.From, e.Cause)
	}
	return fmt.Sprintf("routing from %q returned %q, allowed %v", e.From, e.Target, e.Allowed)
}

// Is reports whether target is ErrRouting.
func (e *RoutingError) Is(target error) bool { return target == ErrRouting }

// Unwrap returns the panic or error raised by the routing function, if any.
func (e *RoutingError) Unwrap() error { return e.Cause }

// MalformedUpdateError is returned when a partial update cannot be merged.
type MalformedUpdateError struct {
	Node   string
	Field  string
	Reason string
}

func (e *MalformedUpdateError) Error() string {
	if e.Node != "" {
		return fmt.Sprintf("node %s: malformed update to %q: %s", e.Node, e.Field, e.Reason)
	}
	return fmt.Sprintf("malformed update to %q: %s", e.Field, e.Reason)
}

// Is reports whether target is ErrMalformedUpdate.
func (e *MalformedUpdateError) Is(target error) bool { return target == ErrMalformedUpdate }

// RecursionLimitError is returned when a run performs as many steps as its
// ceiling allows without reaching End.
type RecursionLimitError struct {
	ThreadID string
	Limit    int
	Node     string // node that would have run next
}

func (e *RecursionLimitError) Error() string {
	return fmt.Sprintf("thread %s: recursion limit of %d steps reached before node %s", e.ThreadID, e.Limit, e.Node)
}

// Is reports whether target is ErrRecursionLimitExceeded.
func (e *RecursionLimitError) Is(target error) bool { return target == ErrRecursionLimitExceeded }

// StepExecutionError carries a step function's failure. The original error
// is preserved as-is and reachable through errors.Is and errors.As.
type StepExecutionError struct {
	ThreadID string
	Node     string
	Err      error
}

func (e *StepExecutionError) Error() string {
	return "node " + e.Node + ": " + e.Err.Error()
}

// Is reports whether target is ErrStepExecution.
func (e *StepExecutionError) Is(target error) bool { return target == ErrStepExecution }

// Unwrap returns the step's own error.
func (e *StepExecutionError) Unwrap() error { return e.Err }

// EngineError represents a configuration or persistence failure of the
// engine itself.
type EngineError struct {
	Message string
	Code    string
	Cause   error
}

func (e *EngineError) Error() string {
	if e.Code != "" {
		return e.Code + ": " + e.Message
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *EngineError) Unwrap() error { return e.Cause }
