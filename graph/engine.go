package graph

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dshills/threadgraph/graph/emit"
	"github.com/dshills/threadgraph/graph/store"
)

// ExecutionContext describes one Run call. It is created per call and never
// persisted. Steps can read it with ExecutionContextFrom.
type ExecutionContext struct {
	ThreadID string

	// StepCeiling is the maximum number of steps this call may perform.
	StepCeiling int

	// Step is the number of steps performed so far in this call.
	Step int

	// Resumed reports that the call continued an interrupted run instead of
	// starting a new turn at the entry node.
	Resumed bool
}

type execContextKey struct{}

// ExecutionContextFrom returns the ExecutionContext of the Run call that
// invoked the current step.
func ExecutionContextFrom(ctx context.Context) (ExecutionContext, bool) {
	ec, ok := ctx.Value(execContextKey{}).(ExecutionContext)
	return ec, ok
}

// Engine executes a workflow Definition against per-thread checkpoints.
//
// Runs on distinct threads proceed in parallel. Runs on the same thread are
// serialized: a second Run waits until the first returns (or its own context
// is done).
type Engine struct {
	def     *Definition
	store   store.Store[State]
	ceiling int
	emitter emit.Emitter
	metrics *PrometheusMetrics
	logger  *zap.Logger
	locks   *threadLocks
}

// New creates an engine for def that persists checkpoints to st.
func New(def *Definition, st store.Store[State], opts ...Option) (*Engine, error) {
	if def == nil {
		return nil, &EngineError{Message: "workflow definition is required", Code: "MISSING_DEFINITION"}
	}
	if st == nil {
		return nil, &EngineError{Message: "store is required", Code: "MISSING_STORE"}
	}

	cfg := engineConfig{ceiling: DefaultStepCeiling}
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, &EngineError{Message: err.Error(), Code: "INVALID_OPTION", Cause: err}
		}
	}
	if cfg.emitter == nil {
		cfg.emitter = emit.NewNullEmitter()
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}

	return &Engine{
		def:     def,
		store:   st,
		ceiling: cfg.ceiling,
		emitter: cfg.emitter,
		metrics: cfg.metrics,
		logger:  cfg.logger.Named("engine"),
		locks:   newThreadLocks(),
	}, nil
}

// Definition returns the workflow the engine executes.
func (e *Engine) Definition() *Definition { return e.def }

// Run advances threadID until the workflow reaches End and returns the final
// state.
//
// When the thread has no checkpoint, input is merged onto the schema
// defaults and execution starts at the entry node. When it has one, input
// is merged onto the stored state and execution starts at the entry node
// again, which is how a conversation takes a new turn. The exception is an
// empty input on a thread whose last run stopped before End: the engine
// then resumes with the node that routing selects for the stored state, so
// the last completed step is not repeated.
//
// Every completed step is merged, routed and then written to the store as a
// single checkpoint. Any error aborts the call; the checkpoint of the last
// completed step stays the durable state and the call can be retried.
func (e *Engine) Run(ctx context.Context, threadID string, input Update, opts ...RunOption) (State, error) {
	if threadID == "" {
		return nil, &EngineError{Message: "thread id cannot be empty", Code: "EMPTY_THREAD_ID"}
	}

	ec := ExecutionContext{ThreadID: threadID, StepCeiling: e.ceiling}
	for _, opt := range opts {
		opt(&ec)
	}
	if ec.StepCeiling <= 0 {
		return nil, &EngineError{Message: fmt.Sprintf("step ceiling must be positive, got %d", ec.StepCeiling), Code: "INVALID_CEILING"}
	}

	unlock, err := e.locks.acquire(ctx, threadID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	finish := e.metrics.RunStarted()
	started := time.Now()

	final, steps, err := e.run(ctx, &ec, input)

	outcome := outcomeOf(err)
	finish(outcome)
	fields := []zap.Field{
		zap.String("thread_id", threadID),
		zap.Int("steps", steps),
		zap.String("outcome", outcome),
		zap.Duration("elapsed", time.Since(started)),
	}
	if err != nil {
		e.logger.Warn("run failed", append(fields, zap.Error(err))...)
		e.emit(ec, "", emit.MsgRunError, map[string]interface{}{"error": err.Error(), "outcome": outcome})
		return nil, err
	}
	e.logger.Debug("run completed", fields...)
	e.emit(ec, "", emit.MsgRunEnd, map[string]interface{}{"steps": steps})
	return final, nil
}

func (e *Engine) run(ctx context.Context, ec *ExecutionContext, input Update) (State, int, error) {
	schema := e.def.schema

	cp, err := e.store.Load(ctx, ec.ThreadID)
	fresh := errors.Is(err, store.ErrNotFound)
	if err != nil && !fresh {
		return nil, 0, &EngineError{Message: "failed to load checkpoint: " + err.Error(), Code: "STORE_ERROR", Cause: err}
	}

	var (
		state   State
		current string
		total   int
	)
	switch {
	case fresh:
		state, err = Merge(schema.Defaults(), input, schema)
		current = e.def.entry
		e.emit(*ec, current, emit.MsgRunStart, map[string]interface{}{"ceiling": ec.StepCeiling, "fresh": true})

	case len(input) == 0 && cp.Next != "":
		// The last run stopped after cp.Node. Routing is a pure function of
		// state, so re-deriving the successor from the stored state gives
		// the same node an uninterrupted run would have taken.
		total = cp.Step
		state = cp.State.Clone()
		if state == nil {
			state = State{}
		}
		current, err = e.def.next(cp.Node, state)
		if err == nil && current == End {
			return state, 0, nil
		}
		ec.Resumed = true
		e.emit(*ec, current, emit.MsgRunResume, map[string]interface{}{
			"ceiling":         ec.StepCeiling,
			"after":           cp.Node,
			"checkpoint_step": cp.Step,
		})

	default:
		total = cp.Step
		state, err = Merge(cp.State, input, schema)
		current = e.def.entry
		e.emit(*ec, current, emit.MsgRunStart, map[string]interface{}{"ceiling": ec.StepCeiling, "checkpoint_step": cp.Step})
	}
	if err != nil {
		return nil, 0, e.annotate(err, ec.ThreadID, "")
	}

	for {
		if ec.Step >= ec.StepCeiling {
			return nil, ec.Step, &RecursionLimitError{ThreadID: ec.ThreadID, Limit: ec.StepCeiling, Node: current}
		}
		if err := ctx.Err(); err != nil {
			return nil, ec.Step, err
		}

		e.emit(*ec, current, emit.MsgNodeStart, nil)
		begin := time.Now()
		update, err := e.invoke(context.WithValue(ctx, execContextKey{}, *ec), current, state)
		latency := time.Since(begin)
		e.metrics.RecordStep(current, latency, err != nil)
		if err != nil {
			return nil, ec.Step, &StepExecutionError{ThreadID: ec.ThreadID, Node: current, Err: err}
		}

		merged, err := Merge(state, update, schema)
		if err != nil {
			return nil, ec.Step, e.annotate(err, ec.ThreadID, current)
		}

		target, err := e.def.next(current, merged)
		if err != nil {
			return nil, ec.Step, e.annotate(err, ec.ThreadID, current)
		}

		pending := target
		if target == End {
			pending = ""
		}
		err = e.store.Save(ctx, store.Checkpoint[State]{
			ThreadID:  ec.ThreadID,
			State:     merged,
			Step:      total + 1,
			Node:      current,
			Next:      pending,
			UpdatedAt: time.Now(),
		})
		if err != nil {
			return nil, ec.Step, &EngineError{Message: "failed to save checkpoint: " + err.Error(), Code: "STORE_ERROR", Cause: err}
		}
		e.metrics.CheckpointWritten()

		ec.Step++
		total++
		state = merged

		e.emit(*ec, current, emit.MsgNodeEnd, map[string]interface{}{"duration_ms": latency.Milliseconds()})
		e.emit(*ec, current, emit.MsgRoute, map[string]interface{}{"next": target})
		e.emit(*ec, current, emit.MsgCheckpointSaved, map[string]interface{}{"checkpoint_step": total})

		if target == End {
			return state.Clone(), ec.Step, nil
		}
		current = target
	}
}

// invoke runs a step on a private copy of state. A panicking step is
// reported as an error.
func (e *Engine) invoke(ctx context.Context, name string, state State) (update Update, err error) {
	defer func() {
		if r := recover(); r != nil {
			update = nil
			err = fmt.Errorf("step panicked: %v", r)
		}
	}()
	return e.def.nodes[name].Run(ctx, state.Clone())
}

// annotate fills in thread and node details on typed errors.
func (e *Engine) annotate(err error, threadID, node string) error {
	var mu *MalformedUpdateError
	if errors.As(err, &mu) && mu.Node == "" {
		mu.Node = node
	}
	var re *RoutingError
	if errors.As(err, &re) {
		re.ThreadID = threadID
	}
	return err
}

// Inspect returns the last checkpointed state of threadID without advancing
// execution. ok is false when the thread has no checkpoint.
func (e *Engine) Inspect(ctx context.Context, threadID string) (state State, ok bool, err error) {
	cp, ok, err := e.Checkpoint(ctx, threadID)
	if !ok || err != nil {
		return nil, ok, err
	}
	return cp.State, true, nil
}

// Checkpoint returns the full checkpoint of threadID, including the step
// counter, the last completed node and the pending node of an interrupted
// run.
func (e *Engine) Checkpoint(ctx context.Context, threadID string) (store.Checkpoint[State], bool, error) {
	cp, err := e.store.Load(ctx, threadID)
	if errors.Is(err, store.ErrNotFound) {
		return store.Checkpoint[State]{}, false, nil
	}
	if err != nil {
		return store.Checkpoint[State]{}, false, &EngineError{Message: "failed to load checkpoint: " + err.Error(), Code: "STORE_ERROR", Cause: err}
	}
	return cp, true, nil
}

// Threads lists the thread identifiers known to the store.
func (e *Engine) Threads(ctx context.Context) ([]string, error) {
	lister, ok := e.store.(store.Lister)
	if !ok {
		return nil, &EngineError{Message: "store cannot list threads", Code: "LIST_UNSUPPORTED"}
	}
	ids, err := lister.List(ctx)
	if err != nil {
		return nil, &EngineError{Message: "failed to list threads: " + err.Error(), Code: "STORE_ERROR", Cause: err}
	}
	return ids, nil
}

func (e *Engine) emit(ec ExecutionContext, node, msg string, meta map[string]interface{}) {
	e.emitter.Emit(emit.Event{
		ThreadID: ec.ThreadID,
		Step:     ec.Step,
		NodeID:   node,
		Msg:      msg,
		Meta:     meta,
	})
}

func outcomeOf(err error) string {
	var engineErr *EngineError
	switch {
	case err == nil:
		return OutcomeCompleted
	case errors.Is(err, ErrRecursionLimitExceeded):
		return OutcomeRecursionLimit
	case errors.Is(err, ErrRouting):
		return OutcomeRoutingError
	case errors.Is(err, ErrMalformedUpdate):
		return OutcomeMalformedUpdate
	case errors.Is(err, ErrStepExecution):
		return OutcomeStepError
	case errors.As(err, &engineErr):
		return OutcomeStoreError
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCancelled
	default:
		return OutcomeStepError
	}
}
