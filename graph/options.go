package graph

import (
	"errors"

	"go.uber.org/zap"

	"github.com/dshills/threadgraph/graph/emit"
)

// DefaultStepCeiling is the step ceiling of an engine built without
// WithStepCeiling.
const DefaultStepCeiling = 25

// Option configures an Engine.
//
//	engine, err := graph.New(def, st,
//	    graph.WithStepCeiling(50),
//	    graph.WithEmitter(emit.NewZapEmitter(logger)),
//	    graph.WithMetrics(metrics),
//	)
type Option func(*engineConfig) error

type engineConfig struct {
	ceiling int
	emitter emit.Emitter
	metrics *PrometheusMetrics
	logger  *zap.Logger
}

// WithStepCeiling sets the default maximum number of steps one Run call may
// perform. Reaching it fails the run with a *RecursionLimitError. The
// ceiling counts steps of the current invocation only; steps from earlier
// runs of the same thread do not count against it.
func WithStepCeiling(n int) Option {
	return func(cfg *engineConfig) error {
		if n <= 0 {
			return errors.New("step ceiling must be positive")
		}
		cfg.ceiling = n
		return nil
	}
}

// WithEmitter sends execution events to e. Use emit.Multi to fan out.
func WithEmitter(e emit.Emitter) Option {
	return func(cfg *engineConfig) error {
		cfg.emitter = e
		return nil
	}
}

// WithMetrics records Prometheus metrics.
func WithMetrics(m *PrometheusMetrics) Option {
	return func(cfg *engineConfig) error {
		cfg.metrics = m
		return nil
	}
}

// WithLogger sets the engine's logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(cfg *engineConfig) error {
		if l == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = l
		return nil
	}
}

// RunOption adjusts a single Run call.
type RunOption func(*ExecutionContext)

// WithCeiling overrides the engine's step ceiling for one call.
func WithCeiling(n int) RunOption {
	return func(ec *ExecutionContext) {
		ec.StepCeiling = n
	}
}
