package assistant

import (
	"errors"

	"go.uber.org/zap"

	"github.com/dshills/threadgraph/graph"
	"github.com/dshills/threadgraph/graph/model"
)

// Node names.
const (
	NodeClarity   = "clarity"
	NodeResearch  = "research"
	NodeValidator = "validator"
	NodeSynthesis = "synthesis"
)

// Options configures NewWorkflow.
type Options struct {
	// Directory is the company catalog. Nil selects DefaultDirectory.
	Directory *Directory

	// Logger receives step diagnostics. Nil discards them.
	Logger *zap.Logger
}

// NewWorkflow builds the research assistant graph:
//
//	clarity ──clear──▶ research ──▶ validator ──sufficient or attempts ≥ 3──▶ synthesis ──▶ end
//	   │                  ▲              │
//	   └─unclear─▶ end    └──insufficient┘
func NewWorkflow(m model.ChatModel, opts Options) (*graph.Definition, error) {
	if m == nil {
		return nil, errors.New("assistant: chat model is required")
	}
	dir := opts.Directory
	if dir == nil {
		dir = DefaultDirectory()
	}
	log := logger(opts.Logger).Named("assistant")

	return graph.NewBuilder().
		Field(FieldMessages, graph.Accumulate).
		Default(FieldAttempts, 0).
		Default(FieldResearchExhausted, false).
		AddNode(NodeClarity, &ClarityNode{Model: m, Directory: dir, Logger: log}).
		AddNode(NodeResearch, &ResearchNode{Model: m, Directory: dir, Logger: log}).
		AddNode(NodeValidator, &ValidatorNode{Model: m, Logger: log}).
		AddNode(NodeSynthesis, &SynthesisNode{Model: m}).
		SetEntry(NodeClarity).
		AddConditionalEdge(NodeClarity, RouteClarity, NodeResearch, graph.End).
		AddEdge(NodeResearch, NodeValidator).
		AddConditionalEdge(NodeValidator, RouteValidator, NodeSynthesis, NodeResearch).
		AddEdge(NodeSynthesis, graph.End).
		Build()
}

// RouteClarity sends a clear request to research and ends the turn
// otherwise.
func RouteClarity(s graph.State) string {
	if s.String(FieldClarityStatus) == StatusClear {
		return NodeResearch
	}
	return graph.End
}

// RouteValidator loops back to research until the findings are sufficient
// or MaxAttempts passes have been made.
func RouteValidator(s graph.State) string {
	if s.String(FieldValidationResult) == ResultSufficient || s.Int(FieldAttempts) >= MaxAttempts {
		return NodeSynthesis
	}
	return NodeResearch
}
