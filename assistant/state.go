// Package assistant is a multi-stage company research assistant built on
// the graph engine. A turn runs clarity, research, validator and synthesis
// steps over a thread's conversation.
package assistant

import (
	"github.com/dshills/threadgraph/graph"
	"github.com/dshills/threadgraph/graph/model"
)

// State field names.
const (
	FieldMessages           = "messages"
	FieldQuery              = "query"
	FieldClarityStatus      = "clarity_status"
	FieldCompanyName        = "company_name"
	FieldResearchFindings   = "research_findings"
	FieldConfidenceScore    = "confidence_score"
	FieldValidationResult   = "validation_result"
	FieldValidationFeedback = "validation_feedback"
	FieldAttempts           = "attempts"
	FieldSummary            = "summary"
	FieldResearchExhausted  = "research_exhausted"
)

// Field values.
const (
	StatusClear              = "clear"
	StatusNeedsClarification = "needs_clarification"

	ResultSufficient   = "sufficient"
	ResultInsufficient = "insufficient"
)

// MaxAttempts is the number of research passes after which the workflow
// moves on to synthesis even when validation is still insufficient.
const MaxAttempts = 3

// View is a typed read of the assistant state.
type View struct {
	Messages           []model.Message `mapstructure:"messages"`
	Query              string          `mapstructure:"query"`
	ClarityStatus      string          `mapstructure:"clarity_status"`
	CompanyName        string          `mapstructure:"company_name"`
	ResearchFindings   any             `mapstructure:"research_findings"`
	ConfidenceScore    float64         `mapstructure:"confidence_score"`
	ValidationResult   string          `mapstructure:"validation_result"`
	ValidationFeedback string          `mapstructure:"validation_feedback"`
	Attempts           int             `mapstructure:"attempts"`
	Summary            string          `mapstructure:"summary"`
	ResearchExhausted  bool            `mapstructure:"research_exhausted"`
}

// ViewOf decodes s into a View.
func ViewOf(s graph.State) (View, error) {
	var v View
	err := s.Decode(&v)
	return v, err
}

// conversation returns the messages recorded in s.
func conversation(s graph.State) ([]model.Message, error) {
	var v struct {
		Messages []model.Message `mapstructure:"messages"`
	}
	if err := s.Decode(&v); err != nil {
		return nil, err
	}
	return v.Messages, nil
}

// TurnInput is the update that starts a new conversation turn: the user's
// message plus a reset of the per-turn research fields. The attempt counter
// is per turn so a long conversation never starts with its budget spent.
func TurnInput(text string) graph.Update {
	return graph.Update{
		FieldMessages:           []model.Message{{Role: model.RoleUser, Content: text}},
		FieldAttempts:           0,
		FieldResearchFindings:   nil,
		FieldConfidenceScore:    nil,
		FieldValidationResult:   nil,
		FieldValidationFeedback: nil,
		FieldSummary:            nil,
		FieldResearchExhausted:  false,
	}
}
