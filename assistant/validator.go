package assistant

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/dshills/threadgraph/graph"
	"github.com/dshills/threadgraph/graph/model"
)

const validatorPrompt = `Review the research findings.

Findings: %s
Current confidence: %v

Is this information sufficient for a comprehensive summary? Reply with a JSON object:
- "validation_result": "sufficient" or "insufficient"
- "feedback": what is missing, if insufficient`

// sufficientConfidence is the research confidence that counts as sufficient
// when the model's verdict cannot be read.
const sufficientConfidence = 6

type validatorReply struct {
	ValidationResult string `json:"validation_result"`
	Feedback         string `json:"feedback"`
}

// ValidatorNode judges whether the findings support a summary. When the
// attempt budget is spent without a sufficient verdict it records
// research_exhausted; the workflow then proceeds to synthesis anyway.
type ValidatorNode struct {
	Model  model.ChatModel
	Logger *zap.Logger
}

// Run implements graph.Node.
func (n *ValidatorNode) Run(ctx context.Context, state graph.State) (graph.Update, error) {
	findings, err := json.Marshal(state[FieldResearchFindings])
	if err != nil {
		return nil, fmt.Errorf("encode findings: %w", err)
	}
	score := state.Float(FieldConfidenceScore)

	result := ResultInsufficient
	if score >= sufficientConfidence {
		result = ResultSufficient
	}
	feedback := ""

	out, err := n.Model.Chat(ctx, []model.Message{
		{Role: model.RoleSystem, Content: fmt.Sprintf(validatorPrompt, findings, score)},
		{Role: model.RoleUser, Content: "Validate research."},
	})
	switch {
	case err != nil:
		logger(n.Logger).Warn("validator model call failed, using confidence", zap.Float64("confidence", score), zap.Error(err))
	default:
		var reply validatorReply
		if perr := decodeReply(out.Text, &reply); perr != nil {
			logger(n.Logger).Debug("validator reply not understood", zap.Error(perr))
			break
		}
		result = ResultInsufficient
		if reply.ValidationResult == ResultSufficient {
			result = ResultSufficient
		}
		feedback = reply.Feedback
	}

	return graph.Update{
		FieldValidationResult:   result,
		FieldValidationFeedback: feedback,
		FieldResearchExhausted:  result != ResultSufficient && state.Int(FieldAttempts) >= MaxAttempts,
	}, nil
}
