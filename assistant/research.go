package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"go.uber.org/zap"

	"github.com/dshills/threadgraph/graph"
	"github.com/dshills/threadgraph/graph/model"
)

const researchPrompt = `You have retrieved raw data about a company. Analyze it and extract the key findings. Assign a confidence score from 0 to 10 for how completely the data answers general business questions (news, stock, developments).

Raw data: %s

Reply with a JSON object:
- "findings": a structured summary of the data
- "confidence_score": an integer from 0 to 10`

// defaultConfidence is used when the model's reply cannot be read.
const defaultConfidence = 5

type researchReply struct {
	Findings        any `json:"findings"`
	ConfidenceScore any `json:"confidence_score"`
}

// ResearchNode gathers findings for the selected company and scores how
// complete they are. Every pass counts as one attempt.
type ResearchNode struct {
	Model     model.ChatModel
	Directory *Directory
	Logger    *zap.Logger
}

// Run implements graph.Node.
func (n *ResearchNode) Run(ctx context.Context, state graph.State) (graph.Update, error) {
	company := state.String(FieldCompanyName)
	attempts := state.Int(FieldAttempts) + 1

	profile, ok := n.Directory.Lookup(company)
	if !ok {
		return graph.Update{
			FieldResearchFindings: map[string]any{"error": "No data found for " + company},
			FieldConfidenceScore:  0,
			FieldValidationResult: ResultInsufficient,
			FieldAttempts:         attempts,
		}, nil
	}

	raw, err := json.Marshal(profile)
	if err != nil {
		return nil, fmt.Errorf("encode profile: %w", err)
	}

	update := graph.Update{
		FieldResearchFindings: profile,
		FieldConfidenceScore:  defaultConfidence,
		FieldAttempts:         attempts,
	}

	out, err := n.Model.Chat(ctx, []model.Message{
		{Role: model.RoleSystem, Content: fmt.Sprintf(researchPrompt, raw)},
		{Role: model.RoleUser, Content: "Analyze data for " + company},
	})
	if err != nil {
		logger(n.Logger).Warn("research model call failed, using raw data", zap.String("company", company), zap.Error(err))
		return update, nil
	}

	var reply researchReply
	if err := decodeReply(out.Text, &reply); err != nil {
		logger(n.Logger).Debug("research reply not understood", zap.Error(err))
		return update, nil
	}
	if reply.Findings != nil {
		update[FieldResearchFindings] = reply.Findings
	}
	if score, ok := confidence(reply.ConfidenceScore); ok {
		update[FieldConfidenceScore] = score
	}
	return update, nil
}

// confidence reads a 0-10 score given as a number or numeric string.
func confidence(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case string:
		parsed, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) {
		return 0, false
	}
	return math.Max(0, math.Min(10, f)), true
}
