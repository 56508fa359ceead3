package assistant

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dshills/threadgraph/graph"
	"github.com/dshills/threadgraph/graph/model"
)

const synthesisPrompt = `Write a professional, coherent summary of the research findings for %s.
Answer the user's question if possible, or give a general overview if the question was broad.

Findings: %s`

// exhaustedNote is added to the prompt when research never reached a
// sufficient verdict.
const exhaustedNote = "\n\nThe findings may be incomplete. Say so briefly."

// SynthesisNode writes the answer for the turn and appends it to the
// conversation. A model failure fails the step.
type SynthesisNode struct {
	Model model.ChatModel
}

// Run implements graph.Node.
func (n *SynthesisNode) Run(ctx context.Context, state graph.State) (graph.Update, error) {
	findings, err := json.Marshal(state[FieldResearchFindings])
	if err != nil {
		return nil, fmt.Errorf("encode findings: %w", err)
	}
	system := fmt.Sprintf(synthesisPrompt, state.String(FieldCompanyName), findings)
	if state.Bool(FieldResearchExhausted) {
		system += exhaustedNote
	}

	out, err := n.Model.Chat(ctx, []model.Message{
		{Role: model.RoleSystem, Content: system},
		{Role: model.RoleUser, Content: state.String(FieldQuery)},
	})
	if err != nil {
		return nil, fmt.Errorf("synthesis: %w", err)
	}

	return graph.Update{
		FieldMessages: []model.Message{{Role: model.RoleAssistant, Content: out.Text}},
		FieldSummary:  out.Text,
	}, nil
}
