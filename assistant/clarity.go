package assistant

import (
	"context"

	"go.uber.org/zap"

	"github.com/dshills/threadgraph/graph"
	"github.com/dshills/threadgraph/graph/model"
)

const clarityPrompt = `You check whether the user's request names a specific company, or whether the company is clear from the conversation.

If the latest user message does not mention a company, use the most recent company mentioned in an earlier user message. Answer "needs_clarification" only when no company can be inferred.

Reply with a JSON object:
- "clarity_status": "clear" or "needs_clarification"
- "company_name": the company, or null
- "reason": a short explanation

Examples:
User: "Tell me about Apple"
{"clarity_status": "clear", "company_name": "Apple", "reason": "Company explicitly named."}

User: "How is the stock doing?" (no earlier context)
{"clarity_status": "needs_clarification", "company_name": null, "reason": "No company specified."}`

type clarityReply struct {
	ClarityStatus string  `json:"clarity_status"`
	CompanyName   *string `json:"company_name"`
	Reason        string  `json:"reason"`
}

// ClarityNode decides whether the latest user message identifies a company.
//
// A company from the directory named in the message settles it without a
// model call. Otherwise the model is asked, and when it cannot name one
// either, earlier user messages are searched newest first.
type ClarityNode struct {
	Model     model.ChatModel
	Directory *Directory
	Logger    *zap.Logger
}

// Run implements graph.Node.
func (n *ClarityNode) Run(ctx context.Context, state graph.State) (graph.Update, error) {
	msgs, err := conversation(state)
	if err != nil {
		return nil, err
	}
	last := -1
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == model.RoleUser {
			last = i
			break
		}
	}
	if last < 0 {
		return clarity(StatusNeedsClarification, "", ""), nil
	}
	query := msgs[last].Content

	if name, ok := n.Directory.Mention(query); ok {
		return clarity(StatusClear, name, query), nil
	}

	status, company := StatusNeedsClarification, ""
	out, err := n.Model.Chat(ctx, append([]model.Message{{Role: model.RoleSystem, Content: clarityPrompt}}, msgs...))
	if err == nil {
		var reply clarityReply
		if perr := decodeReply(out.Text, &reply); perr == nil {
			if reply.ClarityStatus == StatusClear {
				status = StatusClear
			}
			if reply.CompanyName != nil {
				company = *reply.CompanyName
			}
		} else {
			logger(n.Logger).Debug("clarity reply not understood", zap.Error(perr))
		}
	} else {
		logger(n.Logger).Warn("clarity model call failed", zap.Error(err))
	}

	if status != StatusClear || company == "" {
		status, company = StatusNeedsClarification, ""
		for i := last - 1; i >= 0; i-- {
			if msgs[i].Role != model.RoleUser {
				continue
			}
			if name, ok := n.Directory.Mention(msgs[i].Content); ok {
				status, company = StatusClear, name
				break
			}
		}
	}
	return clarity(status, company, query), nil
}

func clarity(status, company, query string) graph.Update {
	return graph.Update{
		FieldClarityStatus: status,
		FieldCompanyName:   company,
		FieldQuery:         query,
	}
}

func logger(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
