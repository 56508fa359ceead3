package model

import (
	"context"
	"strings"
)

// Offline is a deterministic ChatModel that needs no network. It answers
// with the content of the last user message, prefixed with "[offline] ".
// The reply is never JSON, so callers that expect structured output take
// their fallback paths.
type Offline struct{}

// Chat implements ChatModel.
func (Offline) Chat(ctx context.Context, messages []Message) (ChatOut, error) {
	if err := ctx.Err(); err != nil {
		return ChatOut{}, err
	}

	var last string
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleUser {
			last = messages[i].Content
			break
		}
	}
	text := "[offline] " + strings.TrimSpace(last)
	return ChatOut{Text: text, InputTokens: len(strings.Fields(last)), OutputTokens: len(strings.Fields(text))}, nil
}
