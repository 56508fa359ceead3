// Package model provides the chat-model abstraction used by step functions
// and adapters for hosted model providers.
package model

import (
	"context"
	"strings"
)

// ChatModel sends a conversation to a language model and returns its reply.
//
// Implementations convert Message to the provider format, respect context
// cancellation and report token usage when the provider returns it.
//
//	out, err := m.Chat(ctx, []model.Message{
//	    {Role: model.RoleSystem, Content: "You are a financial research assistant."},
//	    {Role: model.RoleUser, Content: "Tell me about Tesla"},
//	})
type ChatModel interface {
	Chat(ctx context.Context, messages []Message) (ChatOut, error)
}

// Message is one turn of a conversation.
//
// The json and mapstructure tags give messages a stable shape when they are
// stored in workflow state.
type Message struct {
	Role    string `json:"role" mapstructure:"role"`
	Content string `json:"content" mapstructure:"content"`
}

// Standard roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatOut is a model reply.
type ChatOut struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

// SplitSystem separates system messages from the conversation. Providers
// that take the system prompt as a separate parameter use it.
func SplitSystem(messages []Message) (system string, rest []Message) {
	var parts []string
	for _, m := range messages {
		if m.Role == RoleSystem {
			parts = append(parts, m.Content)
			continue
		}
		rest = append(rest, m)
	}
	return strings.Join(parts, "\n\n"), rest
}
