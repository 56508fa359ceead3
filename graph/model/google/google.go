// Package google adapts the Gemini API to model.ChatModel.
package google

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/dshills/threadgraph/graph/model"
)

// DefaultModel is used when no model name is configured.
const DefaultModel = "gemini-2.5-flash"

// generator is the slice of the Gemini SDK the adapter uses.
type generator interface {
	generate(ctx context.Context, system string, history []*genai.Content, prompt string) (*genai.GenerateContentResponse, error)
}

// ChatModel implements model.ChatModel for Gemini. Earlier turns are sent
// as chat history, the last user message as the prompt.
type ChatModel struct {
	gen generator
}

// NewChatModel creates a ChatModel. Extra client options are passed to
// genai.NewClient. Close releases the underlying client.
func NewChatModel(ctx context.Context, apiKey, modelName string, opts ...option.ClientOption) (*ChatModel, error) {
	if apiKey == "" {
		return nil, errors.New("google API key is required")
	}
	if modelName == "" {
		modelName = DefaultModel
	}

	client, err := genai.NewClient(ctx, append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Google client: %w", err)
	}
	return &ChatModel{gen: &sdkGenerator{client: client, modelName: modelName}}, nil
}

// Chat implements model.ChatModel.
func (m *ChatModel) Chat(ctx context.Context, messages []model.Message) (model.ChatOut, error) {
	if err := ctx.Err(); err != nil {
		return model.ChatOut{}, err
	}

	system, rest := model.SplitSystem(messages)
	if len(rest) == 0 {
		return model.ChatOut{}, errors.New("google: at least one non-system message is required")
	}
	history, prompt := convertHistory(rest)

	resp, err := m.gen.generate(ctx, system, history, prompt)
	if err != nil {
		return model.ChatOut{}, fmt.Errorf("google: %w", err)
	}
	return convertResponse(resp)
}

// Close releases the Gemini client.
func (m *ChatModel) Close() error {
	if g, ok := m.gen.(*sdkGenerator); ok {
		return g.client.Close()
	}
	return nil
}

type sdkGenerator struct {
	client    *genai.Client
	modelName string
}

func (g *sdkGenerator) generate(ctx context.Context, system string, history []*genai.Content, prompt string) (*genai.GenerateContentResponse, error) {
	gm := g.client.GenerativeModel(g.modelName)
	if system != "" {
		gm.SystemInstruction = genai.NewUserContent(genai.Text(system))
	}
	session := gm.StartChat()
	session.History = history
	return session.SendMessage(ctx, genai.Text(prompt))
}

// convertHistory splits messages into Gemini chat history and the final
// prompt. Gemini calls the assistant role "model".
func convertHistory(messages []model.Message) ([]*genai.Content, string) {
	last := messages[len(messages)-1]
	history := make([]*genai.Content, 0, len(messages)-1)
	for _, msg := range messages[:len(messages)-1] {
		role := "user"
		if msg.Role == model.RoleAssistant {
			role = "model"
		}
		history = append(history, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(msg.Content)}})
	}
	return history, last.Content
}

func convertResponse(resp *genai.GenerateContentResponse) (model.ChatOut, error) {
	out := model.ChatOut{}
	if resp == nil || len(resp.Candidates) == 0 {
		if resp != nil && resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockReasonUnspecified {
			return out, &SafetyFilterError{reason: resp.PromptFeedback.BlockReason.String()}
		}
		return out, errors.New("google: response has no candidates")
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		category := ""
		for _, r := range candidate.SafetyRatings {
			if r.Blocked {
				category = r.Category.String()
				break
			}
		}
		return out, &SafetyFilterError{reason: "SAFETY", category: category}
	}

	if candidate.Content != nil {
		var texts []string
		for _, part := range candidate.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				texts = append(texts, string(text))
			}
		}
		out.Text = strings.Join(texts, "\n")
	}
	if resp.UsageMetadata != nil {
		out.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		out.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	return out, nil
}

// SafetyFilterError reports a reply blocked by Gemini's safety filters.
//
//	var safetyErr *google.SafetyFilterError
//	if errors.As(err, &safetyErr) {
//	    log.Printf("content blocked: %s", safetyErr.Category())
//	}
type SafetyFilterError struct {
	reason   string
	category string
}

func (e *SafetyFilterError) Error() string {
	if e.category == "" {
		return "content blocked by safety filter: " + e.reason
	}
	return "content blocked by safety filter: " + e.category
}

// Category returns the harm category that triggered the block, if known.
func (e *SafetyFilterError) Category() string { return e.category }

// Reason returns the block reason reported by the API.
func (e *SafetyFilterError) Reason() string { return e.reason }
