package google

import (
	"context"
	"errors"
	"testing"

	"github.com/google/generative-ai-go/genai"

	"github.com/dshills/threadgraph/graph/model"
)

type fakeGenerator struct {
	system  string
	history []*genai.Content
	prompt  string
	resp    *genai.GenerateContentResponse
	err     error
}

func (f *fakeGenerator) generate(_ context.Context, system string, history []*genai.Content, prompt string) (*genai.GenerateContentResponse, error) {
	f.system, f.history, f.prompt = system, history, prompt
	return f.resp, f.err
}

func textResponse(parts ...string) *genai.GenerateContentResponse {
	content := &genai.Content{Role: "model"}
	for _, p := range parts {
		content.Parts = append(content.Parts, genai.Text(p))
	}
	return &genai.GenerateContentResponse{
		Candidates:    []*genai.Candidate{{Content: content, FinishReason: genai.FinishReasonStop}},
		UsageMetadata: &genai.UsageMetadata{PromptTokenCount: 7, CandidatesTokenCount: 3},
	}
}

func TestChatModel_Chat(t *testing.T) {
	fake := &fakeGenerator{resp: textResponse("line one", "line two")}
	m := &ChatModel{gen: fake}

	out, err := m.Chat(context.Background(), []model.Message{
		{Role: model.RoleSystem, Content: "sys"},
		{Role: model.RoleUser, Content: "q1"},
		{Role: model.RoleAssistant, Content: "a1"},
		{Role: model.RoleUser, Content: "q2"},
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if out.Text != "line one\nline two" || out.InputTokens != 7 || out.OutputTokens != 3 {
		t.Errorf("out = %+v", out)
	}
	if fake.system != "sys" || fake.prompt != "q2" {
		t.Errorf("system = %q prompt = %q", fake.system, fake.prompt)
	}
	if len(fake.history) != 2 || fake.history[1].Role != "model" {
		t.Errorf("history = %+v", fake.history)
	}
}

func TestChatModel_SafetyBlock(t *testing.T) {
	fake := &fakeGenerator{resp: &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			FinishReason: genai.FinishReasonSafety,
			SafetyRatings: []*genai.SafetyRating{
				{Category: genai.HarmCategoryDangerousContent, Blocked: true},
			},
		}},
	}}
	m := &ChatModel{gen: fake}

	_, err := m.Chat(context.Background(), []model.Message{{Role: model.RoleUser, Content: "x"}})
	var safetyErr *SafetyFilterError
	if !errors.As(err, &safetyErr) {
		t.Fatalf("err = %v, want SafetyFilterError", err)
	}
	if safetyErr.Reason() != "SAFETY" || safetyErr.Category() == "" {
		t.Errorf("reason = %q category = %q", safetyErr.Reason(), safetyErr.Category())
	}
}

func TestChatModel_Errors(t *testing.T) {
	boom := errors.New("unavailable")
	m := &ChatModel{gen: &fakeGenerator{err: boom}}
	if _, err := m.Chat(context.Background(), []model.Message{{Role: model.RoleUser, Content: "x"}}); !errors.Is(err, boom) {
		t.Errorf("err = %v", err)
	}

	m = &ChatModel{gen: &fakeGenerator{resp: &genai.GenerateContentResponse{}}}
	if _, err := m.Chat(context.Background(), []model.Message{{Role: model.RoleUser, Content: "x"}}); err == nil {
		t.Error("empty response accepted")
	}

	if _, err := m.Chat(context.Background(), []model.Message{{Role: model.RoleSystem, Content: "x"}}); err == nil {
		t.Error("system-only conversation accepted")
	}
}

func TestNewChatModel_RequiresKey(t *testing.T) {
	if _, err := NewChatModel(context.Background(), "", ""); err == nil {
		t.Error("empty key accepted")
	}
}
