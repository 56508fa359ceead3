package anthropic

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/dshills/threadgraph/graph/model"
)

func TestChatModel_Chat(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/v1/messages") {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("X-Api-Key"); got != "key" {
			t.Errorf("X-Api-Key = %q", got)
		}
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &body)

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-3-5-haiku-latest",
			"content": [{"type": "text", "text": "Apple "}, {"type": "text", "text": "is fine."}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 9, "output_tokens": 4}
		}`)
	}))
	defer srv.Close()

	m, err := NewChatModel("key", "", option.WithBaseURL(srv.URL+"/"), option.WithMaxRetries(0))
	if err != nil {
		t.Fatal(err)
	}

	out, err := m.Chat(context.Background(), []model.Message{
		{Role: model.RoleSystem, Content: "analyst"},
		{Role: model.RoleUser, Content: "Apple?"},
		{Role: model.RoleAssistant, Content: "Which one?"},
		{Role: model.RoleUser, Content: "Apple Inc."},
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if out.Text != "Apple is fine." || out.InputTokens != 9 || out.OutputTokens != 4 {
		t.Errorf("out = %+v", out)
	}

	msgs, _ := body["messages"].([]any)
	if len(msgs) != 3 {
		t.Fatalf("messages = %v", body["messages"])
	}
	if role := msgs[1].(map[string]any)["role"]; role != "assistant" {
		t.Errorf("second role = %v", role)
	}
	if body["system"] == nil {
		t.Error("system prompt not sent")
	}
}

func TestChatModel_OnlySystem(t *testing.T) {
	m, _ := NewChatModel("key", "x")
	if _, err := m.Chat(context.Background(), []model.Message{{Role: model.RoleSystem, Content: "s"}}); err == nil {
		t.Error("expected error without user message")
	}
}

func TestNewChatModel_RequiresKey(t *testing.T) {
	if _, err := NewChatModel("", ""); err == nil {
		t.Error("empty key accepted")
	}
}
