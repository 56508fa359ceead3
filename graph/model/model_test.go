package model

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSplitSystem(t *testing.T) {
	system, rest := SplitSystem([]Message{
		{Role: RoleSystem, Content: "a"},
		{Role: RoleUser, Content: "hi"},
		{Role: RoleSystem, Content: "b"},
		{Role: RoleAssistant, Content: "hello"},
	})
	if system != "a\n\nb" {
		t.Errorf("system = %q", system)
	}
	if len(rest) != 2 || rest[0].Role != RoleUser || rest[1].Role != RoleAssistant {
		t.Errorf("rest = %+v", rest)
	}
}

func TestMockChatModel(t *testing.T) {
	ctx := context.Background()

	t.Run("responses advance then repeat", func(t *testing.T) {
		m := &MockChatModel{Responses: []ChatOut{{Text: "one"}, {Text: "two"}}}
		var got []string
		for i := 0; i < 3; i++ {
			out, err := m.Chat(ctx, nil)
			if err != nil {
				t.Fatal(err)
			}
			got = append(got, out.Text)
		}
		if got[0] != "one" || got[1] != "two" || got[2] != "two" {
			t.Errorf("replies = %v", got)
		}
		if m.CallCount() != 3 {
			t.Errorf("CallCount = %d", m.CallCount())
		}
		m.Reset()
		if out, _ := m.Chat(ctx, nil); out.Text != "one" {
			t.Errorf("after Reset got %q", out.Text)
		}
	})

	t.Run("error", func(t *testing.T) {
		boom := errors.New("boom")
		m := &MockChatModel{Err: boom}
		if _, err := m.Chat(ctx, []Message{{Role: RoleUser, Content: "x"}}); !errors.Is(err, boom) {
			t.Errorf("err = %v", err)
		}
		if len(m.Calls) != 1 || m.Calls[0][0].Content != "x" {
			t.Errorf("Calls = %v", m.Calls)
		}
	})

	t.Run("respond func", func(t *testing.T) {
		m := &MockChatModel{Respond: func(msgs []Message) (ChatOut, error) {
			return ChatOut{Text: msgs[len(msgs)-1].Content + "!"}, nil
		}}
		out, _ := m.Chat(ctx, []Message{{Role: RoleUser, Content: "hey"}})
		if out.Text != "hey!" {
			t.Errorf("Text = %q", out.Text)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		m := &MockChatModel{}
		if _, err := m.Chat(cctx, nil); !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v", err)
		}
		if m.CallCount() != 0 {
			t.Error("cancelled call was recorded")
		}
	})
}

func TestOffline(t *testing.T) {
	out, err := Offline{}.Chat(context.Background(), []Message{
		{Role: RoleSystem, Content: "sys"},
		{Role: RoleUser, Content: " first "},
		{Role: RoleAssistant, Content: "reply"},
		{Role: RoleUser, Content: " tell me about Tesla "},
	})
	if err != nil {
		t.Fatal(err)
	}
	if out.Text != "[offline] tell me about Tesla" {
		t.Errorf("Text = %q", out.Text)
	}
	if out.InputTokens != 4 {
		t.Errorf("InputTokens = %d", out.InputTokens)
	}
}

type flaky struct {
	errs  []error
	calls int
}

func (f *flaky) Chat(context.Context, []Message) (ChatOut, error) {
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return ChatOut{}, err
	}
	return ChatOut{Text: "ok"}, nil
}

func TestRetrying(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		errs      []error
		wantCalls int
		wantErr   bool
	}{
		{"success first try", nil, 1, false},
		{"transient then success", []error{errors.New("503 unavailable"), errors.New("connection reset")}, 3, false},
		{"permanent", []error{errors.New("invalid api key")}, 1, true},
		{"exhausted", []error{errors.New("timeout"), errors.New("timeout"), errors.New("timeout")}, 3, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &flaky{errs: tt.errs}
			r := &Retrying{Model: f, MaxRetries: 2, Delay: time.Millisecond}
			out, err := r.Chat(ctx, nil)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && out.Text != "ok" {
				t.Errorf("Text = %q", out.Text)
			}
			if f.calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", f.calls, tt.wantCalls)
			}
		})
	}
}

func TestIsTransient(t *testing.T) {
	if IsTransient(nil) || IsTransient(context.Canceled) {
		t.Error("nil or cancellation reported transient")
	}
	if !IsTransient(context.DeadlineExceeded) || !IsTransient(errors.New("429 Too Many Requests")) {
		t.Error("deadline or rate limit not transient")
	}
}
