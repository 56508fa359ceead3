package assistant

import (
	"context"
	"errors"
	"strings"

	"github.com/dshills/threadgraph/graph"
	"github.com/dshills/threadgraph/graph/model"
)

var (
	// ErrEmptyMessage is returned by Session.Ask for a blank message.
	ErrEmptyMessage = errors.New("assistant: message is empty")

	// ErrNoConversation is returned by Session.Resume on a thread that has
	// never run.
	ErrNoConversation = errors.New("assistant: thread has no conversation to resume")

	// ErrNoInterruptedTurn is returned by Session.Resume when the thread's
	// last turn finished. A turn that failed before its first step
	// completed leaves nothing to resume; its message must be sent again.
	ErrNoInterruptedTurn = errors.New("assistant: thread has no interrupted turn")
)

// Session is a conversation bound to one thread of an engine.
type Session struct {
	engine   *graph.Engine
	threadID string
	opts     []graph.RunOption
}

// NewSession binds a conversation to threadID. opts apply to every turn.
func NewSession(engine *graph.Engine, threadID string, opts ...graph.RunOption) *Session {
	return &Session{engine: engine, threadID: threadID, opts: opts}
}

// ThreadID returns the thread the session writes to.
func (s *Session) ThreadID() string { return s.threadID }

// Ask runs one turn with the user's message and returns the reply and the
// final state of the turn.
func (s *Session) Ask(ctx context.Context, text string) (string, graph.State, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil, ErrEmptyMessage
	}
	final, err := s.engine.Run(ctx, s.threadID, TurnInput(text), s.opts...)
	if err != nil {
		return "", nil, err
	}
	return Reply(final), final, nil
}

// Resume continues a turn that stopped after at least one completed step,
// for example after a step error or a cancelled context.
func (s *Session) Resume(ctx context.Context) (string, graph.State, error) {
	cp, ok, err := s.engine.Checkpoint(ctx, s.threadID)
	if err != nil {
		return "", nil, err
	}
	if !ok {
		return "", nil, ErrNoConversation
	}
	if cp.Next == "" {
		return "", nil, ErrNoInterruptedTurn
	}
	final, err := s.engine.Run(ctx, s.threadID, nil, s.opts...)
	if err != nil {
		return "", nil, err
	}
	return Reply(final), final, nil
}

// Interrupted reports whether the thread has a turn that Resume can
// continue.
func (s *Session) Interrupted(ctx context.Context) (bool, error) {
	cp, ok, err := s.engine.Checkpoint(ctx, s.threadID)
	if err != nil || !ok {
		return false, err
	}
	return cp.Next != "", nil
}

// History returns the conversation recorded for the thread.
func (s *Session) History(ctx context.Context) ([]model.Message, error) {
	state, ok, err := s.engine.Inspect(ctx, s.threadID)
	if err != nil || !ok {
		return nil, err
	}
	return conversation(state)
}
