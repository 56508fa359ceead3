// Package store provides checkpoint persistence for workflow threads.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a thread has no checkpoint.
var ErrNotFound = errors.New("not found")

// Checkpoint is the durable record of one thread: the latest state plus the
// bookkeeping needed to resume.
type Checkpoint[S any] struct {
	ThreadID string `json:"thread_id"`

	// State is the state after the last successful step.
	State S `json:"state"`

	// Step counts every step ever completed on the thread, across runs.
	Step int `json:"step"`

	// Node is the node whose output State reflects.
	Node string `json:"node"`

	// Next is the node routing selected after Node. It is empty once a run
	// reached the terminal sentinel; a non-empty value means the last run
	// stopped before finishing.
	Next string `json:"next,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// Store maps a thread identifier to its latest checkpoint.
//
// Implementations must make Save atomic with respect to Load for the same
// thread (a reader sees the previous checkpoint or the new one, never a mix)
// and must not serialize operations on distinct threads against each other.
type Store[S any] interface {
	// Load returns the checkpoint of threadID, or ErrNotFound.
	Load(ctx context.Context, threadID string) (Checkpoint[S], error)

	// Save replaces the checkpoint of cp.ThreadID.
	Save(ctx context.Context, cp Checkpoint[S]) error
}

// Lister is implemented by stores that can enumerate their threads.
type Lister interface {
	// List returns the known thread identifiers in ascending order.
	List(ctx context.Context) ([]string, error)
}

// record is the serialized form shared by every backend.
type record struct {
	ThreadID  string
	Step      int
	Node      string
	Next      string
	State     []byte
	UpdatedAt time.Time
}

func encode[S any](cp Checkpoint[S]) (record, error) {
	if cp.ThreadID == "" {
		return record{}, errors.New("checkpoint has an empty thread id")
	}
	data, err := json.Marshal(cp.State)
	if err != nil {
		return record{}, fmt.Errorf("marshal state: %w", err)
	}
	updated := cp.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	return record{
		ThreadID:  cp.ThreadID,
		Step:      cp.Step,
		Node:      cp.Node,
		Next:      cp.Next,
		State:     data,
		UpdatedAt: updated.UTC(),
	}, nil
}

func decode[S any](r record) (Checkpoint[S], error) {
	var cp Checkpoint[S]
	if err := json.Unmarshal(r.State, &cp.State); err != nil {
		return cp, fmt.Errorf("unmarshal state of thread %s: %w", r.ThreadID, err)
	}
	cp.ThreadID = r.ThreadID
	cp.Step = r.Step
	cp.Node = r.Node
	cp.Next = r.Next
	cp.UpdatedAt = r.UpdatedAt
	return cp, nil
}
