package graph

import (
	"context"
	"errors"

	"github.com/dshills/threadgraph/graph/store"
)

func errorsAs(err error, target any) bool { return errors.As(err, target) }

// recordingStore wraps a MemStore and lets tests fail saves on demand.
type recordingStore struct {
	*store.MemStore[State]
	saves   int
	failOn  int
	saveErr error
	loadErr error
}

func newRecordingStore() *recordingStore {
	return &recordingStore{MemStore: store.NewMemStore[State]()}
}

func (r *recordingStore) Load(ctx context.Context, threadID string) (store.Checkpoint[State], error) {
	if r.loadErr != nil {
		return store.Checkpoint[State]{}, r.loadErr
	}
	return r.MemStore.Load(ctx, threadID)
}

func (r *recordingStore) Save(ctx context.Context, cp store.Checkpoint[State]) error {
	r.saves++
	if r.failOn > 0 && r.saves == r.failOn {
		return r.saveErr
	}
	return r.MemStore.Save(ctx, cp)
}
