package store_test

import (
	"context"
	"testing"

	"github.com/dshills/threadgraph/graph/store"
)

func TestMemStore_Contract(t *testing.T) {
	runContract(t, store.NewMemStore[state]())
}

func TestMemStore_LoadReturnsIndependentCopy(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemStore[state]()

	original := state{"messages": []any{"a"}}
	if err := st.Save(ctx, store.Checkpoint[state]{ThreadID: "t", State: original}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	original["messages"] = append(original["messages"].([]any), "b")

	first, _ := st.Load(ctx, "t")
	first.State["messages"] = []any{"mutated"}

	second, err := st.Load(ctx, "t")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	msgs := second.State["messages"].([]any)
	if len(msgs) != 1 || msgs[0] != "a" {
		t.Errorf("stored messages = %v, want [a]", msgs)
	}
	if st.Len() != 1 {
		t.Errorf("Len() = %d, want 1", st.Len())
	}
}

func TestMemStore_UnserializableState(t *testing.T) {
	st := store.NewMemStore[state]()
	err := st.Save(context.Background(), store.Checkpoint[state]{ThreadID: "t", State: state{"ch": make(chan int)}})
	if err == nil {
		t.Fatal("Save of a channel succeeded")
	}
}
