package store_test

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/threadgraph/graph/store"
)

type state = map[string]any

// runContract exercises the behavior every Store implementation shares.
func runContract(t *testing.T, st store.Store[state]) {
	t.Helper()
	ctx := context.Background()

	t.Run("missing thread", func(t *testing.T) {
		_, err := st.Load(ctx, "missing")
		if !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("Load(missing) error = %v, want ErrNotFound", err)
		}
	})

	t.Run("round trip", func(t *testing.T) {
		saved := store.Checkpoint[state]{
			ThreadID: "t-round",
			State: state{
				"query":    "Apple",
				"attempts": float64(2),
				"messages": []any{map[string]any{"role": "user", "content": "hi"}},
			},
			Step:      3,
			Node:      "research",
			Next:      "validator",
			UpdatedAt: time.Date(2026, 1, 2, 3, 4, 5, 6, time.UTC),
		}
		if err := st.Save(ctx, saved); err != nil {
			t.Fatalf("Save: %v", err)
		}

		got, err := st.Load(ctx, "t-round")
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if got.ThreadID != saved.ThreadID || got.Step != 3 || got.Node != "research" || got.Next != "validator" {
			t.Errorf("Load = %+v, want %+v", got, saved)
		}
		if !reflect.DeepEqual(got.State, saved.State) {
			t.Errorf("State = %#v, want %#v", got.State, saved.State)
		}
		if !got.UpdatedAt.Equal(saved.UpdatedAt) {
			t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, saved.UpdatedAt)
		}
	})

	t.Run("save replaces", func(t *testing.T) {
		for step := 1; step <= 3; step++ {
			cp := store.Checkpoint[state]{ThreadID: "t-over", State: state{"n": float64(step)}, Step: step, Node: "a"}
			if err := st.Save(ctx, cp); err != nil {
				t.Fatalf("Save step %d: %v", step, err)
			}
		}
		got, err := st.Load(ctx, "t-over")
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if got.Step != 3 || got.State["n"] != float64(3) || got.Next != "" {
			t.Errorf("Load = %+v, want step 3 with n=3 and no pending node", got)
		}
	})

	t.Run("empty thread id rejected", func(t *testing.T) {
		if err := st.Save(ctx, store.Checkpoint[state]{State: state{}}); err == nil {
			t.Error("Save with empty thread id succeeded")
		}
	})

	t.Run("concurrent threads stay isolated", func(t *testing.T) {
		g, gctx := errgroup.WithContext(ctx)
		for i := 0; i < 8; i++ {
			id := fmt.Sprintf("t-iso-%d", i)
			g.Go(func() error {
				for step := 1; step <= 5; step++ {
					cp := store.Checkpoint[state]{ThreadID: id, State: state{"owner": id}, Step: step, Node: "n"}
					if err := st.Save(gctx, cp); err != nil {
						return err
					}
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			t.Fatalf("concurrent save: %v", err)
		}
		for i := 0; i < 8; i++ {
			id := fmt.Sprintf("t-iso-%d", i)
			got, err := st.Load(ctx, id)
			if err != nil {
				t.Fatalf("Load(%s): %v", id, err)
			}
			if got.State["owner"] != id || got.Step != 5 {
				t.Errorf("Load(%s) = %+v", id, got)
			}
		}
	})

	if lister, ok := st.(store.Lister); ok {
		t.Run("list", func(t *testing.T) {
			ids, err := lister.List(ctx)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			want := map[string]bool{"t-round": true, "t-over": true, "t-iso-0": true}
			for _, id := range ids {
				delete(want, id)
			}
			if len(want) != 0 {
				t.Errorf("List() = %v, missing %v", ids, want)
			}
			for i := 1; i < len(ids); i++ {
				if ids[i-1] > ids[i] {
					t.Errorf("List() not sorted: %v", ids)
					break
				}
			}
		})
	}
}
