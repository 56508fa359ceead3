package graph

import (
	"context"
	"errors"
	"testing"

	"pgregory.net/rapid"

	"github.com/dshills/threadgraph/graph/store"
)

// A loop guarded by a bounded counter finishes within its bound, and a
// ceiling below the bound stops it with a recursion limit error.
func TestRun_BoundedLoopTerminates(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		bound := rapid.IntRange(1, 40).Draw(rt, "bound")
		ceiling := rapid.IntRange(1, 50).Draw(rt, "ceiling")

		steps := 0
		def, err := NewBuilder().
			Default("remaining", bound).
			AddNode("tick", NodeFunc(func(ctx context.Context, s State) (Update, error) {
				steps++
				return Update{"remaining": s.Int("remaining") - 1}, nil
			})).
			AddConditionalEdge("tick", func(s State) string {
				if s.Int("remaining") <= 0 {
					return End
				}
				return "tick"
			}, "tick", End).
			SetEntry("tick").
			Build()
		if err != nil {
			rt.Fatalf("Build() error = %v", err)
		}
		e, err := New(def, store.NewMemStore[State](), WithStepCeiling(ceiling))
		if err != nil {
			rt.Fatalf("New() error = %v", err)
		}

		_, err = e.Run(context.Background(), "t", nil)
		switch {
		case ceiling >= bound:
			if err != nil {
				rt.Fatalf("Run() error = %v with ceiling %d >= bound %d", err, ceiling, bound)
			}
			if steps != bound {
				rt.Fatalf("steps = %d, want %d", steps, bound)
			}
		default:
			if !errors.Is(err, ErrRecursionLimitExceeded) {
				rt.Fatalf("Run() error = %v, want recursion limit", err)
			}
			if steps != ceiling {
				rt.Fatalf("steps = %d, want ceiling %d", steps, ceiling)
			}
		}
	})
}
