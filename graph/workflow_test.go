package graph

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func noop() Node {
	return NodeFunc(func(ctx context.Context, s State) (Update, error) { return nil, nil })
}

func TestBuilder_Valid(t *testing.T) {
	def, err := NewBuilder().
		Field("messages", Accumulate).
		Default("attempts", 0).
		AddNode("a", noop()).
		AddNode("b", noop()).
		AddEdge("a", "b").
		AddConditionalEdge("b", func(State) string { return End }, "a", End).
		SetEntry("a").
		Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if def.Entry() != "a" {
		t.Errorf("Entry() = %q", def.Entry())
	}
	if got := strings.Join(def.Nodes(), ","); got != "a,b" {
		t.Errorf("Nodes() = %q, want registration order", got)
	}
	if !def.HasNode("b") || def.HasNode(End) {
		t.Errorf("HasNode mismatch")
	}
	if got := def.Targets("b"); len(got) != 2 || got[0] != "a" || got[1] != End {
		t.Errorf("Targets(b) = %v", got)
	}
	if def.Schema().Kind("messages") != Accumulate {
		t.Errorf("messages kind = %v", def.Schema().Kind("messages"))
	}
}

func TestBuilder_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		build   func() *Builder
		problem string
	}{
		{
			name:    "missing entry",
			build:   func() *Builder { return NewBuilder().AddNode("a", noop()) },
			problem: "entry node is not set",
		},
		{
			name:    "unknown entry",
			build:   func() *Builder { return NewBuilder().AddNode("a", noop()).SetEntry("x") },
			problem: `entry node "x" is not registered`,
		},
		{
			name: "duplicate node",
			build: func() *Builder {
				return NewBuilder().AddNode("a", noop()).AddNode("a", noop()).SetEntry("a")
			},
			problem: `duplicate node "a"`,
		},
		{
			name: "reserved name",
			build: func() *Builder {
				return NewBuilder().AddNode(End, noop()).AddNode("a", noop()).SetEntry("a")
			},
			problem: "is reserved",
		},
		{
			name: "edge to unknown node",
			build: func() *Builder {
				return NewBuilder().AddNode("a", noop()).AddEdge("a", "ghost").SetEntry("a")
			},
			problem: `unknown node "ghost"`,
		},
		{
			name: "static and conditional edge",
			build: func() *Builder {
				return NewBuilder().AddNode("a", noop()).
					AddEdge("a", End).
					AddConditionalEdge("a", func(State) string { return End }, End).
					SetEntry("a")
			},
			problem: "both a static and a conditional edge",
		},
		{
			name: "conditional edge without targets",
			build: func() *Builder {
				return NewBuilder().AddNode("a", noop()).
					AddConditionalEdge("a", func(State) string { return End }).
					SetEntry("a")
			},
			problem: "declares no targets",
		},
		{
			name: "accumulating default not a sequence",
			build: func() *Builder {
				return NewBuilder().AddNode("a", noop()).
					Field("log", Accumulate).Default("log", "x").
					SetEntry("a")
			},
			problem: "is not a sequence",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def, err := tt.build().Build()
			if err == nil {
				t.Fatalf("Build() = %v, want error", def)
			}
			if !errors.Is(err, ErrInvalidGraph) {
				t.Errorf("errors.Is(err, ErrInvalidGraph) = false for %v", err)
			}
			if !strings.Contains(err.Error(), tt.problem) {
				t.Errorf("error %q does not mention %q", err, tt.problem)
			}
		})
	}
}

func TestBuilder_CollectsAllProblems(t *testing.T) {
	_, err := NewBuilder().
		AddNode("", noop()).
		AddEdge("a", "b").
		Build()
	var ig *InvalidGraphError
	if !errors.As(err, &ig) {
		t.Fatalf("error = %v, want *InvalidGraphError", err)
	}
	if len(ig.Problems) < 3 {
		t.Errorf("Problems = %v, want at least 3", ig.Problems)
	}
}

func TestDefinition_Next(t *testing.T) {
	def, err := NewBuilder().
		AddNode("a", noop()).
		AddNode("b", noop()).
		AddNode("c", noop()).
		AddEdge("a", "b").
		AddConditionalEdge("b", func(s State) string { return s.String("go") }, "c", End).
		SetEntry("a").
		Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	tests := []struct {
		from    string
		state   State
		want    string
		wantErr bool
	}{
		{"a", State{}, "b", false},
		{"b", State{"go": "c"}, "c", false},
		{"b", State{"go": End}, End, false},
		{"b", State{"go": "a"}, "", true},
		{"c", State{}, End, false},
	}
	for _, tt := range tests {
		got, err := def.next(tt.from, tt.state)
		if (err != nil) != tt.wantErr {
			t.Fatalf("next(%q) error = %v, wantErr %v", tt.from, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("next(%q) = %q, want %q", tt.from, got, tt.want)
		}
		if tt.wantErr && !errors.Is(err, ErrRouting) {
			t.Errorf("next(%q) error = %v, want ErrRouting", tt.from, err)
		}
	}
}

func TestDefinition_NextRecoversRoutePanic(t *testing.T) {
	def, err := NewBuilder().
		AddNode("a", noop()).
		AddConditionalEdge("a", func(State) string { panic("boom") }, End).
		SetEntry("a").
		Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	_, err = def.next("a", State{})
	var re *RoutingError
	if !errors.As(err, &re) || re.Cause == nil {
		t.Fatalf("next() error = %v, want RoutingError with cause", err)
	}
}

func TestDefinition_Mermaid(t *testing.T) {
	def, err := NewBuilder().
		AddNode("clarity", noop()).
		AddNode("research-agent", noop()).
		AddConditionalEdge("clarity", func(State) string { return End }, "research-agent", End).
		SetEntry("clarity").
		Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	out := def.Mermaid("clarity")
	for _, want := range []string{
		"graph TD",
		"__start__ --> clarity",
		"clarity -.-> research_agent",
		"research_agent --> __end__",
		"class clarity current;",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Mermaid output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(def.Mermaid(""), "classDef current") {
		t.Errorf("Mermaid(\"\") highlights a node")
	}
}

func TestDefinition_MermaidEscapesNames(t *testing.T) {
	def, err := NewBuilder().
		AddNode(`say "hi"`, noop()).
		AddNode("check [v2]", noop()).
		AddEdge(`say "hi"`, "check [v2]").
		SetEntry(`say "hi"`).
		Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	out := def.Mermaid(`say "hi"`)
	for _, want := range []string{
		`say__hi_["say #quot;hi#quot;"]`,
		`check__v2_["check [v2]"]`,
		"say__hi_ --> check__v2_",
		"class say__hi_ current;",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Mermaid output missing %q:\n%s", want, out)
		}
	}
	for _, line := range strings.Split(out, "\n") {
		if strings.Count(line, `"`)%2 != 0 {
			t.Errorf("unbalanced quotes in %q", line)
		}
	}
}
