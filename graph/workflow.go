package graph

import (
	"fmt"
	"sort"
	"strings"
)

// Builder assembles a workflow definition.
//
// Builder methods never fail on their own; problems are collected and
// reported together by Build as a single *InvalidGraphError. Methods return
// the builder so registration can be chained.
//
// Example:
//
//	def, err := graph.NewBuilder().
//	    Field("messages", graph.Accumulate).
//	    Default("attempts", 0).
//	    AddNode("research", researchNode).
//	    AddNode("validate", validateNode).
//	    AddEdge("research", "validate").
//	    AddConditionalEdge("validate", routeValidate, "research", graph.End).
//	    SetEntry("research").
//	    Build()
type Builder struct {
	nodes    map[string]Node
	order    []string
	edges    map[string]edge
	entry    string
	schema   Schema
	problems []string
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		nodes:  make(map[string]Node),
		edges:  make(map[string]edge),
		schema: NewSchema(),
	}
}

func (b *Builder) problem(format string, args ...any) *Builder {
	b.problems = append(b.problems, fmt.Sprintf(format, args...))
	return b
}

// AddNode registers a step under a unique name.
func (b *Builder) AddNode(name string, node Node) *Builder {
	switch {
	case name == "":
		return b.problem("node name cannot be empty")
	case name == End:
		return b.problem("node name %q is reserved", End)
	case node == nil:
		return b.problem("node %q has no step function", name)
	}
	if _, exists := b.nodes[name]; exists {
		return b.problem("duplicate node %q", name)
	}
	b.nodes[name] = node
	b.order = append(b.order, name)
	return b
}

// AddEdge declares a static edge: from is always followed by to.
// to may be End.
func (b *Builder) AddEdge(from, to string) *Builder {
	if from == "" || to == "" {
		return b.problem("edge %q -> %q has an empty endpoint", from, to)
	}
	if existing, ok := b.edges[from]; ok {
		if existing.conditional() {
			return b.problem("node %q has both a static and a conditional edge", from)
		}
		return b.problem("node %q has more than one static edge", from)
	}
	b.edges[from] = edge{to: to}
	return b
}

// AddConditionalEdge attaches a routing function to from. The function may
// only return one of targets (End included when listed).
func (b *Builder) AddConditionalEdge(from string, route RouteFunc, targets ...string) *Builder {
	if from == "" {
		return b.problem("conditional edge has an empty source")
	}
	if route == nil {
		return b.problem("conditional edge from %q has no routing function", from)
	}
	if existing, ok := b.edges[from]; ok {
		if existing.conditional() {
			return b.problem("node %q has more than one conditional edge", from)
		}
		return b.problem("node %q has both a static and a conditional edge", from)
	}
	if len(targets) == 0 {
		return b.problem("conditional edge from %q declares no targets", from)
	}

	e := edge{route: route, allowed: make(map[string]bool, len(targets))}
	for _, t := range targets {
		if t == "" {
			b.problem("conditional edge from %q declares an empty target", from)
			continue
		}
		if !e.allowed[t] {
			e.allowed[t] = true
			e.targets = append(e.targets, t)
		}
	}
	b.edges[from] = e
	return b
}

// SetEntry selects the node every fresh run starts at.
func (b *Builder) SetEntry(name string) *Builder {
	b.entry = name
	return b
}

// Field declares the merge kind of a state field.
func (b *Builder) Field(name string, kind FieldKind) *Builder {
	if name == "" {
		return b.problem("field name cannot be empty")
	}
	if kind != Overwrite && kind != Accumulate {
		return b.problem("field %q has unknown kind %v", name, kind)
	}
	b.schema.kinds[name] = kind
	return b
}

// Default sets the value a field takes when a thread is first initialized.
func (b *Builder) Default(name string, value any) *Builder {
	if name == "" {
		return b.problem("default has an empty field name")
	}
	v, err := normalize(value)
	if err != nil {
		return b.problem("default for %q: %v", name, err)
	}
	b.schema.defaults[name] = v
	return b
}

// Build validates the registrations and returns an immutable definition.
func (b *Builder) Build() (*Definition, error) {
	problems := append([]string(nil), b.problems...)

	switch {
	case b.entry == "":
		problems = append(problems, "entry node is not set")
	case b.nodes[b.entry] == nil:
		problems = append(problems, fmt.Sprintf("entry node %q is not registered", b.entry))
	}

	froms := make([]string, 0, len(b.edges))
	for from := range b.edges {
		froms = append(froms, from)
	}
	sort.Strings(froms)

	for _, from := range froms {
		e := b.edges[from]
		if b.nodes[from] == nil {
			problems = append(problems, fmt.Sprintf("edge from unknown node %q", from))
		}
		if !e.conditional() {
			if e.to != End && b.nodes[e.to] == nil {
				problems = append(problems, fmt.Sprintf("edge %q -> unknown node %q", from, e.to))
			}
			continue
		}
		if len(e.targets) == 0 {
			problems = append(problems, fmt.Sprintf("conditional edge from %q declares no targets", from))
		}
		for _, t := range e.targets {
			if t != End && b.nodes[t] == nil {
				problems = append(problems, fmt.Sprintf("conditional edge %q -> unknown node %q", from, t))
			}
		}
	}

	for name, v := range b.schema.defaults {
		if b.schema.Kind(name) == Accumulate {
			if _, ok := v.([]any); !ok {
				problems = append(problems, fmt.Sprintf("default for accumulating field %q is not a sequence", name))
			}
		}
	}

	if len(problems) > 0 {
		return nil, &InvalidGraphError{Problems: problems}
	}

	def := &Definition{
		nodes:  make(map[string]Node, len(b.nodes)),
		edges:  make(map[string]edge, len(b.edges)),
		entry:  b.entry,
		schema: NewSchema(),
	}
	for name, n := range b.nodes {
		def.nodes[name] = n
	}
	for from, e := range b.edges {
		def.edges[from] = e
	}
	for name, k := range b.schema.kinds {
		def.schema.kinds[name] = k
	}
	for name, v := range b.schema.defaults {
		def.schema.defaults[name] = cloneValue(v)
	}
	def.order = append(def.order, b.order...)
	return def, nil
}

// Definition is a validated, immutable workflow graph. It holds no mutable
// state and is safe to share across any number of concurrent runs.
type Definition struct {
	nodes  map[string]Node
	order  []string
	edges  map[string]edge
	entry  string
	schema Schema
}

// Entry returns the entry node name.
func (d *Definition) Entry() string { return d.entry }

// Schema returns the field schema.
func (d *Definition) Schema() Schema { return d.schema }

// Nodes returns the node names in registration order.
func (d *Definition) Nodes() []string {
	return append([]string(nil), d.order...)
}

// HasNode reports whether name is a registered node.
func (d *Definition) HasNode(name string) bool {
	_, ok := d.nodes[name]
	return ok
}

// Targets returns the possible successors of a node: the static target, the
// declared targets of its conditional edge, or End for a node without an
// outgoing edge.
func (d *Definition) Targets(name string) []string {
	e, ok := d.edges[name]
	switch {
	case !ok:
		return []string{End}
	case e.conditional():
		return append([]string(nil), e.targets...)
	default:
		return []string{e.to}
	}
}

// next resolves the successor of from given the merged state.
func (d *Definition) next(from string, state State) (target string, err error) {
	e, ok := d.edges[from]
	if !ok {
		return End, nil
	}
	if !e.conditional() {
		return e.to, nil
	}

	defer func() {
		if r := recover(); r != nil {
			target = ""
			err = &RoutingError{From: from, Allowed: e.targets, Cause: fmt.Errorf("routing function panicked: %v", r)}
		}
	}()

	target = e.route(state)
	if !e.allowed[target] {
		return "", &RoutingError{From: from, Target: target, Allowed: append([]string(nil), e.targets...)}
	}
	return target, nil
}

// Mermaid renders the graph as a Mermaid flowchart. When current is a node
// name it is highlighted.
func (d *Definition) Mermaid(current string) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")
	sb.WriteString("    __start__((start))\n")
	fmt.Fprintf(&sb, "    __start__ --> %s\n", mermaidID(d.entry))

	usesEnd := false
	for _, name := range d.order {
		fmt.Fprintf(&sb, "    %s[\"%s\"]\n", mermaidID(name), mermaidLabel(name))
		e, ok := d.edges[name]
		switch {
		case !ok:
			usesEnd = true
			fmt.Fprintf(&sb, "    %s --> %s\n", mermaidID(name), mermaidID(End))
		case e.conditional():
			for _, t := range e.targets {
				if t == End {
					usesEnd = true
				}
				fmt.Fprintf(&sb, "    %s -.-> %s\n", mermaidID(name), mermaidID(t))
			}
		default:
			if e.to == End {
				usesEnd = true
			}
			fmt.Fprintf(&sb, "    %s --> %s\n", mermaidID(name), mermaidID(e.to))
		}
	}
	if usesEnd {
		fmt.Fprintf(&sb, "    %s((end))\n", mermaidID(End))
	}

	if current != "" && d.HasNode(current) {
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
		fmt.Fprintf(&sb, "    class %s current;\n", mermaidID(current))
	}
	return sb.String()
}

var (
	idReplacer = strings.NewReplacer(
		".", "_", "-", "_", "/", "_", "\\", "_", " ", "_",
		"\"", "_", "'", "_", "[", "_", "]", "_", "(", "_", ")", "_",
		"{", "_", "}", "_", "|", "_", ";", "_", "<", "_", ">", "_",
	)
	labelReplacer = strings.NewReplacer("\"", "#quot;")
)

// mermaidID turns a node name into a bare Mermaid identifier.
func mermaidID(id string) string {
	return idReplacer.Replace(id)
}

// mermaidLabel escapes a node name for use inside a quoted label.
func mermaidLabel(name string) string {
	return labelReplacer.Replace(name)
}
