package graph

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"

	"github.com/mitchellh/mapstructure"
)

// State is the open record a thread carries through execution.
//
// Values are always held in their JSON form: objects are map[string]any,
// arrays are []any and numbers are float64. A state that was reloaded from a
// checkpoint store is therefore indistinguishable from one that never left
// memory, so routing over a resumed state behaves exactly like routing over
// a live one.
//
// Step functions receive a State snapshot owned by the engine. They must not
// mutate it; they return an Update instead.
type State map[string]any

// Update is a partial state change returned by a step function.
// Keys that are absent leave the prior value untouched.
type Update map[string]any

// FieldKind selects how an update to a field is merged into state.
type FieldKind int

const (
	// Overwrite replaces the prior value entirely. This is the default for
	// fields that are not declared in the Schema.
	Overwrite FieldKind = iota

	// Accumulate appends the update's elements to the existing sequence.
	// Order is preserved and the sequence is never truncated.
	Accumulate
)

// String implements fmt.Stringer.
func (k FieldKind) String() string {
	switch k {
	case Overwrite:
		return "overwrite"
	case Accumulate:
		return "accumulate"
	default:
		return fmt.Sprintf("FieldKind(%d)", int(k))
	}
}

// Schema declares field kinds and the defaults applied when a thread is
// first initialized.
type Schema struct {
	kinds    map[string]FieldKind
	defaults map[string]any
}

// NewSchema returns an empty schema.
func NewSchema() Schema {
	return Schema{
		kinds:    make(map[string]FieldKind),
		defaults: make(map[string]any),
	}
}

// Kind returns the merge kind of a field. Undeclared fields are Overwrite.
func (s Schema) Kind(field string) FieldKind {
	if k, ok := s.kinds[field]; ok {
		return k
	}
	return Overwrite
}

// Fields returns the declared field names in sorted order.
func (s Schema) Fields() []string {
	names := make([]string, 0, len(s.kinds))
	for name := range s.kinds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Defaults returns the initial state of a new thread: every declared default
// plus an empty sequence for each accumulating field without one.
func (s Schema) Defaults() State {
	out := make(State, len(s.defaults)+len(s.kinds))
	for name, kind := range s.kinds {
		if kind == Accumulate {
			out[name] = []any{}
		}
	}
	for name, v := range s.defaults {
		out[name] = cloneValue(v)
	}
	return out
}

// Merge applies update to prior according to the field kinds in schema and
// returns the next state. prior is never modified.
//
// Merge is associative per field: merging U1 then U2 equals merging a single
// update in which U2 overrides U1 for overwrite fields and extends it for
// accumulating fields.
//
// A value that cannot be represented as JSON, or an accumulating field
// update that is not a sequence, yields a *MalformedUpdateError and no state.
func Merge(prior State, update Update, schema Schema) (State, error) {
	next := prior.Clone()
	if next == nil {
		next = State{}
	}

	// Deterministic field order keeps the first reported error stable.
	keys := make([]string, 0, len(update))
	for k := range update {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, field := range keys {
		value, err := normalize(update[field])
		if err != nil {
			return nil, &MalformedUpdateError{Field: field, Reason: err.Error()}
		}

		if schema.Kind(field) != Accumulate {
			next[field] = value
			continue
		}

		items, ok := value.([]any)
		if value == nil && isNilSlice(update[field]) {
			items, ok = nil, true
		}
		if !ok {
			return nil, &MalformedUpdateError{
				Field:  field,
				Reason: fmt.Sprintf("accumulating field requires a sequence, got %T", update[field]),
			}
		}

		existing, _ := next[field].([]any)
		if next[field] != nil && existing == nil {
			return nil, &MalformedUpdateError{
				Field:  field,
				Reason: fmt.Sprintf("existing value is %T, not a sequence", next[field]),
			}
		}
		combined := make([]any, 0, len(existing)+len(items))
		combined = append(combined, existing...)
		combined = append(combined, items...)
		next[field] = combined
	}

	return next, nil
}

func isNilSlice(v any) bool {
	rv := reflect.ValueOf(v)
	return rv.IsValid() && rv.Kind() == reflect.Slice && rv.IsNil()
}

// normalize converts a Go value to its JSON form.
func normalize(v any) (any, error) {
	switch x := v.(type) {
	case nil, string, bool:
		return x, nil
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil, fmt.Errorf("unsupported number %v", x)
		}
		return x, nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("value is not serializable: %w", err)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("value is not serializable: %w", err)
	}
	return out, nil
}

// Clone returns a deep copy of the state.
func (s State) Clone() State {
	if s == nil {
		return nil
	}
	out := make(State, len(s))
	for k, v := range s {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(x))
		for k, e := range x {
			m[k] = cloneValue(e)
		}
		return m
	case []any:
		s := make([]any, len(x))
		for i, e := range x {
			s[i] = cloneValue(e)
		}
		return s
	default:
		return x
	}
}

// Get returns the raw value of a field.
func (s State) Get(field string) (any, bool) {
	v, ok := s[field]
	return v, ok
}

// String returns a string field, or "" when absent or of another type.
func (s State) String(field string) string {
	v, _ := s[field].(string)
	return v
}

// Int returns a numeric field truncated to int, or 0 when absent.
func (s State) Int(field string) int {
	switch v := s[field].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	default:
		return 0
	}
}

// Float returns a numeric field, or 0 when absent.
func (s State) Float(field string) float64 {
	switch v := s[field].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return 0
	}
}

// Bool returns a boolean field, or false when absent.
func (s State) Bool(field string) bool {
	v, _ := s[field].(bool)
	return v
}

// Len returns the length of a sequence field.
func (s State) Len(field string) int {
	v, _ := s[field].([]any)
	return len(v)
}

// Decode copies the state into a typed view. Struct fields are matched by
// their `mapstructure` tag or case-insensitively by name; numbers are
// converted to the target numeric kind.
func (s State) Decode(out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return fmt.Errorf("build decoder: %w", err)
	}
	if err := dec.Decode(map[string]any(s.Clone())); err != nil {
		return fmt.Errorf("decode state: %w", err)
	}
	return nil
}
