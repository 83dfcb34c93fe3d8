// Package value implements the tagged-union Value model shared by every
// stage of evaluation: scalars, lists, maps, callables, and opaque
// host-object handles (spec.md §3).
//
// The shape follows the teacher's lang.Value{Type Type; Token ...} tagged
// struct rather than a Go interface, so printing, equality, and the
// text-to-typed-value ladder stay centralized in one place.
package value

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies which field of a Value is meaningful.
type Kind int

const (
	Null Kind = iota
	Bool
	Int
	Float
	Text
	List
	Map
	Callable
	Opaque
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case Null:
		return "Null"
	case Bool:
		return "Bool"
	case Int:
		return "Int"
	case Float:
		return "Float"
	case Text:
		return "Text"
	case List:
		return "List"
	case Map:
		return "Map"
	case Callable:
		return "Callable"
	case Opaque:
		return "Opaque"
	default:
		return "Unknown"
	}
}

// Invoker is the signature every Callable value carries. The second return
// value is a protocol-level error (spec.md §6).
type Invoker func(session Session, args []*Value) (*Value, error)

// Session is the minimal surface the value package needs from a session,
// kept separate to avoid an import cycle between value and session.
type Session interface{}

// Host resolves method dispatch on an Opaque value (spec.md §4.3, §6).
type Host interface {
	Invoke(sess Session, target *Value, method string, args []*Value) (*Value, error)
}

// Value is the tagged union every evaluation step produces and consumes.
type Value struct {
	Kind Kind

	boolVal  bool
	intVal   int64
	floatVal float64
	textVal  string
	listVal  []*Value
	mapVal   *orderedMap
	callVal  Invoker
	opaque   any
	host     Host

	identity any
}

// orderedMap preserves insertion order for Map values (spec.md §3: "Map
// (insertion-ordered mapping Text→Value)").
type orderedMap struct {
	keys   []string
	values map[string]*Value
}

func newOrderedMap() *orderedMap {
	return &orderedMap{values: make(map[string]*Value)}
}

func (m *orderedMap) set(key string, v *Value) {
	if _, exists := m.values[key]; !exists {
		m.keys = append(m.keys, key)
	}

	m.values[key] = v
}

func (m *orderedMap) get(key string) (*Value, bool) {
	v, ok := m.values[key]

	return v, ok
}

// NewNull returns the Null value.
func NewNull() *Value { return &Value{Kind: Null} }

// NewBool wraps a bool.
func NewBool(b bool) *Value { return &Value{Kind: Bool, boolVal: b} }

// NewInt wraps an int64.
func NewInt(i int64) *Value { return &Value{Kind: Int, intVal: i} }

// NewFloat wraps a float64.
func NewFloat(f float64) *Value { return &Value{Kind: Float, floatVal: f} }

// NewText wraps a string.
func NewText(s string) *Value { return &Value{Kind: Text, textVal: s} }

// NewList wraps an ordered slice of values. The slice is not copied; callers
// must not mutate it after the Value escapes (mirrors spec.md §3 invariant 2
// about shared element identity between parmv/parms views).
func NewList(items []*Value) *Value { return &Value{Kind: List, listVal: items} }

// NewListSentinel wraps items as a List value tagged with identity, an
// opaque pointer that Is compares by pointer equality alone, never by
// content. Lets a caller recognise "this specific cached view", such as a
// frame's inherited parameter list, regardless of how many times a fresh
// Value is built around the same underlying items (spec.md §4.1 Design
// Note (b): splice detection must not rely on object identity of an
// arbitrary list, i.e. not on whether it merely looks like a List).
func NewListSentinel(items []*Value, identity any) *Value {
	return &Value{Kind: List, listVal: items, identity: identity}
}

// Is reports whether v was built by NewListSentinel with the given
// identity. A nil identity never matches.
func (v *Value) Is(identity any) bool {
	return v != nil && identity != nil && v.identity == identity
}

// NewMap creates an empty insertion-ordered map value.
func NewMap() *Value { return &Value{Kind: Map, mapVal: newOrderedMap()} }

// NewCallable wraps an invocation function.
func NewCallable(fn Invoker) *Value { return &Value{Kind: Callable, callVal: fn} }

// NewOpaque wraps a host-object handle together with the Host responsible
// for its method dispatch.
func NewOpaque(obj any, host Host) *Value {
	return &Value{Kind: Opaque, opaque: obj, host: host}
}

// Bool returns the wrapped bool and whether Kind == Bool.
func (v *Value) Bool() (bool, bool) {
	if v == nil || v.Kind != Bool {
		return false, false
	}

	return v.boolVal, true
}

// Int returns the wrapped int64 and whether Kind == Int.
func (v *Value) Int() (int64, bool) {
	if v == nil || v.Kind != Int {
		return 0, false
	}

	return v.intVal, true
}

// Float returns the wrapped float64 and whether Kind == Float.
func (v *Value) Float() (float64, bool) {
	if v == nil || v.Kind != Float {
		return 0, false
	}

	return v.floatVal, true
}

// Text returns the wrapped string and whether Kind == Text.
func (v *Value) Text() (string, bool) {
	if v == nil || v.Kind != Text {
		return "", false
	}

	return v.textVal, true
}

// List returns the wrapped slice and whether Kind == List.
func (v *Value) List() ([]*Value, bool) {
	if v == nil || v.Kind != List {
		return nil, false
	}

	return v.listVal, true
}

// MapKeys returns the map's keys in insertion order, or nil if Kind != Map.
func (v *Value) MapKeys() []string {
	if v == nil || v.Kind != Map || v.mapVal == nil {
		return nil
	}

	return v.mapVal.keys
}

// MapGet looks up a key in a Map value.
func (v *Value) MapGet(key string) (*Value, bool) {
	if v == nil || v.Kind != Map || v.mapVal == nil {
		return nil, false
	}

	return v.mapVal.get(key)
}

// MapSet assigns key to val in a Map value. It is a no-op on non-Map values.
func (v *Value) MapSet(key string, val *Value) {
	if v == nil || v.Kind != Map {
		return
	}

	if v.mapVal == nil {
		v.mapVal = newOrderedMap()
	}

	v.mapVal.set(key, val)
}

// Callable returns the wrapped invoker and whether Kind == Callable.
func (v *Value) Callable() (Invoker, bool) {
	if v == nil || v.Kind != Callable {
		return nil, false
	}

	return v.callVal, true
}

// Opaque returns the wrapped host object, its Host, and whether
// Kind == Opaque.
func (v *Value) Opaque() (any, Host, bool) {
	if v == nil || v.Kind != Opaque {
		return nil, nil, false
	}

	return v.opaque, v.host, true
}

// IsNull reports whether v is nil or the Null value.
func (v *Value) IsNull() bool {
	return v == nil || v.Kind == Null
}

// Truthy implements the shell's notion of truthiness: Null and false are
// falsy, the empty string and zero numbers are falsy, everything else
// (including empty lists/maps, matching "presence over emptiness") is truthy.
func (v *Value) Truthy() bool {
	if v == nil {
		return false
	}

	switch v.Kind {
	case Null:
		return false
	case Bool:
		return v.boolVal
	case Int:
		return v.intVal != 0
	case Float:
		return v.floatVal != 0
	case Text:
		return v.textVal != ""
	default:
		return true
	}
}

// String renders v as display text: the form used for stringification in
// pipelines, traces, and the "parms" display-joined view (spec.md §3).
func (v *Value) String() string {
	if v == nil {
		return ""
	}

	switch v.Kind {
	case Null:
		return "null"
	case Bool:
		return strconv.FormatBool(v.boolVal)
	case Int:
		return strconv.FormatInt(v.intVal, 10)
	case Float:
		return strconv.FormatFloat(v.floatVal, 'g', -1, 64)
	case Text:
		return v.textVal
	case List:
		parts := make([]string, len(v.listVal))
		for i, e := range v.listVal {
			parts[i] = e.String()
		}

		return strings.Join(parts, " ")
	case Map:
		parts := make([]string, 0, len(v.mapVal.keys))
		for _, k := range v.mapVal.keys {
			val, _ := v.mapVal.get(k)
			parts = append(parts, k+"="+val.String())
		}

		return strings.Join(parts, " ")
	case Callable:
		return "<callable>"
	case Opaque:
		return fmt.Sprintf("<opaque %v>", v.opaque)
	default:
		return ""
	}
}

// FromText applies the eval-ladder that reconstructs a typed Value from raw
// token text (spec.md §4.1, §9 Design Notes): "null" -> Null,
// "true"/"false" -> Bool, then int, then float, else Text. Integer parsing
// runs first, so base-10 integer text such as "3" becomes an Int, while
// text with a fractional part or exponent such as "3.5" or "1e3" fails the
// int parse and becomes a Float.
func FromText(s string) *Value {
	switch s {
	case "null":
		return NewNull()
	case "true":
		return NewBool(true)
	case "false":
		return NewBool(false)
	}

	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return NewInt(i)
	}

	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return NewFloat(f)
	}

	return NewText(s)
}
