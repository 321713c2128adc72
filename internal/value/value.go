// Package value defines the dynamic value model shared by the renderer.
//
// A value is one of: nil, bool, int64, float64, string, []any, or *Map.
// Maps preserve insertion order so rendered output keeps the key order of
// the source HCL files.
package value

import (
	"fmt"
	"strconv"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Map is an insertion-ordered string-keyed mapping.
type Map = orderedmap.OrderedMap[string, any]

// NewMap creates an empty ordered map.
func NewMap() *Map {
	return orderedmap.New[string, any]()
}

// Keys returns the keys of m in insertion order.
func Keys(m *Map) []string {
	keys := make([]string, 0, m.Len())
	for pair := m.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Clone returns a deep copy of v. Maps and lists are copied; scalars are
// returned as-is.
func Clone(v any) any {
	switch t := v.(type) {
	case *Map:
		out := NewMap()
		for pair := t.Oldest(); pair != nil; pair = pair.Next() {
			out.Set(pair.Key, Clone(pair.Value))
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = Clone(item)
		}
		return out
	default:
		return v
	}
}

// Equal reports deep equality of two values. Numbers compare numerically
// (int64 1 equals float64 1.0); map key order is ignored.
func Equal(a, b any) bool {
	switch at := a.(type) {
	case nil:
		return b == nil
	case bool:
		bt, ok := b.(bool)
		return ok && at == bt
	case string:
		bt, ok := b.(string)
		return ok && at == bt
	case int64, float64:
		an, aok := asFloat(a)
		bn, bok := asFloat(b)
		return aok && bok && an == bn
	case []any:
		bt, ok := b.([]any)
		if !ok || len(at) != len(bt) {
			return false
		}
		for i := range at {
			if !Equal(at[i], bt[i]) {
				return false
			}
		}
		return true
	case *Map:
		bt, ok := b.(*Map)
		if !ok || at.Len() != bt.Len() {
			return false
		}
		for pair := at.Oldest(); pair != nil; pair = pair.Next() {
			bv, present := bt.Get(pair.Key)
			if !present || !Equal(pair.Value, bv) {
				return false
			}
		}
		return true
	}
	return false
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case int64:
		return float64(t), true
	case float64:
		return t, true
	}
	return 0, false
}

// Lookup navigates a dotted path (a.b.c) through nested maps.
func Lookup(ctx *Map, dotted string) (any, bool) {
	var current any = ctx
	for part := range strings.SplitSeq(dotted, ".") {
		m, ok := current.(*Map)
		if !ok {
			return nil, false
		}
		v, present := m.Get(part)
		if !present {
			return nil, false
		}
		current = v
	}
	return current, true
}

// Marker wraps an expression into an unresolved marker string.
func Marker(expr string) string {
	return "<" + expr + ">"
}

// MarkerText strips the angle-bracket sentinel from a marker.
func MarkerText(marker string) string {
	return strings.Trim(marker, "<>")
}

// IsUnresolvedString reports whether s carries an unresolved sentinel:
// a marker prefix or a surviving interpolation.
func IsUnresolvedString(s string) bool {
	return strings.HasPrefix(s, "<") || strings.Contains(s, "${")
}

// HasUnresolved reports whether v, or anything nested inside it, carries an
// unresolved sentinel.
func HasUnresolved(v any) bool {
	switch t := v.(type) {
	case string:
		return IsUnresolvedString(t)
	case []any:
		for _, item := range t {
			if HasUnresolved(item) {
				return true
			}
		}
	case *Map:
		for pair := t.Oldest(); pair != nil; pair = pair.Next() {
			if HasUnresolved(pair.Value) {
				return true
			}
		}
	}
	return false
}

// Stringify renders a value the way string interpolation does.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return "false"
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}
