package value

import (
	"testing"
)

func mapOf(pairs ...any) *Map {
	m := NewMap()
	for i := 0; i+1 < len(pairs); i += 2 {
		m.Set(pairs[i].(string), pairs[i+1])
	}
	return m
}

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b any
		want bool
	}{
		{"strings", "a", "a", true},
		{"different strings", "a", "b", false},
		{"int and float same value", int64(1), float64(1), true},
		{"int and float different", int64(1), float64(1.5), false},
		{"nil", nil, nil, true},
		{"nil and string", nil, "x", false},
		{"lists", []any{"a", int64(1)}, []any{"a", int64(1)}, true},
		{"lists different order", []any{"a", "b"}, []any{"b", "a"}, false},
		{"maps ignore order", mapOf("a", int64(1), "b", int64(2)), mapOf("b", int64(2), "a", int64(1)), true},
		{"maps different value", mapOf("a", int64(1)), mapOf("a", int64(2)), false},
		{"bool vs string", true, "true", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Equal(tt.a, tt.b); got != tt.want {
				t.Errorf("Equal(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestLookup(t *testing.T) {
	ctx := mapOf("outer", mapOf("inner", "deep"), "flat", int64(7))

	if v, ok := Lookup(ctx, "outer.inner"); !ok || v != "deep" {
		t.Errorf("Lookup outer.inner = %v, %v", v, ok)
	}
	if v, ok := Lookup(ctx, "flat"); !ok || v != int64(7) {
		t.Errorf("Lookup flat = %v, %v", v, ok)
	}
	if _, ok := Lookup(ctx, "outer.missing"); ok {
		t.Error("expected missing lookup to fail")
	}
	if _, ok := Lookup(ctx, "flat.too.deep"); ok {
		t.Error("expected lookup through scalar to fail")
	}
}

func TestClone(t *testing.T) {
	original := mapOf("list", []any{"a"}, "nested", mapOf("k", "v"))
	cloned := Clone(original).(*Map)

	nested, _ := cloned.Get("nested")
	nested.(*Map).Set("k", "changed")
	if v, _ := mustMap(original, "nested").Get("k"); v != "v" {
		t.Errorf("clone shares nested map: got %v", v)
	}
}

func mustMap(m *Map, key string) *Map {
	v, _ := m.Get(key)
	return v.(*Map)
}

func TestHasUnresolved(t *testing.T) {
	tests := []struct {
		name string
		v    any
		want bool
	}{
		{"plain string", "hello", false},
		{"marker", "<templatefile(...)>", true},
		{"interpolation leftover", "prefix-${local.x}", true},
		{"nested in list", []any{"ok", "<bad>"}, true},
		{"nested in map", mapOf("k", mapOf("deep", "${x}")), true},
		{"clean map", mapOf("k", int64(1)), false},
		{"non-string", int64(5), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasUnresolved(tt.v); got != tt.want {
				t.Errorf("HasUnresolved(%v) = %v, want %v", tt.v, got, tt.want)
			}
		})
	}
}

func TestStringify(t *testing.T) {
	tests := []struct {
		v    any
		want string
	}{
		{nil, "null"},
		{true, "true"},
		{false, "false"},
		{int64(8080), "8080"},
		{float64(1.5), "1.5"},
		{"text", "text"},
	}
	for _, tt := range tests {
		if got := Stringify(tt.v); got != tt.want {
			t.Errorf("Stringify(%v) = %q, want %q", tt.v, got, tt.want)
		}
	}
}
