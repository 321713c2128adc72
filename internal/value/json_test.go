package value

import "testing"

func TestDecodeJSONPreservesOrder(t *testing.T) {
	data := []byte(`{"zebra": 1, "alpha": {"second": "b", "first": "a"}, "mid": [1, 2.5, "x", null, true]}`)
	decoded, err := DecodeJSON(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m, ok := decoded.(*Map)
	if !ok {
		t.Fatalf("expected *Map, got %T", decoded)
	}

	wantKeys := []string{"zebra", "alpha", "mid"}
	gotKeys := Keys(m)
	if len(gotKeys) != len(wantKeys) {
		t.Fatalf("got keys %v", gotKeys)
	}
	for i, k := range wantKeys {
		if gotKeys[i] != k {
			t.Errorf("key %d = %q, want %q", i, gotKeys[i], k)
		}
	}

	nested := mustMap(m, "alpha")
	if keys := Keys(nested); keys[0] != "second" || keys[1] != "first" {
		t.Errorf("nested key order lost: %v", keys)
	}

	list, _ := m.Get("mid")
	items := list.([]any)
	if items[0] != int64(1) {
		t.Errorf("whole number should decode as int64, got %T", items[0])
	}
	if items[1] != float64(2.5) {
		t.Errorf("decimal should decode as float64, got %T", items[1])
	}
	if items[3] != nil || items[4] != true {
		t.Errorf("null/bool decode wrong: %v", items)
	}
}

func TestDecodeJSONTrailingData(t *testing.T) {
	if _, err := DecodeJSON([]byte(`{} garbage`)); err == nil {
		t.Error("expected error for trailing data")
	}
}

func TestEncodeJSON(t *testing.T) {
	m := mapOf(
		"source", "<templatefile(...)>",
		"count", int64(3),
		"nested", mapOf("b", "2", "a", "1"),
		"tags", []any{"x"},
		"empty_list", []any{},
		"empty_map", NewMap(),
		"none", nil,
	)
	got := EncodeJSON(m)
	want := `{
  "source": "<templatefile(...)>",
  "count": 3,
  "nested": {
    "b": "2",
    "a": "1"
  },
  "tags": [
    "x"
  ],
  "empty_list": [],
  "empty_map": {},
  "none": null
}`
	if got != want {
		t.Errorf("EncodeJSON mismatch:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestEncodeJSONKeepsAngleBrackets(t *testing.T) {
	got := EncodeJSON("<unresolved: x>")
	if got != `"<unresolved: x>"` {
		t.Errorf("angle brackets must not be escaped, got %s", got)
	}
}

func TestEncodeJSONInline(t *testing.T) {
	m := mapOf("a", int64(1), "b", []any{"x", "y"})
	got := EncodeJSONInline(m)
	want := `{"a": 1, "b": ["x", "y"]}`
	if got != want {
		t.Errorf("EncodeJSONInline = %s, want %s", got, want)
	}
}
