package format

import (
	"strings"
	"testing"
)

func TestJSONNoColourIsPlain(t *testing.T) {
	f := New(false)
	got := f.JSON(mapOf("key", "value", "marker", "<templatefile(...)>"))
	if strings.Contains(got, "\x1b[") {
		t.Errorf("no-colour output must carry no ANSI codes: %q", got)
	}
	if !strings.Contains(got, `"<templatefile(...)>"`) {
		t.Errorf("marker lost: %s", got)
	}
}

func TestJSONColourised(t *testing.T) {
	f := New(true)
	got := f.JSON(mapOf("key", "value", "flag", true, "none", nil))
	if !strings.Contains(got, "\x1b[") {
		t.Errorf("colour output must carry ANSI codes: %q", got)
	}
	// The raw tokens must survive colouring.
	for _, tok := range []string{`"key"`, `"value"`, "true", "null"} {
		if !strings.Contains(got, tok) {
			t.Errorf("token %s lost in colouring: %q", tok, got)
		}
	}
}

func TestYAMLNoColour(t *testing.T) {
	f := New(false)
	got, err := f.YAML(mapOf("outer", mapOf("inner", "v"), "flag", false))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(got, "\x1b[") {
		t.Errorf("no-colour output must carry no ANSI codes: %q", got)
	}
	if !strings.Contains(got, "outer:") || !strings.Contains(got, "inner: v") {
		t.Errorf("yaml structure lost:\n%s", got)
	}
}
