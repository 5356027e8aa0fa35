package sanitize

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestCleanString(t *testing.T) {
	in := "  \tHello\x00World\x7f\n  "
	if out := CleanString(in, 100); out != "HelloWorld" {
		t.Fatalf("CleanString unexpected: %q", out)
	}
	if s := CleanString("abcdef", 3); s != "abc" {
		t.Fatalf("CleanString truncation: want 'abc', got %q", s)
	}
	if s := CleanString("Ørsted", 2); s != "Ør" || !utf8.ValidString(s) {
		t.Fatalf("CleanString should truncate by rune: %q", s)
	}
	if s := CleanString("a\tb", 0); s != "a\tb" {
		t.Fatalf("tab should survive: %q", s)
	}
}

func TestValue(t *testing.T) {
	if v := Value("  read \x1b later "); v != "read  later" {
		t.Fatalf("Value: %q", v)
	}
}

func TestFieldName(t *testing.T) {
	good := map[string]string{"Title": "title", " file ": "file", "x-tag_2": "x-tag_2"}
	for in, want := range good {
		got, err := FieldName(in)
		if err != nil || got != want {
			t.Fatalf("FieldName(%q)=%q,%v want %q", in, got, err, want)
		}
	}
	for _, in := range []string{"", "  ", "two words", "a=b", "t{x}", strings.Repeat("a", 65)} {
		if _, err := FieldName(in); !errors.Is(err, ErrFieldName) {
			t.Fatalf("FieldName(%q) should fail, got %v", in, err)
		}
	}
}
