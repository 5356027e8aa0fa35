// Package sanitize cleans field names and values supplied on the command
// line before they reach the store.
package sanitize

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ErrFieldName reports a field name that cannot be stored or exported.
var ErrFieldName = errors.New("invalid field name")

// maxFieldName bounds field names; values are not truncated.
const maxFieldName = 64

// CleanString trims and removes control characters except tab/newline/carriage
// return, keeping at most max runes (if max <= 0, no truncation).
func CleanString(s string, max int) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	var b strings.Builder
	n := 0
	for _, r := range s {
		if r == '\n' || r == '\t' || r == '\r' || !unicode.IsControl(r) {
			b.WriteRune(r)
			n++
			if max > 0 && n >= max {
				break
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// Value cleans a field value.
func Value(v string) string { return CleanString(v, 0) }

// FieldName cleans and validates a field name. Names are case-insensitive
// in BibTeX, so they are lower-cased; a name must be non-empty and free of
// whitespace and BibTeX delimiters.
func FieldName(name string) (string, error) {
	clean := strings.ToLower(CleanString(name, 0))
	if clean == "" {
		return "", fmt.Errorf("%w: empty", ErrFieldName)
	}
	if len([]rune(clean)) > maxFieldName {
		return "", fmt.Errorf("%w: %q is longer than %d characters", ErrFieldName, clean, maxFieldName)
	}
	if i := strings.IndexFunc(clean, func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune(`{}(),="#%@`, r)
	}); i >= 0 {
		return "", fmt.Errorf("%w: %q", ErrFieldName, clean)
	}
	return clean, nil
}
