package latex

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// CollapseWhitespace replaces every run of whitespace with a single space and
// trims both ends.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Clean decodes s and collapses its whitespace. This is the display form used
// by list output and chooser labels.
func Clean(s string) string {
	return CollapseWhitespace(Decode(s))
}

// stripMarks returns a fresh transformer; chains carry state between calls.
func stripMarks() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

// letters without a canonical decomposition, folded by hand
var asciiFold = strings.NewReplacer(
	"ł", "l", "Ł", "L",
	"ø", "o", "Ø", "O",
	"đ", "d", "Đ", "D",
	"ı", "i", "ȷ", "j",
	"ß", "ss",
	"æ", "ae", "Æ", "AE",
	"œ", "oe", "Œ", "OE",
	"þ", "th", "Þ", "TH",
)

// Fold is the accent-insensitive matching form of s: decoded, whitespace
// collapsed, diacritics stripped and lower-cased. Not for display.
func Fold(s string) string {
	clean := Clean(s)
	out, _, err := transform.String(stripMarks(), clean)
	if err != nil {
		out = clean
	}
	return strings.ToLower(asciiFold.Replace(out))
}
