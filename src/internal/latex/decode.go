// Package latex turns BibTeX field values written with LaTeX accent markup
// into plain Unicode text for display and comparison.
package latex

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// diacritics maps the character following a backslash to the combining mark
// it places on the next base character.
var diacritics = map[rune]rune{
	'`':  '\u0300', // grave
	'\'': '\u0301', // acute
	'^':  '\u0302', // circumflex
	'"':  '\u0308', // diaeresis
	'H':  '\u030B', // double acute
	'~':  '\u0303', // tilde
	'c':  '\u0327', // cedilla
	'k':  '\u0328', // ogonek
	'=':  '\u0304', // macron
	'b':  '\u0332', // low line
	'.':  '\u0307', // dot above
	'd':  '\u0323', // dot below
	'r':  '\u030A', // ring above
	'u':  '\u0306', // breve
	'v':  '\u030C', // caron
}

// literals are fixed replacements. Order matters: longer triggers first so
// \aa is never read as \a followed by a stray a.
var literals = []struct {
	trigger []rune
	out     string
}{
	{[]rune("aa"), "å"},
	{[]rune("AA"), "Å"},
	{[]rune("ae"), "æ"},
	{[]rune("AE"), "Æ"},
	{[]rune("oe"), "œ"},
	{[]rune("OE"), "Œ"},
	{[]rune("ss"), "ß"},
	{[]rune("l"), "ł"},
	{[]rune("L"), "Ł"},
	{[]rune("o"), "ø"},
	{[]rune("O"), "Ø"},
	{[]rune("i"), "ı"},
	{[]rune("j"), "ȷ"},
}

// Decode resolves LaTeX accent commands and grouping braces in s and returns
// the NFC-normalized result. Escaped characters (\{, \%, \\) are emitted
// literally; unknown commands keep the character after the backslash.
func Decode(s string) string {
	if !strings.ContainsAny(s, `\{}`) {
		return norm.NFC.String(s)
	}
	rs := []rune(s)
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(rs); {
		switch r := rs[i]; r {
		case '{', '}':
			i++
		case '\\':
			i = decodeCommand(rs, i+1, &b)
		default:
			b.WriteRune(r)
			i++
		}
	}
	return norm.NFC.String(b.String())
}

// decodeCommand handles the command starting at rs[i] (just past the
// backslash) and returns the index where scanning resumes.
func decodeCommand(rs []rune, i int, b *strings.Builder) int {
	if i >= len(rs) {
		return i
	}
	if out, n := matchLiteral(rs[i:]); n > 0 {
		b.WriteString(out)
		return i + n
	}
	if mark, ok := diacritics[rs[i]]; ok {
		return decodeAccent(rs, i+1, mark, unicode.IsLetter(rs[i]), b)
	}
	b.WriteRune(rs[i])
	return i + 1
}

// matchLiteral returns the replacement for the literal command at the start
// of rs. A command name ends at the first non-letter, so \ldots is not \l.
func matchLiteral(rs []rune) (string, int) {
	for _, l := range literals {
		n := len(l.trigger)
		if hasPrefix(rs, l.trigger) && (len(rs) == n || !unicode.IsLetter(rs[n])) {
			return l.out, n
		}
	}
	return "", 0
}

func hasPrefix(rs, prefix []rune) bool {
	if len(rs) < len(prefix) {
		return false
	}
	for i, r := range prefix {
		if rs[i] != r {
			return false
		}
	}
	return true
}

// decodeAccent emits the base character at rs[i] followed by mark. The base
// may be wrapped in one brace; the closing brace is left for the main loop.
// Word commands such as \c or \H skip whitespace before their base.
func decodeAccent(rs []rune, i int, mark rune, word bool, b *strings.Builder) int {
	if word {
		for i < len(rs) && unicode.IsSpace(rs[i]) {
			i++
		}
	}
	if i < len(rs) && rs[i] == '{' {
		i++
		if i < len(rs) && rs[i] == '}' {
			return i + 1
		}
	}
	if i >= len(rs) {
		return i
	}
	base := rs[i]
	i++
	if base == '\\' {
		if i >= len(rs) {
			return i
		}
		out, n := matchLiteral(rs[i:])
		switch {
		case n == 0:
			b.WriteRune(rs[i])
			i++
		case rs[i] == 'i' || rs[i] == 'j':
			// \^{\i} is the plain letter under the mark
			b.WriteRune(rs[i])
			i += n
		default:
			b.WriteString(out)
			i += n
		}
		b.WriteRune(mark)
		return i
	}
	b.WriteRune(base)
	b.WriteRune(mark)
	return i
}
