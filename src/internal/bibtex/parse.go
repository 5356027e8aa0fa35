// Package bibtex reads BibTeX databases into records and writes records
// back out as BibTeX.
package bibtex

import (
	"errors"
	"fmt"
	"strings"

	"paperman/src/internal/record"
)

// ErrSyntax is wrapped by every parse failure.
var ErrSyntax = errors.New("invalid bibtex")

// months are the string macros BibTeX predefines.
var months = map[string]string{
	"jan": "January", "feb": "February", "mar": "March", "apr": "April",
	"may": "May", "jun": "June", "jul": "July", "aug": "August",
	"sep": "September", "oct": "October", "nov": "November", "dec": "December",
}

// Parse reads every entry in src into a store keyed by citation key. Each
// record carries the lower-cased entry type under entry_type; field names
// are lower-cased and values are kept as written, LaTeX markup included,
// minus their outer delimiters. A later entry with the same key replaces an
// earlier one.
func Parse(src string) (record.Store, error) {
	p := &parser{s: src, macros: map[string]string{}}
	for k, v := range months {
		p.macros[k] = v
	}
	out := record.Store{}
	for {
		p.skipWS()
		if p.i >= len(p.s) {
			return out, nil
		}
		if p.s[p.i] != '@' {
			// text between entries is a comment
			p.i++
			continue
		}
		p.i++
		p.skipWS()
		typ := strings.ToLower(p.readIdent())
		if typ == "" {
			return nil, p.errorf("expected entry type after '@'")
		}
		p.skipWS()
		if p.i >= len(p.s) || (p.s[p.i] != '{' && p.s[p.i] != '(') {
			return nil, p.errorf("expected '{' or '(' after @%s", typ)
		}
		switch typ {
		case "comment", "preamble":
			if err := p.skipGroup(); err != nil {
				return nil, err
			}
		case "string":
			if err := p.parseMacro(); err != nil {
				return nil, err
			}
		default:
			key, rec, err := p.parseEntry(typ)
			if err != nil {
				return nil, err
			}
			out[key] = rec
		}
	}
}

type parser struct {
	s      string
	i      int
	macros map[string]string
}

func (p *parser) errorf(format string, args ...any) error {
	line := strings.Count(p.s[:min(p.i, len(p.s))], "\n") + 1
	return fmt.Errorf("%w: line %d: %s", ErrSyntax, line, fmt.Sprintf(format, args...))
}

// skipWS skips whitespace and % line comments.
func (p *parser) skipWS() {
	for p.i < len(p.s) {
		switch p.s[p.i] {
		case ' ', '\t', '\r', '\n':
			p.i++
		case '%':
			for p.i < len(p.s) && p.s[p.i] != '\n' {
				p.i++
			}
		default:
			return
		}
	}
}

func isIdentByte(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\n', '=', '{', '}', '(', ')', ',', '#', '"', '%', '@':
		return false
	}
	return true
}

func (p *parser) readIdent() string {
	start := p.i
	for p.i < len(p.s) && isIdentByte(p.s[p.i]) {
		p.i++
	}
	return p.s[start:p.i]
}

func closerFor(open byte) byte {
	if open == '(' {
		return ')'
	}
	return '}'
}

// skipGroup skips a delimited body, honouring nested braces.
func (p *parser) skipGroup() error {
	closer := closerFor(p.s[p.i])
	p.i++
	depth := 0
	for p.i < len(p.s) {
		c := p.s[p.i]
		p.i++
		switch {
		case c == '{':
			depth++
		case c == '}' && depth > 0:
			depth--
		case c == closer && depth == 0:
			return nil
		}
	}
	return p.errorf("unterminated group")
}

func (p *parser) parseMacro() error {
	closer := closerFor(p.s[p.i])
	p.i++
	p.skipWS()
	name, val, err := p.parseField()
	if err != nil {
		return err
	}
	p.skipWS()
	if p.i < len(p.s) && p.s[p.i] == ',' {
		p.i++
		p.skipWS()
	}
	if p.i >= len(p.s) || p.s[p.i] != closer {
		return p.errorf("expected %q to close @string", closer)
	}
	p.i++
	p.macros[name] = val
	return nil
}

func (p *parser) parseEntry(typ string) (string, record.Record, error) {
	closer := closerFor(p.s[p.i])
	p.i++
	p.skipWS()
	key := p.readIdent()
	p.skipWS()
	if p.i >= len(p.s) {
		return "", nil, p.errorf("unterminated @%s entry", typ)
	}
	if key == "" {
		return "", nil, p.errorf("missing citation key in @%s entry", typ)
	}
	if c := p.s[p.i]; c != ',' && c != closer {
		return "", nil, p.errorf("expected ',' or %q after citation key %s, found %q", closer, key, c)
	}
	rec := record.Record{record.FieldEntryType: record.Text(typ)}
	if p.s[p.i] == closer {
		p.i++
		return key, rec, nil
	}
	p.i++ // comma
	for {
		p.skipWS()
		if p.i >= len(p.s) {
			return "", nil, p.errorf("unterminated entry %s", key)
		}
		if p.s[p.i] == closer {
			p.i++
			return key, rec, nil
		}
		name, val, err := p.parseField()
		if err != nil {
			return "", nil, fmt.Errorf("entry %s: %w", key, err)
		}
		rec[name] = record.Text(val)
		p.skipWS()
		if p.i < len(p.s) && p.s[p.i] == ',' {
			p.i++
			continue
		}
		if p.i < len(p.s) && p.s[p.i] == closer {
			p.i++
			return key, rec, nil
		}
		return "", nil, p.errorf("expected ',' or %q after field %s in entry %s", closer, name, key)
	}
}

// parseField reads name = value, where value is one or more pieces joined
// with '#'.
func (p *parser) parseField() (string, string, error) {
	name := strings.ToLower(p.readIdent())
	if name == "" {
		return "", "", p.errorf("expected field name")
	}
	p.skipWS()
	if p.i >= len(p.s) || p.s[p.i] != '=' {
		return "", "", p.errorf("expected '=' after field name %s", name)
	}
	p.i++
	var b strings.Builder
	for {
		p.skipWS()
		piece, err := p.parsePiece()
		if err != nil {
			return "", "", err
		}
		b.WriteString(piece)
		p.skipWS()
		if p.i < len(p.s) && p.s[p.i] == '#' {
			p.i++
			continue
		}
		return name, b.String(), nil
	}
}

func (p *parser) parsePiece() (string, error) {
	if p.i >= len(p.s) {
		return "", p.errorf("expected value")
	}
	switch p.s[p.i] {
	case '{':
		return p.readBraced()
	case '"':
		return p.readQuoted()
	}
	word := p.readIdent()
	if word == "" {
		return "", p.errorf("expected value")
	}
	if isNumber(word) {
		return word, nil
	}
	v, ok := p.macros[strings.ToLower(word)]
	if !ok {
		return "", p.errorf("undefined string %q", word)
	}
	return v, nil
}

// readBraced returns the body of a balanced {...} group.
func (p *parser) readBraced() (string, error) {
	p.i++
	start := p.i
	depth := 0
	for p.i < len(p.s) {
		switch p.s[p.i] {
		case '\\':
			p.i += 2
			continue
		case '{':
			depth++
		case '}':
			if depth == 0 {
				v := p.s[start:p.i]
				p.i++
				return v, nil
			}
			depth--
		}
		p.i++
	}
	return "", p.errorf("unterminated '{' value")
}

// readQuoted returns the body of a "..." value. Quotes inside braces do
// not end it.
func (p *parser) readQuoted() (string, error) {
	p.i++
	start := p.i
	depth := 0
	for p.i < len(p.s) {
		switch p.s[p.i] {
		case '\\':
			p.i += 2
			continue
		case '{':
			depth++
		case '}':
			if depth > 0 {
				depth--
			}
		case '"':
			if depth == 0 {
				v := p.s[start:p.i]
				p.i++
				return v, nil
			}
		}
		p.i++
	}
	return "", p.errorf("unterminated '\"' value")
}

func isNumber(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}
