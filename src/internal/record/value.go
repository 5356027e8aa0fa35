// Package record holds the open-schema data model: a Record maps field names
// to tagged Values and a Store maps citation keys to Records.
package record

import (
	"encoding/json"
	"slices"
	"strings"
)

// Kind tags the shape of a Value.
type Kind int

const (
	// KindNone is the zero Value, returned for missing fields.
	KindNone Kind = iota
	KindText
	KindList
	KindRecord
	// KindLiteral is a non-text scalar or mixed array read from a store file.
	// It is kept verbatim so the file round-trips, and never matches a filter.
	KindLiteral
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindList:
		return "list"
	case KindRecord:
		return "record"
	case KindLiteral:
		return "literal"
	}
	return "none"
}

// Value is one field value. Use the constructors; the zero Value is "absent".
type Value struct {
	kind Kind
	text string // text, or the JSON source of a literal
	list []string
	rec  Record
}

// Text returns a scalar text value.
func Text(s string) Value { return Value{kind: KindText, text: s} }

// List returns an ordered sequence of text values.
func List(items ...string) Value {
	return Value{kind: KindList, list: slices.Clone(items)}
}

// Nested wraps a record as a value.
func Nested(r Record) Value { return Value{kind: KindRecord, rec: r} }

// Literal wraps raw JSON for a value that is neither text, list nor record.
func Literal(raw string) Value { return Value{kind: KindLiteral, text: raw} }

func (v Value) Kind() Kind { return v.kind }

// AsText returns the text of a KindText value.
func (v Value) AsText() (string, bool) {
	if v.kind != KindText {
		return "", false
	}
	return v.text, true
}

// AsList returns the elements of a KindList value.
func (v Value) AsList() ([]string, bool) {
	if v.kind != KindList {
		return nil, false
	}
	return v.list, true
}

// AsRecord returns the nested record of a KindRecord value.
func (v Value) AsRecord() (Record, bool) {
	if v.kind != KindRecord {
		return nil, false
	}
	return v.rec, true
}

// String renders the value as a single line of text. Lists are joined with
// " and ", the BibTeX name separator; nested records render as JSON.
func (v Value) String() string {
	switch v.kind {
	case KindText, KindLiteral:
		return v.text
	case KindList:
		return strings.Join(v.list, " and ")
	case KindRecord:
		b, err := json.Marshal(v.rec)
		if err != nil {
			return ""
		}
		return string(b)
	}
	return ""
}

// Clone returns a deep copy of v.
func (v Value) Clone() Value {
	switch v.kind {
	case KindList:
		return List(v.list...)
	case KindRecord:
		return Nested(v.rec.Clone())
	}
	return v
}

// Equal reports whether v and o have the same kind and contents.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindList:
		return slices.Equal(v.list, o.list)
	case KindRecord:
		return v.rec.Equal(o.rec)
	}
	return v.text == o.text
}
