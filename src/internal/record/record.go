package record

import (
	"maps"
	"slices"
)

// Field names with fixed meaning. Everything else is open.
const (
	FieldEntryType = "entry_type"
	FieldFile      = "file"
	FieldTitle     = "title"
	FieldAuthor    = "author"
)

// Record is the field data of one bibliographic entry.
type Record map[string]Value

// Get returns the value of field and whether it is present.
func (r Record) Get(field string) (Value, bool) {
	v, ok := r[field]
	if !ok || v.kind == KindNone {
		return Value{}, false
	}
	return v, true
}

// Text returns the field's text when the field holds a scalar text value.
func (r Record) Text(field string) (string, bool) {
	v, ok := r.Get(field)
	if !ok {
		return "", false
	}
	return v.AsText()
}

// Fields returns the field names in sorted order.
func (r Record) Fields() []string {
	return slices.Sorted(maps.Keys(r))
}

// Clone returns a deep copy of r.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v.Clone()
	}
	return out
}

// Equal reports whether r and o hold the same fields and values.
func (r Record) Equal(o Record) bool {
	return maps.EqualFunc(r, o, Value.Equal)
}

// Store maps citation keys to records.
type Store map[string]Record

// Keys returns the citation keys in sorted order.
func (s Store) Keys() []string {
	return slices.Sorted(maps.Keys(s))
}

// Clone returns a deep copy of s that shares no storage with it.
func (s Store) Clone() Store {
	out := make(Store, len(s))
	for k, r := range s {
		out[k] = r.Clone()
	}
	return out
}
