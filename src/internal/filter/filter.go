// Package filter decides whether a record field matches a query string.
package filter

import (
	"strings"

	"paperman/src/internal/latex"
	"paperman/src/internal/record"
)

// NormalizeFor reports whether queries against field are accent- and
// case-insensitive. Only title and author are; every other field uses raw
// substring containment.
func NormalizeFor(field string) bool {
	switch field {
	case record.FieldTitle, record.FieldAuthor:
		return true
	}
	return false
}

// Matches reports whether query is contained in value. Text values are
// tested directly, lists match when any element does, and every other shape
// (missing, nested record, literal) never matches.
func Matches(query string, value record.Value, normalize bool) bool {
	switch value.Kind() {
	case record.KindText:
		s, _ := value.AsText()
		return contains(s, query, normalize)
	case record.KindList:
		items, _ := value.AsList()
		for _, s := range items {
			if contains(s, query, normalize) {
				return true
			}
		}
	}
	return false
}

// By returns the predicate used by the "by <field> <value>" command.
func By(field, query string) func(record.Record) bool {
	normalize := NormalizeFor(field)
	if normalize {
		query = latex.Fold(query)
	}
	return func(r record.Record) bool {
		v, ok := r.Get(field)
		if !ok {
			return false
		}
		if normalize {
			return matchesFolded(query, v)
		}
		return Matches(query, v, false)
	}
}

func contains(haystack, needle string, normalize bool) bool {
	if normalize {
		return strings.Contains(latex.Fold(haystack), latex.Fold(needle))
	}
	return strings.Contains(haystack, needle)
}

// matchesFolded is Matches with an already folded query, so a filter over a
// large selection folds the query once.
func matchesFolded(folded string, value record.Value) bool {
	switch value.Kind() {
	case record.KindText:
		s, _ := value.AsText()
		return strings.Contains(latex.Fold(s), folded)
	case record.KindList:
		items, _ := value.AsList()
		for _, s := range items {
			if strings.Contains(latex.Fold(s), folded) {
				return true
			}
		}
	}
	return false
}
