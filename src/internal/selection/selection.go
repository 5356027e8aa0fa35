// Package selection holds the working subset of the store that a command
// chain narrows, and the commit operations that write it back.
package selection

import (
	"errors"
	"fmt"

	"paperman/src/internal/record"
)

// Persister writes the whole store. Commits call it once, after mutating.
type Persister interface {
	Save(record.Store) error
}

// Session is the single-owner state threaded through a command chain.
// Selection never shares storage with Store; only commits touch Store.
type Session struct {
	Store     record.Store
	Selection record.Store
	committed bool
}

// New starts a session whose selection is a deep copy of store.
func New(store record.Store) *Session {
	if store == nil {
		store = record.Store{}
	}
	return &Session{Store: store, Selection: store.Clone()}
}

// Len returns the number of selected entries.
func (s *Session) Len() int { return len(s.Selection) }

// Committed reports whether a commit has written the store.
func (s *Session) Committed() bool { return s.committed }

// Replace discards the selection and selects a copy of records instead.
func (s *Session) Replace(records record.Store) {
	s.Selection = records.Clone()
}

// Prune removes every selected entry for which keep returns false and
// returns how many were removed.
func (s *Session) Prune(keep func(key string, r record.Record) bool) int {
	removed := 0
	for key, r := range s.Selection {
		if !keep(key, r) {
			delete(s.Selection, key)
			removed++
		}
	}
	return removed
}

// Keep prunes the selection to exactly the given keys.
func (s *Session) Keep(keys []string) int {
	want := make(map[string]bool, len(keys))
	for _, k := range keys {
		want[k] = true
	}
	return s.Prune(func(key string, _ record.Record) bool { return want[key] })
}

// CommitAdd upserts every selected record into the store, then persists it.
// The selected record replaces any existing entry with the same key.
func (s *Session) CommitAdd(p Persister) error {
	for key, r := range s.Selection {
		s.Store[key] = r.Clone()
	}
	return s.persist(p)
}

// CommitRemove deletes every selected key from the store, then persists it.
// Keys the store does not hold are ignored.
func (s *Session) CommitRemove(p Persister) error {
	for key := range s.Selection {
		delete(s.Store, key)
	}
	return s.persist(p)
}

// CommitUpdate sets field to value on the stored record of every selected
// key, then persists the store. It writes the store, not the selection; a
// selected key the store lacks gets a record holding only that field.
func (s *Session) CommitUpdate(p Persister, field string, value record.Value) error {
	for key := range s.Selection {
		r, ok := s.Store[key]
		if !ok || r == nil {
			r = record.Record{}
			s.Store[key] = r
		}
		r[field] = value.Clone()
	}
	return s.persist(p)
}

func (s *Session) persist(p Persister) error {
	if p == nil {
		return errors.New("no store to save to")
	}
	if err := p.Save(s.Store); err != nil {
		return fmt.Errorf("save store: %w", err)
	}
	s.committed = true
	return nil
}
