// Package store loads and saves the citation database: one file mapping
// citation keys to records.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/natefinch/atomic"
	"gopkg.in/yaml.v3"

	"paperman/src/internal/record"
)

// Format is the on-disk encoding of a store file.
type Format int

const (
	JSON Format = iota
	YAML
)

func (f Format) String() string {
	if f == YAML {
		return "yaml"
	}
	return "json"
}

// FormatFor picks the encoding from the file extension: .yaml and .yml are
// YAML, anything else is JSON.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAML
	default:
		return JSON
	}
}

// lockRetry is how often Lock polls a held lock file.
var lockRetry = 100 * time.Millisecond

// File is a store persisted at Path.
type File struct {
	Path   string
	Format Format
}

// Open returns a File for path with its format chosen by extension.
func Open(path string) *File {
	return &File{Path: path, Format: FormatFor(path)}
}

// Load reads the store. A missing or blank file yields an empty store.
func (f *File) Load() (record.Store, error) {
	b, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return record.Store{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read store %s: %w", f.Path, err)
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return record.Store{}, nil
	}
	s := record.Store{}
	switch f.Format {
	case YAML:
		err = yaml.Unmarshal(b, &s)
	default:
		err = json.Unmarshal(b, &s)
	}
	if err != nil {
		return nil, fmt.Errorf("decode store %s as %s: %w", f.Path, f.Format, err)
	}
	if s == nil {
		s = record.Store{}
	}
	return s, nil
}

// Save replaces the file with the encoded store. The parent directory is
// created when missing and the write is atomic.
func (f *File) Save(s record.Store) error {
	if s == nil {
		s = record.Store{}
	}
	var (
		b   []byte
		err error
	)
	switch f.Format {
	case YAML:
		b, err = yaml.Marshal(s)
	default:
		b, err = json.MarshalIndent(s, "", "  ")
		b = append(b, '\n')
	}
	if err != nil {
		return fmt.Errorf("encode store: %w", err)
	}
	if dir := filepath.Dir(f.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create store dir: %w", err)
		}
	}
	if err := atomic.WriteFile(f.Path, bytes.NewReader(b)); err != nil {
		return fmt.Errorf("write store %s: %w", f.Path, err)
	}
	return nil
}

// Lock takes an exclusive advisory lock on Path+".lock", waiting until ctx
// is done. The returned func releases it.
func (f *File) Lock(ctx context.Context) (func() error, error) {
	if dir := filepath.Dir(f.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}
	lk := flock.New(f.Path + ".lock")
	ok, err := lk.TryLockContext(ctx, lockRetry)
	if err != nil {
		return nil, fmt.Errorf("lock store %s: %w", f.Path, err)
	}
	if !ok {
		return nil, fmt.Errorf("lock store %s: %w", f.Path, ErrLocked)
	}
	return lk.Unlock, nil
}

// ErrLocked reports that another process holds the store lock.
var ErrLocked = errors.New("store is locked by another process")

// Memory keeps the store in memory. Saves counts successful saves.
type Memory struct {
	mu    sync.Mutex
	data  record.Store
	Saves int
	Err   error
}

// NewMemory returns a Memory seeded with a copy of s.
func NewMemory(s record.Store) *Memory {
	return &Memory{data: s.Clone()}
}

func (m *Memory) Load() (record.Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return record.Store{}, nil
	}
	return m.data.Clone(), nil
}

func (m *Memory) Save(s record.Store) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.data = s.Clone()
	m.Saves++
	return nil
}
