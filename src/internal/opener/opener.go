// Package opener launches the configured viewer on stored files.
package opener

import (
	"context"
	"errors"
	"fmt"
	"os/exec"

	"paperman/src/internal/record"
)

// ErrNoFile reports a selected entry without a file field.
var ErrNoFile = errors.New("entry has no file")

// DefaultCommand is the desktop opener.
var DefaultCommand = []string{"xdg-open"}

// Starter launches a process without waiting for it.
type Starter interface {
	Start(name string, args ...string) error
}

type defaultStarter struct{}

// Start launches the program detached; the viewer outlives paperman.
func (defaultStarter) Start(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	return cmd.Process.Release()
}

// Command opens files with Argv followed by the file path.
type Command struct {
	Argv    []string
	Starter Starter
}

// New returns a Command for argv, or DefaultCommand when argv is empty.
func New(argv []string) *Command {
	if len(argv) == 0 {
		argv = DefaultCommand
	}
	return &Command{Argv: argv, Starter: defaultStarter{}}
}

// Files returns the file field of every entry in key order. It fails on the
// first entry lacking a text file field, before anything is launched.
func Files(s record.Store) ([]string, error) {
	files := make([]string, 0, len(s))
	for _, key := range s.Keys() {
		f, ok := s[key].Text(record.FieldFile)
		if !ok || f == "" {
			return nil, fmt.Errorf("%s: %w", key, ErrNoFile)
		}
		files = append(files, f)
	}
	return files, nil
}

// Open starts one viewer per path.
func (c *Command) Open(ctx context.Context, paths []string) error {
	if len(c.Argv) == 0 {
		return errors.New("opener: no command configured")
	}
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		args := append(append([]string{}, c.Argv[1:]...), p)
		if err := c.Starter.Start(c.Argv[0], args...); err != nil {
			return fmt.Errorf("open %s with %s: %w", p, c.Argv[0], err)
		}
	}
	return nil
}
