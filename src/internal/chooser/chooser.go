// Package chooser asks an external menu program to pick entries.
//
// Labels are written to the program's stdin one per line and the program
// answers with the zero-based indices of the chosen lines on stdout.
package chooser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sort"
	"strconv"
	"strings"
)

var (
	// ErrCancelled reports that the menu exited non-zero without a choice.
	ErrCancelled = errors.New("chooser: cancelled")
	// ErrInvalidIndex reports output that is not an index of a label.
	ErrInvalidIndex = errors.New("chooser: invalid index")
)

// DefaultCommand is rofi in multi-select dmenu mode answering indices.
var DefaultCommand = []string{"rofi", "-dmenu", "-format", "i", "-multi-select", "-i"}

// Runner abstracts command execution for testability.
type Runner interface {
	Run(ctx context.Context, stdin io.Reader, name string, args ...string) (stdout string, stderr string, err error)
}

type defaultRunner struct{}

// Run executes the named program feeding it stdin and returns stdout, stderr, and error.
func (defaultRunner) Run(ctx context.Context, stdin io.Reader, name string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var out, errB bytes.Buffer
	cmd.Stdin = stdin
	cmd.Stdout = &out
	cmd.Stderr = &errB
	err := cmd.Run()
	return out.String(), errB.String(), err
}

// Command runs Argv as the menu.
type Command struct {
	Argv   []string
	Runner Runner
}

// New returns a Command for argv, or DefaultCommand when argv is empty.
func New(argv []string) *Command {
	if len(argv) == 0 {
		argv = DefaultCommand
	}
	return &Command{Argv: argv, Runner: defaultRunner{}}
}

// Choose shows labels and returns the chosen indices in ascending order
// without duplicates. An empty answer from a menu that exited cleanly is an
// empty choice.
func (c *Command) Choose(ctx context.Context, labels []string) ([]int, error) {
	if len(c.Argv) == 0 {
		return nil, errors.New("chooser: no command configured")
	}
	var in strings.Builder
	for _, l := range labels {
		in.WriteString(strings.ReplaceAll(l, "\n", " "))
		in.WriteByte('\n')
	}
	stdout, stderr, err := c.Runner.Run(ctx, strings.NewReader(in.String()), c.Argv[0], c.Argv[1:]...)
	if err != nil {
		var exitErr *exec.ExitError
		if strings.TrimSpace(stdout) == "" && errors.As(err, &exitErr) {
			return nil, ErrCancelled
		}
		return nil, fmt.Errorf("chooser: %s failed: %v: %s", c.Argv[0], err, strings.TrimSpace(stderr))
	}
	return ParseIndices(stdout, len(labels))
}

// ParseIndices reads whitespace-separated indices, each of which must be in
// [0, n).
func ParseIndices(out string, n int) ([]int, error) {
	seen := map[int]bool{}
	var idx []int
	for _, tok := range strings.Fields(out) {
		i, err := strconv.Atoi(tok)
		if err != nil || i < 0 || i >= n {
			return nil, fmt.Errorf("%w: %q", ErrInvalidIndex, tok)
		}
		if !seen[i] {
			seen[i] = true
			idx = append(idx, i)
		}
	}
	sort.Ints(idx)
	return idx, nil
}
