// Package gitutil records store writes as git commits when the store file
// lives in a git work tree.
package gitutil

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"paperman/src/internal/record"
)

// ErrNotRepo reports a store file outside any git work tree.
var ErrNotRepo = errors.New("not inside a git work tree")

// Runner abstracts command execution for testability.
type Runner interface {
	Run(name string, args ...string) (stdout string, stderr string, err error)
}

type defaultRunner struct{}

// Run executes the named program with args and returns stdout, stderr, and error.
func (defaultRunner) Run(name string, args ...string) (string, string, error) {
	cmd := exec.Command(name, args...)
	var out, errB bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errB
	err := cmd.Run()
	return out.String(), errB.String(), err
}

var runner Runner = defaultRunner{}

// git runs a git subcommand inside dir.
func git(dir string, args ...string) (string, string, error) {
	return runner.Run("git", append([]string{"-C", dir}, args...)...)
}

// CommitFile stages path and commits it with message in the repository
// containing it, pushing afterwards when push is set. Treats "nothing to
// commit" as success.
func CommitFile(path, message string, push bool) error {
	dir := filepath.Dir(path)
	if out, _, err := git(dir, "rev-parse", "--is-inside-work-tree"); err != nil || strings.TrimSpace(out) != "true" {
		return fmt.Errorf("%s: %w", dir, ErrNotRepo)
	}
	if err := gitAdd(dir, filepath.Base(path)); err != nil {
		return err
	}
	noChange, err := gitCommit(dir, message)
	if err != nil {
		return err
	}
	if noChange || !push {
		return nil
	}
	return gitPushWithFallback(dir)
}

// gitAdd stages additions, modifications, and deletions for the file.
func gitAdd(dir, name string) error {
	if _, stderr, err := git(dir, "add", "-A", "--", name); err != nil {
		return fmt.Errorf("git add failed: %v: %s", err, stderr)
	}
	return nil
}

// gitCommit attempts to create a commit. It returns (noChange=true) when there
// is nothing to commit, which callers treat as success.
func gitCommit(dir, message string) (noChange bool, err error) {
	stdout, stderr, runErr := git(dir, "commit", "-m", message)
	if runErr == nil {
		return false, nil
	}
	// Some Git versions indicate no-op on stdout or stderr.
	combined := stderr + stdout
	if strings.Contains(combined, "nothing to commit") ||
		strings.Contains(combined, "no changes added to commit") ||
		strings.Contains(combined, "working tree clean") {
		return true, nil
	}
	return false, fmt.Errorf("git commit failed: %v: %s%s", runErr, stderr, stdout)
}

// gitPushWithFallback runs `git push`, and when there is no upstream configured,
// it falls back to `git push -u origin <current-branch>`.
func gitPushWithFallback(dir string) error {
	_, stderr, err := git(dir, "push")
	if err == nil {
		return nil
	}
	if !strings.Contains(stderr, "has no upstream branch") &&
		!strings.Contains(stderr, "no configured push destination") {
		return fmt.Errorf("git push failed: %v: %s", err, stderr)
	}
	br, _, bErr := git(dir, "rev-parse", "--abbrev-ref", "HEAD")
	branch := "HEAD"
	if bErr == nil && strings.TrimSpace(br) != "" {
		branch = strings.TrimSpace(br)
	}
	if _, stderr2, err2 := git(dir, "push", "-u", "origin", branch); err2 != nil {
		return fmt.Errorf("git push failed: %v: %s; fallback failed: %v: %s", err, stderr, err2, stderr2)
	}
	return nil
}

// Saver writes a store.
type Saver interface {
	Save(record.Store) error
}

// Persister saves through Next and then commits the store file at Path.
type Persister struct {
	Next Saver
	Path string
	Push bool
}

// Save writes s and commits the file.
func (p Persister) Save(s record.Store) error {
	if err := p.Next.Save(s); err != nil {
		return err
	}
	msg := fmt.Sprintf("paperman: update %s (%d entries)", filepath.Base(p.Path), len(s))
	if err := CommitFile(p.Path, msg, p.Push); err != nil {
		return fmt.Errorf("commit store: %w", err)
	}
	return nil
}
