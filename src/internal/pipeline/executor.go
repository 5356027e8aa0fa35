package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"paperman/src/internal/bibtex"
	"paperman/src/internal/filter"
	"paperman/src/internal/latex"
	"paperman/src/internal/opener"
	"paperman/src/internal/record"
	"paperman/src/internal/selection"
)

// Chooser picks entries from a list of display labels and returns the
// chosen zero-based indices.
type Chooser interface {
	Choose(ctx context.Context, labels []string) ([]int, error)
}

// Opener launches a viewer for each path without waiting for it.
type Opener interface {
	Open(ctx context.Context, paths []string) error
}

// Fetcher resolves an identifier to citation records.
type Fetcher interface {
	Fetch(ctx context.Context, id string) (record.Store, error)
}

// Executor runs parsed chains. Out receives command output; Stdin feeds
// bibtex-stdin. Collaborators a chain does not use may be nil.
type Executor struct {
	Out       io.Writer
	Stdin     io.Reader
	ReadFile  func(string) ([]byte, error)
	Chooser   Chooser
	Opener    Opener
	Fetcher   Fetcher
	Persister selection.Persister
	Logger    *slog.Logger
}

func (e *Executor) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return e.Logger
}

// Run applies cmds to s in order and stops after the first terminal
// command. A chain without one leaves the store untouched.
func (e *Executor) Run(ctx context.Context, s *selection.Session, cmds []Command) error {
	log := e.logger()
	for _, c := range cmds {
		before := s.Len()
		if err := e.step(ctx, s, c); err != nil {
			return fmt.Errorf("%s: %w", c.Kind, err)
		}
		log.Debug("chain step", "command", c.String(), "before", before, "after", s.Len())
		if c.Kind.Terminal() {
			return nil
		}
	}
	log.Warn("chain has no terminal command; nothing written or printed", "selected", s.Len())
	return nil
}

func (e *Executor) step(ctx context.Context, s *selection.Session, c Command) error {
	switch c.Kind {
	case KindBibtex:
		read := e.ReadFile
		if read == nil {
			read = os.ReadFile
		}
		b, err := read(c.Arg)
		if err != nil {
			return err
		}
		return e.importBibtex(s, string(b), c.Arg)
	case KindBibtexStdin:
		if e.Stdin == nil {
			return fmt.Errorf("no standard input")
		}
		b, err := io.ReadAll(e.Stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		return e.importBibtex(s, string(b), "stdin")
	case KindDOI:
		if e.Fetcher == nil {
			return fmt.Errorf("no DOI resolver configured")
		}
		recs, err := e.Fetcher.Fetch(ctx, c.Arg)
		if err != nil {
			return err
		}
		s.Replace(recs)
		return nil
	case KindPick:
		return e.pick(ctx, s)
	case KindBy:
		match := filter.By(c.Field, c.Arg)
		s.Prune(func(_ string, r record.Record) bool { return match(r) })
		return nil
	case KindAdd:
		e.announce("Adding", s.Selection)
		if err := s.CommitAdd(e.Persister); err != nil {
			return err
		}
		e.logger().Info("added entries", "count", s.Len(), "keys", s.Selection.Keys())
		return nil
	case KindRemove:
		e.announce("Removing", s.Selection)
		if err := s.CommitRemove(e.Persister); err != nil {
			return err
		}
		e.logger().Info("removed entries", "count", s.Len(), "keys", s.Selection.Keys())
		return nil
	case KindUpdate:
		e.announce("Updating", s.Selection)
		if err := s.CommitUpdate(e.Persister, c.Field, record.Text(c.Arg)); err != nil {
			return err
		}
		e.logger().Info("updated entries", "field", c.Field, "count", s.Len(), "keys", s.Selection.Keys())
		return nil
	case KindPrint:
		if c.YAML {
			return printYAML(e.Out, s.Selection)
		}
		return printJSON(e.Out, s.Selection)
	case KindList:
		if c.Keys {
			return listTable(e.Out, s.Selection, c.Field)
		}
		return list(e.Out, s.Selection, c.Field)
	case KindExport:
		return bibtex.Export(e.Out, s.Selection, bibtex.Options{PerEntry: c.PerEntry})
	case KindOpen:
		return e.open(ctx, s)
	default:
		return fmt.Errorf("%w: unhandled command %s", ErrUsage, c.Kind)
	}
}

func (e *Executor) importBibtex(s *selection.Session, src, from string) error {
	recs, err := bibtex.Parse(src)
	if err != nil {
		return fmt.Errorf("%s: %w", from, err)
	}
	s.Replace(recs)
	return nil
}

func (e *Executor) pick(ctx context.Context, s *selection.Session) error {
	if e.Chooser == nil {
		return fmt.Errorf("no chooser configured")
	}
	keys := s.Selection.Keys()
	labels := make([]string, len(keys))
	for i, k := range keys {
		labels[i] = Label(k, s.Selection[k])
	}
	idx, err := e.Chooser.Choose(ctx, labels)
	if err != nil {
		return err
	}
	chosen := make([]string, 0, len(idx))
	for _, i := range idx {
		if i < 0 || i >= len(keys) {
			return fmt.Errorf("chooser returned index %d for %d entries", i, len(keys))
		}
		chosen = append(chosen, keys[i])
	}
	s.Keep(chosen)
	return nil
}

// Label is the display string for an entry: its cleaned title, or the key
// when there is no text title.
func Label(key string, r record.Record) string {
	if t, ok := r.Text(record.FieldTitle); ok {
		if l := latex.Clean(t); l != "" {
			return l
		}
	}
	return key
}

func (e *Executor) open(ctx context.Context, s *selection.Session) error {
	if e.Opener == nil {
		return fmt.Errorf("no opener configured")
	}
	files, err := opener.Files(s.Selection)
	if err != nil {
		return err
	}
	for _, f := range files {
		fmt.Fprintf(e.Out, "Opening %s\n", f)
	}
	return e.Opener.Open(ctx, files)
}

func (e *Executor) announce(verb string, sel record.Store) {
	for _, k := range sel.Keys() {
		fmt.Fprintf(e.Out, "%s %s\n", verb, k)
	}
}
