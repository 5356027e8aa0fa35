// Package pipeline parses a command chain and runs it against a session.
//
// A chain is zero or more selection commands (bibtex, bibtex-stdin, doi,
// pick, by) followed by at most one terminal command (add, remove, update,
// print, list, export, open). The whole argument vector is parsed before
// anything runs.
package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"paperman/src/internal/sanitize"
)

// ErrUsage is wrapped by every malformed-chain error.
var ErrUsage = errors.New("usage")

// Grammar documents the chain syntax for help and usage errors.
const Grammar = `Selection commands (narrow or replace the selection, then continue):
  bibtex <path>            select the entries of a BibTeX file
  bibtex-stdin             select the entries of BibTeX read from stdin
  doi <doi>                select the entry doi.org returns for a DOI
  pick                     choose entries interactively
  by <field> <value>       keep entries whose field contains value

Terminal commands (act on the selection and end the chain):
  add                      add or replace the selection in the store
  remove                   remove the selection from the store
  update <field> <value>   set field on every selected entry in the store
  print [--yaml]           print the selection as JSON (or YAML)
  list <field> [--keys]    print one field per entry (as a table with --keys)
  export [--per-entry]     print the selection as BibTeX
  open                     open the file of every selected entry`

// Kind identifies a chain command.
type Kind int

const (
	KindBibtex Kind = iota
	KindBibtexStdin
	KindDOI
	KindPick
	KindBy
	KindAdd
	KindRemove
	KindUpdate
	KindPrint
	KindList
	KindExport
	KindOpen
)

var kindNames = map[Kind]string{
	KindBibtex:      "bibtex",
	KindBibtexStdin: "bibtex-stdin",
	KindDOI:         "doi",
	KindPick:        "pick",
	KindBy:          "by",
	KindAdd:         "add",
	KindRemove:      "remove",
	KindUpdate:      "update",
	KindPrint:       "print",
	KindList:        "list",
	KindExport:      "export",
	KindOpen:        "open",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Terminal reports whether the command ends the chain.
func (k Kind) Terminal() bool { return k >= KindAdd }

// Commits reports whether the command writes the store.
func (k Kind) Commits() bool {
	return k == KindAdd || k == KindRemove || k == KindUpdate
}

// Command is one parsed chain step. Field and Arg carry operands: the path
// for bibtex, the DOI for doi, the field and value for by and update, the
// field for list.
type Command struct {
	Kind  Kind
	Field string
	Arg   string

	YAML     bool // print --yaml
	Keys     bool // list --keys
	PerEntry bool // export --per-entry
}

func (c Command) String() string {
	parts := []string{c.Kind.String()}
	switch c.Kind {
	case KindBy, KindUpdate:
		parts = append(parts, c.Field, c.Arg)
	case KindList:
		parts = append(parts, c.Field)
	case KindBibtex, KindDOI:
		parts = append(parts, c.Arg)
	}
	switch {
	case c.YAML:
		parts = append(parts, "--yaml")
	case c.Keys:
		parts = append(parts, "--keys")
	case c.PerEntry:
		parts = append(parts, "--per-entry")
	}
	return strings.Join(parts, " ")
}

// HasCommit reports whether any command in cmds writes the store.
func HasCommit(cmds []Command) bool {
	for _, c := range cmds {
		if c.Kind.Commits() {
			return true
		}
	}
	return false
}

// Parse turns args into commands. Nothing may follow a terminal command.
func Parse(args []string) ([]Command, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: no command given", ErrUsage)
	}
	p := &argParser{args: args}
	var cmds []Command
	for p.more() {
		c, err := p.next()
		if err != nil {
			return nil, err
		}
		cmds = append(cmds, c)
		if c.Kind.Terminal() && p.more() {
			return nil, fmt.Errorf("%w: unexpected %q after terminal command %s", ErrUsage, p.peek(), c.Kind)
		}
	}
	return cmds, nil
}

type argParser struct {
	args []string
	i    int
}

func (p *argParser) more() bool   { return p.i < len(p.args) }
func (p *argParser) peek() string { return p.args[p.i] }

func (p *argParser) take(cmd, what string) (string, error) {
	if !p.more() {
		return "", fmt.Errorf("%w: %s needs %s", ErrUsage, cmd, what)
	}
	v := p.args[p.i]
	p.i++
	return v, nil
}

func (p *argParser) field(cmd string) (string, error) {
	raw, err := p.take(cmd, "a field name")
	if err != nil {
		return "", err
	}
	f, err := sanitize.FieldName(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrUsage, cmd, err)
	}
	return f, nil
}

// flag consumes name when it is the next token.
func (p *argParser) flag(name string) bool {
	if p.more() && p.peek() == name {
		p.i++
		return true
	}
	return false
}

func (p *argParser) next() (Command, error) {
	name := p.args[p.i]
	p.i++
	switch name {
	case "bibtex":
		path, err := p.take(name, "a file path")
		if err != nil {
			return Command{}, err
		}
		return Command{Kind: KindBibtex, Arg: path}, nil
	case "bibtex-stdin":
		return Command{Kind: KindBibtexStdin}, nil
	case "doi":
		id, err := p.take(name, "a DOI")
		if err != nil {
			return Command{}, err
		}
		return Command{Kind: KindDOI, Arg: strings.TrimSpace(id)}, nil
	case "pick":
		return Command{Kind: KindPick}, nil
	case "by", "update":
		f, err := p.field(name)
		if err != nil {
			return Command{}, err
		}
		v, err := p.take(name, "a value")
		if err != nil {
			return Command{}, err
		}
		if name == "update" {
			return Command{Kind: KindUpdate, Field: f, Arg: sanitize.Value(v)}, nil
		}
		// queries match raw fields byte for byte, so the value stays as typed
		return Command{Kind: KindBy, Field: f, Arg: v}, nil
	case "add":
		return Command{Kind: KindAdd}, nil
	case "remove":
		return Command{Kind: KindRemove}, nil
	case "open":
		return Command{Kind: KindOpen}, nil
	case "print":
		return Command{Kind: KindPrint, YAML: p.flag("--yaml")}, nil
	case "list":
		f, err := p.field(name)
		if err != nil {
			return Command{}, err
		}
		return Command{Kind: KindList, Field: f, Keys: p.flag("--keys")}, nil
	case "export":
		return Command{Kind: KindExport, PerEntry: p.flag("--per-entry")}, nil
	default:
		return Command{}, fmt.Errorf("%w: unknown command %q", ErrUsage, name)
	}
}
