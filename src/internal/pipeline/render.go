package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"

	"paperman/src/internal/latex"
	"paperman/src/internal/record"
)

func printJSON(w io.Writer, s record.Store) error {
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode selection: %w", err)
	}
	_, err = fmt.Fprintf(w, "%s\n", b)
	return err
}

func printYAML(w io.Writer, s record.Store) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encode selection: %w", err)
	}
	return enc.Close()
}

// display renders a field value for humans. Text and list items have their
// LaTeX decoded; nested records have no single-line form.
func display(v record.Value) (string, bool) {
	switch v.Kind() {
	case record.KindText:
		t, _ := v.AsText()
		return latex.Clean(t), true
	case record.KindList:
		items, _ := v.AsList()
		out := make([]string, len(items))
		for i, it := range items {
			out[i] = latex.Clean(it)
		}
		return strings.Join(out, " and "), true
	case record.KindLiteral:
		return v.String(), true
	default:
		return "", false
	}
}

// list prints field for every entry in key order, one per line, skipping
// entries that have no displayable value.
func list(w io.Writer, s record.Store, field string) error {
	for _, k := range s.Keys() {
		v, ok := s[k].Get(field)
		if !ok {
			continue
		}
		line, ok := display(v)
		if !ok {
			continue
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func listTable(w io.Writer, s record.Store, field string) error {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"KEY", strings.ToUpper(field)})
	for _, k := range s.Keys() {
		cell := ""
		if v, ok := s[k].Get(field); ok {
			cell, _ = display(v)
		}
		tw.AppendRow(table.Row{k, cell})
	}
	_, err := fmt.Fprintln(w, tw.Render())
	return err
}
