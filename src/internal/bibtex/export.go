package bibtex

import (
	"bufio"
	"fmt"
	"io"

	"paperman/src/internal/record"
)

// DefaultEntryType is written for records that carry no entry_type.
const DefaultEntryType = "misc"

// Options controls Export.
type Options struct {
	// PerEntry closes every entry with its own brace. Without it a single
	// closing brace ends the whole output, which is what existing users of
	// the exported text expect.
	PerEntry bool
}

// Export writes s as BibTeX, entries ordered by key and fields by name.
// entry_type becomes the entry header and is not repeated as a field;
// list values are joined with " and ".
func Export(w io.Writer, s record.Store, opts Options) error {
	bw := bufio.NewWriter(w)
	for _, key := range s.Keys() {
		r := s[key]
		typ, ok := r.Text(record.FieldEntryType)
		if !ok || typ == "" {
			typ = DefaultEntryType
		}
		fmt.Fprintf(bw, "@%s{%s,\n", typ, key)
		for _, field := range r.Fields() {
			if field == record.FieldEntryType {
				continue
			}
			fmt.Fprintf(bw, "    %s = {%s},\n", field, r[field].String())
		}
		if opts.PerEntry {
			bw.WriteString("}\n\n")
		}
	}
	if !opts.PerEntry {
		bw.WriteString("}\n")
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write bibtex: %w", err)
	}
	return nil
}
