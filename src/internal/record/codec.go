package record

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// MarshalJSON encodes text as a JSON string, lists as arrays of strings,
// records as objects and literals verbatim.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindText:
		return json.Marshal(v.text)
	case KindList:
		if v.list == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.list)
	case KindRecord:
		if v.rec == nil {
			return []byte("{}"), nil
		}
		return json.Marshal(v.rec)
	case KindLiteral:
		return []byte(v.text), nil
	}
	return []byte("null"), nil
}

// UnmarshalJSON accepts any JSON value. Strings, arrays of strings and objects
// map to their kinds; everything else becomes a literal.
func (v *Value) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return fmt.Errorf("record: empty JSON value")
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = Text(s)
		return nil
	case '[':
		if items, ok := jsonStrings(b); ok {
			*v = List(items...)
			return nil
		}
	case '{':
		var r Record
		if err := json.Unmarshal(b, &r); err != nil {
			return err
		}
		if r == nil {
			r = Record{}
		}
		*v = Nested(r)
		return nil
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, b); err != nil {
		return err
	}
	*v = Literal(compact.String())
	return nil
}

// jsonStrings decodes b as an array of strings. A null element is not a
// string; such arrays are kept as literals so they round-trip.
func jsonStrings(b []byte) ([]string, bool) {
	var ptrs []*string
	if err := json.Unmarshal(b, &ptrs); err != nil {
		return nil, false
	}
	items := make([]string, len(ptrs))
	for i, p := range ptrs {
		if p == nil {
			return nil, false
		}
		items[i] = *p
	}
	return items, true
}

// MarshalYAML mirrors MarshalJSON for the YAML store format.
func (v Value) MarshalYAML() (any, error) {
	switch v.kind {
	case KindText:
		return v.text, nil
	case KindList:
		if v.list == nil {
			return []string{}, nil
		}
		return v.list, nil
	case KindRecord:
		if v.rec == nil {
			return map[string]Value{}, nil
		}
		return map[string]Value(v.rec), nil
	case KindLiteral:
		var doc yaml.Node
		if err := yaml.Unmarshal([]byte(v.text), &doc); err != nil {
			return nil, fmt.Errorf("record: literal %q: %w", v.text, err)
		}
		if len(doc.Content) == 0 {
			return nil, nil
		}
		return doc.Content[0], nil
	}
	return nil, nil
}

// UnmarshalYAML accepts any YAML node; non-string scalars and mixed
// sequences are kept as JSON literals.
func (v *Value) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.AliasNode:
		return v.UnmarshalYAML(n.Alias)
	case yaml.ScalarNode:
		switch n.ShortTag() {
		case "!!str", "!!timestamp", "!!binary":
			*v = Text(n.Value)
			return nil
		}
	case yaml.SequenceNode:
		if items, ok := stringItems(n); ok {
			*v = List(items...)
			return nil
		}
	case yaml.MappingNode:
		r := Record{}
		if err := n.Decode(&r); err != nil {
			return err
		}
		*v = Nested(r)
		return nil
	}
	var x any
	if err := n.Decode(&x); err != nil {
		return err
	}
	raw, err := json.Marshal(x)
	if err != nil {
		return fmt.Errorf("record: line %d: %w", n.Line, err)
	}
	*v = Literal(string(raw))
	return nil
}

func stringItems(n *yaml.Node) ([]string, bool) {
	items := make([]string, 0, len(n.Content))
	for _, c := range n.Content {
		if c.Kind == yaml.AliasNode {
			c = c.Alias
		}
		if c.Kind != yaml.ScalarNode || c.ShortTag() != "!!str" {
			return nil, false
		}
		items = append(items, c.Value)
	}
	return items, true
}
