// Package parser splits a content file into ordered YAML frontmatter fields and a Markdown body.
package parser

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Field is one frontmatter entry in document order.
type Field struct {
	Name  string
	Value any
}

// Result holds the output of parsing a content file.
type Result struct {
	Fields []Field
	Body   string
}

// Lookup returns the value of the named frontmatter field.
func (r *Result) Lookup(name string) (any, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Parse extracts frontmatter fields and body from raw content bytes.
// Content without a frontmatter block is all body. Malformed YAML is an error.
func Parse(data []byte) (*Result, error) {
	block, body, ok := splitFrontmatter(data)
	if !ok {
		return &Result{Body: body}, nil
	}
	fields, err := decodeFields(block)
	if err != nil {
		return nil, err
	}
	return &Result{Fields: fields, Body: body}, nil
}

// splitFrontmatter separates the YAML block (between leading --- delimiters)
// from the body. ok is false when there is no complete block.
func splitFrontmatter(data []byte) ([]byte, string, bool) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data), false
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		// No closing delimiter, treat everything as body.
		return nil, string(data), false
	}

	block := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")
	return block, body, true
}

// decodeFields keeps the mapping order of the frontmatter block.
func decodeFields(block []byte) ([]Field, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(block, &doc); err != nil {
		return nil, fmt.Errorf("parser: frontmatter: %w", err)
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return nil, nil
	}
	root := doc.Content[0]
	if root.Kind == yaml.ScalarNode && root.Tag == "!!null" {
		return nil, nil
	}
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("parser: frontmatter must be a mapping, got %s", root.Tag)
	}

	fields := make([]Field, 0, len(root.Content)/2)
	seen := make(map[string]struct{}, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, val := root.Content[i], root.Content[i+1]
		name := key.Value
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("parser: frontmatter line %d: duplicate key %q", key.Line, name)
		}
		seen[name] = struct{}{}

		var v any
		if err := val.Decode(&v); err != nil {
			return nil, fmt.Errorf("parser: frontmatter key %q: %w", name, err)
		}
		fields = append(fields, Field{Name: name, Value: v})
	}
	return fields, nil
}
