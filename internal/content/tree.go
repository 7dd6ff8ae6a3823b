package content

import (
	"fmt"
	"path"

	"github.com/google/uuid"

	"github.com/starford/indexsync/internal/parser"
	"github.com/starford/indexsync/internal/storage"
)

// ContentsFile is the per-directory file holding a node's fields.
const ContentsFile = "contents.md"

// namespace seeds deterministic node identifiers.
var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("indexsync:content"))

// Tree loads nodes from a content directory.
type Tree struct {
	store    storage.Provider
	markdown map[string]struct{}
}

// Option configures a Tree.
type Option func(*Tree)

// WithMarkdownFields types the named frontmatter fields as markdown.
func WithMarkdownFields(names ...string) Option {
	return func(t *Tree) {
		for _, n := range names {
			t.markdown[n] = struct{}{}
		}
	}
}

// NewTree returns a tree reading from store.
func NewTree(store storage.Provider, opts ...Option) *Tree {
	t := &Tree{store: store, markdown: make(map[string]struct{})}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Root loads the root node.
func (t *Tree) Root() (*Node, error) {
	return t.load("")
}

// Children loads the child nodes of n in lexical order.
func (t *Tree) Children(n *Node) ([]*Node, error) {
	dirs, err := t.store.Subdirs(n.dir)
	if err != nil {
		return nil, fmt.Errorf("content: children of %s: %w", n.Path, err)
	}
	out := make([]*Node, 0, len(dirs))
	for _, d := range dirs {
		child, err := t.load(d)
		if err != nil {
			return nil, err
		}
		out = append(out, child)
	}
	return out, nil
}

// NodeID returns the generated identifier for a locator path.
func NodeID(locator string) string {
	return uuid.NewSHA1(namespace, []byte(locator)).String()
}

func (t *Tree) load(dir string) (*Node, error) {
	n := &Node{Path: "/" + dir, dir: dir}
	n.ID = NodeID(n.Path)

	file := path.Join(dir, ContentsFile)
	ok, err := t.store.Exists(file)
	if err != nil {
		return nil, fmt.Errorf("content: %s: %w", n.Path, err)
	}
	if !ok {
		return n, nil
	}
	data, err := t.store.Read(file)
	if err != nil {
		return nil, fmt.Errorf("content: %s: %w", n.Path, err)
	}
	res, err := parser.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("content: %s: %w", n.Path, err)
	}

	for _, f := range res.Fields {
		_, md := t.markdown[f.Name]
		n.Fields = append(n.Fields, Field{Name: f.Name, Value: FromYAML(f.Value, md)})
	}
	if res.Body != "" {
		if _, dup := res.Lookup(FieldBody); dup {
			return nil, fmt.Errorf("content: %s: frontmatter field %q clashes with the body", n.Path, FieldBody)
		}
		n.Fields = append(n.Fields, Field{Name: FieldBody, Value: Markdown(res.Body)})
	}

	if v, ok := n.Field(FieldHidden); ok {
		n.Hidden = v.IsTrue()
	}
	if v, ok := n.Field(FieldID); ok {
		id, err := v.String()
		if err != nil {
			return nil, fmt.Errorf("content: %s: %s: %w", n.Path, FieldID, err)
		}
		n.ID = id
	}
	return n, nil
}
