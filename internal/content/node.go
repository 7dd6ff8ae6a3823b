// Package content models the hierarchical content tree that records are derived from.
package content

// Reserved field names. Fields starting with SystemPrefix are internal.
const (
	SystemPrefix = "_"
	FieldHidden  = "_hidden"
	FieldID      = "_id"
	FieldIndexed = "indexed"
	FieldBody    = "body"
)

// Field is a named value on a node.
type Field struct {
	Name  string
	Value Value
}

// Node is one entry in the content tree. Children are loaded on demand by the tree.
type Node struct {
	// Path is the slash-separated locator, "/" for the root.
	Path   string
	ID     string
	Hidden bool
	Fields []Field

	dir string // content-relative directory, "" for the root
}

// Field returns the value of the named field.
func (n *Node) Field(name string) (Value, bool) {
	for _, f := range n.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return Value{}, false
}

// Children abstracts child enumeration so traversal does not depend on how
// the tree is stored.
type Children interface {
	Children(n *Node) ([]*Node, error)
}
