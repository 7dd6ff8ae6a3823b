// Package selector projects indexable content nodes into search records.
package selector

import (
	"context"
	"fmt"
	"strings"

	"github.com/starford/indexsync/internal/apperr"
	"github.com/starford/indexsync/internal/content"
	"github.com/starford/indexsync/internal/models"
)

// frame is one level of the explicit traversal stack.
type frame struct {
	nodes []*content.Node
	next  int
}

// SelectRecords walks the descendants of root depth-first and returns one
// record per indexable node, in pre-order. Indexability is decided per node:
// a non-indexable parent never hides an indexable child. The root itself is
// not a candidate.
func SelectRecords(ctx context.Context, tree content.Children, root *content.Node) ([]models.Record, error) {
	kids, err := tree.Children(root)
	if err != nil {
		return nil, fmt.Errorf("selector: %w: %w", apperr.ErrContentModel, err)
	}

	var out []models.Record
	seen := make(map[string]string)
	stack := []*frame{{nodes: kids}}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		if top.next >= len(top.nodes) {
			stack = stack[:len(stack)-1]
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n := top.nodes[top.next]
		top.next++

		if Indexable(n) {
			rec, err := Project(n)
			if err != nil {
				return nil, err
			}
			if prev, dup := seen[rec.ObjectID]; dup {
				return nil, fmt.Errorf("selector: %w: objectID %q used by %s and %s",
					apperr.ErrContentModel, rec.ObjectID, prev, n.Path)
			}
			seen[rec.ObjectID] = n.Path
			out = append(out, rec)
		}

		grand, err := tree.Children(n)
		if err != nil {
			return nil, fmt.Errorf("selector: %w: %w", apperr.ErrContentModel, err)
		}
		if len(grand) > 0 {
			stack = append(stack, &frame{nodes: grand})
		}
	}
	return out, nil
}

// Indexable reports whether n is visible and explicitly marked for the index.
// A missing or non-boolean indexed field counts as not indexable.
func Indexable(n *content.Node) bool {
	if n.Hidden {
		return false
	}
	v, ok := n.Field(content.FieldIndexed)
	return ok && v.IsTrue()
}

// PublicField reports whether a field is copied into records.
func PublicField(name string) bool {
	return name != "" && !strings.HasPrefix(name, content.SystemPrefix) && name != content.FieldIndexed
}

// Project converts one node into a record.
func Project(n *content.Node) (models.Record, error) {
	if n.ID == "" {
		return models.Record{}, fmt.Errorf("selector: %w: %s has an empty identifier", apperr.ErrContentModel, n.Path)
	}
	fields := make(map[string]string, len(n.Fields))
	for _, f := range n.Fields {
		if !PublicField(f.Name) {
			continue
		}
		s, err := f.Value.String()
		if err != nil {
			return models.Record{}, fmt.Errorf("selector: %w: %s field %q: %w", apperr.ErrContentModel, n.Path, f.Name, err)
		}
		fields[f.Name] = s
	}
	return models.Record{ObjectID: n.ID, Path: n.Path, Fields: fields}, nil
}
