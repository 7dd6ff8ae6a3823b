// Package models defines the domain types for indexsync.
package models

import (
	"encoding/json"
	"fmt"
)

// Reserved record attributes. They always win over a content field of the same name.
const (
	AttrObjectID = "objectID"
	AttrPath     = "path"
)

// Record is the searchable projection of one indexable content node.
type Record struct {
	ObjectID string
	Path     string
	Fields   map[string]string
}

// Object returns the record as one flat object, the shape the search index
// stores. objectID and path win over same-named fields.
func (r Record) Object() map[string]any {
	out := make(map[string]any, len(r.Fields)+2)
	for k, v := range r.Fields {
		out[k] = v
	}
	out[AttrObjectID] = r.ObjectID
	out[AttrPath] = r.Path
	return out
}

// MarshalJSON encodes the record as its flat object.
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Object())
}

// UnmarshalJSON decodes a flat object produced by MarshalJSON. Non-string
// attributes are kept in their JSON source form.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	rec := Record{Fields: make(map[string]string, len(raw))}
	for k, v := range raw {
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			s = string(v)
		}
		switch k {
		case AttrObjectID:
			rec.ObjectID = s
		case AttrPath:
			rec.Path = s
		default:
			rec.Fields[k] = s
		}
	}
	if rec.ObjectID == "" {
		return fmt.Errorf("models: record without %s", AttrObjectID)
	}
	*r = rec
	return nil
}

// Changeset is the set of remote mutations needed to reconcile one run.
type Changeset struct {
	ToDelete []string `json:"to_delete"`
	ToUpsert []Record `json:"to_upsert"`
}

// UpsertIDs returns the objectIDs of ToUpsert in order.
func (c Changeset) UpsertIDs() []string {
	ids := make([]string, len(c.ToUpsert))
	for i, r := range c.ToUpsert {
		ids[i] = r.ObjectID
	}
	return ids
}
