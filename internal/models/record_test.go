package models

import (
	"encoding/json"
	"testing"
)

func TestRecordMarshal_Flat(t *testing.T) {
	r := Record{
		ObjectID: "abc",
		Path:     "/blog/first",
		Fields:   map[string]string{"title": "First", "path": "shadowed"},
	}
	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if m["objectID"] != "abc" || m["path"] != "/blog/first" || m["title"] != "First" {
		t.Errorf("flat object = %v", m)
	}
}

func TestRecordUnmarshal_KeepsNonStringSource(t *testing.T) {
	var r Record
	if err := json.Unmarshal([]byte(`{"objectID":"x","path":"/x","views":12}`), &r); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if r.ObjectID != "x" || r.Path != "/x" {
		t.Errorf("record = %+v", r)
	}
	if r.Fields["views"] != "12" {
		t.Errorf("views = %q, want 12", r.Fields["views"])
	}
}

func TestRecordUnmarshal_RequiresObjectID(t *testing.T) {
	var r Record
	if err := json.Unmarshal([]byte(`{"path":"/x"}`), &r); err == nil {
		t.Fatal("expected error for record without objectID")
	}
}

func TestCredentialsComplete(t *testing.T) {
	if (Credentials{AppID: "A"}).Complete() {
		t.Error("missing api key should be incomplete")
	}
	if !(Credentials{AppID: "A", APIKey: "B"}).Complete() {
		t.Error("both fields set should be complete")
	}
}
