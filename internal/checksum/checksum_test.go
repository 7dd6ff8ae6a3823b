package checksum

import (
	"testing"

	"github.com/starford/indexsync/internal/models"
)

func TestRecords_OrderIndependent(t *testing.T) {
	a := models.Record{ObjectID: "a", Path: "/a", Fields: map[string]string{"title": "A", "body": "x"}}
	b := models.Record{ObjectID: "b", Path: "/b", Fields: map[string]string{"title": "B"}}

	d1, err := Records([]models.Record{a, b})
	if err != nil {
		t.Fatal(err)
	}
	d2, err := Records([]models.Record{b, a})
	if err != nil {
		t.Fatal(err)
	}
	if d1 != d2 {
		t.Errorf("digest depends on order: %s vs %s", d1, d2)
	}
}

func TestRecords_FieldChangeAltersDigest(t *testing.T) {
	a := models.Record{ObjectID: "a", Path: "/a", Fields: map[string]string{"title": "A"}}
	changed := models.Record{ObjectID: "a", Path: "/a", Fields: map[string]string{"title": "A2"}}

	d1, _ := Records([]models.Record{a})
	d2, _ := Records([]models.Record{changed})
	if d1 == d2 {
		t.Error("field change should alter digest")
	}
}
