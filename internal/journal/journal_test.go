package journal

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/starford/indexsync/internal/apperr"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "indexsync-journal-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM runs`).Scan(&count); err != nil {
		t.Fatalf("runs table missing: %v", err)
	}
}

func TestRecordAndRecent(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	runs := []Run{
		{ID: "r1", Index: "docs", Status: StatusOK, Local: 3, Remote: 3, Deleted: 1, Upserted: 3, StartedAt: base, FinishedAt: base.Add(time.Second)},
		{ID: "r2", Index: "docs", Status: StatusFailed, Error: "remote", StartedAt: base.Add(time.Minute), FinishedAt: base.Add(time.Minute)},
		{ID: "r3", Index: "blog", Status: StatusSkipped, StartedAt: base.Add(2 * time.Minute), FinishedAt: base.Add(2 * time.Minute)},
	}
	for _, r := range runs {
		if err := db.Record(ctx, r); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	got, err := db.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 3 || got[0].ID != "r3" || got[2].ID != "r1" {
		t.Fatalf("recent = %+v", got)
	}
	if got[2].Deleted != 1 || got[2].Upserted != 3 || !got[2].StartedAt.Equal(base) {
		t.Errorf("r1 = %+v", got[2])
	}

	limited, _ := db.Recent(ctx, 1)
	if len(limited) != 1 {
		t.Errorf("limit ignored: %d rows", len(limited))
	}
}

func TestLast(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	now := time.Now()
	_ = db.Record(ctx, Run{ID: "a", Index: "docs", Status: StatusOK, Digest: "d1", StartedAt: now, FinishedAt: now})
	_ = db.Record(ctx, Run{ID: "b", Index: "docs", Status: StatusOK, Digest: "d2", StartedAt: now.Add(time.Second), FinishedAt: now.Add(time.Second)})

	_ = db.Record(ctx, Run{ID: "c", Index: "docs", Status: StatusFailed, StartedAt: now.Add(2 * time.Second), FinishedAt: now.Add(2 * time.Second)})
	_ = db.Record(ctx, Run{ID: "d", Index: "docs", Status: StatusDryRun, Digest: "d3", StartedAt: now.Add(3 * time.Second), FinishedAt: now.Add(3 * time.Second)})

	last, err := db.Last(ctx, "docs")
	if err != nil {
		t.Fatalf("Last: %v", err)
	}
	if last.ID != "b" || last.Digest != "d2" {
		t.Errorf("last = %+v", last)
	}

	if _, err := db.Last(ctx, "missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestRecordReplacesSameID(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	now := time.Now()
	_ = db.Record(ctx, Run{ID: "x", Status: StatusFailed, StartedAt: now, FinishedAt: now})
	_ = db.Record(ctx, Run{ID: "x", Status: StatusOK, Upserted: 2, StartedAt: now, FinishedAt: now})

	got, _ := db.Recent(ctx, 10)
	if len(got) != 1 || got[0].Status != StatusOK || got[0].Upserted != 2 {
		t.Errorf("runs = %+v", got)
	}
}

func TestRecordRequiresID(t *testing.T) {
	db := testDB(t)
	if err := db.Record(context.Background(), Run{Status: StatusOK}); err == nil {
		t.Fatal("expected error without id")
	}
}
