// Package testutil provides shared test helpers for content trees and journals.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/indexsync/internal/content"
	"github.com/starford/indexsync/internal/journal"
	"github.com/starford/indexsync/internal/storage"
)

// TestDB creates a temporary journal database that is automatically cleaned up.
func TestDB(t *testing.T) *journal.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "indexsync-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := journal.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestContent creates a temporary content root and a tree reading it.
func TestContent(t *testing.T, opts ...content.Option) (string, *content.Tree) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	WriteNode(t, dir, "", "---\ntitle: Home\n---\n")
	return dir, content.NewTree(store, opts...)
}

// WriteNode writes the contents file of the node at dir (slash separated,
// relative to root).
func WriteNode(t *testing.T, root, dir, data string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(dir))
	if err := os.MkdirAll(p, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(p, content.ContentsFile), []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
}

// WriteIndexed writes one indexed node per id under root, each with _id set
// so its objectID equals the id.
func WriteIndexed(t *testing.T, root string, ids ...string) {
	t.Helper()
	for _, id := range ids {
		WriteNode(t, root, "pages/"+id, fmt.Sprintf("---\n_id: %s\ntitle: Page %s\nindexed: true\n---\nBody of %s\n", id, id, id))
	}
}

// RemoveNode deletes the node at dir and everything below it.
func RemoveNode(t *testing.T, root, dir string) {
	t.Helper()
	if err := os.RemoveAll(filepath.Join(root, filepath.FromSlash(dir))); err != nil {
		t.Fatal(err)
	}
}
