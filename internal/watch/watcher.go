// Package watch reports content tree changes in debounced batches.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is used when a non-positive debounce is given.
const DefaultDebounce = 500 * time.Millisecond

// Change kinds.
const (
	KindCreated = "created"
	KindUpdated = "updated"
	KindDeleted = "deleted"
	KindRenamed = "renamed"
)

// Change is one filesystem change below the content root.
type Change struct {
	Kind string `json:"kind"`
	Path string `json:"path"`
}

// Callback receives the changes collected during one quiet period, sorted by
// path. Each path appears once with its latest kind.
type Callback func(ctx context.Context, changes []Change)

// Watch starts an fsnotify watcher on root and blocks until ctx is
// cancelled. Events are collected until no new event arrives for debounce,
// then handed to cb in one call. cb runs on the watcher goroutine, so events
// that arrive meanwhile are delivered in the next batch.
//
// New directories created at runtime are added to the watch list. Paths with
// a dot-prefixed segment are ignored.
func Watch(ctx context.Context, root string, debounce time.Duration, logger *slog.Logger, cb Callback) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root); err != nil {
		return err
	}
	logger.Info("watcher: started", slog.String("root", root), slog.Duration("debounce", debounce))

	pending := make(map[string]string)
	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("watcher: stopped")
			return nil

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			batch := drain(pending)
			logger.Debug("watcher: flushing", slog.Int("changes", len(batch)))
			cb(ctx, batch)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			rel, err := filepath.Rel(root, ev.Name)
			if err != nil || ignored(rel) {
				continue
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", rel),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching new dir", slog.String("path", rel))
					}
				}
			}

			kind := kindOf(ev.Op)
			if kind == "" {
				continue
			}
			pending[filepath.ToSlash(rel)] = kind
			timer.Reset(debounce)

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func kindOf(op fsnotify.Op) string {
	switch {
	case op&fsnotify.Remove != 0:
		return KindDeleted
	case op&fsnotify.Rename != 0:
		return KindRenamed
	case op&fsnotify.Create != 0:
		return KindCreated
	case op&fsnotify.Write != 0:
		return KindUpdated
	default:
		return ""
	}
}

func drain(pending map[string]string) []Change {
	out := make([]Change, 0, len(pending))
	for p, k := range pending {
		out = append(out, Change{Kind: k, Path: p})
		delete(pending, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

func ignored(rel string) bool {
	if rel == "." {
		return false
	}
	for _, seg := range strings.Split(filepath.ToSlash(rel), "/") {
		if strings.HasPrefix(seg, ".") {
			return true
		}
	}
	return false
}

// addDirsRecursive adds root and all its non-hidden subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}
