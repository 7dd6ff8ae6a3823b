// Package target resolves deploy target URLs to publishers.
package target

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/starford/indexsync/internal/models"
)

// Request describes one publish run. RunID is generated when empty.
type Request struct {
	RunID    string
	Target   *url.URL
	Override *models.Override
	DryRun   bool
}

// Emitter receives progress lines. Returning false asks the run to stop.
type Emitter func(line string) bool

// Publisher performs publish runs against one kind of target.
type Publisher interface {
	Run(ctx context.Context, req Request, emit Emitter) (models.Result, error)
}

// Planner is implemented by publishers that can report the changeset a dry
// run computed.
type Planner interface {
	Plan(ctx context.Context, req Request, emit Emitter) (models.Result, models.Changeset, error)
}

// Factory builds a publisher for a parsed target.
type Factory func(target *url.URL) (Publisher, error)

// ErrStopped is returned by Run when the emitter asked to stop.
var ErrStopped = errors.New("target: consumer stopped reading")

// Parse validates a target of the shape scheme://<name>.
func Parse(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("target: parse %q: %w", raw, err)
	}
	if u.Scheme == "" {
		return nil, fmt.Errorf("target: %q has no scheme", raw)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("target: %q has no index name (want %s://<index>)", raw, u.Scheme)
	}
	if p := strings.Trim(u.Path, "/"); p != "" {
		return nil, fmt.Errorf("target: %q: unexpected path %q", raw, u.Path)
	}
	return u, nil
}

// IndexName returns the authority component of a target.
func IndexName(u *url.URL) string {
	return u.Host
}

// Registry maps schemes to factories. The zero value is not usable; call NewRegistry.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register binds scheme to f, replacing any previous binding.
func (r *Registry) Register(scheme string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[strings.ToLower(scheme)] = f
}

// Schemes returns the registered schemes in order.
func (r *Registry) Schemes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for s := range r.factories {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Lookup builds the publisher for a target.
func (r *Registry) Lookup(u *url.URL) (Publisher, error) {
	r.mu.RLock()
	f, ok := r.factories[strings.ToLower(u.Scheme)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("target: no publisher for scheme %q (known: %s)", u.Scheme, strings.Join(r.Schemes(), ", "))
	}
	return f(u)
}

// Stream runs p lazily and yields its progress lines in order. A failed run
// ends with one element carrying the error. Breaking out of the loop stops
// the run at its next progress line.
func Stream(ctx context.Context, p Publisher, req Request) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		_, err := p.Run(ctx, req, func(line string) bool {
			return yield(line, nil)
		})
		if err != nil && !errors.Is(err, ErrStopped) {
			yield("", err)
		}
	}
}
