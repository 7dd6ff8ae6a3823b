package publisher

import (
	"context"
	"fmt"
	"sync"

	"github.com/starford/indexsync/internal/apperr"
	"github.com/starford/indexsync/internal/models"
	"github.com/starford/indexsync/internal/target"
)

// Gate lets at most one run through at a time across every publisher it
// wraps. The zero value is ready to use.
type Gate struct {
	once sync.Once
	slot chan struct{}
}

func (g *Gate) sem() chan struct{} {
	g.once.Do(func() { g.slot = make(chan struct{}, 1) })
	return g.slot
}

// Busy reports whether a run is in flight.
func (g *Gate) Busy() bool { return len(g.sem()) == 1 }

// Wrap returns next guarded by g. Runs started while another is in flight
// fail immediately with apperr.ErrConflict. Plan calls are guarded too when
// next implements target.Planner.
func (g *Gate) Wrap(next target.Publisher) target.Publisher {
	return &gated{next: next, enter: g.tryEnter, leave: g.leave}
}

// WrapWaiting is Wrap for runs that queue behind the one in flight instead
// of failing. Waiting ends early when the run's context is done.
func (g *Gate) WrapWaiting(next target.Publisher) target.Publisher {
	return &gated{next: next, enter: g.waitEnter, leave: g.leave}
}

func (g *Gate) tryEnter(context.Context) error {
	select {
	case g.sem() <- struct{}{}:
		return nil
	default:
		return fmt.Errorf("publisher: %w: a run is already in progress", apperr.ErrConflict)
	}
}

func (g *Gate) waitEnter(ctx context.Context) error {
	select {
	case g.sem() <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("publisher: waiting for the run in progress: %w", ctx.Err())
	}
}

func (g *Gate) leave() { <-g.sem() }

type gated struct {
	next  target.Publisher
	enter func(context.Context) error
	leave func()
}

func (x *gated) Run(ctx context.Context, req target.Request, emit target.Emitter) (models.Result, error) {
	if err := x.enter(ctx); err != nil {
		return models.Result{}, err
	}
	defer x.leave()
	return x.next.Run(ctx, req, emit)
}

func (x *gated) Plan(ctx context.Context, req target.Request, emit target.Emitter) (models.Result, models.Changeset, error) {
	planner, ok := x.next.(target.Planner)
	if !ok {
		return models.Result{}, models.Changeset{}, fmt.Errorf("publisher: target %s cannot preview changes", req.Target)
	}
	if err := x.enter(ctx); err != nil {
		return models.Result{}, models.Changeset{}, err
	}
	defer x.leave()
	return planner.Plan(ctx, req, emit)
}
