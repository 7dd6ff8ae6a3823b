package syncservice

import (
	"context"
	"log/slog"

	"github.com/starford/indexsync/internal/apperr"
)

// Republisher reruns one target whenever it is asked to. Requests made while
// a run is pending collapse into that run, and requests made during a run
// schedule exactly one more. Runs wait for the shared gate, so a request is
// never lost to a run started elsewhere.
type Republisher struct {
	svc    *Service
	target string
	kick   chan struct{}
}

// Republisher returns a Republisher for rawTarget. Call Run to start it.
func (s *Service) Republisher(rawTarget string) *Republisher {
	return &Republisher{svc: s, target: rawTarget, kick: make(chan struct{}, 1)}
}

// Request schedules a run. It never blocks.
func (r *Republisher) Request() {
	select {
	case r.kick <- struct{}{}:
	default:
	}
}

// Run serves requests until ctx is done. Failed runs are logged and the
// next request runs again.
func (r *Republisher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-r.kick:
		}
		if _, err := r.svc.PublishQueued(ctx, r.target); err != nil && ctx.Err() == nil {
			r.svc.logger.Warn("republish failed",
				slog.String("target", r.target),
				slog.String("kind", apperr.Kind(err)),
				slog.String("error", err.Error()))
		}
	}
}
