package publisher

import (
	"context"
	"fmt"

	"github.com/starford/indexsync/internal/algolia"
	"github.com/starford/indexsync/internal/apperr"
	"github.com/starford/indexsync/internal/models"
	"github.com/starford/indexsync/internal/target"
)

// Mutator issues batch writes against an index.
type Mutator interface {
	DeleteObjects(ctx context.Context, ids []string) (*algolia.BatchResult, error)
	SaveObjects(ctx context.Context, records []models.Record) (*algolia.BatchResult, error)
}

// Counts are the confirmed results of Apply.
type Counts struct {
	Deleted  int
	Upserted int
}

// Apply deletes then upserts, one batch call each. Both calls are made even
// for empty operands. A failed delete skips the upsert.
func Apply(ctx context.Context, cs models.Changeset, m Mutator, emit target.Emitter) (Counts, error) {
	var c Counts

	del, err := m.DeleteObjects(ctx, nonNil(cs.ToDelete))
	if err != nil {
		return c, fmt.Errorf("publisher: delete %d records: %w: %w", len(cs.ToDelete), apperr.ErrRemote, err)
	}
	c.Deleted = len(del.ObjectIDs)
	if !emit(fmt.Sprintf("Deleted %d records.", c.Deleted)) {
		return c, target.ErrStopped
	}

	up, err := m.SaveObjects(ctx, nonNil(cs.ToUpsert))
	if err != nil {
		return c, fmt.Errorf("publisher: upsert %d records: %w: %w", len(cs.ToUpsert), apperr.ErrRemote, err)
	}
	c.Upserted = len(up.ObjectIDs)
	if !emit(fmt.Sprintf("Upserted %d records.", c.Upserted)) {
		return c, target.ErrStopped
	}
	return c, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
