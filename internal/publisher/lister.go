package publisher

import (
	"context"
	"fmt"

	"github.com/starford/indexsync/internal/algolia"
	"github.com/starford/indexsync/internal/apperr"
	"github.com/starford/indexsync/internal/models"
)

// DefaultPageSize is the listing page size.
const DefaultPageSize = 100

// Searcher runs one query page against an index.
type Searcher interface {
	Search(ctx context.Context, query string, p algolia.SearchParams) (*algolia.SearchResult, error)
}

// ListRemoteIDs collects every objectID currently stored in the index. Page 0
// is fetched first and its nbPages drives the rest. A page with no hits ends
// the listing early even if nbPages promised more. Any failed page aborts
// with no partial set.
func ListRemoteIDs(ctx context.Context, s Searcher, pageSize int) (map[string]struct{}, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	params := algolia.SearchParams{
		AttributesToRetrieve: []string{models.AttrObjectID},
		HitsPerPage:          pageSize,
	}

	first, err := s.Search(ctx, "", params)
	if err != nil {
		return nil, fmt.Errorf("publisher: list page 0: %w: %w", apperr.ErrRemote, err)
	}
	ids := make(map[string]struct{}, first.NbHits)
	for _, h := range first.Hits {
		ids[h.ObjectID] = struct{}{}
	}
	if len(first.Hits) == 0 {
		return ids, nil
	}

	for page := 1; page < first.NbPages; page++ {
		params.Page = page
		res, err := s.Search(ctx, "", params)
		if err != nil {
			return nil, fmt.Errorf("publisher: list page %d: %w: %w", page, apperr.ErrRemote, err)
		}
		if len(res.Hits) == 0 {
			break
		}
		for _, h := range res.Hits {
			ids[h.ObjectID] = struct{}{}
		}
	}
	return ids, nil
}
