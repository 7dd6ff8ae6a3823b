package algolia

import (
	"context"

	"github.com/algolia/algoliasearch-client-go/v4/algolia/search"

	"github.com/starford/indexsync/internal/models"
)

// Index is a handle on one index of the application.
type Index struct {
	client *Client
	name   string
}

// Name returns the index name.
func (i *Index) Name() string { return i.name }

// Settings holds the index settings the reconciler reads.
type Settings struct {
	HitsPerPage int
	// PaginationLimitedTo caps how many hits a query can page through.
	PaginationLimitedTo int
}

// SearchParams are the query parameters the reconciler uses.
type SearchParams struct {
	AttributesToRetrieve []string
	HitsPerPage          int
	Page                 int
}

// Hit is one search result. Only the identifier is kept.
type Hit struct {
	ObjectID string
}

// SearchResult is one page of query results.
type SearchResult struct {
	Hits        []Hit
	NbHits      int
	NbPages     int
	Page        int
	HitsPerPage int
}

// BatchResult confirms a batch write.
type BatchResult struct {
	TaskID    int64
	ObjectIDs []string
}

// GetSettings fetches the index settings. It fails when the index does not
// exist or the key cannot read it.
func (i *Index) GetSettings(ctx context.Context) (*Settings, error) {
	if err := i.client.wait(ctx); err != nil {
		return nil, err
	}
	res, err := i.client.api.GetSettings(i.client.api.NewApiGetSettingsRequest(i.name), search.WithContext(ctx))
	if err != nil {
		return nil, classify("get settings", err)
	}
	return &Settings{
		HitsPerPage:         int(res.GetHitsPerPage()),
		PaginationLimitedTo: int(res.GetPaginationLimitedTo()),
	}, nil
}

// Search runs one query page.
func (i *Index) Search(ctx context.Context, query string, p SearchParams) (*SearchResult, error) {
	if err := i.client.wait(ctx); err != nil {
		return nil, err
	}
	params := search.NewEmptySearchParamsObject().SetQuery(query).SetPage(int32(p.Page))
	if len(p.AttributesToRetrieve) > 0 {
		params.SetAttributesToRetrieve(p.AttributesToRetrieve)
	}
	if p.HitsPerPage > 0 {
		params.SetHitsPerPage(int32(p.HitsPerPage))
	}
	req := i.client.api.NewApiSearchSingleIndexRequest(i.name).
		WithSearchParams(search.SearchParamsObjectAsSearchParams(params))

	res, err := i.client.api.SearchSingleIndex(req, search.WithContext(ctx))
	if err != nil {
		return nil, classify("search", err)
	}
	out := &SearchResult{
		Hits:        make([]Hit, len(res.Hits)),
		NbHits:      int(res.GetNbHits()),
		NbPages:     int(res.GetNbPages()),
		Page:        int(res.GetPage()),
		HitsPerPage: int(res.GetHitsPerPage()),
	}
	for n, h := range res.Hits {
		out.Hits[n] = Hit{ObjectID: h.ObjectID}
	}
	return out, nil
}

// DeleteObjects removes ids in a single batch request.
func (i *Index) DeleteObjects(ctx context.Context, ids []string) (*BatchResult, error) {
	ops := make([]search.BatchRequest, len(ids))
	for n, id := range ids {
		ops[n] = *search.NewEmptyBatchRequest().
			SetAction(search.ACTION_DELETE_OBJECT).
			SetBody(map[string]any{models.AttrObjectID: id})
	}
	return i.batch(ctx, ops)
}

// SaveObjects replaces (or creates) records in a single batch request.
func (i *Index) SaveObjects(ctx context.Context, records []models.Record) (*BatchResult, error) {
	ops := make([]search.BatchRequest, len(records))
	for n, r := range records {
		ops[n] = *search.NewEmptyBatchRequest().
			SetAction(search.ACTION_UPDATE_OBJECT).
			SetBody(r.Object())
	}
	return i.batch(ctx, ops)
}

func (i *Index) batch(ctx context.Context, ops []search.BatchRequest) (*BatchResult, error) {
	if err := i.client.wait(ctx); err != nil {
		return nil, err
	}
	params := search.NewEmptyBatchWriteParams().SetRequests(ops)
	res, err := i.client.api.Batch(i.client.api.NewApiBatchRequest(i.name, params), search.WithContext(ctx))
	if err != nil {
		return nil, classify("batch", err)
	}
	return &BatchResult{TaskID: res.TaskID, ObjectIDs: res.ObjectIDs}, nil
}
