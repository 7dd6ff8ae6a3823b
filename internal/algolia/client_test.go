package algolia_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/starford/indexsync/internal/algolia"
	"github.com/starford/indexsync/internal/algolia/algoliatest"
	"github.com/starford/indexsync/internal/models"
)

func testIndex(t *testing.T, name string) (*algoliatest.Server, *algolia.Index) {
	t.Helper()
	srv := algoliatest.New(t, "APP", "KEY")
	c, err := algolia.NewClient(models.Credentials{AppID: "APP", APIKey: "KEY"}, algolia.WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return srv, c.InitIndex(name)
}

func TestNewClient_RequiresCredentials(t *testing.T) {
	if _, err := algolia.NewClient(models.Credentials{AppID: "APP"}); err == nil {
		t.Fatal("expected error without api key")
	}
}

func TestGetSettings(t *testing.T) {
	srv, idx := testIndex(t, "docs")
	srv.CreateIndex("docs")

	s, err := idx.GetSettings(context.Background())
	if err != nil {
		t.Fatalf("GetSettings: %v", err)
	}
	if s.PaginationLimitedTo != 1000 || s.HitsPerPage != 20 {
		t.Errorf("settings = %+v", s)
	}
}

func TestGetSettings_MissingIndex(t *testing.T) {
	_, idx := testIndex(t, "nope")
	_, err := idx.GetSettings(context.Background())
	if !algolia.IsNotFound(err) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestBadCredentials(t *testing.T) {
	srv := algoliatest.New(t, "APP", "KEY")
	srv.CreateIndex("docs")
	c, _ := algolia.NewClient(models.Credentials{AppID: "APP", APIKey: "wrong"}, algolia.WithBaseURL(srv.URL))

	_, err := c.InitIndex("docs").GetSettings(context.Background())
	if !algolia.IsAuth(err) {
		t.Fatalf("err = %v, want auth error", err)
	}
}

func TestSearch_Pages(t *testing.T) {
	srv, idx := testIndex(t, "docs")
	srv.Put("docs", "a", "b", "c")

	p := algolia.SearchParams{AttributesToRetrieve: []string{"objectID"}, HitsPerPage: 2}
	first, err := idx.Search(context.Background(), "", p)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if first.NbPages != 2 || first.NbHits != 3 || len(first.Hits) != 2 {
		t.Fatalf("page 0 = %+v", first)
	}
	p.Page = 1
	second, err := idx.Search(context.Background(), "", p)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(second.Hits) != 1 || second.Hits[0].ObjectID != "c" {
		t.Errorf("page 1 = %+v", second)
	}
}

func TestSaveAndDeleteObjects(t *testing.T) {
	srv, idx := testIndex(t, "docs")
	srv.Put("docs", "old")

	saved, err := idx.SaveObjects(context.Background(), []models.Record{
		{ObjectID: "a", Path: "/a", Fields: map[string]string{"title": "A"}},
		{ObjectID: "b", Path: "/b"},
	})
	if err != nil {
		t.Fatalf("SaveObjects: %v", err)
	}
	if len(saved.ObjectIDs) != 2 {
		t.Errorf("saved = %+v", saved)
	}
	obj, ok := srv.Object("docs", "a")
	if !ok || obj["title"] != "A" || obj["path"] != "/a" {
		t.Errorf("stored a = %v", obj)
	}

	deleted, err := idx.DeleteObjects(context.Background(), []string{"old"})
	if err != nil {
		t.Fatalf("DeleteObjects: %v", err)
	}
	if len(deleted.ObjectIDs) != 1 || deleted.ObjectIDs[0] != "old" {
		t.Errorf("deleted = %+v", deleted)
	}
	if ids := srv.IDs("docs"); len(ids) != 2 {
		t.Errorf("ids = %v", ids)
	}
	if srv.Calls(algoliatest.EndpointBatch) != 2 {
		t.Errorf("batch calls = %d, want one per call", srv.Calls(algoliatest.EndpointBatch))
	}
}

func TestEmptyBatchIsNoop(t *testing.T) {
	srv, idx := testIndex(t, "docs")
	srv.Put("docs", "a")

	res, err := idx.DeleteObjects(context.Background(), nil)
	if err != nil {
		t.Fatalf("DeleteObjects: %v", err)
	}
	if len(res.ObjectIDs) != 0 {
		t.Errorf("res = %+v", res)
	}
	if ids := srv.IDs("docs"); len(ids) != 1 {
		t.Errorf("ids = %v", ids)
	}
}

func TestServiceError(t *testing.T) {
	srv, idx := testIndex(t, "docs")
	srv.CreateIndex("docs")
	srv.Fail(algoliatest.EndpointBatch, http.StatusBadRequest)

	_, err := idx.SaveObjects(context.Background(), []models.Record{{ObjectID: "a"}})
	var apiErr *algolia.Error
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadRequest || apiErr.Message != "injected failure" {
		t.Errorf("err = %v", err)
	}
}

func TestServerErrorIsRetriedThenReported(t *testing.T) {
	srv, idx := testIndex(t, "docs")
	srv.CreateIndex("docs")
	srv.Fail(algoliatest.EndpointBatch, http.StatusInternalServerError)

	_, err := idx.DeleteObjects(context.Background(), []string{"a"})
	if err == nil {
		t.Fatal("expected error")
	}
	var apiErr *algolia.Error
	if errors.As(err, &apiErr) {
		t.Errorf("5xx should surface as a transport error, got %v", apiErr)
	}
	if algolia.IsNotFound(err) || algolia.IsAuth(err) {
		t.Errorf("misclassified: %v", err)
	}
}

func TestInvalidBaseURL(t *testing.T) {
	if _, err := algolia.NewClient(models.Credentials{AppID: "A", APIKey: "K"}, algolia.WithBaseURL("localhost")); err == nil {
		t.Fatal("expected error for a relative base url")
	}
}

func TestNonJSONErrorBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer ts.Close()
	c, _ := algolia.NewClient(models.Credentials{AppID: "A", APIKey: "K"}, algolia.WithBaseURL(ts.URL))

	_, err := c.InitIndex("docs").GetSettings(context.Background())
	var apiErr *algolia.Error
	if !errors.As(err, &apiErr) || apiErr.Message != "upstream down" {
		t.Fatalf("err = %v", err)
	}
}

func TestTimeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer ts.Close()
	c, _ := algolia.NewClient(models.Credentials{AppID: "A", APIKey: "K"},
		algolia.WithBaseURL(ts.URL), algolia.WithTimeout(20*time.Millisecond))

	if _, err := c.InitIndex("docs").GetSettings(context.Background()); err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestTimeoutIsPerClient(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"hitsPerPage":20}`))
	}))
	defer ts.Close()
	creds := models.Credentials{AppID: "A", APIKey: "K"}
	fast, _ := algolia.NewClient(creds, algolia.WithBaseURL(ts.URL), algolia.WithTimeout(10*time.Millisecond))
	slow, _ := algolia.NewClient(creds, algolia.WithBaseURL(ts.URL))

	if _, err := fast.InitIndex("docs").GetSettings(context.Background()); err == nil {
		t.Error("short timeout should fail")
	}
	if _, err := slow.InitIndex("docs").GetSettings(context.Background()); err != nil {
		t.Errorf("default timeout changed by another client: %v", err)
	}
}

func TestRateLimitHonoursContext(t *testing.T) {
	srv := algoliatest.New(t, "APP", "KEY")
	srv.CreateIndex("docs")
	c, _ := algolia.NewClient(models.Credentials{AppID: "APP", APIKey: "KEY"},
		algolia.WithBaseURL(srv.URL), algolia.WithRateLimit(0.001, 1))
	idx := c.InitIndex("docs")

	if _, err := idx.GetSettings(context.Background()); err != nil {
		t.Fatalf("first call uses the burst: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := idx.GetSettings(ctx); err == nil {
		t.Fatal("second call should wait past the deadline")
	}
	if srv.Calls(algoliatest.EndpointSettings) != 1 {
		t.Errorf("settings calls = %d, want 1", srv.Calls(algoliatest.EndpointSettings))
	}
}
