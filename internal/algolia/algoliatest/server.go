// Package algoliatest provides an in-memory fake of the Algolia REST endpoints
// used by indexsync, for tests. Point a client at it with algolia.WithBaseURL.
package algoliatest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
)

// Endpoint labels for call counting and fault injection.
const (
	EndpointSettings = "settings"
	EndpointQuery    = "query"
	EndpointBatch    = "batch"
)

// Server is a fake search service. Indexes hold objects keyed by objectID.
type Server struct {
	*httptest.Server

	AppID  string
	APIKey string

	mu      sync.Mutex
	indexes map[string]map[string]map[string]any
	calls   map[string]int
	faults  map[string]int
	log     []string
}

// New starts a fake service that accepts the given credentials and closes it
// when the test ends.
func New(t testing.TB, appID, apiKey string) *Server {
	t.Helper()
	s := &Server{
		AppID:   appID,
		APIKey:  apiKey,
		indexes: make(map[string]map[string]map[string]any),
		calls:   make(map[string]int),
		faults:  make(map[string]int),
	}

	r := chi.NewRouter()
	r.Use(s.authenticate)
	r.Get("/1/indexes/{index}/settings", s.settings)
	r.Post("/1/indexes/{index}/query", s.query)
	r.Post("/1/indexes/{index}/batch", s.batch)

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

// CreateIndex makes an empty index exist.
func (s *Server) CreateIndex(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.indexes[name]; !ok {
		s.indexes[name] = make(map[string]map[string]any)
	}
}

// Put stores objects by their objectID, creating the index if needed.
func (s *Server) Put(name string, ids ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.indexes[name]
	if !ok {
		idx = make(map[string]map[string]any)
		s.indexes[name] = idx
	}
	for _, id := range ids {
		idx[id] = map[string]any{"objectID": id}
	}
}

// IDs returns the sorted objectIDs stored in an index.
func (s *Server) IDs(name string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.indexes[name]))
	for id := range s.indexes[name] {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Object returns a stored object.
func (s *Server) Object(name, id string) (map[string]any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.indexes[name][id]
	return obj, ok
}

// Calls returns how many requests hit an endpoint.
func (s *Server) Calls(endpoint string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[endpoint]
}

// Log returns the endpoint labels of every request in arrival order.
func (s *Server) Log() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.log...)
}

// Fail makes every later request to endpoint answer with status.
func (s *Server) Fail(endpoint string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[endpoint] = status
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Algolia-Application-Id") != s.AppID || r.Header.Get("X-Algolia-API-Key") != s.APIKey {
			writeError(w, http.StatusForbidden, "Invalid Application-ID or API key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// enter counts the call and reports an injected fault, if any.
func (s *Server) enter(w http.ResponseWriter, endpoint string) bool {
	s.mu.Lock()
	s.calls[endpoint]++
	s.log = append(s.log, endpoint)
	status := s.faults[endpoint]
	s.mu.Unlock()
	if status != 0 {
		writeError(w, status, "injected failure")
		return false
	}
	return true
}

func (s *Server) settings(w http.ResponseWriter, r *http.Request) {
	if !s.enter(w, EndpointSettings) {
		return
	}
	name := chi.URLParam(r, "index")
	s.mu.Lock()
	_, ok := s.indexes[name]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "Index does not exist")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"hitsPerPage": 20, "paginationLimitedTo": 1000})
}

func (s *Server) query(w http.ResponseWriter, r *http.Request) {
	if !s.enter(w, EndpointQuery) {
		return
	}
	var in struct {
		Query       string `json:"query"`
		HitsPerPage *int   `json:"hitsPerPage"`
		Page        *int   `json:"page"`
		Params      string `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	// Older clients send a form-encoded params string instead of fields.
	params, err := url.ParseQuery(in.Params)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid params")
		return
	}
	perPage := atoiDefault(params.Get("hitsPerPage"), 20)
	if in.HitsPerPage != nil {
		perPage = *in.HitsPerPage
	}
	page := atoiDefault(params.Get("page"), 0)
	if in.Page != nil {
		page = *in.Page
	}
	if perPage < 1 {
		writeError(w, http.StatusBadRequest, "hitsPerPage must be positive")
		return
	}

	ids := s.IDs(chi.URLParam(r, "index"))
	nbPages := (len(ids) + perPage - 1) / perPage
	hits := []map[string]any{}
	if start := page * perPage; start < len(ids) {
		end := min(start+perPage, len(ids))
		for _, id := range ids[start:end] {
			hits = append(hits, map[string]any{"objectID": id})
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"hits":             hits,
		"nbHits":           len(ids),
		"nbPages":          nbPages,
		"page":             page,
		"hitsPerPage":      perPage,
		"exhaustiveNbHits": true,
		"processingTimeMS": 1,
		"query":            in.Query,
		"params":           in.Params,
	})
}

func (s *Server) batch(w http.ResponseWriter, r *http.Request) {
	if !s.enter(w, EndpointBatch) {
		return
	}
	var in struct {
		Requests []struct {
			Action string         `json:"action"`
			Body   map[string]any `json:"body"`
		} `json:"requests"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	name := chi.URLParam(r, "index")
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.indexes[name]
	if !ok {
		idx = make(map[string]map[string]any)
		s.indexes[name] = idx
	}

	ids := make([]string, 0, len(in.Requests))
	for _, op := range in.Requests {
		id, _ := op.Body["objectID"].(string)
		if id == "" {
			writeError(w, http.StatusBadRequest, "objectID is required")
			return
		}
		switch op.Action {
		case "deleteObject":
			delete(idx, id)
		case "updateObject", "addObject":
			idx[id] = op.Body
		default:
			writeError(w, http.StatusBadRequest, "unsupported action "+strconv.Quote(op.Action))
			return
		}
		ids = append(ids, id)
	}
	writeJSON(w, http.StatusOK, map[string]any{"taskID": len(s.log), "objectIDs": ids})
}

func atoiDefault(s string, def int) int {
	if strings.TrimSpace(s) == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"message": msg, "status": status})
}
