package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events; it also accepts the
// token as a query parameter.
func NewRouter(svc Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(authEnabled, token))
		r.Get("/records", h.ListRecords)
		r.Get("/changeset", h.Changeset)
		r.Post("/publish", h.Publish)
		r.Get("/runs", h.ListRuns)
	})

	if sseHandler != nil {
		r.With(QueryTokenAuth(authEnabled, token)).Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
