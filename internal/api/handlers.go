package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/starford/indexsync/internal/journal"
	"github.com/starford/indexsync/internal/models"
	"github.com/starford/indexsync/internal/syncservice"
)

// Service is the run coordinator the handlers call into.
type Service interface {
	Records(ctx context.Context) ([]models.Record, error)
	Preview(ctx context.Context, target string) (*syncservice.Preview, error)
	Publish(ctx context.Context, target string, override *models.Override, dryRun bool) (*syncservice.Outcome, error)
	Runs(ctx context.Context, limit int) ([]journal.Run, error)
}

// Handler holds API route handlers.
type Handler struct {
	svc Service
}

// NewHandler creates a new Handler.
func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// ListRecords handles GET /api/records.
//
//	@Summary		List the local records a publish would upsert
//	@Tags			records
//	@Produce		json
//	@Success		200		{object}	RecordListResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/records [get]
func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	recs, err := h.svc.Records(r.Context())
	if err != nil {
		slog.Error("list records failed", slog.String("error", err.Error()))
		writeJSON(w, statusFor(err), kindBody(err))
		return
	}
	if recs == nil {
		recs = []models.Record{}
	}
	writeJSON(w, http.StatusOK, RecordListResponse{Records: recs, Total: len(recs)})
}

// Changeset handles GET /api/changeset.
//
//	@Summary		Preview the changeset for a target without applying it
//	@Tags			publish
//	@Produce		json
//	@Param			target	query		string	true	"Deploy target"	example(algolia://docs)
//	@Success		200		{object}	ChangesetResponse
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Failure		502		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/changeset [get]
func (h *Handler) Changeset(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("target")
	if raw == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'target' is required"))
		return
	}
	preview, err := h.svc.Preview(r.Context(), raw)
	if err != nil {
		slog.Warn("changeset preview failed", slog.String("target", raw), slog.String("error", err.Error()))
		writeJSON(w, statusFor(err), kindBody(err))
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

// Publish handles POST /api/publish.
//
//	@Summary		Reconcile a target index with the local content
//	@Tags			publish
//	@Accept			json
//	@Produce		json
//	@Param			body	body		PublishRequest	true	"Run parameters"
//	@Success		200		{object}	PublishResponse
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Failure		502		{object}	PublishFailure
//	@Security		BearerAuth
//	@Router			/publish [post]
func (h *Handler) Publish(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req PublishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Target == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("target is required"))
		return
	}

	out, err := h.svc.Publish(r.Context(), req.Target, req.Override(), req.DryRun)
	if err != nil {
		slog.Warn("publish failed", slog.String("target", req.Target), slog.String("error", err.Error()))
		writeJSON(w, statusFor(err), PublishFailure{errResponse: kindBody(err), Outcome: out})
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// ListRuns handles GET /api/runs.
//
//	@Summary		List recent publish runs
//	@Tags			runs
//	@Produce		json
//	@Param			limit	query		int		false	"Max runs"
//	@Success		200		{object}	RunListResponse
//	@Security		BearerAuth
//	@Router			/runs [get]
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := h.svc.Runs(r.Context(), limit)
	if err != nil {
		slog.Error("list runs failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, RunListResponse{Runs: runs})
}
