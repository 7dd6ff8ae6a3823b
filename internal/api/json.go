package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/starford/indexsync/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error" validate:"required"`
	Kind  string `json:"kind,omitempty" example:"index_unreachable"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// statusFor maps an error kind to an HTTP status.
func statusFor(err error) int {
	switch apperr.Kind(err) {
	case "invalid_target":
		return http.StatusBadRequest
	case "conflict":
		return http.StatusConflict
	case "not_found":
		return http.StatusNotFound
	case "content_model":
		return http.StatusUnprocessableEntity
	case "index_unreachable", "remote":
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// kindBody builds the error payload. Internal errors are not echoed.
func kindBody(err error) errResponse {
	kind := apperr.Kind(err)
	if kind == "internal" {
		return errResponse{Error: "internal error", Kind: kind}
	}
	return errResponse{Error: err.Error(), Kind: kind}
}
