package api

import (
	"github.com/starford/indexsync/internal/journal"
	"github.com/starford/indexsync/internal/models"
	"github.com/starford/indexsync/internal/syncservice"
)

// PublishRequest is the request body for starting a publish run.
type PublishRequest struct {
	Target   string `json:"target" example:"algolia://docs" validate:"required"`
	DryRun   bool   `json:"dry_run,omitempty"`
	Username string `json:"username,omitempty" example:"APPID"`
	Password string `json:"password,omitempty"`
	Key      string `json:"key,omitempty"`
}

// Override returns the credential override carried by the request, or nil.
func (r PublishRequest) Override() *models.Override {
	if r.Username == "" && r.Password == "" && r.Key == "" {
		return nil
	}
	return &models.Override{Username: r.Username, Password: r.Password, Key: r.Key}
}

// RecordListResponse wraps the local records preview.
type RecordListResponse struct {
	Records []models.Record `json:"records" validate:"required"`
	Total   int             `json:"total" example:"42" validate:"required"`
}

// RunListResponse wraps journal entries.
type RunListResponse struct {
	Runs []journal.Run `json:"runs" validate:"required"`
}

// PublishResponse is the outcome of a publish run (aliased from the service layer).
type PublishResponse = syncservice.Outcome

// ChangesetResponse is a dry-run preview (aliased from the service layer).
type ChangesetResponse = syncservice.Preview

// PublishFailure is returned when a run started but failed.
type PublishFailure struct {
	errResponse
	Outcome *syncservice.Outcome `json:"outcome,omitempty"`
}
