package models

import "time"

// Result summarises one reconciliation run.
type Result struct {
	RunID     string    `json:"run_id"`
	Target    string    `json:"target"`
	Index     string    `json:"index"`
	Local     int       `json:"local"`
	Remote    int       `json:"remote"`
	ToDelete  int       `json:"to_delete"`
	Deleted   int       `json:"deleted"`
	Upserted  int       `json:"upserted"`
	Digest    string    `json:"digest"`
	DryRun    bool      `json:"dry_run"`
	Skipped   bool      `json:"skipped"`
	StartedAt time.Time `json:"started_at"`
	Duration  string    `json:"duration"`

	// UnchangedSince is the id of an earlier successful run that uploaded
	// the same payload, when there is one.
	UnchangedSince string `json:"unchanged_since,omitempty"`
}
