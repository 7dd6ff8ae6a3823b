package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/indexsync/internal/apperr"
)

// Run statuses.
const (
	StatusOK      = "ok"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
	StatusDryRun  = "dry-run"
)

// Run is one row in the runs table.
type Run struct {
	ID         string    `json:"id"`
	Target     string    `json:"target"`
	Index      string    `json:"index"`
	Status     string    `json:"status"`
	Local      int       `json:"local"`
	Remote     int       `json:"remote"`
	Deleted    int       `json:"deleted"`
	Upserted   int       `json:"upserted"`
	Digest     string    `json:"digest,omitempty"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

const runColumns = `id, target, index_name, status, local_count, remote_count, deleted, upserted, digest, error, started_at, finished_at`

// Record inserts a finished run. Re-recording an id replaces the row.
func (db *DB) Record(ctx context.Context, r Run) error {
	if r.ID == "" {
		return fmt.Errorf("journal: run id is required")
	}
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO runs (`+runColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status       = excluded.status,
			local_count  = excluded.local_count,
			remote_count = excluded.remote_count,
			deleted      = excluded.deleted,
			upserted     = excluded.upserted,
			digest       = excluded.digest,
			error        = excluded.error,
			finished_at  = excluded.finished_at
	`, r.ID, r.Target, r.Index, r.Status, r.Local, r.Remote, r.Deleted, r.Upserted, r.Digest, r.Error,
		r.StartedAt.UTC(), r.FinishedAt.UTC())
	if err != nil {
		return fmt.Errorf("journal: record run: %w", err)
	}
	return nil
}

// Recent returns up to limit runs, newest first.
func (db *DB) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("journal: recent: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Last returns the newest successful run against an index.
func (db *DB) Last(ctx context.Context, index string) (*Run, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE index_name = ? AND status = ? ORDER BY started_at DESC LIMIT 1`, index, StatusOK)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (Run, error) {
	var r Run
	err := s.Scan(&r.ID, &r.Target, &r.Index, &r.Status, &r.Local, &r.Remote, &r.Deleted, &r.Upserted,
		&r.Digest, &r.Error, &r.StartedAt, &r.FinishedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, err
	}
	if err != nil {
		return Run{}, fmt.Errorf("journal: scan run: %w", err)
	}
	return r, nil
}
