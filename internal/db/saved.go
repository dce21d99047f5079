package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/job-matcher/internal/types"
)

// -----------------------------------------------------------------------------
// Saved Job Methods
// -----------------------------------------------------------------------------

// SaveJob records that a user kept a job. Saving the same job twice keeps the
// original saved_at.
func (db *DB) SaveJob(ctx context.Context, userID, jobID uuid.UUID, now time.Time) (*types.SavedJob, error) {
	job, err := db.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, fmt.Errorf("job %s: %w", jobID, types.ErrNotFound)
	}

	var savedAt time.Time
	err = db.pool.QueryRow(ctx,
		`INSERT INTO saved_jobs (user_id, job_id, saved_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, job_id) DO UPDATE SET user_id = EXCLUDED.user_id
		 RETURNING saved_at`,
		userID, jobID, now,
	).Scan(&savedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to save job: %w", err)
	}
	return &types.SavedJob{UserID: userID, Job: *job, SavedAt: savedAt}, nil
}

// ListSavedJobs returns a user's saved jobs, most recently saved first.
func (db *DB) ListSavedJobs(ctx context.Context, userID uuid.UUID) ([]types.SavedJob, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT s.saved_at, `+prefixed("j", jobColumns)+`
		 FROM saved_jobs s JOIN jobs j ON j.id = s.job_id
		 WHERE s.user_id = $1
		 ORDER BY s.saved_at DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list saved jobs: %w", err)
	}
	defer rows.Close()

	saved := []types.SavedJob{}
	for rows.Next() {
		var savedAt time.Time
		job, err := scanJob(prefixScanner{rows: rows, first: &savedAt})
		if err != nil {
			return nil, fmt.Errorf("failed to scan saved job: %w", err)
		}
		saved = append(saved, types.SavedJob{UserID: userID, Job: *job, SavedAt: savedAt})
	}
	return saved, rows.Err()
}

// DeleteSavedJob removes a saved job. Deleting one that was never saved
// returns ErrNotFound.
func (db *DB) DeleteSavedJob(ctx context.Context, userID, jobID uuid.UUID) error {
	tag, err := db.pool.Exec(ctx,
		`DELETE FROM saved_jobs WHERE user_id = $1 AND job_id = $2`, userID, jobID)
	if err != nil {
		return fmt.Errorf("failed to delete saved job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("saved job %s: %w", jobID, types.ErrNotFound)
	}
	return nil
}

// prefixScanner scans one leading column before handing the rest to scanJob.
type prefixScanner struct {
	rows  pgx.Rows
	first any
}

func (p prefixScanner) Scan(dest ...any) error {
	return p.rows.Scan(append([]any{p.first}, dest...)...)
}

// prefixed qualifies every column in a comma-separated list with a table alias.
func prefixed(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}
