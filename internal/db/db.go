// Package db provides storage for canonical jobs, their freshness history and
// saved listings, backed by PostgreSQL or by memory.
package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jonathan/job-matcher/internal/types"
)

// ErrSuperseded is returned by UpdateJobStatus when the job was sighted
// after the caller read it.
var ErrSuperseded = errors.New("job was sighted after it was read")

// Store is the record store used by ingestion, the freshness monitor and the API.
type Store interface {
	// UpsertJob inserts a newly observed job or merges it into the stored job
	// with the same fingerprint, computed from the job unless already set.
	// The returned change is non-nil when the observation moved the job back
	// to active.
	UpsertJob(ctx context.Context, job types.Job, now time.Time) (types.Job, *types.StatusChange, error)
	GetJob(ctx context.Context, id uuid.UUID) (*types.Job, error)
	GetJobByFingerprint(ctx context.Context, fingerprint string) (*types.Job, error)
	ListCandidates(ctx context.Context, q CandidateQuery) ([]types.Job, error)
	// UpdateJobStatus persists the freshness fields of job and records change
	// in the status history when it is non-nil. seenAt is the job's
	// last_seen_at when it was read; if a sighting has moved it since, nothing
	// is written and ErrSuperseded is returned.
	UpdateJobStatus(ctx context.Context, job types.Job, seenAt time.Time, change *types.StatusChange) error
	StatusHistory(ctx context.Context, jobID uuid.UUID) ([]types.StatusChange, error)
	PurgeExpired(ctx context.Context, before time.Time) (int, error)
	// SuggestLocations returns stored locations of unexpired jobs starting
	// with prefix, ignoring case, most common first.
	SuggestLocations(ctx context.Context, prefix string, limit int) ([]string, error)

	SaveJob(ctx context.Context, userID, jobID uuid.UUID, now time.Time) (*types.SavedJob, error)
	ListSavedJobs(ctx context.Context, userID uuid.UUID) ([]types.SavedJob, error)
	DeleteSavedJob(ctx context.Context, userID, jobID uuid.UUID) error

	Ping(ctx context.Context) error
	Close()
}

// CandidateQuery selects jobs due for a freshness check.
type CandidateQuery struct {
	// StaleBefore selects active jobs last seen before it.
	StaleBefore time.Time
	// RecheckBefore selects stale jobs last checked before it.
	RecheckBefore time.Time
	Limit         int
}

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool *pgxpool.Pool
}

var _ Store = (*DB)(nil)

// Connect establishes a connection pool to the database
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Ping checks the connection.
func (db *DB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

// Close closes the connection pool
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// Open returns a Postgres store when databaseURL is set and a memory store otherwise.
func Open(ctx context.Context, databaseURL string) (Store, error) {
	if databaseURL == "" {
		return NewMemoryStore(), nil
	}
	return Connect(ctx, databaseURL)
}
