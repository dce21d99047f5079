package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/job-matcher/internal/dedup"
	"github.com/jonathan/job-matcher/internal/types"
)

// -----------------------------------------------------------------------------
// Job Methods
// -----------------------------------------------------------------------------

const jobColumns = `id, source, source_id, fingerprint, title, company, description,
	locations, city, country, work_modes, categories,
	salary_min, salary_max, salary_currency, salary_period, salary_predicted,
	url, contract_time, contract_type, posted_at, first_seen_at, last_seen_at,
	status, miss_count, last_checked_at, status_changed_at`

// rowScanner is satisfied by pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*types.Job, error) {
	var (
		j                    types.Job
		workModes            []string
		salaryMin, salaryMax *float64
		currency, period     string
		predicted            bool
		status               string
	)
	err := row.Scan(&j.ID, &j.Source, &j.SourceID, &j.Fingerprint, &j.Title, &j.Company, &j.Description,
		&j.Locations, &j.City, &j.Country, &workModes, &j.Categories,
		&salaryMin, &salaryMax, &currency, &period, &predicted,
		&j.URL, &j.ContractTime, &j.ContractType, &j.PostedAt, &j.FirstSeenAt, &j.LastSeenAt,
		&status, &j.MissCount, &j.LastCheckedAt, &j.StatusChangedAt)
	if err != nil {
		return nil, err
	}

	j.Status = types.JobStatus(status)
	j.WorkModes = make([]types.WorkMode, 0, len(workModes))
	for _, m := range workModes {
		j.WorkModes = append(j.WorkModes, types.WorkMode(m))
	}
	if salaryMin != nil || salaryMax != nil || currency != "" {
		j.Salary = &types.Salary{Min: salaryMin, Max: salaryMax, Currency: currency, Period: period, Predicted: predicted}
	}
	if j.Locations == nil {
		j.Locations = []string{}
	}
	if j.Categories == nil {
		j.Categories = []string{}
	}
	return &j, nil
}

// jobArgs returns the values for every column in jobColumns, in order.
func jobArgs(j *types.Job) []any {
	modes := make([]string, 0, len(j.WorkModes))
	for _, m := range j.WorkModes {
		modes = append(modes, string(m))
	}
	var (
		salaryMin, salaryMax *float64
		currency, period     string
		predicted            bool
	)
	if j.Salary != nil {
		salaryMin, salaryMax = j.Salary.Min, j.Salary.Max
		currency, period, predicted = j.Salary.Currency, j.Salary.Period, j.Salary.Predicted
	}
	return []any{
		j.ID, j.Source, j.SourceID, j.Fingerprint, j.Title, j.Company, j.Description,
		nonNil(j.Locations), j.City, j.Country, modes, nonNil(j.Categories),
		salaryMin, salaryMax, currency, period, predicted,
		j.URL, j.ContractTime, j.ContractType, j.PostedAt, j.FirstSeenAt, j.LastSeenAt,
		string(j.Status), j.MissCount, j.LastCheckedAt, j.StatusChangedAt,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// UpsertJob inserts or merges a job by fingerprint inside one transaction.
// The stored row is locked while the merge is computed so concurrent
// observations of the same listing serialize.
func (db *DB) UpsertJob(ctx context.Context, job types.Job, now time.Time) (types.Job, *types.StatusChange, error) {
	if job.Fingerprint == "" {
		job.Fingerprint = dedup.FingerprintJob(&job)
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return types.Job{}, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	existing, err := scanJob(tx.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE fingerprint = $1 FOR UPDATE`, job.Fingerprint))
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return types.Job{}, nil, fmt.Errorf("failed to load job: %w", err)
	}

	var (
		result types.Job
		change *types.StatusChange
	)
	if existing == nil {
		result = dedup.NewJob(job, now)
		if result.ID == uuid.Nil {
			result.ID = uuid.New()
		}
		tag, err := tx.Exec(ctx,
			`INSERT INTO jobs (`+jobColumns+`)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			         $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27)
			 ON CONFLICT (fingerprint) DO NOTHING`,
			jobArgs(&result)...)
		if err != nil {
			return types.Job{}, nil, fmt.Errorf("failed to insert job: %w", err)
		}
		if tag.RowsAffected() == 0 {
			// Another writer inserted the same fingerprint first; merge into it.
			_ = tx.Rollback(ctx)
			return db.UpsertJob(ctx, job, now)
		}
	} else {
		result, change = dedup.Merge(*existing, job, now)
		args := jobArgs(&result)
		_, err := tx.Exec(ctx,
			`UPDATE jobs SET source = $2, source_id = $3, title = $5, company = $6, description = $7,
			     locations = $8, city = $9, country = $10, work_modes = $11, categories = $12,
			     salary_min = $13, salary_max = $14, salary_currency = $15, salary_period = $16,
			     salary_predicted = $17, url = $18, contract_time = $19, contract_type = $20,
			     posted_at = $21, first_seen_at = $22, last_seen_at = $23, status = $24,
			     miss_count = $25, last_checked_at = $26, status_changed_at = $27, updated_at = NOW()
			 WHERE id = $1 AND fingerprint = $4`,
			args...)
		if err != nil {
			return types.Job{}, nil, fmt.Errorf("failed to update job: %w", err)
		}
		if change != nil {
			if err := insertHistory(ctx, tx, change); err != nil {
				return types.Job{}, nil, err
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return types.Job{}, nil, fmt.Errorf("failed to commit job upsert: %w", err)
	}
	return result, change, nil
}

// GetJob retrieves a job by ID. It returns nil, nil when the job does not exist.
func (db *DB) GetJob(ctx context.Context, id uuid.UUID) (*types.Job, error) {
	j, err := scanJob(db.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return j, nil
}

// GetJobByFingerprint retrieves a job by its fingerprint.
func (db *DB) GetJobByFingerprint(ctx context.Context, fingerprint string) (*types.Job, error) {
	j, err := scanJob(db.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE fingerprint = $1`, fingerprint))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get job by fingerprint: %w", err)
	}
	return j, nil
}

// ListCandidates returns active jobs not seen since q.StaleBefore and stale
// jobs not checked since q.RecheckBefore, oldest first.
func (db *DB) ListCandidates(ctx context.Context, q CandidateQuery) ([]types.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs
		WHERE (status = 'active' AND last_seen_at < $1)
		   OR (status = 'stale' AND COALESCE(last_checked_at, last_seen_at) < $2)
		ORDER BY last_seen_at ASC`
	args := []any{q.StaleBefore, q.RecheckBefore}
	if q.Limit > 0 {
		query += ` LIMIT $3`
		args = append(args, q.Limit)
	}

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list freshness candidates: %w", err)
	}
	defer rows.Close()

	var jobs []types.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, *j)
	}
	return jobs, rows.Err()
}

// UpdateJobStatus writes the freshness fields of a job and its history entry.
func (db *DB) UpdateJobStatus(ctx context.Context, job types.Job, seenAt time.Time, change *types.StatusChange) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx,
		`UPDATE jobs SET status = $2, miss_count = $3, last_seen_at = $4, last_checked_at = $5,
		     status_changed_at = $6, updated_at = NOW()
		 WHERE id = $1 AND last_seen_at = $7`,
		job.ID, string(job.Status), job.MissCount, job.LastSeenAt, job.LastCheckedAt, job.StatusChangedAt, seenAt)
	if err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM jobs WHERE id = $1)`, job.ID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check job: %w", err)
		}
		if exists {
			return fmt.Errorf("job %s: %w", job.ID, ErrSuperseded)
		}
		return fmt.Errorf("job %s: %w", job.ID, types.ErrNotFound)
	}
	if change != nil {
		if err := insertHistory(ctx, tx, change); err != nil {
			return err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit status update: %w", err)
	}
	return nil
}

func insertHistory(ctx context.Context, tx pgx.Tx, change *types.StatusChange) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO job_status_history (job_id, from_status, to_status, reason, changed_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		change.JobID, string(change.From), string(change.To), change.Reason, change.At)
	if err != nil {
		return fmt.Errorf("failed to record status change: %w", err)
	}
	return nil
}

// StatusHistory returns a job's transitions, oldest first.
func (db *DB) StatusHistory(ctx context.Context, jobID uuid.UUID) ([]types.StatusChange, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT job_id, from_status, to_status, reason, changed_at
		 FROM job_status_history WHERE job_id = $1 ORDER BY changed_at ASC, id ASC`, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to list status history: %w", err)
	}
	defer rows.Close()

	var history []types.StatusChange
	for rows.Next() {
		var c types.StatusChange
		var from, to string
		if err := rows.Scan(&c.JobID, &from, &to, &c.Reason, &c.At); err != nil {
			return nil, fmt.Errorf("failed to scan status change: %w", err)
		}
		c.From, c.To = types.JobStatus(from), types.JobStatus(to)
		history = append(history, c)
	}
	return history, rows.Err()
}

// SuggestLocations implements Store.
func (db *DB) SuggestLocations(ctx context.Context, prefix string, limit int) ([]string, error) {
	var lim any
	if limit > 0 {
		lim = limit
	}
	rows, err := db.pool.Query(ctx,
		`SELECT loc FROM jobs, unnest(locations) AS loc
		 WHERE status <> 'expired' AND loc ILIKE $1 || '%'
		 GROUP BY loc ORDER BY COUNT(*) DESC, loc ASC LIMIT $2`,
		escapeLike(prefix), lim)
	if err != nil {
		return nil, fmt.Errorf("failed to suggest locations: %w", err)
	}
	defer rows.Close()

	locations := []string{}
	for rows.Next() {
		var loc string
		if err := rows.Scan(&loc); err != nil {
			return nil, fmt.Errorf("failed to scan location: %w", err)
		}
		locations = append(locations, loc)
	}
	return locations, rows.Err()
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// PurgeExpired deletes expired jobs whose expiry predates before.
func (db *DB) PurgeExpired(ctx context.Context, before time.Time) (int, error) {
	tag, err := db.pool.Exec(ctx,
		`DELETE FROM jobs WHERE status = 'expired' AND status_changed_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired jobs: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
