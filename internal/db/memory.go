package db

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/job-matcher/internal/dedup"
	"github.com/jonathan/job-matcher/internal/types"
)

// MemoryStore is an in-process Store used when no database is configured and in tests.
type MemoryStore struct {
	mu            sync.Mutex
	jobs          map[uuid.UUID]*types.Job
	byFingerprint map[string]uuid.UUID
	history       map[uuid.UUID][]types.StatusChange
	saved         map[uuid.UUID]map[uuid.UUID]time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs:          make(map[uuid.UUID]*types.Job),
		byFingerprint: make(map[string]uuid.UUID),
		history:       make(map[uuid.UUID][]types.StatusChange),
		saved:         make(map[uuid.UUID]map[uuid.UUID]time.Time),
	}
}

// UpsertJob implements Store.
func (m *MemoryStore) UpsertJob(ctx context.Context, job types.Job, now time.Time) (types.Job, *types.StatusChange, error) {
	if err := ctx.Err(); err != nil {
		return types.Job{}, nil, err
	}
	if job.Fingerprint == "" {
		job.Fingerprint = dedup.FingerprintJob(&job)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if id, ok := m.byFingerprint[job.Fingerprint]; ok {
		merged, change := dedup.Merge(*m.jobs[id], job, now)
		m.jobs[id] = cloneJob(&merged)
		if change != nil {
			m.history[id] = append(m.history[id], *change)
		}
		return *cloneJob(&merged), change, nil
	}

	created := dedup.NewJob(job, now)
	if created.ID == uuid.Nil {
		created.ID = uuid.New()
	}
	m.jobs[created.ID] = cloneJob(&created)
	m.byFingerprint[created.Fingerprint] = created.ID
	return *cloneJob(&created), nil, nil
}

// GetJob implements Store.
func (m *MemoryStore) GetJob(_ context.Context, id uuid.UUID) (*types.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, nil
	}
	return cloneJob(j), nil
}

// GetJobByFingerprint implements Store.
func (m *MemoryStore) GetJobByFingerprint(_ context.Context, fingerprint string) (*types.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byFingerprint[fingerprint]
	if !ok {
		return nil, nil
	}
	return cloneJob(m.jobs[id]), nil
}

// ListCandidates implements Store.
func (m *MemoryStore) ListCandidates(_ context.Context, q CandidateQuery) ([]types.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []types.Job
	for _, j := range m.jobs {
		switch j.Status {
		case types.StatusActive:
			if j.LastSeenAt.Before(q.StaleBefore) {
				out = append(out, *cloneJob(j))
			}
		case types.StatusStale:
			checked := j.LastSeenAt
			if j.LastCheckedAt != nil {
				checked = *j.LastCheckedAt
			}
			if checked.Before(q.RecheckBefore) {
				out = append(out, *cloneJob(j))
			}
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].LastSeenAt.Before(out[b].LastSeenAt) })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// UpdateJobStatus implements Store.
func (m *MemoryStore) UpdateJobStatus(_ context.Context, job types.Job, seenAt time.Time, change *types.StatusChange) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.jobs[job.ID]
	if !ok {
		return fmt.Errorf("job %s: %w", job.ID, types.ErrNotFound)
	}
	if !stored.LastSeenAt.Equal(seenAt) {
		return fmt.Errorf("job %s: %w", job.ID, ErrSuperseded)
	}
	stored.Status = job.Status
	stored.MissCount = job.MissCount
	stored.LastSeenAt = job.LastSeenAt
	stored.LastCheckedAt = copyTime(job.LastCheckedAt)
	stored.StatusChangedAt = copyTime(job.StatusChangedAt)
	if change != nil {
		m.history[job.ID] = append(m.history[job.ID], *change)
	}
	return nil
}

// StatusHistory implements Store.
func (m *MemoryStore) StatusHistory(_ context.Context, jobID uuid.UUID) ([]types.StatusChange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]types.StatusChange(nil), m.history[jobID]...), nil
}

// PurgeExpired implements Store.
func (m *MemoryStore) PurgeExpired(_ context.Context, before time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	purged := 0
	for id, j := range m.jobs {
		if j.Status != types.StatusExpired || j.StatusChangedAt == nil || !j.StatusChangedAt.Before(before) {
			continue
		}
		delete(m.jobs, id)
		delete(m.byFingerprint, j.Fingerprint)
		delete(m.history, id)
		for _, saved := range m.saved {
			delete(saved, id)
		}
		purged++
	}
	return purged, nil
}

// SuggestLocations implements Store.
func (m *MemoryStore) SuggestLocations(_ context.Context, prefix string, limit int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prefix = strings.ToLower(prefix)
	counts := make(map[string]int)
	for _, j := range m.jobs {
		if j.Status == types.StatusExpired {
			continue
		}
		for _, loc := range j.Locations {
			if strings.HasPrefix(strings.ToLower(loc), prefix) {
				counts[loc]++
			}
		}
	}
	locations := make([]string, 0, len(counts))
	for loc := range counts {
		locations = append(locations, loc)
	}
	sort.Slice(locations, func(a, b int) bool {
		if counts[locations[a]] != counts[locations[b]] {
			return counts[locations[a]] > counts[locations[b]]
		}
		return locations[a] < locations[b]
	})
	if limit > 0 && len(locations) > limit {
		locations = locations[:limit]
	}
	return locations, nil
}

// SaveJob implements Store.
func (m *MemoryStore) SaveJob(_ context.Context, userID, jobID uuid.UUID, now time.Time) (*types.SavedJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("job %s: %w", jobID, types.ErrNotFound)
	}
	user := m.saved[userID]
	if user == nil {
		user = make(map[uuid.UUID]time.Time)
		m.saved[userID] = user
	}
	savedAt, ok := user[jobID]
	if !ok {
		savedAt = now
		user[jobID] = now
	}
	return &types.SavedJob{UserID: userID, Job: *cloneJob(j), SavedAt: savedAt}, nil
}

// ListSavedJobs implements Store.
func (m *MemoryStore) ListSavedJobs(_ context.Context, userID uuid.UUID) ([]types.SavedJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []types.SavedJob{}
	for jobID, savedAt := range m.saved[userID] {
		if j, ok := m.jobs[jobID]; ok {
			out = append(out, types.SavedJob{UserID: userID, Job: *cloneJob(j), SavedAt: savedAt})
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].SavedAt.After(out[b].SavedAt) })
	return out, nil
}

// DeleteSavedJob implements Store.
func (m *MemoryStore) DeleteSavedJob(_ context.Context, userID, jobID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.saved[userID][jobID]; !ok {
		return fmt.Errorf("saved job %s: %w", jobID, types.ErrNotFound)
	}
	delete(m.saved[userID], jobID)
	return nil
}

// Ping implements Store.
func (m *MemoryStore) Ping(context.Context) error { return nil }

// Close implements Store.
func (m *MemoryStore) Close() {}

// cloneJob deep-copies the slices and pointers of a job so callers never
// share memory with the store.
func cloneJob(j *types.Job) *types.Job {
	c := *j
	c.Locations = append([]string{}, j.Locations...)
	c.Categories = append([]string{}, j.Categories...)
	c.WorkModes = append([]types.WorkMode{}, j.WorkModes...)
	if j.Salary != nil {
		s := *j.Salary
		c.Salary = &s
	}
	c.PostedAt = copyTime(j.PostedAt)
	c.LastCheckedAt = copyTime(j.LastCheckedAt)
	c.StatusChangedAt = copyTime(j.StatusChangedAt)
	return &c
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
