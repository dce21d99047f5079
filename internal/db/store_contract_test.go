package db

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/job-matcher/internal/dedup"
	"github.com/jonathan/job-matcher/internal/types"
)

// runStoreContract exercises the behaviour every Store must share. The
// memory store runs it on every test run; the Postgres store runs it under
// the integration build tag.
func runStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	t.Helper()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("insert then merge by fingerprint", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		company := uniqueCompany()

		first, change, err := store.UpsertJob(ctx, sampleJob(company, "Short snippet…"), base)
		require.NoError(t, err)
		assert.Nil(t, change)
		assert.NotEqual(t, uuid.Nil, first.ID)
		assert.Equal(t, types.StatusActive, first.Status)
		assert.Equal(t, base, first.FirstSeenAt.UTC())

		incoming := sampleJob(company, strings.Repeat("full description text ", 30))
		incoming.Title = "  BACKEND engineer "
		incoming.Locations = []string{"Austin, US", "Texas"}
		incoming.Categories = []string{"IT Jobs"}
		second, change, err := store.UpsertJob(ctx, incoming, base.Add(time.Hour))
		require.NoError(t, err)
		assert.Nil(t, change)

		assert.Equal(t, first.ID, second.ID, "same fingerprint merges into the same job")
		assert.Equal(t, "Backend Engineer", second.Title, "populated fields are not overwritten")
		assert.Contains(t, second.Description, "full description text")
		assert.Equal(t, []string{"Austin, US", "Texas"}, second.Locations)
		assert.Equal(t, base, second.FirstSeenAt.UTC())
		assert.Equal(t, base.Add(time.Hour), second.LastSeenAt.UTC())

		stored, err := store.GetJob(ctx, first.ID)
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.Equal(t, second.Description, stored.Description)

		byFP, err := store.GetJobByFingerprint(ctx, first.Fingerprint)
		require.NoError(t, err)
		require.NotNil(t, byFP)
		assert.Equal(t, first.ID, byFP.ID)
	})

	t.Run("missing job returns nil", func(t *testing.T) {
		store := newStore(t)
		j, err := store.GetJob(context.Background(), uuid.New())
		require.NoError(t, err)
		assert.Nil(t, j)
	})

	t.Run("status updates and history", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		job, _, err := store.UpsertJob(ctx, sampleJob(uniqueCompany(), "desc"), base)
		require.NoError(t, err)

		later := base.Add(96 * time.Hour)
		seenAt := job.LastSeenAt
		change, err := dedup.Apply(&job, dedup.EventMissed, later)
		require.NoError(t, err)
		require.NotNil(t, change)
		require.NoError(t, store.UpdateJobStatus(ctx, job, seenAt, change))

		stored, err := store.GetJob(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, types.StatusStale, stored.Status)
		assert.Equal(t, 1, stored.MissCount)

		// Seen again by ingestion: back to active with a recorded change.
		revived, change, err := store.UpsertJob(ctx, sampleJob(job.Company, "desc"), later.Add(time.Hour))
		require.NoError(t, err)
		require.NotNil(t, change)
		assert.Equal(t, types.StatusActive, revived.Status)
		assert.Equal(t, types.ReasonObserved, change.Reason)

		history, err := store.StatusHistory(ctx, job.ID)
		require.NoError(t, err)
		require.Len(t, history, 2)
		assert.Equal(t, types.StatusStale, history[0].To)
		assert.Equal(t, types.StatusActive, history[1].To)
	})

	t.Run("status update loses to a newer sighting", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		snapshot, _, err := store.UpsertJob(ctx, sampleJob(uniqueCompany(), "desc"), base)
		require.NoError(t, err)

		sighted := base.Add(95 * time.Hour)
		_, _, err = store.UpsertJob(ctx, sampleJob(snapshot.Company, "desc"), sighted)
		require.NoError(t, err)

		seenAt := snapshot.LastSeenAt
		change, err := dedup.Apply(&snapshot, dedup.EventMissed, base.Add(96*time.Hour))
		require.NoError(t, err)
		err = store.UpdateJobStatus(ctx, snapshot, seenAt, change)
		assert.ErrorIs(t, err, ErrSuperseded)

		stored, err := store.GetJob(ctx, snapshot.ID)
		require.NoError(t, err)
		assert.Equal(t, types.StatusActive, stored.Status)
		assert.Equal(t, 0, stored.MissCount)
		assert.True(t, stored.LastSeenAt.Equal(sighted))

		history, err := store.StatusHistory(ctx, snapshot.ID)
		require.NoError(t, err)
		assert.Empty(t, history)
	})

	t.Run("location suggestions", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		company := uniqueCompany()
		town := "Xq" + uuid.NewString()[:6]

		a := sampleJobTitled(company, "Role A")
		a.Locations = []string{town + "ville, US", town + "ton, US"}
		b := sampleJobTitled(company, "Role B")
		b.Locations = []string{town + "ville, US", "Austin, US"}
		gone := sampleJobTitled(company, "Role C")
		gone.Locations = []string{town + "burg, US"}
		for _, j := range []types.Job{a, b} {
			_, _, err := store.UpsertJob(ctx, j, base)
			require.NoError(t, err)
		}
		expired, _, err := store.UpsertJob(ctx, gone, base)
		require.NoError(t, err)
		seenAt := expired.LastSeenAt
		_, err = dedup.Apply(&expired, dedup.EventClosed, base.Add(time.Hour))
		require.NoError(t, err)
		require.NoError(t, store.UpdateJobStatus(ctx, expired, seenAt, nil))

		got, err := store.SuggestLocations(ctx, strings.ToLower(town), 10)
		require.NoError(t, err)
		assert.Equal(t, []string{town + "ville, US", town + "ton, US"}, got)

		got, err = store.SuggestLocations(ctx, town, 1)
		require.NoError(t, err)
		assert.Equal(t, []string{town + "ville, US"}, got)

		got, err = store.SuggestLocations(ctx, "%"+town, 10)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("candidates and purge", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		company := uniqueCompany()

		old, _, err := store.UpsertJob(ctx, sampleJobTitled(company, "Old Role"), base)
		require.NoError(t, err)
		fresh, _, err := store.UpsertJob(ctx, sampleJobTitled(company, "Fresh Role"), base.Add(100*time.Hour))
		require.NoError(t, err)

		now := base.Add(101 * time.Hour)
		candidates, err := store.ListCandidates(ctx, CandidateQuery{
			StaleBefore:   now.Add(-72 * time.Hour),
			RecheckBefore: now.Add(-24 * time.Hour),
		})
		require.NoError(t, err)
		ids := jobIDs(candidates)
		assert.Contains(t, ids, old.ID)
		assert.NotContains(t, ids, fresh.ID)

		seenAt := old.LastSeenAt
		_, err = dedup.Apply(&old, dedup.EventClosed, now)
		require.NoError(t, err)
		require.NoError(t, store.UpdateJobStatus(ctx, old, seenAt, nil))

		purged, err := store.PurgeExpired(ctx, now.Add(time.Minute))
		require.NoError(t, err)
		assert.GreaterOrEqual(t, purged, 1)

		gone, err := store.GetJob(ctx, old.ID)
		require.NoError(t, err)
		assert.Nil(t, gone)
		kept, err := store.GetJob(ctx, fresh.ID)
		require.NoError(t, err)
		assert.NotNil(t, kept)
	})

	t.Run("saved jobs", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		user := uuid.New()

		job, _, err := store.UpsertJob(ctx, sampleJob(uniqueCompany(), "desc"), base)
		require.NoError(t, err)

		saved, err := store.SaveJob(ctx, user, job.ID, base)
		require.NoError(t, err)
		assert.Equal(t, job.ID, saved.Job.ID)

		again, err := store.SaveJob(ctx, user, job.ID, base.Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, base, again.SavedAt.UTC(), "saving twice keeps the first time")

		list, err := store.ListSavedJobs(ctx, user)
		require.NoError(t, err)
		require.Len(t, list, 1)

		others, err := store.ListSavedJobs(ctx, uuid.New())
		require.NoError(t, err)
		assert.Empty(t, others)

		_, err = store.SaveJob(ctx, user, uuid.New(), base)
		assert.ErrorIs(t, err, types.ErrNotFound)

		require.NoError(t, store.DeleteSavedJob(ctx, user, job.ID))
		assert.ErrorIs(t, store.DeleteSavedJob(ctx, user, job.ID), types.ErrNotFound)
	})
}

func sampleJob(company, description string) types.Job {
	return sampleJobWith(company, "Backend Engineer", description)
}

func sampleJobTitled(company, title string) types.Job {
	return sampleJobWith(company, title, "desc")
}

func sampleJobWith(company, title, description string) types.Job {
	return types.Job{
		Source:      "adzuna",
		SourceID:    uuid.NewString(),
		Title:       title,
		Company:     company,
		Description: description,
		Locations:   []string{"Austin, US"},
		WorkModes:   []types.WorkMode{types.WorkModeHybrid},
		Categories:  []string{},
	}
}

func uniqueCompany() string {
	return "Contract Test " + uuid.NewString()[:8]
}

func jobIDs(jobs []types.Job) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(jobs))
	for _, j := range jobs {
		ids = append(ids, j.ID)
	}
	return ids
}
