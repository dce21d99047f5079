package dedup_test

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/job-matcher/internal/dedup"
	"github.com/jonathan/job-matcher/internal/types"
)

func floatPtr(v float64) *float64 { return &v }

func TestFingerprint_NormalizesIdentityFields(t *testing.T) {
	a := dedup.Fingerprint("Senior Backend Engineer", "Acme, Inc.", "Austin, US")
	b := dedup.Fingerprint("  senior   backend engineer!", "ACME INC", "austin us")
	c := dedup.Fingerprint("Senior Backend Engineer", "Acme, Inc.", "Denver, US")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}

func TestFingerprint_SeparatesFields(t *testing.T) {
	assert.NotEqual(t, dedup.Fingerprint("ab", "c", ""), dedup.Fingerprint("a", "bc", ""))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "c developer remote", dedup.Normalize("C++ Developer — (Remote)"))
	assert.Equal(t, "", dedup.Normalize("  ...  "))
}

func TestIsTruncated(t *testing.T) {
	long := strings.Repeat("word ", 60)
	assert.True(t, dedup.IsTruncated(""))
	assert.True(t, dedup.IsTruncated("Short snippet"))
	assert.True(t, dedup.IsTruncated(long+"…"))
	assert.False(t, dedup.IsTruncated(long))
}

func TestNewJob(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	job := dedup.NewJob(types.Job{Title: "Engineer", Company: "Acme", Locations: []string{"Austin, US"}}, now)

	assert.Equal(t, dedup.Fingerprint("Engineer", "Acme", "Austin, US"), job.Fingerprint)
	assert.Equal(t, now, job.FirstSeenAt)
	assert.Equal(t, now, job.LastSeenAt)
	assert.Equal(t, types.StatusActive, job.Status)
}

func TestMerge_FillsWithoutOverwriting(t *testing.T) {
	t0 := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	posted := t0.Add(-48 * time.Hour)
	existing := dedup.NewJob(types.Job{
		ID:        uuid.New(),
		Source:    "adzuna",
		SourceID:  "111",
		Title:     "Engineer",
		Company:   "Acme",
		Locations: []string{"Austin, US"},
		URL:       "https://jobs.example/111",
		Salary:    &types.Salary{Min: floatPtr(100000), Currency: "USD"},
	}, t0)

	incoming := types.Job{
		Source:      "scrape",
		SourceID:    "https://other.example/999",
		Title:       "Engineer",
		Company:     "Acme",
		Description: strings.Repeat("full description ", 40),
		Locations:   []string{"Austin, US", "Remote"},
		WorkModes:   []types.WorkMode{types.WorkModeRemote},
		URL:         "https://other.example/999",
		Salary:      &types.Salary{Min: floatPtr(90000), Max: floatPtr(140000)},
		PostedAt:    &posted,
	}

	merged, change := dedup.Merge(existing, incoming, t0.Add(time.Hour))
	assert.Nil(t, change)

	assert.Equal(t, existing.ID, merged.ID)
	assert.Equal(t, "111", merged.SourceID, "populated source id kept")
	assert.Equal(t, "https://jobs.example/111", merged.URL)
	assert.Equal(t, incoming.Description, merged.Description, "empty description filled")
	assert.Equal(t, []string{"Austin, US", "Remote"}, merged.Locations)
	assert.Equal(t, []types.WorkMode{types.WorkModeRemote}, merged.WorkModes)
	require.NotNil(t, merged.Salary)
	assert.Equal(t, 100000.0, *merged.Salary.Min)
	assert.Equal(t, 140000.0, *merged.Salary.Max)
	require.NotNil(t, merged.PostedAt)
	assert.Equal(t, posted, *merged.PostedAt)
	assert.Equal(t, t0.Add(time.Hour), merged.LastSeenAt)
	assert.Equal(t, t0, merged.FirstSeenAt)
}

func TestMerge_IsCommutativeOnFieldUnion(t *testing.T) {
	t0 := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	a := types.Job{Title: "Engineer", Company: "Acme", Locations: []string{"Austin, US"}, URL: "https://a"}
	b := types.Job{Title: "Engineer", Company: "Acme", Locations: []string{"Austin, US"}, ContractTime: "full_time", Categories: []string{"IT Jobs"}}

	ab, _ := dedup.Merge(dedup.NewJob(a, t0), b, t0)
	ba, _ := dedup.Merge(dedup.NewJob(b, t0), a, t0)

	for _, j := range []types.Job{ab, ba} {
		assert.Equal(t, "https://a", j.URL)
		assert.Equal(t, "full_time", j.ContractTime)
		assert.Equal(t, []string{"IT Jobs"}, j.Categories)
	}
}

func TestMerge_TruncatedDescriptionUpgraded(t *testing.T) {
	t0 := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	snippet := "We are hiring a backend engineer to build…"
	full := strings.Repeat("Build scalable services in Go and Python. ", 12)

	existing := dedup.NewJob(types.Job{Title: "Engineer", Company: "Acme", Description: snippet}, t0)
	merged, _ := dedup.Merge(existing, types.Job{Description: full}, t0)
	assert.Equal(t, full, merged.Description)

	// A complete description is never replaced.
	again, _ := dedup.Merge(merged, types.Job{Description: strings.Repeat("different text ", 80)}, t0)
	assert.Equal(t, full, again.Description)
}

func TestMerge_IdempotentUpdatesOnlyLastSeen(t *testing.T) {
	t0 := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	raw := types.Job{
		Source:    "adzuna",
		SourceID:  "42",
		Title:     "Data Analyst",
		Company:   "Globex",
		Locations: []string{"Boston, US"},
		WorkModes: []types.WorkMode{types.WorkModeHybrid},
	}
	first := dedup.NewJob(raw, t0)
	second, change := dedup.Merge(first, raw, t0.Add(2*time.Hour))

	assert.Nil(t, change)
	assert.Equal(t, t0.Add(2*time.Hour), second.LastSeenAt)
	second.LastSeenAt = first.LastSeenAt
	assert.Equal(t, first, second)
}

func TestMerge_ReactivatesExpiredJob(t *testing.T) {
	t0 := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	job := dedup.NewJob(types.Job{ID: uuid.New(), Title: "Engineer", Company: "Acme"}, t0)
	job.Status = types.StatusExpired
	job.MissCount = 2

	merged, change := dedup.Merge(job, types.Job{Title: "Engineer", Company: "Acme"}, t0.Add(24*time.Hour))
	require.NotNil(t, change)
	assert.Equal(t, types.StatusExpired, change.From)
	assert.Equal(t, types.StatusActive, change.To)
	assert.Equal(t, types.StatusActive, merged.Status)
	assert.Zero(t, merged.MissCount)
}

func TestMerge_FirstSeenNeverAfterLastSeen(t *testing.T) {
	t0 := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	job := dedup.NewJob(types.Job{Title: "Engineer", Company: "Acme"}, t0)

	// An observation timestamped earlier than the stored one does not move last_seen backward.
	merged, _ := dedup.Merge(job, types.Job{}, t0.Add(-time.Hour))
	assert.Equal(t, t0, merged.LastSeenAt)
	assert.False(t, merged.LastSeenAt.Before(merged.FirstSeenAt))
}
