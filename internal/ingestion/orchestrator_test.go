package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/jonathan/job-matcher/internal/db"
	"github.com/jonathan/job-matcher/internal/provider"
	"github.com/jonathan/job-matcher/internal/types"
)

// ── Fakes ──

type fakeProvider struct {
	records []string
	count   int
	err     error
	calls   int
	lastQ   types.SearchQuery
}

func (p *fakeProvider) Name() string { return "adzuna" }

func (p *fakeProvider) Search(_ context.Context, q types.SearchQuery) (*provider.RawPage, error) {
	p.calls++
	p.lastQ = q
	if p.err != nil {
		return nil, p.err
	}
	page := &provider.RawPage{Source: "adzuna", Count: p.count}
	for _, r := range p.records {
		page.Records = append(page.Records, json.RawMessage(r))
	}
	return page, nil
}

type fakeEnricher struct {
	mu      sync.Mutex
	calls   map[string]int
	patch   func(job types.Job) (types.Job, error)
	delay   time.Duration
	running atomic.Int32
	peak    atomic.Int32
}

func (e *fakeEnricher) Enrich(ctx context.Context, job types.Job) (types.Job, error) {
	cur := e.running.Add(1)
	defer e.running.Add(-1)
	for {
		p := e.peak.Load()
		if cur <= p || e.peak.CompareAndSwap(p, cur) {
			break
		}
	}

	e.mu.Lock()
	if e.calls == nil {
		e.calls = make(map[string]int)
	}
	e.calls[job.URL]++
	e.mu.Unlock()

	if e.delay > 0 {
		select {
		case <-time.After(e.delay):
		case <-ctx.Done():
			return types.Job{}, &types.EnrichmentSkippedError{URL: job.URL, Reason: "deadline", Cause: ctx.Err()}
		}
	}
	return e.patch(job)
}

func adzunaRecord(id, title, company, description string) string {
	rec := map[string]any{
		"id":           id,
		"title":        title,
		"description":  description,
		"company":      map[string]any{"display_name": company},
		"location":     map[string]any{"display_name": "Austin, Texas", "area": []string{"US", "Texas", "Austin"}},
		"redirect_url": "https://www.adzuna.com/details/" + id,
		"created":      "2025-02-01T10:00:00Z",
	}
	b, _ := json.Marshal(rec)
	return string(b)
}

var fullDescription = strings.Repeat("Build and operate reliable distributed services in Go. ", 12)

func newOrchestrator(p provider.Provider, e Enricher, store JobStore, cfg Config) (*Orchestrator, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	o := New(p, nil, e, store, cfg, zap.New(core))
	o.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }
	return o, logs
}

// ── Search ──

func TestSearch_NormalizesAndStores(t *testing.T) {
	p := &fakeProvider{count: 42, records: []string{
		adzunaRecord("1", "Backend Engineer", "Acme", fullDescription),
		adzunaRecord("2", "Data Analyst", "Globex", fullDescription),
	}}
	store := db.NewMemoryStore()
	o, _ := newOrchestrator(p, nil, store, DefaultConfig())

	page, err := o.Search(context.Background(), types.SearchQuery{What: " golang "})
	require.NoError(t, err)

	assert.Equal(t, 42, page.Count)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, types.DefaultPageSize, page.PageSize)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "golang", p.lastQ.What)

	first := page.Items[0]
	assert.Equal(t, "Austin, US", first.PrimaryLocation())
	assert.Equal(t, types.StatusActive, first.Status)
	assert.NotEmpty(t, first.Fingerprint)

	stored, err := store.GetJob(context.Background(), first.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "Backend Engineer", stored.Title)
}

func TestSearch_IdempotentReingestion(t *testing.T) {
	p := &fakeProvider{records: []string{adzunaRecord("1", "Backend Engineer", "Acme", fullDescription)}}
	store := db.NewMemoryStore()
	o, _ := newOrchestrator(p, nil, store, DefaultConfig())

	first, err := o.Search(context.Background(), types.SearchQuery{})
	require.NoError(t, err)

	later := time.Date(2025, 3, 2, 12, 0, 0, 0, time.UTC)
	o.now = func() time.Time { return later }
	second, err := o.Search(context.Background(), types.SearchQuery{})
	require.NoError(t, err)

	require.Len(t, second.Items, 1)
	a, b := first.Items[0], second.Items[0]
	assert.Equal(t, a.ID, b.ID, "no duplicate job")
	assert.Equal(t, a.FirstSeenAt, b.FirstSeenAt)
	assert.Equal(t, later, b.LastSeenAt)

	a.LastSeenAt, b.LastSeenAt = time.Time{}, time.Time{}
	assert.Equal(t, a, b, "only last_seen_at changes")
}

func TestSearch_DuplicatesInOnePageCollapse(t *testing.T) {
	p := &fakeProvider{records: []string{
		adzunaRecord("1", "Backend Engineer", "Acme", "Short…"),
		adzunaRecord("99", "Backend  Engineer!", "ACME", fullDescription),
	}}
	o, _ := newOrchestrator(p, nil, db.NewMemoryStore(), DefaultConfig())

	page, err := o.Search(context.Background(), types.SearchQuery{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "1", page.Items[0].SourceID, "first observation keeps identity fields")
	assert.Contains(t, page.Items[0].Description, "distributed services", "truncated text upgraded")
}

func TestSearch_ValidationError(t *testing.T) {
	p := &fakeProvider{}
	o, _ := newOrchestrator(p, nil, nil, DefaultConfig())

	_, err := o.Search(context.Background(), types.SearchQuery{PageSize: 500})
	var verr *types.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, 0, p.calls, "provider is not called for invalid queries")
}

func TestSearch_ProviderUnavailable(t *testing.T) {
	p := &fakeProvider{err: &types.SourceUnavailableError{Source: "adzuna", Kind: types.FailureTimeout, Cause: context.DeadlineExceeded}}
	o, _ := newOrchestrator(p, nil, nil, DefaultConfig())

	page, err := o.Search(context.Background(), types.SearchQuery{})
	require.Error(t, err)
	assert.True(t, types.IsSourceUnavailable(err))
	assert.True(t, page.Unavailable, "caller can tell an outage from zero results")
	assert.Empty(t, page.Items)
	assert.NotNil(t, page.Items)
}

func TestSearch_AllMalformed(t *testing.T) {
	p := &fakeProvider{records: []string{`{"title": "no id"}`, `"not an object"`}}
	o, logs := newOrchestrator(p, nil, nil, DefaultConfig())

	page, err := o.Search(context.Background(), types.SearchQuery{})
	assert.ErrorIs(t, err, types.ErrAllMalformed)
	assert.Equal(t, 2, page.Rejected)
	assert.Equal(t, 2, logs.FilterMessage("rejected raw record").Len())
}

func TestSearch_PartialRejectionsAreAbsorbed(t *testing.T) {
	p := &fakeProvider{records: []string{
		`{"title": "no id", "company": {"display_name": "Acme"}}`,
		adzunaRecord("2", "Backend Engineer", "Acme", fullDescription),
	}}
	o, _ := newOrchestrator(p, nil, nil, DefaultConfig())

	page, err := o.Search(context.Background(), types.SearchQuery{})
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
	assert.Equal(t, 1, page.Rejected)
}

func TestSearch_EmptyProviderPage(t *testing.T) {
	o, _ := newOrchestrator(&fakeProvider{}, nil, nil, DefaultConfig())
	page, err := o.Search(context.Background(), types.SearchQuery{})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.False(t, page.Unavailable)
}

func TestSearch_RemoteOnlyPostFilter(t *testing.T) {
	p := &fakeProvider{records: []string{
		adzunaRecord("1", "Remote Backend Engineer", "Acme", fullDescription),
		adzunaRecord("2", "Office Manager", "Acme", fullDescription),
	}}
	o, _ := newOrchestrator(p, nil, nil, DefaultConfig())

	page, err := o.Search(context.Background(), types.SearchQuery{RemoteOnly: true})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "1", page.Items[0].SourceID)
	assert.True(t, p.lastQ.RemoteOnly)
}

func TestSearch_ProviderErrorNotUnavailable(t *testing.T) {
	p := &fakeProvider{err: errors.New("boom")}
	o, _ := newOrchestrator(p, nil, nil, DefaultConfig())

	page, err := o.Search(context.Background(), types.SearchQuery{})
	require.Error(t, err)
	assert.False(t, page.Unavailable)
}

// ── Enrichment ──

func TestSearch_EnrichesTruncatedDescriptions(t *testing.T) {
	p := &fakeProvider{records: []string{
		adzunaRecord("1", "Backend Engineer", "Acme", "We are hiring…"),
		adzunaRecord("2", "Data Analyst", "Acme", fullDescription),
	}}
	enricher := &fakeEnricher{patch: func(job types.Job) (types.Job, error) {
		return types.Job{Description: fullDescription, WorkModes: []types.WorkMode{types.WorkModeRemote}}, nil
	}}
	store := db.NewMemoryStore()
	o, _ := newOrchestrator(p, enricher, store, DefaultConfig())

	page, err := o.Search(context.Background(), types.SearchQuery{})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)

	assert.Contains(t, page.Items[0].Description, "distributed services")
	assert.Equal(t, map[string]int{"https://www.adzuna.com/details/1": 1}, enricher.calls,
		"only the truncated job is enriched, once")

	stored, err := store.GetJob(context.Background(), page.Items[0].ID)
	require.NoError(t, err)
	assert.Equal(t, page.Items[0].Description, stored.Description, "enriched data is persisted")
	assert.Equal(t, page.Items[0].Fingerprint, stored.Fingerprint)
}

func TestSearch_EnrichmentFailureKeepsJob(t *testing.T) {
	p := &fakeProvider{records: []string{adzunaRecord("1", "Backend Engineer", "Acme", "Short…")}}
	enricher := &fakeEnricher{patch: func(job types.Job) (types.Job, error) {
		return types.Job{}, &types.EnrichmentSkippedError{URL: job.URL, Reason: "fetch_failed"}
	}}
	o, logs := newOrchestrator(p, enricher, nil, DefaultConfig())

	page, err := o.Search(context.Background(), types.SearchQuery{})
	require.NoError(t, err, "enrichment failures never surface")
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Short…", page.Items[0].Description)
	assert.Equal(t, 1, logs.FilterMessage("enrichment skipped").Len())
}

func TestSearch_EnrichmentBoundedByLimitAndWorkers(t *testing.T) {
	var records []string
	for i := 0; i < 8; i++ {
		records = append(records, adzunaRecord(fmt.Sprint(i), fmt.Sprintf("Role %d", i), "Acme", ""))
	}
	enricher := &fakeEnricher{
		delay: 20 * time.Millisecond,
		patch: func(job types.Job) (types.Job, error) { return types.Job{Description: fullDescription}, nil },
	}
	cfg := Config{EnrichLimit: 4, EnrichWorkers: 2, EnrichBudget: time.Second}
	o, _ := newOrchestrator(&fakeProvider{records: records}, enricher, nil, cfg)

	page, err := o.Search(context.Background(), types.SearchQuery{})
	require.NoError(t, err)
	require.Len(t, page.Items, 8)

	assert.Len(t, enricher.calls, 4)
	assert.LessOrEqual(t, enricher.peak.Load(), int32(2))
	for i, item := range page.Items {
		if i < 4 {
			assert.NotEmpty(t, item.Description, "item %d", i)
		} else {
			assert.Empty(t, item.Description, "item %d", i)
		}
	}
}

func TestSearch_EnrichmentBudgetDoesNotBlock(t *testing.T) {
	p := &fakeProvider{records: []string{adzunaRecord("1", "Backend Engineer", "Acme", "")}}
	enricher := &fakeEnricher{
		delay: 5 * time.Second,
		patch: func(job types.Job) (types.Job, error) { return types.Job{Description: fullDescription}, nil },
	}
	cfg := Config{EnrichLimit: 5, EnrichWorkers: 1, EnrichBudget: 30 * time.Millisecond}
	o, _ := newOrchestrator(p, enricher, nil, cfg)

	start := time.Now()
	page, err := o.Search(context.Background(), types.SearchQuery{})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
	require.Len(t, page.Items, 1)
	assert.Empty(t, page.Items[0].Description, "late enrichment is discarded")
}
