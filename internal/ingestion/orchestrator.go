// Package ingestion turns one search request into a page of canonical jobs:
// provider fetch, normalization, deduplication into the store, best-effort
// scrape enrichment and post-filtering.
package ingestion

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/job-matcher/internal/dedup"
	"github.com/jonathan/job-matcher/internal/logger"
	"github.com/jonathan/job-matcher/internal/normalize"
	"github.com/jonathan/job-matcher/internal/provider"
	"github.com/jonathan/job-matcher/internal/types"
)

// Defaults for the enrichment pass.
const (
	DefaultEnrichLimit   = 5
	DefaultEnrichWorkers = 3
	DefaultEnrichBudget  = 8 * time.Second
)

// Enricher recovers missing job fields from the posting page.
type Enricher interface {
	Enrich(ctx context.Context, job types.Job) (types.Job, error)
}

// JobStore persists observations of canonical jobs.
type JobStore interface {
	UpsertJob(ctx context.Context, job types.Job, now time.Time) (types.Job, *types.StatusChange, error)
}

// Config bounds the per-call enrichment work.
type Config struct {
	// EnrichLimit is how many incomplete items per page are enriched; zero disables enrichment.
	EnrichLimit   int
	EnrichWorkers int
	EnrichBudget  time.Duration
}

// DefaultConfig returns the standard enrichment bounds.
func DefaultConfig() Config {
	return Config{
		EnrichLimit:   DefaultEnrichLimit,
		EnrichWorkers: DefaultEnrichWorkers,
		EnrichBudget:  DefaultEnrichBudget,
	}
}

// Orchestrator runs searches.
type Orchestrator struct {
	provider   provider.Provider
	normalizer *normalize.Normalizer
	enricher   Enricher
	store      JobStore
	cfg        Config
	logger     *zap.Logger
	now        func() time.Time
}

// New creates an Orchestrator. A nil enricher disables enrichment.
func New(p provider.Provider, n *normalize.Normalizer, e Enricher, store JobStore, cfg Config, log *zap.Logger) *Orchestrator {
	if cfg.EnrichWorkers < 1 {
		cfg.EnrichWorkers = DefaultEnrichWorkers
	}
	if cfg.EnrichBudget <= 0 {
		cfg.EnrichBudget = DefaultEnrichBudget
	}
	log = logger.Component(log, "ingestion")
	if n == nil {
		n = normalize.New(log)
	}
	return &Orchestrator{
		provider:   p,
		normalizer: n,
		enricher:   e,
		store:      store,
		cfg:        cfg,
		logger:     log,
		now:        time.Now,
	}
}

// Search fetches one provider page and returns it as canonical jobs.
//
// A provider failure returns an empty page marked unavailable together with
// the SourceUnavailableError, so callers can tell "down" from "no results".
// A page whose every record is malformed returns ErrAllMalformed.
func (o *Orchestrator) Search(ctx context.Context, q types.SearchQuery) (types.SearchPage, error) {
	q = q.WithDefaults()
	if err := q.Validate(); err != nil {
		return types.EmptyPage(q), err
	}

	raw, err := o.provider.Search(ctx, q)
	if err != nil {
		page := types.EmptyPage(q)
		page.Unavailable = types.IsSourceUnavailable(err)
		return page, err
	}

	jobs, rej := o.normalizer.Page(raw.Source, raw.Records)
	if len(raw.Records) > 0 && len(jobs) == 0 {
		page := types.EmptyPage(q)
		page.Rejected = rej.Count
		return page, types.ErrAllMalformed
	}

	jobs = collapseDuplicates(jobs)
	now := o.now()

	jobs, err = o.persist(ctx, jobs, now)
	if err != nil {
		return types.EmptyPage(q), err
	}
	jobs = o.enrich(ctx, jobs, now)

	items := make([]types.Job, 0, len(jobs))
	for _, j := range jobs {
		if !j.IsSearchable() {
			continue
		}
		if q.RemoteOnly && !j.HasWorkMode(types.WorkModeRemote) {
			continue
		}
		items = append(items, j)
	}

	o.logger.Info("search completed",
		zap.String(logger.FieldSource, raw.Source),
		zap.Int("records", len(raw.Records)),
		zap.Int("rejected", rej.Count),
		zap.Int("items", len(items)),
		zap.Int("count", raw.Count),
	)
	return types.SearchPage{
		Items:    items,
		Count:    raw.Count,
		Page:     q.Page,
		PageSize: q.PageSize,
		Rejected: rej.Count,
	}, nil
}

// collapseDuplicates merges jobs in one page that share a fingerprint,
// keeping the first occurrence's position.
func collapseDuplicates(jobs []types.Job) []types.Job {
	index := make(map[string]int, len(jobs))
	out := make([]types.Job, 0, len(jobs))
	for _, j := range jobs {
		j.Fingerprint = dedup.FingerprintJob(&j)
		if i, ok := index[j.Fingerprint]; ok {
			dedup.FillFrom(&out[i], &j)
			continue
		}
		index[j.Fingerprint] = len(out)
		out = append(out, j)
	}
	return out
}

// persist upserts every job and returns the merged canonical records.
func (o *Orchestrator) persist(ctx context.Context, jobs []types.Job, now time.Time) ([]types.Job, error) {
	if o.store == nil {
		out := make([]types.Job, 0, len(jobs))
		for _, j := range jobs {
			out = append(out, dedup.NewJob(j, now))
		}
		return out, nil
	}
	out := make([]types.Job, 0, len(jobs))
	for _, j := range jobs {
		stored, change, err := o.store.UpsertJob(ctx, j, now)
		if err != nil {
			return nil, err
		}
		if change != nil {
			o.logger.Info("job status changed",
				zap.String(logger.FieldJobID, change.JobID.String()),
				zap.String("from", string(change.From)),
				zap.String("to", string(change.To)),
				zap.String("reason", change.Reason),
			)
		}
		out = append(out, stored)
	}
	return out, nil
}

// enrich scrapes detail pages for the first EnrichLimit jobs whose stored
// description is still missing or truncated. Work runs on a bounded pool
// under a shared deadline; a job whose scrape fails or misses the deadline
// keeps its current data.
func (o *Orchestrator) enrich(ctx context.Context, jobs []types.Job, now time.Time) []types.Job {
	if o.enricher == nil || o.cfg.EnrichLimit <= 0 {
		return jobs
	}

	seen := make(map[string]struct{})
	var targets []int
	for i, j := range jobs {
		if len(targets) >= o.cfg.EnrichLimit {
			break
		}
		if j.URL == "" || !dedup.IsTruncated(j.Description) {
			continue
		}
		if _, ok := seen[j.Fingerprint]; ok {
			continue
		}
		seen[j.Fingerprint] = struct{}{}
		targets = append(targets, i)
	}
	if len(targets) == 0 {
		return jobs
	}

	budgetCtx, cancel := context.WithTimeout(ctx, o.cfg.EnrichBudget)
	defer cancel()

	patches := make([]*types.Job, len(targets))
	var g errgroup.Group
	g.SetLimit(o.cfg.EnrichWorkers)
	for n, i := range targets {
		job := jobs[i]
		g.Go(func() error {
			patch, err := o.enricher.Enrich(budgetCtx, job)
			if err != nil {
				o.logger.Info("enrichment skipped",
					zap.String(logger.FieldJobID, job.ID.String()),
					zap.String("url", job.URL),
					zap.Error(err),
				)
				return nil
			}
			if budgetCtx.Err() != nil {
				return nil
			}
			patches[n] = &patch
			return nil
		})
	}
	_ = g.Wait()

	enriched := 0
	for n, i := range targets {
		if patches[n] == nil {
			continue
		}
		updated := jobs[i]
		dedup.FillFrom(&updated, patches[n])
		if o.store != nil {
			stored, _, err := o.store.UpsertJob(ctx, updated, now)
			if err != nil {
				o.logger.Warn("failed to store enriched job",
					zap.String(logger.FieldJobID, updated.ID.String()),
					zap.Error(err),
				)
				continue
			}
			updated = stored
		}
		jobs[i] = updated
		enriched++
	}
	o.logger.Debug("enrichment pass finished",
		zap.Int("attempted", len(targets)),
		zap.Int("enriched", enriched),
	)
	return jobs
}
