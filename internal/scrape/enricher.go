package scrape

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/jonathan/job-matcher/internal/fetch"
	"github.com/jonathan/job-matcher/internal/normalize"
	"github.com/jonathan/job-matcher/internal/types"
)

// Skip reasons reported on EnrichmentSkippedError.
const (
	SkipNoURL         = "no_url"
	SkipRateLimited   = "rate_limit_budget_exceeded"
	SkipFetchFailed   = "fetch_failed"
	SkipParseFailed   = "parse_failed"
	SkipNoUsefulData  = "no_useful_data"
	SkipNormalization = "normalization_failed"
)

// Enricher fetches a job's detail page and returns the fields it can fill.
type Enricher struct {
	fetcher  fetch.PageFetcher
	limiter  *rate.Limiter
	minWords int
	logger   *zap.Logger
}

// EnricherConfig configures an Enricher.
type EnricherConfig struct {
	// Rate is the sustained page fetches per second; zero disables throttling.
	Rate     float64
	Burst    int
	MinWords int
}

// NewEnricher creates an Enricher around a page fetcher.
func NewEnricher(fetcher fetch.PageFetcher, cfg EnricherConfig, logger *zap.Logger) *Enricher {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.Rate > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.Rate), burst)
	}
	if cfg.MinWords <= 0 {
		cfg.MinWords = DefaultMinWords
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Enricher{fetcher: fetcher, limiter: limiter, minWords: cfg.MinWords, logger: logger}
}

// Enrich returns a patch holding only fields the job lacks. The job itself is
// never modified; any failure is an EnrichmentSkippedError and the caller
// keeps the job as it was.
func (e *Enricher) Enrich(ctx context.Context, job types.Job) (types.Job, error) {
	if job.URL == "" {
		return types.Job{}, &types.EnrichmentSkippedError{URL: job.URL, Reason: SkipNoURL}
	}
	if err := e.limiter.Wait(ctx); err != nil {
		return types.Job{}, &types.EnrichmentSkippedError{URL: job.URL, Reason: SkipRateLimited, Cause: err}
	}

	page, err := e.fetcher.Fetch(ctx, job.URL)
	if err != nil {
		return types.Job{}, &types.EnrichmentSkippedError{URL: job.URL, Reason: SkipFetchFailed, Cause: err}
	}

	ext, err := Extract(page.URL, page.HTML, e.minWords)
	if err != nil {
		return types.Job{}, &types.EnrichmentSkippedError{URL: job.URL, Reason: SkipParseFailed, Cause: err}
	}
	if !ext.HasData() {
		return types.Job{}, &types.EnrichmentSkippedError{URL: job.URL, Reason: SkipNoUsefulData}
	}

	patch, err := normalize.Scraped(ext.Record)
	if err != nil {
		return types.Job{}, &types.EnrichmentSkippedError{URL: job.URL, Reason: SkipNormalization, Cause: err}
	}
	patch = restrictToGaps(job, patch)

	e.logger.Debug("enriched job",
		zap.String("url", job.URL),
		zap.String("strategy", string(ext.Strategy)),
		zap.Bool("from_cache", page.FromCache),
		zap.Int("description_words", fetch.WordCount(patch.Description)),
	)
	return patch, nil
}

// restrictToGaps clears patch fields the job already has, so page markup only
// refines what the provider omitted.
func restrictToGaps(job, patch types.Job) types.Job {
	out := types.Job{
		Description:  patch.Description,
		ContractTime: patch.ContractTime,
		ContractType: patch.ContractType,
		PostedAt:     patch.PostedAt,
		Salary:       patch.Salary,
	}
	if len(job.Locations) == 0 {
		out.Locations = patch.Locations
		out.City = patch.City
		out.Country = patch.Country
	}
	if len(job.WorkModes) == 0 {
		out.WorkModes = patch.WorkModes
	}
	return out
}

// IsSkipped reports whether err is an EnrichmentSkippedError.
func IsSkipped(err error) bool {
	var skipped *types.EnrichmentSkippedError
	return errors.As(err, &skipped)
}
