package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jonathan/job-matcher/internal/config"
	"github.com/jonathan/job-matcher/internal/db"
	"github.com/jonathan/job-matcher/internal/feedback"
	"github.com/jonathan/job-matcher/internal/fetch"
	"github.com/jonathan/job-matcher/internal/fit"
	"github.com/jonathan/job-matcher/internal/freshness"
	"github.com/jonathan/job-matcher/internal/ingestion"
	"github.com/jonathan/job-matcher/internal/llm"
	"github.com/jonathan/job-matcher/internal/logger"
	"github.com/jonathan/job-matcher/internal/normalize"
	"github.com/jonathan/job-matcher/internal/provider"
	"github.com/jonathan/job-matcher/internal/resume"
	"github.com/jonathan/job-matcher/internal/scrape"
	"github.com/jonathan/job-matcher/internal/server"
)

// app holds the components shared by the subcommands. Fields a command does
// not need stay nil.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	store    db.Store
	provider provider.Provider
	search   *ingestion.Orchestrator
	monitor  *freshness.Monitor
	reviewer *feedback.Generator
	parser   *resume.Parser
	scorer   *fit.Scorer
	closers  []func()
}

// loadApp reads configuration and builds the logger. Components are added
// by the with* methods.
func loadApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.Log.JSON, cfg.Log.Debug)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	for _, w := range cfg.Warnings() {
		log.Warn("config warning", zap.String("warning", w))
	}
	a := &app{
		cfg:    cfg,
		logger: log,
		parser: resume.New(log),
		scorer: fit.New(log),
	}
	a.closers = append(a.closers, func() { _ = log.Sync() })
	return a, nil
}

// Close releases components in reverse construction order.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func (a *app) withStore(ctx context.Context) error {
	store, err := db.Open(ctx, a.cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	if a.cfg.Database.URL == "" {
		a.logger.Warn("database.url not set, using in-memory store")
	}
	a.store = store
	a.closers = append(a.closers, store.Close)
	return nil
}

func (a *app) withProvider() {
	ac := a.cfg.Adzuna
	a.provider = provider.NewAdzuna(provider.AdzunaConfig{
		AppID:        ac.AppID,
		AppKey:       ac.AppKey,
		Country:      ac.Country,
		BaseURL:      ac.BaseURL,
		Timeout:      ac.Timeout,
		RetryBackoff: ac.RetryBackoff,
	}, nil, a.logger)
}

// pageFetcher builds the detail page fetch chain: plain HTTP, an optional
// headless browser fallback, then a page cache in Redis or memory.
func (a *app) pageFetcher(ctx context.Context) fetch.PageFetcher {
	sc := a.cfg.Scrape
	var f fetch.PageFetcher = fetch.NewHTTPFetcher(nil, &fetch.Options{Timeout: sc.Timeout})
	if sc.UseBrowser {
		f = &fetch.RenderingFetcher{
			Base:     f,
			Renderer: &fetch.BrowserRenderer{Timeout: sc.BrowserTimeout, Logger: a.logger},
			Logger:   a.logger,
		}
	}

	var cache fetch.PageCache = fetch.NewMemoryCache()
	if url := a.cfg.Redis.URL; url != "" {
		rdb, err := fetch.NewRedisClient(ctx, url)
		if err != nil {
			a.logger.Warn("redis unavailable, caching pages in memory", zap.Error(err))
		} else {
			a.closers = append(a.closers, func() { _ = rdb.Close() })
			cache = fetch.NewRedisCache(rdb)
		}
	}
	return fetch.NewCachedFetcher(f, cache, a.cfg.Redis.PageTTL, a.logger)
}

// withSearch requires withStore and withProvider.
func (a *app) withSearch(ctx context.Context) {
	ic := a.cfg.Ingestion
	enricher := scrape.NewEnricher(a.pageFetcher(ctx), scrape.EnricherConfig{
		Rate:     ic.EnrichRate,
		Burst:    ic.EnrichBurst,
		MinWords: a.cfg.Scrape.MinWords,
	}, a.logger)
	a.search = ingestion.New(a.provider, normalize.New(a.logger), enricher, a.store, ingestion.Config{
		EnrichLimit:   ic.EnrichLimit,
		EnrichWorkers: ic.EnrichWorkers,
		EnrichBudget:  ic.EnrichBudget,
	}, a.logger)
}

// withMonitor requires withStore and withProvider.
func (a *app) withMonitor() {
	fc := a.cfg.Freshness
	a.monitor = freshness.New(a.store, a.provider, freshness.Config{
		Interval:           fc.Interval,
		StaleAfter:         fc.StaleAfter,
		ExpiryConfirmAfter: fc.ExpiryConfirmAfter,
		Retention:          fc.Retention,
		BatchSize:          fc.BatchSize,
	}, a.logger)
}

// withReviewer builds the narrative generator. Without an API key the
// generator runs model-less and every review uses the default narrative.
func (a *app) withReviewer(ctx context.Context) error {
	if err := feedback.CheckPrompts(); err != nil {
		return err
	}
	lc := a.cfg.LLM
	llmCfg := llm.ConfigFor(lc.Provider)
	for tier, model := range lc.Models {
		llmCfg = llmCfg.WithModel(llm.ModelTier(tier), model)
	}
	llmCfg.BaseURL = lc.BaseURL

	var client llm.Client
	if lc.APIKey != "" {
		c, err := llm.NewClient(ctx, llmCfg, lc.APIKey)
		if err != nil {
			return fmt.Errorf("failed to create LLM client: %w", err)
		}
		client = c
		a.closers = append(a.closers, func() { _ = c.Close() })
	}
	a.reviewer = feedback.New(client, a.scorer, a.logger,
		feedback.WithTimeout(lc.Timeout),
		feedback.WithMaxAttempts(lc.MaxAttempts),
		feedback.WithProvider(llmCfg.Provider),
	)
	return nil
}

// serverDeps adapts the built components for the HTTP server.
func (a *app) serverDeps() server.Deps {
	deps := server.Deps{
		Store:    a.store,
		Search:   a.search,
		Reviewer: a.reviewer,
		Parser:   a.parser,
		Scorer:   a.scorer,
	}
	if a.monitor != nil {
		deps.Monitor = a.monitor
	}
	return deps
}
