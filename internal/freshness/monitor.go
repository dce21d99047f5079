// Package freshness re-confirms stored jobs against the provider on a fixed
// schedule and moves them through active, stale and expired.
package freshness

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/jonathan/job-matcher/internal/db"
	"github.com/jonathan/job-matcher/internal/dedup"
	"github.com/jonathan/job-matcher/internal/logger"
	"github.com/jonathan/job-matcher/internal/normalize"
	"github.com/jonathan/job-matcher/internal/provider"
	"github.com/jonathan/job-matcher/internal/types"
)

// Default thresholds. Staleness is deliberately multi-day; expiry
// confirmation is shorter so a stale job expires on the next cycle.
const (
	DefaultInterval           = 24 * time.Hour
	DefaultStaleAfter         = 72 * time.Hour
	DefaultExpiryConfirmAfter = 24 * time.Hour
	DefaultRetention          = 30 * 24 * time.Hour
	DefaultBatchSize          = 200
)

// Store is the subset of the record store the monitor mutates.
type Store interface {
	ListCandidates(ctx context.Context, q db.CandidateQuery) ([]types.Job, error)
	UpdateJobStatus(ctx context.Context, job types.Job, seenAt time.Time, change *types.StatusChange) error
	PurgeExpired(ctx context.Context, before time.Time) (int, error)
}

// Config holds the monitor's schedule and thresholds.
type Config struct {
	Interval           time.Duration
	StaleAfter         time.Duration
	ExpiryConfirmAfter time.Duration
	Retention          time.Duration
	BatchSize          int
}

// DefaultConfig returns the default schedule.
func DefaultConfig() Config {
	return Config{
		Interval:           DefaultInterval,
		StaleAfter:         DefaultStaleAfter,
		ExpiryConfirmAfter: DefaultExpiryConfirmAfter,
		Retention:          DefaultRetention,
		BatchSize:          DefaultBatchSize,
	}
}

// CycleReport summarizes one monitor cycle.
type CycleReport struct {
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	Checked     int       `json:"checked"`
	Confirmed   int       `json:"confirmed"`
	Missed      int       `json:"missed"`
	Errors      int       `json:"errors"`
	Superseded  int       `json:"superseded"`
	Transitions int       `json:"transitions"`
	Purged      int       `json:"purged"`
}

// Stats is the monitor state reported by the health endpoint.
type Stats struct {
	Scheduled bool         `json:"scheduled"`
	Running   bool         `json:"running"`
	Cycles    int          `json:"cycles"`
	LastCycle *CycleReport `json:"last_cycle,omitempty"`
	LastError string       `json:"last_error,omitempty"`
}

// Monitor runs freshness cycles.
type Monitor struct {
	store      Store
	provider   provider.Provider
	normalizer *normalize.Normalizer
	cfg        Config
	logger     *zap.Logger
	now        func() time.Time

	cron    *cron.Cron
	flight  singleflight.Group
	running atomic.Bool

	mu    sync.Mutex
	stats Stats
}

// New creates a Monitor. Zero thresholds fall back to the defaults.
func New(store Store, p provider.Provider, cfg Config, log *zap.Logger) *Monitor {
	def := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = def.StaleAfter
	}
	if cfg.ExpiryConfirmAfter <= 0 {
		cfg.ExpiryConfirmAfter = def.ExpiryConfirmAfter
	}
	if cfg.Retention <= 0 {
		cfg.Retention = def.Retention
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	log = logger.Component(log, "freshness")
	return &Monitor{
		store:      store,
		provider:   p,
		normalizer: normalize.New(log),
		cfg:        cfg,
		logger:     log,
		now:        time.Now,
	}
}

// ErrAlreadyStarted is returned by Start while a schedule is active.
var ErrAlreadyStarted = errors.New("freshness monitor already started")

// Start schedules a cycle every Interval until Stop is called or ctx ends.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.cron != nil {
		m.mu.Unlock()
		return ErrAlreadyStarted
	}
	c := cron.New()
	spec := fmt.Sprintf("@every %s", m.cfg.Interval)
	if _, err := c.AddFunc(spec, func() { m.tick(ctx) }); err != nil {
		m.mu.Unlock()
		return fmt.Errorf("cron.AddFunc: %w", err)
	}
	m.cron = c
	m.stats.Scheduled = true
	m.mu.Unlock()

	c.Start()
	m.logger.Info("freshness monitor started", zap.String("spec", spec))

	go func() {
		<-ctx.Done()
		m.Stop()
	}()
	return nil
}

// Stop unschedules the monitor and waits for an in-flight cycle to finish.
func (m *Monitor) Stop() {
	m.mu.Lock()
	c := m.cron
	m.cron = nil
	m.stats.Scheduled = false
	m.mu.Unlock()
	if c == nil {
		return
	}
	<-c.Stop().Done()
	m.logger.Info("freshness monitor stopped")
}

// Stats returns a snapshot of the monitor state.
func (m *Monitor) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.stats
	s.Running = m.running.Load()
	if s.LastCycle != nil {
		last := *s.LastCycle
		s.LastCycle = &last
	}
	return s
}

// tick runs a scheduled cycle unless one is already in flight.
func (m *Monitor) tick(ctx context.Context) {
	if m.running.Load() {
		m.logger.Info("freshness cycle still running, skipping tick")
		return
	}
	if _, err := m.RunOnce(ctx); err != nil {
		m.logger.Error("freshness cycle failed", zap.Error(err))
	}
}

// RunOnce runs one cycle now. Concurrent callers share a single cycle.
func (m *Monitor) RunOnce(ctx context.Context) (CycleReport, error) {
	v, err, _ := m.flight.Do("cycle", func() (any, error) {
		m.running.Store(true)
		defer m.running.Store(false)

		report, err := m.cycle(ctx)
		m.mu.Lock()
		m.stats.Cycles++
		m.stats.LastCycle = &report
		m.stats.LastError = ""
		if err != nil {
			m.stats.LastError = err.Error()
		}
		m.mu.Unlock()
		return report, err
	})
	report, _ := v.(CycleReport)
	return report, err
}

func (m *Monitor) cycle(ctx context.Context) (CycleReport, error) {
	now := m.now()
	report := CycleReport{StartedAt: now}
	m.logger.Info("freshness cycle started")

	candidates, err := m.store.ListCandidates(ctx, db.CandidateQuery{
		StaleBefore:   now.Add(-m.cfg.StaleAfter),
		RecheckBefore: now.Add(-m.cfg.ExpiryConfirmAfter),
		Limit:         m.cfg.BatchSize,
	})
	if err != nil {
		return report, fmt.Errorf("failed to list candidates: %w", err)
	}

	for _, job := range candidates {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Checked++

		found, err := m.confirm(ctx, job)
		if err != nil {
			// Provider trouble is neither a hit nor a miss.
			report.Errors++
			m.logger.Warn("freshness confirmation failed",
				zap.String(logger.FieldJobID, job.ID.String()),
				zap.Error(err),
			)
			continue
		}

		ev := dedup.EventMissed
		if found {
			ev = dedup.EventObserved
			report.Confirmed++
		} else {
			report.Missed++
		}
		seenAt := job.LastSeenAt
		change, err := dedup.Apply(&job, ev, now)
		if err != nil {
			return report, err
		}
		err = m.store.UpdateJobStatus(ctx, job, seenAt, change)
		switch {
		case errors.Is(err, db.ErrSuperseded):
			// Ingestion saw the job mid-cycle; its sighting wins.
			report.Superseded++
			m.logger.Info("job sighted during freshness check, keeping sighting",
				zap.String(logger.FieldJobID, job.ID.String()))
			continue
		case err != nil:
			return report, fmt.Errorf("failed to update job %s: %w", job.ID, err)
		}
		if change != nil {
			report.Transitions++
			m.logger.Info("job status changed",
				zap.String(logger.FieldJobID, change.JobID.String()),
				zap.String("from", string(change.From)),
				zap.String("to", string(change.To)),
				zap.String("reason", change.Reason),
			)
		}
	}

	purged, err := m.store.PurgeExpired(ctx, now.Add(-m.cfg.Retention))
	if err != nil {
		return report, fmt.Errorf("failed to purge expired jobs: %w", err)
	}
	report.Purged = purged
	report.FinishedAt = m.now()

	m.logger.Info("freshness cycle finished",
		zap.Int("checked", report.Checked),
		zap.Int("confirmed", report.Confirmed),
		zap.Int("missed", report.Missed),
		zap.Int("errors", report.Errors),
		zap.Int("superseded", report.Superseded),
		zap.Int("transitions", report.Transitions),
		zap.Int("purged", report.Purged),
	)
	return report, nil
}

// confirm runs a narrow title and location query and looks for the job by
// source id or fingerprint.
func (m *Monitor) confirm(ctx context.Context, job types.Job) (bool, error) {
	where := job.City
	if where == "" {
		where = job.PrimaryLocation()
	}
	raw, err := m.provider.Search(ctx, types.SearchQuery{
		What:     job.Title,
		Where:    where,
		Page:     1,
		PageSize: types.MaxPageSize,
	})
	if err != nil {
		return false, err
	}

	jobs, _ := m.normalizer.Page(raw.Source, raw.Records)
	for i := range jobs {
		candidate := &jobs[i]
		if candidate.Source == job.Source && candidate.SourceID != "" && candidate.SourceID == job.SourceID {
			return true, nil
		}
		if strings.EqualFold(dedup.FingerprintJob(candidate), job.Fingerprint) {
			return true, nil
		}
	}
	return false, nil
}
