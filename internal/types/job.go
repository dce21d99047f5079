// Package types provides the data model shared across the job-matcher system:
// canonical jobs, resume profiles, fit scores, reviews and the error taxonomy.
package types

import (
	"time"

	"github.com/google/uuid"
)

// WorkMode is one of the ways a job can be performed.
type WorkMode string

// Supported work modes.
const (
	WorkModeRemote WorkMode = "remote"
	WorkModeHybrid WorkMode = "hybrid"
	WorkModeOnsite WorkMode = "onsite"
)

// JobStatus is the freshness state of a canonical job.
type JobStatus string

// Freshness states. A job only moves forward through them unless a fresh
// observation resets it to active.
const (
	StatusActive  JobStatus = "active"
	StatusStale   JobStatus = "stale"
	StatusExpired JobStatus = "expired"
)

// Salary is an optional compensation range, annualized when the period is known.
type Salary struct {
	Min       *float64 `json:"min,omitempty"`
	Max       *float64 `json:"max,omitempty"`
	Currency  string   `json:"currency,omitempty"`
	Period    string   `json:"period,omitempty"`
	Predicted bool     `json:"predicted,omitempty"`
}

// IsEmpty reports whether the salary carries no bounds.
func (s *Salary) IsEmpty() bool {
	return s == nil || (s.Min == nil && s.Max == nil)
}

// Job is the canonical, deduplicated representation of a posting.
type Job struct {
	ID          uuid.UUID  `json:"id"`
	Source      string     `json:"source"`
	SourceID    string     `json:"source_id"`
	Fingerprint string     `json:"fingerprint"`
	Title       string     `json:"title"`
	Company     string     `json:"company"`
	Description string     `json:"description"`
	Locations   []string   `json:"locations"`
	City        string     `json:"city,omitempty"`
	Country     string     `json:"country,omitempty"`
	WorkModes   []WorkMode `json:"work_modes"`
	Categories  []string   `json:"categories"`
	Salary      *Salary    `json:"salary,omitempty"`
	URL         string     `json:"url,omitempty"`

	ContractTime string `json:"contract_time,omitempty"`
	ContractType string `json:"contract_type,omitempty"`

	PostedAt    *time.Time `json:"posted_at,omitempty"`
	FirstSeenAt time.Time  `json:"first_seen_at"`
	LastSeenAt  time.Time  `json:"last_seen_at"`

	Status          JobStatus  `json:"status"`
	MissCount       int        `json:"miss_count"`
	LastCheckedAt   *time.Time `json:"last_checked_at,omitempty"`
	StatusChangedAt *time.Time `json:"status_changed_at,omitempty"`
}

// PrimaryLocation returns the first location, or an empty string.
func (j *Job) PrimaryLocation() string {
	if len(j.Locations) == 0 {
		return ""
	}
	return j.Locations[0]
}

// HasWorkMode reports whether the job lists the given work mode.
func (j *Job) HasWorkMode(mode WorkMode) bool {
	for _, m := range j.WorkModes {
		if m == mode {
			return true
		}
	}
	return false
}

// IsSearchable reports whether the job may appear in search results.
func (j *Job) IsSearchable() bool {
	return j.Status != StatusExpired
}

// StatusChange records one freshness transition of a job.
type StatusChange struct {
	JobID  uuid.UUID `json:"job_id"`
	From   JobStatus `json:"from"`
	To     JobStatus `json:"to"`
	Reason string    `json:"reason"`
	At     time.Time `json:"at"`
}

// Status change reasons.
const (
	ReasonObserved        = "observed"
	ReasonConfirmed       = "confirmed_live"
	ReasonMissed          = "not_found"
	ReasonMissedTwice     = "not_found_twice"
	ReasonSourceClosed    = "source_reported_closed"
	ReasonRetentionPurged = "retention_purged"
)

// SavedJob is a job kept by a user. Expired jobs stay listed until retention purges them.
type SavedJob struct {
	UserID  uuid.UUID `json:"user_id"`
	Job     Job       `json:"job"`
	SavedAt time.Time `json:"saved_at"`
}
