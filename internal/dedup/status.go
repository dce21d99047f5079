package dedup

// Status graph:
//
//	active ──miss──► stale ──miss──► expired
//	  ▲                │                │
//	  └───observed─────┴────observed────┘
//
// A fresh observation is the only way back to active.

import (
	"fmt"
	"time"

	"github.com/jonathan/job-matcher/internal/types"
)

// Event is something that happened to a job that may change its status.
type Event string

// Freshness events.
const (
	// EventObserved is a fresh sighting, from ingestion or a monitor confirmation.
	EventObserved Event = "observed"
	// EventMissed is a failed re-confirmation.
	EventMissed Event = "missed"
	// EventClosed is the source reporting the posting as closed.
	EventClosed Event = "closed"
)

// validTransitions lists every allowed (from → to) pair other than self-loops.
var validTransitions = map[types.JobStatus][]types.JobStatus{
	types.StatusActive:  {types.StatusStale, types.StatusExpired},
	types.StatusStale:   {types.StatusActive, types.StatusExpired},
	types.StatusExpired: {types.StatusActive},
}

// ParseStatus converts a raw string to a JobStatus.
func ParseStatus(s string) (types.JobStatus, error) {
	st := types.JobStatus(s)
	switch st {
	case types.StatusActive, types.StatusStale, types.StatusExpired:
		return st, nil
	}
	return "", fmt.Errorf("unknown job status %q", s)
}

// IsTransitionAllowed reports whether moving from → to is permitted.
func IsTransitionAllowed(from, to types.JobStatus) bool {
	if from == to {
		return true
	}
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Next returns the status a job moves to when ev happens in state from.
func Next(from types.JobStatus, ev Event) (types.JobStatus, error) {
	switch ev {
	case EventObserved:
		return types.StatusActive, nil
	case EventClosed:
		return types.StatusExpired, nil
	case EventMissed:
		switch from {
		case types.StatusActive:
			return types.StatusStale, nil
		case types.StatusStale, types.StatusExpired:
			return types.StatusExpired, nil
		}
		return "", fmt.Errorf("unknown job status %q", from)
	}
	return "", fmt.Errorf("unknown event %q", ev)
}

// Apply moves job through the state machine and updates its bookkeeping.
// It returns the recorded change, or nil when the status did not move.
func Apply(job *types.Job, ev Event, now time.Time) (*types.StatusChange, error) {
	from := job.Status
	if from == "" {
		from = types.StatusActive
	}
	to, err := Next(from, ev)
	if err != nil {
		return nil, err
	}
	if !IsTransitionAllowed(from, to) {
		return nil, fmt.Errorf("transition %s -> %s not allowed", from, to)
	}

	switch ev {
	case EventObserved:
		job.MissCount = 0
		if now.After(job.LastSeenAt) {
			job.LastSeenAt = now
		}
		if job.FirstSeenAt.IsZero() || job.FirstSeenAt.After(job.LastSeenAt) {
			job.FirstSeenAt = job.LastSeenAt
		}
	case EventMissed:
		job.MissCount++
	}
	if ev != EventObserved {
		checked := now
		job.LastCheckedAt = &checked
	}

	job.Status = to
	if from == to {
		return nil, nil
	}
	changed := now
	job.StatusChangedAt = &changed
	return &types.StatusChange{
		JobID:  job.ID,
		From:   from,
		To:     to,
		Reason: reasonFor(from, ev),
		At:     now,
	}, nil
}

func reasonFor(from types.JobStatus, ev Event) string {
	switch ev {
	case EventObserved:
		return types.ReasonObserved
	case EventClosed:
		return types.ReasonSourceClosed
	}
	if from == types.StatusActive {
		return types.ReasonMissed
	}
	return types.ReasonMissedTwice
}
