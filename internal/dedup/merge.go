package dedup

import (
	"strings"
	"time"

	"github.com/jonathan/job-matcher/internal/types"
)

// TruncatedWordThreshold is the word count below which a description is
// treated as a provider snippet rather than the full text.
const TruncatedWordThreshold = 50

// IsTruncated reports whether a description is empty or looks cut off.
func IsTruncated(description string) bool {
	d := strings.TrimSpace(description)
	if d == "" {
		return true
	}
	if strings.HasSuffix(d, "…") || strings.HasSuffix(d, "...") {
		return true
	}
	return len(strings.Fields(d)) < TruncatedWordThreshold
}

// NewJob prepares a freshly observed job for insertion.
func NewJob(job types.Job, now time.Time) types.Job {
	job.Fingerprint = FingerprintJob(&job)
	job.FirstSeenAt = now
	job.LastSeenAt = now
	job.Status = types.StatusActive
	job.MissCount = 0
	job.StatusChangedAt = &now
	return job
}

// Merge folds a fresh observation into an existing job. Populated fields are
// never overwritten; incoming values only fill gaps. The one exception is a
// truncated description, which a longer complete one replaces. The result is
// active with last_seen_at advanced to now. The returned change is nil when
// the job was already active.
func Merge(existing, incoming types.Job, now time.Time) (types.Job, *types.StatusChange) {
	merged := existing
	FillFrom(&merged, &incoming)

	change, _ := Apply(&merged, EventObserved, now)
	if !incoming.FirstSeenAt.IsZero() && incoming.FirstSeenAt.Before(merged.FirstSeenAt) {
		merged.FirstSeenAt = incoming.FirstSeenAt
	}
	return merged, change
}

// FillFrom copies every field of src that dst lacks. Identity fields
// (ID, fingerprint, timestamps, status) are left alone.
func FillFrom(dst, src *types.Job) {
	fillString(&dst.Source, src.Source)
	fillString(&dst.SourceID, src.SourceID)
	fillString(&dst.Title, src.Title)
	fillString(&dst.Company, src.Company)
	fillString(&dst.City, src.City)
	fillString(&dst.Country, src.Country)
	fillString(&dst.URL, src.URL)
	fillString(&dst.ContractTime, src.ContractTime)
	fillString(&dst.ContractType, src.ContractType)

	if shouldReplaceDescription(dst.Description, src.Description) {
		dst.Description = src.Description
	}

	dst.Locations = unionStrings(dst.Locations, src.Locations)
	dst.Categories = unionStrings(dst.Categories, src.Categories)
	dst.WorkModes = unionModes(dst.WorkModes, src.WorkModes)

	if dst.Salary.IsEmpty() && !src.Salary.IsEmpty() {
		s := *src.Salary
		dst.Salary = &s
	} else if dst.Salary != nil && src.Salary != nil {
		s := *dst.Salary
		dst.Salary = &s
		if dst.Salary.Min == nil {
			dst.Salary.Min = src.Salary.Min
		}
		if dst.Salary.Max == nil {
			dst.Salary.Max = src.Salary.Max
		}
		fillString(&dst.Salary.Currency, src.Salary.Currency)
		fillString(&dst.Salary.Period, src.Salary.Period)
	}

	if dst.PostedAt == nil && src.PostedAt != nil {
		t := *src.PostedAt
		dst.PostedAt = &t
	}
}

func shouldReplaceDescription(current, incoming string) bool {
	incoming = strings.TrimSpace(incoming)
	if incoming == "" {
		return false
	}
	if strings.TrimSpace(current) == "" {
		return true
	}
	if !IsTruncated(current) {
		return false
	}
	return !IsTruncated(incoming) && len(incoming) > len(strings.TrimSpace(current))
}

func fillString(dst *string, src string) {
	if strings.TrimSpace(*dst) == "" && strings.TrimSpace(src) != "" {
		*dst = src
	}
}

// unionStrings appends values from b that a does not already contain,
// comparing case-insensitively and keeping a's order first.
func unionStrings(a, b []string) []string {
	if len(b) == 0 {
		return a
	}
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, v := range list {
			key := strings.ToLower(strings.TrimSpace(v))
			if key == "" {
				continue
			}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}

func unionModes(a, b []types.WorkMode) []types.WorkMode {
	if len(b) == 0 {
		return a
	}
	out := append([]types.WorkMode(nil), a...)
	for _, m := range b {
		found := false
		for _, existing := range out {
			if existing == m {
				found = true
				break
			}
		}
		if !found {
			out = append(out, m)
		}
	}
	return out
}
