package types

import (
	"sort"
	"time"
)

// ResumeProfile is the structured candidate data extracted from resume text.
// It is created per request and never persisted by the engine.
type ResumeProfile struct {
	Name           string           `json:"name,omitempty"`
	Email          string           `json:"email,omitempty"`
	Phone          string           `json:"phone,omitempty"`
	LinkedIn       string           `json:"linkedin,omitempty"`
	GitHub         string           `json:"github,omitempty"`
	Websites       []string         `json:"websites"`
	Summary        string           `json:"summary,omitempty"`
	Skills         []string         `json:"skills"`
	Education      []EducationEntry `json:"education"`
	WorkExperience []WorkEntry      `json:"work_experience"`
	RawText        string           `json:"-"`

	// Incomplete lists fields the parser could not populate.
	Incomplete []string `json:"incomplete,omitempty"`
}

// EducationEntry is one degree listed on a resume.
type EducationEntry struct {
	Degree string `json:"degree,omitempty"`
	Level  string `json:"level,omitempty"`
	Field  string `json:"field,omitempty"`
	School string `json:"school,omitempty"`
	Year   string `json:"year,omitempty"`
}

// WorkEntry is one role listed on a resume.
type WorkEntry struct {
	Role             string   `json:"role,omitempty"`
	Company          string   `json:"company,omitempty"`
	Duration         string   `json:"duration,omitempty"`
	Months           int      `json:"months,omitempty"`
	Responsibilities []string `json:"responsibilities"`

	// StartMonth is the MonthIndex the role began in, zero when the
	// duration carried no parseable start.
	StartMonth int `json:"-"`
}

// MonthIndex numbers calendar months so that consecutive months differ by one.
func MonthIndex(year int, month time.Month) int {
	return year*12 + int(month-1)
}

// TotalMonths returns the months covered by the work entries. Dated roles
// are merged so concurrent positions count once; entries with a length but
// no start are added as written.
func (p *ResumeProfile) TotalMonths() int {
	type span struct{ start, end int }
	var spans []span
	total := 0
	for _, w := range p.WorkExperience {
		switch {
		case w.Months <= 0:
		case w.StartMonth > 0:
			spans = append(spans, span{w.StartMonth, w.StartMonth + w.Months})
		default:
			total += w.Months
		}
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
	for i := 0; i < len(spans); {
		cur := spans[i]
		for i++; i < len(spans) && spans[i].start <= cur.end; i++ {
			cur.end = max(cur.end, spans[i].end)
		}
		total += cur.end - cur.start
	}
	return total
}

// IncompleteErrors returns one ParseIncompleteError per field the parser
// could not populate.
func (p *ResumeProfile) IncompleteErrors() []error {
	errs := make([]error, 0, len(p.Incomplete))
	for _, f := range p.Incomplete {
		errs = append(errs, &ParseIncompleteError{Field: f})
	}
	return errs
}

// Snapshot returns the subset of the profile echoed back in reviews.
func (p *ResumeProfile) Snapshot() ResumeSnapshot {
	return ResumeSnapshot{
		Skills:         p.Skills,
		Education:      p.Education,
		WorkExperience: p.WorkExperience,
	}
}

// ResumeSnapshot is the structured resume summary attached to a review.
type ResumeSnapshot struct {
	Skills         []string         `json:"skills"`
	Education      []EducationEntry `json:"education"`
	WorkExperience []WorkEntry      `json:"work_experience"`
}
