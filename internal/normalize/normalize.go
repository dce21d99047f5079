// Package normalize maps raw job records from each source's native shape into
// partially populated canonical jobs.
package normalize

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/job-matcher/internal/types"
)

// Source tags understood by the normalizer.
const (
	SourceAdzuna = "adzuna"
	SourceScrape = "scrape"
)

// Rejection reasons.
const (
	ReasonMissingID      = "missing_source_id"
	ReasonMissingTitle   = "missing_title"
	ReasonMissingCompany = "missing_company"
	ReasonUndecodable    = "undecodable"
	ReasonUnknownSource  = "unknown_source"
)

// Rejections counts records dropped during normalization.
type Rejections struct {
	Count   int            `json:"count"`
	Reasons map[string]int `json:"reasons,omitempty"`
}

func (r *Rejections) add(reason string) {
	r.Count++
	if r.Reasons == nil {
		r.Reasons = make(map[string]int)
	}
	r.Reasons[reason]++
}

// Normalizer converts raw provider or scraped records into canonical jobs.
type Normalizer struct {
	logger *zap.Logger
}

// New creates a Normalizer. A nil logger is replaced with a no-op logger.
func New(logger *zap.Logger) *Normalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Normalizer{logger: logger}
}

// Page normalizes every record in a provider page. Records that cannot be
// normalized are dropped and counted; they never fail the page.
func (n *Normalizer) Page(source string, records []json.RawMessage) ([]types.Job, Rejections) {
	var rej Rejections
	jobs := make([]types.Job, 0, len(records))
	for i, raw := range records {
		job, err := n.Record(source, raw)
		if err != nil {
			reason := ReasonUndecodable
			var malformed *types.MalformedUpstreamError
			if errors.As(err, &malformed) {
				reason = malformed.Reason
			}
			rej.add(reason)
			n.logger.Warn("rejected raw record",
				zap.String("source", source),
				zap.Int("index", i),
				zap.String("reason", reason),
				zap.Error(err),
			)
			continue
		}
		jobs = append(jobs, job)
	}
	if rej.Count > 0 {
		n.logger.Info("normalization rejections",
			zap.String("source", source),
			zap.Int("rejected", rej.Count),
			zap.Int("accepted", len(jobs)),
			zap.Any("reasons", rej.Reasons),
		)
	}
	return jobs, rej
}

// Record normalizes a single raw record tagged with its source.
func (n *Normalizer) Record(source string, raw json.RawMessage) (types.Job, error) {
	switch source {
	case SourceAdzuna:
		var rec AdzunaRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return types.Job{}, &types.MalformedUpstreamError{Source: source, Reason: ReasonUndecodable, Cause: err}
		}
		return Adzuna(rec)
	case SourceScrape:
		var rec ScrapedRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return types.Job{}, &types.MalformedUpstreamError{Source: source, Reason: ReasonUndecodable, Cause: err}
		}
		return Scraped(rec)
	}
	return types.Job{}, &types.MalformedUpstreamError{Source: source, Reason: ReasonUnknownSource}
}

// FlexString decodes a JSON string or number into a string.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(b, &num); err != nil {
		return fmt.Errorf("expected string or number: %w", err)
	}
	*f = FlexString(num.String())
	return nil
}

// AdzunaRecord is one result in an Adzuna search response.
type AdzunaRecord struct {
	ID          FlexString `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Company     struct {
		DisplayName string `json:"display_name"`
	} `json:"company"`
	Location struct {
		DisplayName string   `json:"display_name"`
		Area        []string `json:"area"`
	} `json:"location"`
	Category struct {
		Label string `json:"label"`
		Tag   string `json:"tag"`
	} `json:"category"`
	SalaryMin         *float64   `json:"salary_min"`
	SalaryMax         *float64   `json:"salary_max"`
	SalaryIsPredicted FlexString `json:"salary_is_predicted"`
	SalaryCurrency    string     `json:"salary_currency"`
	RedirectURL       string     `json:"redirect_url"`
	Created           string     `json:"created"`
	ContractTime      string     `json:"contract_time"`
	ContractType      string     `json:"contract_type"`
}

// Adzuna maps an Adzuna result to a canonical job.
func Adzuna(rec AdzunaRecord) (types.Job, error) {
	id := strings.TrimSpace(string(rec.ID))
	if id == "" {
		return types.Job{}, &types.MalformedUpstreamError{Source: SourceAdzuna, Reason: ReasonMissingID}
	}
	title := CollapseWhitespace(CleanText(rec.Title))
	if title == "" {
		return types.Job{}, &types.MalformedUpstreamError{Source: SourceAdzuna, Reason: ReasonMissingTitle}
	}
	company := CollapseWhitespace(CleanText(rec.Company.DisplayName))
	if company == "" {
		return types.Job{}, &types.MalformedUpstreamError{Source: SourceAdzuna, Reason: ReasonMissingCompany}
	}

	job := types.Job{
		Source:       SourceAdzuna,
		SourceID:     id,
		Title:        title,
		Company:      company,
		Description:  CleanText(rec.Description),
		URL:          strings.TrimSpace(rec.RedirectURL),
		ContractTime: strings.TrimSpace(rec.ContractTime),
		ContractType: strings.TrimSpace(rec.ContractType),
		PostedAt:     ParseTime(rec.Created),
	}

	area := trimAll(rec.Location.Area)
	if len(area) > 0 {
		job.Country = area[0]
		job.City = area[len(area)-1]
	}
	job.Locations = Locations(job.City, job.Country, rec.Location.DisplayName)

	if label := strings.TrimSpace(rec.Category.Label); label != "" {
		job.Categories = []string{label}
	}

	predicted := isTruthy(string(rec.SalaryIsPredicted))
	job.Salary = AnnualSalary(rec.SalaryMin, rec.SalaryMax, rec.SalaryCurrency, predicted)

	concreteCity := len(area) > 1 || strings.Contains(rec.Location.DisplayName, ",")
	job.WorkModes = InferWorkModes(concreteCity, job.Title, job.Description, rec.Location.DisplayName)
	return job, nil
}

// ScrapedRecord is a job recovered from a detail page.
type ScrapedRecord struct {
	URL            string   `json:"url"`
	Title          string   `json:"title"`
	Company        string   `json:"company"`
	Description    string   `json:"description"`
	City           string   `json:"city"`
	Region         string   `json:"region"`
	Country        string   `json:"country"`
	Remote         bool     `json:"remote"`
	EmploymentType []string `json:"employment_type"`
	DatePosted     string   `json:"date_posted"`
	SalaryMin      *float64 `json:"salary_min"`
	SalaryMax      *float64 `json:"salary_max"`
	SalaryCurrency string   `json:"salary_currency"`
}

// Scraped maps a scraped record to a partial canonical job. Only the URL is
// required; it doubles as the source identifier.
func Scraped(rec ScrapedRecord) (types.Job, error) {
	u := strings.TrimSpace(rec.URL)
	if u == "" {
		return types.Job{}, &types.MalformedUpstreamError{Source: SourceScrape, Reason: ReasonMissingID}
	}
	job := types.Job{
		Source:      SourceScrape,
		SourceID:    u,
		URL:         u,
		Title:       CollapseWhitespace(CleanText(rec.Title)),
		Company:     CollapseWhitespace(CleanText(rec.Company)),
		Description: CleanText(rec.Description),
		City:        strings.TrimSpace(rec.City),
		Country:     strings.TrimSpace(rec.Country),
		PostedAt:    ParseTime(rec.DatePosted),
		Salary:      AnnualSalary(rec.SalaryMin, rec.SalaryMax, rec.SalaryCurrency, false),
	}
	job.Locations = Locations(job.City, job.Country, "")

	for _, et := range rec.EmploymentType {
		switch strings.ToUpper(strings.TrimSpace(et)) {
		case "FULL_TIME":
			job.ContractTime = "full_time"
		case "PART_TIME":
			job.ContractTime = "part_time"
		case "CONTRACTOR", "TEMPORARY":
			job.ContractType = "contract"
		}
	}

	if rec.Remote {
		job.WorkModes = []types.WorkMode{types.WorkModeRemote}
	}
	job.WorkModes = mergeModes(job.WorkModes, InferWorkModes(false, job.Title, job.Description))
	return job, nil
}

// Locations builds the ordered location list: "City, Country" first, then
// any other distinct display name.
func Locations(city, country, displayName string) []string {
	var out []string
	add := func(v string) {
		v = CollapseWhitespace(v)
		if v == "" {
			return
		}
		for _, existing := range out {
			if strings.EqualFold(existing, v) {
				return
			}
		}
		out = append(out, v)
	}

	switch {
	case city != "" && country != "" && !strings.EqualFold(city, country):
		add(city + ", " + country)
	case city != "":
		add(city)
	}
	add(displayName)
	if len(out) == 0 {
		add(country)
	}
	return out
}

// Salary figures below these bounds are assumed to be hourly or monthly.
const (
	hourlyCeiling  = 1000
	monthlyCeiling = 20000
	hoursPerYear   = 2080
	monthsPerYear  = 12
)

// AnnualSalary returns an annualized salary range, or nil when neither bound is set.
func AnnualSalary(min, max *float64, currency string, predicted bool) *types.Salary {
	lo := positive(min)
	hi := positive(max)
	if lo == nil && hi == nil {
		return nil
	}
	if lo != nil && hi != nil && *lo > *hi {
		lo, hi = hi, lo
	}
	return &types.Salary{
		Min:       annualize(lo),
		Max:       annualize(hi),
		Currency:  strings.ToUpper(strings.TrimSpace(currency)),
		Period:    "year",
		Predicted: predicted,
	}
}

func positive(v *float64) *float64 {
	if v == nil || *v <= 0 {
		return nil
	}
	c := *v
	return &c
}

func annualize(v *float64) *float64 {
	if v == nil {
		return nil
	}
	out := *v
	switch {
	case out < hourlyCeiling:
		out *= hoursPerYear
	case out < monthlyCeiling:
		out *= monthsPerYear
	}
	return &out
}

// ParseTime parses the timestamp layouts sources commonly use.
func ParseTime(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func isTruthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

func mergeModes(a, b []types.WorkMode) []types.WorkMode {
	set := make(map[types.WorkMode]struct{}, len(a)+len(b))
	for _, m := range append(append([]types.WorkMode(nil), a...), b...) {
		set[m] = struct{}{}
	}
	out := make([]types.WorkMode, 0, len(set))
	for m := range set {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return modeOrder[out[i]] < modeOrder[out[j]] })
	return out
}
