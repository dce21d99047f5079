package observability

import (
	"bytes"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/jonathan/job-matcher/internal/freshness"
	"github.com/jonathan/job-matcher/internal/types"
)

func ptr[T any](v T) *T { return &v }

func TestPrintSearchPage(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintSearchPage(types.SearchPage{
		Items: []types.Job{
			{
				ID:        uuid.MustParse("6f1c2a9e-3b7d-4c1e-9a55-2d8e4f0b7c10"),
				Title:     "Backend Engineer",
				Company:   "Acme Corp",
				Locations: []string{"Austin, US"},
				WorkModes: []types.WorkMode{types.WorkModeRemote},
				Salary:    &types.Salary{Min: ptr(120000.0), Max: ptr(150000.0), Currency: "USD"},
			},
			{Title: "Data Engineer", Company: "Globex"},
		},
		Count:    42,
		Page:     1,
		PageSize: 20,
		Rejected: 1,
	})
	output := buf.String()

	assert.Contains(t, output, "SEARCH RESULTS")
	assert.Contains(t, output, "42 total matches")
	assert.Contains(t, output, "Dropped 1 malformed listings")
	assert.Contains(t, output, "1. Backend Engineer, Acme Corp")
	assert.Contains(t, output, "Austin, US | remote | USD 120000-150000")
	assert.Contains(t, output, "2. Data Engineer, Globex")
}

func TestPrintSearchPage_Unavailable(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintSearchPage(types.SearchPage{Items: []types.Job{}, Page: 1, PageSize: 20, Unavailable: true})
	assert.Contains(t, buf.String(), "Job source unavailable")
}

func TestFormatSalary(t *testing.T) {
	assert.Empty(t, formatSalary(nil))
	assert.Empty(t, formatSalary(&types.Salary{Currency: "USD"}))
	assert.Equal(t, "USD 90000", formatSalary(&types.Salary{Min: ptr(90000.0), Max: ptr(90000.0), Currency: "USD"}))
	assert.Equal(t, "up to 80000", formatSalary(&types.Salary{Max: ptr(80000.0)}))
}

func TestPrintFitScore(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintFitScore(&types.FitScoreResult{
		OverallScore: 68,
		Breakdown: map[types.Dimension]types.DimensionResult{
			types.DimensionSkills: {
				Applicable: true,
				Score:      60,
				Missing:    []types.ScoreItem{{Requirement: "Kubernetes", Critical: true}},
			},
			types.DimensionExperience: {Applicable: true, Score: 80},
			types.DimensionEducation:  {Applicable: false},
			types.DimensionKeywords:   {Applicable: true, Score: 55},
		},
		Weights: map[types.Dimension]float64{
			types.DimensionSkills:     0.4,
			types.DimensionExperience: 0.3,
			types.DimensionKeywords:   0.1,
		},
		MissingKeywords: types.MissingKeywords{MustHave: []string{"Kubernetes"}, NiceToHave: []string{"Kafka"}},
		Suggestions:     []string{"Add Kubernetes experience"},
	})
	output := buf.String()

	assert.Contains(t, output, "RESUME FIT")
	assert.Contains(t, output, "Overall: 68/100")
	assert.Contains(t, output, "skills       60  (weight 0.40)")
	assert.Contains(t, output, "missing: Kubernetes")
	assert.Contains(t, output, "education   n/a")
	assert.Contains(t, output, "Must have:    Kubernetes")
	assert.Contains(t, output, "Nice to have: Kafka")
	assert.Contains(t, output, "• Add Kubernetes experience")
}

func TestPrintReview(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	phrasing := make([]types.PhrasingSuggestion, 4)
	for i := range phrasing {
		phrasing[i] = types.PhrasingSuggestion{Original: "Worked on APIs", Improved: "Built APIs serving 2M requests a day"}
	}
	p.PrintReview(&types.ReviewResult{
		ATSScore:        72,
		SummaryHeadline: "Strong backend profile",
		OverallFeedback: "Solid match for backend roles.",
		QuickFixes: []types.QuickFix{
			{Title: "Add Kubernetes", Impact: types.ImpactHigh, EffortMinutes: 10},
		},
		WeakSections:        []types.WeakSection{{Section: "Summary", Issue: "Too generic"}},
		PhrasingSuggestions: phrasing,
		NarrativeStatus:     types.NarrativeDefaulted,
	})
	output := buf.String()

	assert.Contains(t, output, "ATS score: 72/100")
	assert.Contains(t, output, "Strong backend profile")
	assert.Contains(t, output, "narrative feedback unavailable")
	assert.Contains(t, output, "[High, 10 min] Add Kubernetes")
	assert.Contains(t, output, "Summary: Too generic")
	assert.Contains(t, output, "... and 1 more rewrites")
}

func TestPrintNil(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)
	p.PrintFitScore(nil)
	p.PrintReview(nil)
	assert.Empty(t, buf.String())
}

func TestPrintCycleReport(t *testing.T) {
	var buf bytes.Buffer
	start := time.Date(2026, 3, 1, 2, 0, 0, 0, time.UTC)
	NewPrinter(&buf).PrintCycleReport(freshness.CycleReport{
		StartedAt:   start,
		FinishedAt:  start.Add(1500 * time.Millisecond),
		Checked:     10,
		Confirmed:   7,
		Missed:      3,
		Superseded:  1,
		Transitions: 2,
		Purged:      1,
	})
	output := buf.String()

	assert.Contains(t, output, "FRESHNESS CYCLE")
	assert.Contains(t, output, "Duration:    1.5s")
	assert.Contains(t, output, "Checked:     10")
	assert.Contains(t, output, "Superseded:  1")
	assert.Contains(t, output, "Transitions: 2")
}

func TestPrintBox_ClipsLongLines(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).printBox("TITLE", strings.Repeat("é", 200))

	for _, line := range strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n") {
		assert.Equal(t, boxWidth, utf8.RuneCountInString(line), line)
	}
	assert.Contains(t, buf.String(), "...")
}
