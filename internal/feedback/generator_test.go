package feedback

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/jonathan/job-matcher/internal/llm"
	"github.com/jonathan/job-matcher/internal/prompts"
	"github.com/jonathan/job-matcher/internal/types"
)

// MockLLMClient implements llm.Client for testing and records prompts.
type MockLLMClient struct {
	GenerateJSONFunc func(ctx context.Context, prompt string, tier llm.ModelTier) (string, error)

	mu      sync.Mutex
	prompts []string
}

func (m *MockLLMClient) GenerateContent(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	return m.GenerateJSON(ctx, prompt, tier)
}

func (m *MockLLMClient) GenerateJSON(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()
	if m.GenerateJSONFunc != nil {
		return m.GenerateJSONFunc(ctx, prompt, tier)
	}
	return `{"overall_feedback":"ok","weak_sections":[],"phrasing_suggestions":[],"quick_fixes":[]}`, nil
}

func (m *MockLLMClient) GetModel(llm.ModelTier) string { return "mock-model" }

func (m *MockLLMClient) Close() error { return nil }

func (m *MockLLMClient) calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

// replies returns a GenerateJSONFunc answering each call in turn.
func replies(answers ...string) func(context.Context, string, llm.ModelTier) (string, error) {
	var mu sync.Mutex
	i := 0
	return func(context.Context, string, llm.ModelTier) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		a := answers[len(answers)-1]
		if i < len(answers) {
			a = answers[i]
		}
		i++
		return a, nil
	}
}

func testProfile() *types.ResumeProfile {
	return &types.ResumeProfile{
		Name:     "Jane Doe",
		Email:    "jane@example.com",
		Phone:    "555-123-4567",
		LinkedIn: "linkedin.com/in/janedoe",
		Summary:  "Backend engineer focused on distributed systems.",
		Skills:   []string{"Go", "Python", "PostgreSQL", "Docker", "AWS"},
		Education: []types.EducationEntry{
			{Degree: "B.S. Computer Science", Level: "bachelor", Field: "Computer Science", School: "State University"},
		},
		WorkExperience: []types.WorkEntry{
			{
				Role:    "Senior Software Engineer",
				Company: "Acme",
				Months:  60,
				Responsibilities: []string{
					"Built Go services handling 10k requests per second",
					"Cut PostgreSQL query latency by 40%",
				},
			},
		},
		RawText: "Jane Doe\njane@example.com\nSkills: Go, Python, PostgreSQL, Docker, AWS\nSenior Software Engineer, Acme\nBuilt Go services handling 10k requests per second",
	}
}

const jobDescription = `Senior Backend Engineer
Requirements:
- 5+ years of experience with Go
- Kubernetes is required
- Bachelor's degree in Computer Science`

func newObserved(client llm.Client, opts ...Option) (*Generator, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return New(client, nil, zap.New(core), opts...), logs
}

func TestReview_RepairsModelOutput(t *testing.T) {
	reply := "<think>planning the answer</think>\n```json\n" + `{
		"ats_score": 99,
		"summary_headline": "Strong backend profile",
		"overall_feedback": "Good depth in Go.",
		"missing_keywords": {"must_have": ["cobol"], "nice_to_have": [], "role_family": "mainframe"},
		"quick_fixes": [
			{"title": "Add Kubernetes", "description": "List cluster work", "impact": "critical", "effort_minutes": 3},
			{"title": "No description"},
			{"title": "Quantify impact", "description": "Add numbers", "impact": "whatever", "effort_minutes": "20 minutes"},
			{"title": "Trim summary", "description": "Shorter", "impact": "low", "effort_minutes": 0},
			{"title": "Fourth valid", "description": "Over the limit", "impact": "High", "effort_minutes": 10}
		],
		"weak_sections": [
			{"section": "Summary", "issue": "Generic", "evidence": "Backend engineer focused"},
			{"section": "", "issue": "No section name"}
		],
		"phrasing_suggestions": [
			{"original": "Built Go services", "improved": "Designed Go services serving 10k rps", "reason": "Quantified"},
			{"original": "Same", "improved": "same"}
		]
	}` + "\n```"
	client := &MockLLMClient{GenerateJSONFunc: replies(reply)}
	g, _ := newObserved(client)

	result, err := g.Review(context.Background(), testProfile(), jobDescription)
	require.NoError(t, err)

	assert.Equal(t, types.NarrativeGenerated, result.NarrativeStatus)
	require.NotNil(t, result.Fit)
	assert.Equal(t, result.Fit.OverallScore, result.ATSScore, "computed score wins over the model's")
	assert.Equal(t, result.Fit.MissingKeywords, result.MissingKeywords, "computed keywords win over the model's")
	assert.Contains(t, result.MissingKeywords.MustHave, "Kubernetes")

	assert.Equal(t, "Strong backend profile", result.SummaryHeadline)
	assert.Equal(t, "Good depth in Go.", result.OverallFeedback)
	assert.Equal(t, []types.QuickFix{
		{Title: "Add Kubernetes", Description: "List cluster work", Impact: types.ImpactHigh, EffortMinutes: 5},
		{Title: "Quantify impact", Description: "Add numbers", Impact: types.ImpactMedium, EffortMinutes: 20},
		{Title: "Trim summary", Description: "Shorter", Impact: types.ImpactLow, EffortMinutes: 15},
	}, result.QuickFixes)
	assert.Equal(t, []types.WeakSection{{Section: "Summary", Issue: "Generic", Evidence: "Backend engineer focused"}}, result.WeakSections)
	require.Len(t, result.PhrasingSuggestions, 1)
	assert.Equal(t, "Built Go services", result.PhrasingSuggestions[0].Original)

	assert.Len(t, client.calls(), 1)
}

func TestReview_PromptCarriesGrounding(t *testing.T) {
	client := &MockLLMClient{}
	g, _ := newObserved(client)

	result, err := g.Review(context.Background(), testProfile(), jobDescription)
	require.NoError(t, err)

	calls := client.calls()
	require.Len(t, calls, 1)
	prompt := calls[0]
	assert.NotContains(t, prompt, "{{.")
	assert.Contains(t, prompt, "Computed ATS score: ")
	assert.Contains(t, prompt, "/100")
	assert.Regexp(t, `must_have: [^\n]*Kubernetes`, prompt)
	assert.Contains(t, prompt, "Kubernetes is required")
	assert.Contains(t, prompt, "Built Go services handling 10k requests per second")
	assert.Contains(t, prompt, `"work_experience"`)
	assert.Contains(t, prompt, "- skills: ")
	assert.Equal(t, types.NarrativeGenerated, result.NarrativeStatus)
}

func TestReview_MissingQuickFixesFilledWithDefaults(t *testing.T) {
	client := &MockLLMClient{GenerateJSONFunc: replies(
		`{"overall_feedback":"Decent resume","weak_sections":[],"phrasing_suggestions":[]}`,
	)}
	g, logs := newObserved(client)

	result, err := g.Review(context.Background(), testProfile(), jobDescription)
	require.NoError(t, err)

	calls := client.calls()
	require.Len(t, calls, 2, "schema violation triggers the strict retry")
	reminder := promptText(t, prompts.KeyStrictJSONReminder)
	assert.Contains(t, calls[1], reminder)
	assert.NotContains(t, calls[0], reminder)

	assert.Equal(t, types.NarrativeGenerated, result.NarrativeStatus)
	assert.Equal(t, "Decent resume", result.OverallFeedback)
	assert.NotNil(t, result.QuickFixes)
	assert.Empty(t, result.QuickFixes)
	assert.Equal(t, 1, logs.FilterMessage("using partially valid narrative").Len())
}

func TestReview_SecondAttemptSucceeds(t *testing.T) {
	client := &MockLLMClient{GenerateJSONFunc: replies(
		"Sure! Here is my review of the resume.",
		`{"overall_feedback":"Second time lucky","weak_sections":[],"phrasing_suggestions":[],"quick_fixes":[]}`,
	)}
	g, logs := newObserved(client)

	result, err := g.Review(context.Background(), testProfile(), jobDescription)
	require.NoError(t, err)

	assert.Len(t, client.calls(), 2)
	assert.Equal(t, types.NarrativeGenerated, result.NarrativeStatus)
	assert.Equal(t, "Second time lucky", result.OverallFeedback)
	assert.Equal(t, 1, logs.FilterMessage("narrative attempt failed").Len())
}

func TestReview_DefaultsWhenModelFails(t *testing.T) {
	client := &MockLLMClient{GenerateJSONFunc: func(context.Context, string, llm.ModelTier) (string, error) {
		return "", errors.New("API rate limit exceeded")
	}}
	g, logs := newObserved(client, WithMaxAttempts(3))

	result, err := g.Review(context.Background(), testProfile(), jobDescription)
	require.NoError(t, err, "model failure never fails the review")

	assert.Len(t, client.calls(), 3)
	assert.Equal(t, types.NarrativeDefaulted, result.NarrativeStatus)
	assert.Equal(t, result.Fit.OverallScore, result.ATSScore)
	assert.Contains(t, result.OverallFeedback, "/100")
	assert.NotNil(t, result.QuickFixes)
	assert.Empty(t, result.QuickFixes)
	assert.Empty(t, result.WeakSections)
	assert.Empty(t, result.PhrasingSuggestions)

	entries := logs.FilterMessage("narrative feedback unavailable, using defaults").All()
	require.Len(t, entries, 1)
	var sue *types.SourceUnavailableError
	for _, f := range entries[0].Context {
		if f.Key == "error" {
			require.True(t, errors.As(f.Interface.(error), &sue))
		}
	}
	require.NotNil(t, sue)
	assert.Equal(t, types.FailureUpstream, sue.Kind)
}

func TestReview_RejectedRequestNotRetried(t *testing.T) {
	client := &MockLLMClient{GenerateJSONFunc: func(context.Context, string, llm.ModelTier) (string, error) {
		return "", fmt.Errorf("generate: %w", llm.ErrNoAPIKey)
	}}
	g, logs := newObserved(client, WithMaxAttempts(3))

	result, err := g.Review(context.Background(), testProfile(), jobDescription)
	require.NoError(t, err)

	assert.Len(t, client.calls(), 1)
	assert.Equal(t, types.NarrativeDefaulted, result.NarrativeStatus)
	assert.Equal(t, 1, logs.FilterMessage("narrative attempt failed").Len())
}

func TestReview_AttemptTimeout(t *testing.T) {
	client := &MockLLMClient{GenerateJSONFunc: func(ctx context.Context, _ string, _ llm.ModelTier) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
	g, _ := newObserved(client, WithTimeout(20*time.Millisecond))

	start := time.Now()
	result, err := g.Review(context.Background(), testProfile(), jobDescription)
	require.NoError(t, err)

	assert.Len(t, client.calls(), 2, "each attempt gets its own deadline")
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, types.NarrativeDefaulted, result.NarrativeStatus)
}

func TestReview_NilClient(t *testing.T) {
	g, _ := newObserved(nil)

	result, err := g.Review(context.Background(), testProfile(), jobDescription)
	require.NoError(t, err)
	assert.Equal(t, types.NarrativeDefaulted, result.NarrativeStatus)
}

func TestReview_CanceledContext(t *testing.T) {
	g, _ := newObserved(&MockLLMClient{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.Review(ctx, testProfile(), jobDescription)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReview_ResumeOnly(t *testing.T) {
	client := &MockLLMClient{}
	g, _ := newObserved(client)
	profile := testProfile()

	result, err := g.Review(context.Background(), profile, "   ")
	require.NoError(t, err)

	assert.Nil(t, result.Fit)
	assert.Equal(t, Completeness(profile), result.ATSScore)
	assert.Empty(t, result.MissingKeywords.MustHave)
	assert.NotNil(t, result.MissingKeywords.MustHave)
	require.NotNil(t, result.MissingKeywords.RoleFamily)

	calls := client.calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0], promptText(t, prompts.KeyNoJobDescription))
	assert.Contains(t, calls[0], "- completeness: ")
}

func TestReview_HeadlineTruncated(t *testing.T) {
	long := strings.Repeat("word ", 60)
	client := &MockLLMClient{GenerateJSONFunc: replies(
		`{"summary_headline":"` + long + `","overall_feedback":"","weak_sections":[],"phrasing_suggestions":[],"quick_fixes":[]}`,
	)}
	g, _ := newObserved(client, WithMaxAttempts(1))

	result, err := g.Review(context.Background(), testProfile(), jobDescription)
	require.NoError(t, err)

	assert.LessOrEqual(t, len([]rune(result.SummaryHeadline)), maxHeadlineRunes)
	assert.NotEmpty(t, result.OverallFeedback, "empty feedback falls back to the generic text")
}

func promptText(t *testing.T, key string) string {
	t.Helper()
	text, err := prompts.Get(prompts.ReviewFile, key)
	require.NoError(t, err)
	return text
}

func TestCheckPrompts(t *testing.T) {
	assert.NoError(t, CheckPrompts())
}
