package feedback

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/jonathan/job-matcher/internal/prompts"
	"github.com/jonathan/job-matcher/internal/schemas"
	"github.com/jonathan/job-matcher/internal/types"
)

const (
	maxResumeRunes      = 12000
	maxDescriptionRunes = 6000
	truncatedSuffix     = "\n...[truncated]..."
)

func buildPrompt(profile *types.ResumeProfile, jobDescription string, result *types.ReviewResult) (string, error) {
	schema, err := schemas.Source(schemas.Review)
	if err != nil {
		return "", err
	}
	snapshot, err := json.MarshalIndent(result.ResumeSnapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode resume snapshot: %w", err)
	}

	description := truncateText(jobDescription, maxDescriptionRunes)
	if description == "" {
		if description, err = prompts.Get(prompts.ReviewFile, prompts.KeyNoJobDescription); err != nil {
			return "", err
		}
	}

	return prompts.Render(prompts.ReviewFile, prompts.KeyReview, map[string]string{
		"Schema":          schema,
		"FitScore":        strconv.Itoa(result.ATSScore),
		"Breakdown":       breakdownSummary(result),
		"MissingKeywords": keywordSummary(result.MissingKeywords),
		"ResumeSnapshot":  string(snapshot),
		"JobDescription":  description,
		"ResumeText":      truncateText(profile.RawText, maxResumeRunes),
	})
}

// truncateText cuts s to limit runes and marks the cut.
func truncateText(s string, limit int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit]) + truncatedSuffix
}

func breakdownSummary(result *types.ReviewResult) string {
	if result.Fit == nil {
		return fmt.Sprintf("- completeness: %d/100 (no job description; scored on sections present, contact details and quantified bullets)", result.ATSScore)
	}
	var b strings.Builder
	for _, dim := range types.Dimensions {
		d, ok := result.Fit.Breakdown[dim]
		if !ok || !d.Applicable {
			fmt.Fprintf(&b, "- %s: not applicable\n", dim)
			continue
		}
		fmt.Fprintf(&b, "- %s: %d/100 (weight %.2f)", dim, d.Score, result.Fit.Weights[dim])
		if len(d.Missing) > 0 {
			names := make([]string, len(d.Missing))
			for i, item := range d.Missing {
				names[i] = item.Requirement
			}
			fmt.Fprintf(&b, ", missing: %s", strings.Join(names, ", "))
		}
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

func keywordSummary(mk types.MissingKeywords) string {
	family := "unknown"
	if mk.RoleFamily != nil {
		family = *mk.RoleFamily
	}
	return fmt.Sprintf("role_family: %s\nmust_have: %s\nnice_to_have: %s",
		family, listOrNone(mk.MustHave), listOrNone(mk.NiceToHave))
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}
