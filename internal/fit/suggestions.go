package fit

import (
	"strings"

	"github.com/jonathan/job-matcher/internal/types"
)

const (
	maxSuggestions    = 3
	maxSuggestedItems = 5
)

var defaultSuggestions = []string{
	"Great alignment overall. Tighten your opening summary with one or two quantified wins.",
	"Double-check formatting and ensure the most relevant skills are near the top of the resume.",
}

// suggestions turns the missing items of each dimension into at most three
// improvement hints, in skills, experience, education, keywords order.
func suggestions(breakdown map[types.Dimension]types.DimensionResult) []string {
	var out []string
	for _, d := range types.Dimensions {
		r := breakdown[d]
		if !r.Applicable || len(r.Missing) == 0 {
			continue
		}
		list := summarize(r.Missing)
		switch d {
		case types.DimensionSkills:
			out = append(out, "Highlight or add specific accomplishments that demonstrate: "+list+".")
		case types.DimensionExperience:
			out = append(out, "Describe projects or roles that cover: "+list+".")
		case types.DimensionEducation:
			out = append(out, "Call out education or certifications related to: "+list+".")
		case types.DimensionKeywords:
			out = append(out, "Weave these keywords into your resume summary or bullet points: "+list+".")
		}
	}
	if len(out) == 0 {
		return append([]string(nil), defaultSuggestions...)
	}
	if len(out) > maxSuggestions {
		out = out[:maxSuggestions]
	}
	return out
}

// summarize joins the first distinct requirements, critical ones first.
func summarize(items []types.ScoreItem) string {
	seen := make(map[string]bool)
	var names []string
	add := func(critical bool) {
		for _, it := range items {
			if it.Critical != critical || len(names) >= maxSuggestedItems {
				continue
			}
			name := strings.TrimSpace(it.Requirement)
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true
			names = append(names, name)
		}
	}
	add(true)
	add(false)
	return strings.Join(names, ", ")
}
