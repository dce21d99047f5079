package fit

import (
	"sort"
	"strings"

	"github.com/jonathan/job-matcher/internal/resume"
	"github.com/jonathan/job-matcher/internal/skills"
	"github.com/jonathan/job-matcher/internal/types"
)

// maxKeywords caps how many description terms the keywords dimension checks.
const maxKeywords = 20

// degreeWords are generic education terms the education dimension scores.
var degreeWords = map[string]bool{"degree": true, "degrees": true, "diploma": true}

// topTerms ranks the description's significant tokens by frequency, ties
// broken by first appearance, leaving out anything the skills or education
// dimensions already cover.
func topTerms(description string, reqs []skills.Requirement) []string {
	covered := make(map[string]bool)
	for _, r := range reqs {
		for _, t := range tokenize(r.Skill) {
			covered[t] = true
		}
	}
	for _, m := range skills.FindInText(description) {
		for _, t := range tokenize(description[m.Start:m.End]) {
			covered[t] = true
		}
		for _, t := range tokenize(m.Skill) {
			covered[t] = true
		}
	}

	counts := make(map[string]int)
	first := make(map[string]int)
	var order []string
	for i, t := range tokenize(description) {
		if covered[t] {
			continue
		}
		if degreeWords[t] || len(resume.LevelsIn(t)) > 0 {
			covered[t] = true
			continue
		}
		if _, ok := counts[t]; !ok {
			first[t] = i
			order = append(order, t)
		}
		counts[t]++
	}

	sort.SliceStable(order, func(a, b int) bool {
		if counts[order[a]] != counts[order[b]] {
			return counts[order[a]] > counts[order[b]]
		}
		return first[order[a]] < first[order[b]]
	})
	if len(order) > maxKeywords {
		order = order[:maxKeywords]
	}
	return order
}

// scoreKeywords checks the description's residual jargon against the
// resume text. Missing terms are never critical.
func scoreKeywords(profile *types.ResumeProfile, description string, reqs []skills.Requirement) types.DimensionResult {
	res := newDimensionResult()
	if strings.TrimSpace(description) == "" {
		return res
	}
	terms := topTerms(description, reqs)
	if len(terms) == 0 {
		return res
	}
	res.Applicable = true

	resumeKW := keywordSet(profileText(profile))
	matched := 0
	for _, t := range terms {
		item := types.ScoreItem{Requirement: t}
		if resumeKW[t] {
			item.MatchedText = t
			matched++
			res.Matched = append(res.Matched, item)
			continue
		}
		res.Missing = append(res.Missing, item)
	}
	res.Score = percent(float64(matched), float64(len(terms)))
	return res
}

// profileText is the text keywords are matched against: the raw resume
// when available, otherwise the parsed fields.
func profileText(profile *types.ResumeProfile) string {
	if strings.TrimSpace(profile.RawText) != "" {
		return profile.RawText
	}
	var b strings.Builder
	b.WriteString(profile.Summary)
	for _, sk := range profile.Skills {
		b.WriteString(" " + sk)
	}
	for _, w := range profile.WorkExperience {
		b.WriteString(" " + w.Role + " " + w.Company)
		for _, r := range w.Responsibilities {
			b.WriteString(" " + r)
		}
	}
	for _, e := range profile.Education {
		b.WriteString(" " + e.Degree + " " + e.Field + " " + e.School)
	}
	return b.String()
}
