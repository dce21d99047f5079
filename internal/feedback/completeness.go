package feedback

import (
	"regexp"

	"github.com/jonathan/job-matcher/internal/skills"
	"github.com/jonathan/job-matcher/internal/types"
)

// Completeness points. They sum to 100.
const (
	pointsEmail       = 10
	pointsPhone       = 5
	pointsProfileLink = 5
	pointsSummary     = 10
	pointsSkillsFull  = 15
	pointsSkillsSome  = 8
	pointsExperience  = 25
	pointsQuantified  = 15
	pointsEducation   = 15

	fullSkillsCount = 5
)

var quantified = regexp.MustCompile(`\d|%|\$`)

// Completeness scores a resume on its own, for reviews without a job
// description: contact details, sections present and the share of
// experience bullets carrying a number.
func Completeness(p *types.ResumeProfile) int {
	score := 0
	if p.Email != "" {
		score += pointsEmail
	}
	if p.Phone != "" {
		score += pointsPhone
	}
	if p.LinkedIn != "" || p.GitHub != "" || len(p.Websites) > 0 {
		score += pointsProfileLink
	}
	if p.Summary != "" {
		score += pointsSummary
	}
	switch {
	case len(p.Skills) >= fullSkillsCount:
		score += pointsSkillsFull
	case len(p.Skills) > 0:
		score += pointsSkillsSome
	}
	if len(p.WorkExperience) > 0 {
		score += pointsExperience
	}
	if len(p.Education) > 0 {
		score += pointsEducation
	}

	bullets, withNumbers := 0, 0
	for _, w := range p.WorkExperience {
		for _, r := range w.Responsibilities {
			bullets++
			if quantified.MatchString(r) {
				withNumbers++
			}
		}
	}
	if bullets > 0 {
		score += (pointsQuantified*withNumbers + bullets/2) / bullets
	}
	return score
}

// resumeOnlyKeywords has no job to compare against, so only the role family
// hint is filled, from the resume's own vocabulary.
func resumeOnlyKeywords(p *types.ResumeProfile) types.MissingKeywords {
	mk := types.MissingKeywords{MustHave: []string{}, NiceToHave: []string{}}
	if family := skills.RoleFamily(p.RawText); family != "" {
		mk.RoleFamily = &family
	}
	return mk
}
