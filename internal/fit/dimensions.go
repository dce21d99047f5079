package fit

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/jonathan/job-matcher/internal/resume"
	"github.com/jonathan/job-matcher/internal/skills"
	"github.com/jonathan/job-matcher/internal/types"
)

func newDimensionResult() types.DimensionResult {
	return types.DimensionResult{Matched: []types.ScoreItem{}, Missing: []types.ScoreItem{}}
}

// scoreSkills weighs each required skill (critical 2, otherwise 1) and
// credits those the resume demonstrates.
func scoreSkills(profile *types.ResumeProfile, reqs []skills.Requirement) types.DimensionResult {
	res := newDimensionResult()
	if len(reqs) == 0 {
		return res
	}
	res.Applicable = true

	have := make(map[string]string, len(profile.Skills))
	for _, sk := range profile.Skills {
		have[skills.Key(sk)] = sk
	}

	total, matched := 0.0, 0.0
	for _, r := range reqs {
		total += r.Weight()
		item := types.ScoreItem{Requirement: r.Skill, Critical: r.Critical}
		if evidence, ok := skillEvidence(profile, have, r.Skill); ok {
			item.MatchedText = evidence
			matched += r.Weight()
			res.Matched = append(res.Matched, item)
			continue
		}
		res.Missing = append(res.Missing, item)
	}
	res.Score = percent(matched, total)
	return res
}

// skillEvidence finds where the resume demonstrates skill: the skills list
// first, then a responsibility line, then anywhere in the raw text.
func skillEvidence(profile *types.ResumeProfile, have map[string]string, skill string) (string, bool) {
	if sk, ok := have[skills.Key(skill)]; ok {
		return sk, true
	}
	for _, w := range profile.WorkExperience {
		for _, line := range w.Responsibilities {
			if skills.ContainsTerm(line, skill) {
				return line, true
			}
		}
	}
	if skills.ContainsTerm(profile.RawText, skill) {
		return skill, true
	}
	return "", false
}

// yearsRe matches "5+ years", "at least 3 years", "minimum of 4 years" and
// "3-5 years of experience". A bare "N years" only counts when followed by
// "experience".
var yearsRe = regexp.MustCompile(`(?i)(?:\b(at least|minimum of|minimum|min\.|over|more than)\s+)?\b(\d{1,2})\s*(\+|plus)?\s*(?:(?:-|–|to)\s*\d{1,2}\s*\+?\s*)?(?:years?|yrs?)\b((?:\s+[a-z/&-]+){0,4}?\s+experience)?`)

type seniorityCue struct {
	cue   string
	years int
	// titleOnly cues are ambiguous in prose ("lead the team") and only
	// count in the opening paragraph.
	titleOnly bool
}

var seniorityCues = []seniorityCue{
	{cue: "intern", years: 0},
	{cue: "internship", years: 0},
	{cue: "junior", years: 0},
	{cue: "entry level", years: 0},
	{cue: "entry-level", years: 0},
	{cue: "mid-level", years: 2},
	{cue: "mid level", years: 2},
	{cue: "intermediate", years: 2, titleOnly: true},
	{cue: "senior", years: 5},
	{cue: "staff", years: 7, titleOnly: true},
	{cue: "principal", years: 7, titleOnly: true},
	{cue: "lead", years: 7, titleOnly: true},
}

// seniorityCredit is added when the candidate already holds a role at the
// required seniority.
const seniorityCredit = 15

func seniorityLabel(years int) string {
	switch {
	case years >= 7:
		return "Staff or lead level experience"
	case years >= 5:
		return "Senior level experience"
	case years >= 2:
		return "Mid level experience"
	default:
		return "Entry level role"
	}
}

// seniorityIn returns the highest seniority cue in text, or ok=false.
func seniorityIn(text string, includeTitleOnly bool) (years int, ok bool) {
	years = -1
	for _, c := range seniorityCues {
		if c.titleOnly && !includeTitleOnly {
			continue
		}
		if skills.ContainsTerm(text, c.cue) && c.years > years {
			years = c.years
		}
	}
	return years, years >= 0
}

// requiredSeniority looks for a seniority cue in the opening paragraph,
// where job titles sit, then falls back to unambiguous cues in the body.
func requiredSeniority(description string) (int, bool) {
	if years, ok := seniorityIn(firstParagraph(description), true); ok {
		return years, true
	}
	return seniorityIn(description, false)
}

// requiredYears returns the largest stated years-of-experience requirement
// and whether it is critical.
func requiredYears(description string) (years int, critical bool, found bool) {
	for _, sent := range sentences(description) {
		for _, m := range yearsRe.FindAllStringSubmatch(sent, -1) {
			if m[1] == "" && m[3] == "" && m[4] == "" {
				continue
			}
			n, err := strconv.Atoi(m[2])
			if err != nil || n == 0 {
				continue
			}
			if !found || n > years {
				years = n
				critical = !skills.HasOptionalCue(sent)
			}
			found = true
		}
	}
	return years, critical, found
}

// scoreExperience compares the candidate's total years against the stated
// years requirement and seniority cues. It is applicable only when the
// description states one of them.
func scoreExperience(profile *types.ResumeProfile, description string) types.DimensionResult {
	res := newDimensionResult()
	patternYears, critical, hasYears := requiredYears(description)
	cueYears, hasCue := requiredSeniority(description)
	if !hasYears && !hasCue {
		return res
	}
	res.Applicable = true

	months := profile.TotalMonths()
	candYears := float64(months) / 12

	need := patternYears
	if hasCue && cueYears > need {
		need = cueYears
	}
	ratio := 1.0
	if need > 0 {
		ratio = math.Min(1, candYears/float64(need))
	}
	score := ratio * 100

	if hasYears {
		item := types.ScoreItem{
			Requirement: fmt.Sprintf("%d+ years of experience", patternYears),
			Critical:    critical,
		}
		if candYears >= float64(patternYears) {
			item.MatchedText = describeTenure(profile)
			res.Matched = append(res.Matched, item)
		} else {
			res.Missing = append(res.Missing, item)
		}
	}

	if hasCue {
		item := types.ScoreItem{Requirement: seniorityLabel(cueYears)}
		role, roleYears := seniorRole(profile)
		switch {
		case role != "" && roleYears >= cueYears:
			item.MatchedText = role
			if cueYears > 0 {
				score += seniorityCredit
			}
			res.Matched = append(res.Matched, item)
		case candYears >= float64(cueYears):
			item.MatchedText = describeTenure(profile)
			res.Matched = append(res.Matched, item)
		default:
			res.Missing = append(res.Missing, item)
		}
	}

	res.Score = clampScore(int(math.Round(score)))
	return res
}

// seniorRole returns the candidate's most senior titled role and the years
// its seniority cue implies.
func seniorRole(profile *types.ResumeProfile) (string, int) {
	best, bestYears := "", -1
	for _, w := range profile.WorkExperience {
		if years, ok := seniorityIn(w.Role, true); ok && years > bestYears {
			best, bestYears = w.Role, years
		}
	}
	return best, bestYears
}

func describeTenure(profile *types.ResumeProfile) string {
	years := float64(profile.TotalMonths()) / 12
	roles := len(profile.WorkExperience)
	noun := "roles"
	if roles == 1 {
		noun = "role"
	}
	return fmt.Sprintf("%.1f years across %d %s", years, roles, noun)
}

// relatedFields lists fields that count as adjacent to a required field.
var relatedFields = map[string][]string{
	"computer science":       {"software engineering", "computer engineering", "information technology", "information systems", "cs"},
	"software engineering":   {"computer science", "computer engineering", "cs"},
	"computer engineering":   {"computer science", "electrical engineering", "software engineering"},
	"data science":           {"statistics", "mathematics", "computer science", "machine learning"},
	"statistics":             {"mathematics", "data science", "economics"},
	"mathematics":            {"statistics", "physics", "computer science"},
	"electrical engineering": {"computer engineering", "electronics"},
	"economics":              {"finance", "statistics", "business administration"},
	"finance":                {"economics", "accounting", "business administration"},
	"accounting":             {"finance", "business administration"},
	"marketing":              {"communications", "business administration", "advertising"},
	"nursing":                {"health sciences", "public health"},
	"design":                 {"graphic design", "human-computer interaction", "fine arts"},
}

// fieldMatchScore rates a candidate's field against the required fields:
// 1.0 for a match, 0.7 for a related field and 0.2 otherwise.
func fieldMatchScore(field string, preferredFields []string) float64 {
	fieldLower := strings.ToLower(strings.TrimSpace(field))
	if fieldLower == "" {
		return 0
	}

	for _, preferred := range preferredFields {
		preferredLower := strings.ToLower(preferred)
		if fieldLower == preferredLower || strings.Contains(fieldLower, preferredLower) || strings.Contains(preferredLower, fieldLower) {
			return 1.0
		}
	}

	for _, preferred := range preferredFields {
		if related, ok := relatedFields[strings.ToLower(preferred)]; ok {
			for _, r := range related {
				if skills.ContainsTerm(fieldLower, r) || skills.ContainsTerm(r, fieldLower) {
					return 0.7
				}
			}
		}
	}
	return 0.2
}

// fieldNoise marks the "or related field" part of a field requirement.
var fieldNoise = []string{"related", "equivalent", "similar", "relevant", "field", "discipline", "experience"}

// requiredFields pulls the fields of study named alongside a degree.
func requiredFields(sentence string) []string {
	_, _, field := resume.MatchDegree(sentence)
	if field == "" {
		return nil
	}
	var out []string
	for _, part := range strings.FieldsFunc(field, func(r rune) bool { return r == '/' }) {
		for _, p := range strings.Split(part, " or ") {
			p = strings.TrimSpace(p)
			p = strings.TrimPrefix(strings.TrimPrefix(p, "a "), "an ")
			if p == "" || containsAnyWord(p, fieldNoise) || skills.HasCriticalCue(p) || skills.HasOptionalCue(p) {
				continue
			}
			out = append(out, p)
		}
	}
	return out
}

func containsAnyWord(s string, words []string) bool {
	for _, w := range words {
		if skills.ContainsTerm(s, w) {
			return true
		}
	}
	return false
}

var levelNames = map[string]string{
	resume.LevelAssociate: "Associate degree",
	resume.LevelBachelor:  "Bachelor's degree",
	resume.LevelMaster:    "Master's degree",
	resume.LevelPhD:       "PhD",
}

// scoreEducation compares the candidate's highest degree and field against
// the lowest degree level the description asks for: 60% degree rank and
// 40% field of study when fields are named.
func scoreEducation(profile *types.ResumeProfile, description string) types.DimensionResult {
	res := newDimensionResult()

	reqLevel, reqRank := "", 0
	var fields []string
	critical := false
	for _, sent := range sentences(description) {
		levels := resume.LevelsIn(sent)
		if len(levels) == 0 {
			continue
		}
		if r := resume.LevelRank(levels[0]); reqRank == 0 || r < reqRank {
			reqLevel, reqRank = levels[0], r
		}
		fields = append(fields, requiredFields(sent)...)
		critical = critical || skills.HasCriticalCue(sent)
	}
	if reqRank == 0 {
		return res
	}
	res.Applicable = true

	var best *types.EducationEntry
	bestRank := 0
	fieldScore := 0.0
	for i := range profile.Education {
		e := &profile.Education[i]
		if r := resume.LevelRank(e.Level); best == nil || r > bestRank {
			best, bestRank = e, r
		}
		if len(fields) > 0 {
			fieldScore = math.Max(fieldScore, fieldMatchScore(e.Field, fields))
		}
	}

	degreeScore := 0.0
	switch {
	case bestRank >= reqRank:
		degreeScore = 1
	case bestRank == reqRank-1 && bestRank > 0:
		degreeScore = 0.5
	}

	score := degreeScore
	requirement := levelNames[reqLevel]
	if len(fields) > 0 {
		score = 0.6*degreeScore + 0.4*fieldScore
		requirement += " in " + strings.Join(fields, " or ")
	}
	res.Score = clampScore(int(math.Round(score * 100)))

	item := types.ScoreItem{Requirement: requirement, Critical: critical}
	if degreeScore == 1 && (len(fields) == 0 || fieldScore >= 0.7) {
		item.MatchedText = describeEducation(best)
		res.Matched = append(res.Matched, item)
	} else {
		res.Missing = append(res.Missing, item)
	}
	return res
}

func describeEducation(e *types.EducationEntry) string {
	if e == nil {
		return ""
	}
	var parts []string
	degree := e.Degree
	if e.Field != "" {
		degree += " in " + e.Field
	}
	for _, p := range []string{strings.TrimSpace(degree), e.School, e.Year} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}
