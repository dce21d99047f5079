package resume

import (
	"regexp"
	"strings"

	"github.com/jonathan/job-matcher/internal/types"
)

// Degree levels, lowest to highest.
const (
	LevelAssociate = "associate"
	LevelBachelor  = "bachelor"
	LevelMaster    = "master"
	LevelPhD       = "phd"
)

// degreeRank maps degree levels to numeric ranks for comparison
var degreeRank = map[string]int{
	LevelAssociate: 1,
	LevelBachelor:  2,
	LevelMaster:    3,
	LevelPhD:       4,
}

// LevelRank returns the rank of a degree level, 0 when unknown.
func LevelRank(level string) int {
	return degreeRank[level]
}

type degreePattern struct {
	level string
	re    *regexp.Regexp
}

// degreePatterns are tried highest level first. Each pattern captures the
// degree as written in group 1.
var degreePatterns = []degreePattern{
	{LevelPhD, regexp.MustCompile(`(?i)(?:^|[^a-z])(ph\.?\s?d\.?|doctorate|doctor of [a-z]+)(?:[^a-z]|$)`)},
	{LevelMaster, regexp.MustCompile(`(?i)(?:^|[^a-z])(master(?:'s|’s|s)?(?: of (?:science|arts|engineering|business administration|fine arts|education|technology|laws))?|m\.(?:s|a|sc|eng)\.?|msc|meng|mba|ms in)(?:[^a-z]|$)`)},
	{LevelBachelor, regexp.MustCompile(`(?i)(?:^|[^a-z])(bachelor(?:'s|’s|s)?(?: of (?:science|arts|engineering|business administration|fine arts|education|technology|commerce))?|b\.(?:s|a|sc|eng|tech|com)\.?|bsc|beng|btech|ba|bs)(?:[^a-z]|$)`)},
	{LevelAssociate, regexp.MustCompile(`(?i)(?:^|[^a-z])(associate(?:'s|’s)?(?: degree| of (?:science|arts|applied science))|a\.(?:s|a)\.)(?:[^a-z]|$)`)},
}

var (
	schoolRe = regexp.MustCompile(`(?i)\b(?:university|college|institute|school|academy|polytechnic)\b`)
	yearRe   = regexp.MustCompile(`\b(?:19|20)\d{2}\b`)
)

// schoolSeparators split an education line into candidate school segments.
var schoolSeparators = []string{",", "|", ";", " - ", " – ", " — ", "(", ")", " at ", " from "}

// parseEducation reads degree entries from the education section. A line
// naming a degree opens an entry; school and year lines fill it.
func parseEducation(lines []string) []types.EducationEntry {
	entries := []types.EducationEntry{}
	var cur *types.EducationEntry
	for _, raw := range lines {
		line := stripBullet(raw)

		degree, level, field := MatchDegree(line)
		school := findSchool(line)
		year := lastYear(line)

		switch {
		case degree != "":
			if cur == nil || cur.Degree != "" {
				entries = append(entries, types.EducationEntry{})
				cur = &entries[len(entries)-1]
			}
			cur.Degree, cur.Level, cur.Field = degree, level, field
		case school != "" && (cur == nil || cur.School != ""):
			entries = append(entries, types.EducationEntry{})
			cur = &entries[len(entries)-1]
		case cur == nil:
			continue
		}

		if school != "" && cur.School == "" {
			cur.School = school
		}
		if year != "" {
			cur.Year = year
		}
	}
	return entries
}

// MatchDegree finds the highest degree named in line, its level and the
// field of study that follows it.
func MatchDegree(line string) (degree, level, field string) {
	for _, p := range degreePatterns {
		loc := p.re.FindStringSubmatchIndex(line)
		if loc == nil {
			continue
		}
		degree = strings.TrimSpace(line[loc[2]:loc[3]])
		if strings.EqualFold(degree, "ms in") {
			degree = degree[:2]
		}
		return degree, p.level, fieldAfter(line[loc[3]:])
	}
	return "", "", ""
}

// LevelsIn returns every degree level named in text, lowest first.
func LevelsIn(text string) []string {
	var levels []string
	for i := len(degreePatterns) - 1; i >= 0; i-- {
		if degreePatterns[i].re.MatchString(text) {
			levels = append(levels, degreePatterns[i].level)
		}
	}
	return levels
}

// fieldAfter extracts the field of study from the text following a degree:
// "in Computer Science, Stanford" gives "Computer Science".
func fieldAfter(rest string) string {
	rest = strings.TrimLeft(rest, " ,:.-–—")
	if strings.HasPrefix(strings.ToLower(rest), "degree") {
		rest = strings.TrimLeft(rest[len("degree"):], " ,:.-–—")
	}
	lower := strings.ToLower(rest)
	for _, prefix := range []string{"in ", "of "} {
		if strings.HasPrefix(lower, prefix) {
			rest = rest[len(prefix):]
			break
		}
	}
	end := len(rest)
	for _, sep := range []string{",", "|", "(", ";", " - ", " – ", " — ", " at ", " from "} {
		if i := strings.Index(rest, sep); i >= 0 && i < end {
			end = i
		}
	}
	if loc := yearRe.FindStringIndex(rest); loc != nil && loc[0] < end {
		end = loc[0]
	}
	field := strings.TrimSpace(rest[:end])
	if field == "" || schoolRe.MatchString(field) || len(strings.Fields(field)) > 6 {
		return ""
	}
	return field
}

// findSchool returns the segment of line that names an institution.
func findSchool(line string) string {
	if !schoolRe.MatchString(line) {
		return ""
	}
	segments := []string{line}
	for _, sep := range schoolSeparators {
		var next []string
		for _, s := range segments {
			next = append(next, strings.Split(s, sep)...)
		}
		segments = next
	}
	for _, s := range segments {
		s = strings.TrimSpace(s)
		if s == "" || !schoolRe.MatchString(s) {
			continue
		}
		if loc := yearRe.FindStringIndex(s); loc != nil {
			s = strings.TrimSpace(s[:loc[0]] + s[loc[1]:])
		}
		return s
	}
	return ""
}

func lastYear(line string) string {
	years := yearRe.FindAllString(line, -1)
	if len(years) == 0 {
		return ""
	}
	return years[len(years)-1]
}
