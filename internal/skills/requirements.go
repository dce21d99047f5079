package skills

import (
	"strings"
)

const (
	// Weight constants for requirement criticality
	weightCritical = 2.0
	weightOptional = 1.0

	// Source constants
	SourceDescription = "description"
	SourceExplicit    = "explicit"
)

// criticalCues mark a clause or section as mandatory.
var criticalCues = []string{
	"must", "must-have", "required", "requirement", "requirements",
	"essential", "mandatory", "need to have", "needs to have",
}

// optionalCues mark a clause or section as a nice-to-have.
var optionalCues = []string{
	"nice to have", "nice-to-have", "preferred", "bonus", "a plus", "desirable", "optional",
}

// Requirement is one skill a job description asks for.
type Requirement struct {
	Skill    string `json:"skill"`
	Critical bool   `json:"critical"`
	Source   string `json:"source"`
	// Evidence is the clause the skill was first found in.
	Evidence string `json:"evidence,omitempty"`
}

// Weight is the requirement's share of the skills score.
func (r Requirement) Weight() float64 {
	if r.Critical {
		return weightCritical
	}
	return weightOptional
}

// HasCriticalCue reports whether s contains imperative language such as
// "must" or "required".
func HasCriticalCue(s string) bool {
	return containsAny(s, criticalCues)
}

// HasOptionalCue reports whether s marks something as preferred rather than required.
func HasOptionalCue(s string) bool {
	return containsAny(s, optionalCues)
}

// ExtractRequirements finds the vocabulary skills a job description asks for
// and merges in an explicit required-skills list. A skill is critical when
// one of its occurrences is in the first paragraph, in a clause with a
// critical cue, or under a heading such as "Requirements:". Explicit skills
// are always critical. Order follows first appearance, explicit-only skills last.
func ExtractRequirements(description string, explicit []string) []Requirement {
	clauses := splitClauses(description)
	firstPara := firstParagraphEnd(description)

	index := make(map[string]int)
	var out []Requirement
	for _, m := range FindInText(description) {
		c := clauseAt(clauses, m.Start)
		critical := false
		if c != nil {
			switch {
			case c.critical:
				critical = true
			case c.optional:
			case m.Start < firstPara:
				critical = true
			}
		}

		if i, ok := index[m.Skill]; ok {
			out[i].Critical = out[i].Critical || critical
			continue
		}
		r := Requirement{Skill: m.Skill, Critical: critical, Source: SourceDescription}
		if c != nil {
			r.Evidence = strings.TrimSpace(description[c.start:c.end])
		}
		index[m.Skill] = len(out)
		out = append(out, r)
	}

	for _, name := range explicit {
		norm := NormalizeSkillName(name)
		if norm == "" {
			continue
		}
		if i, ok := index[norm]; ok {
			out[i].Critical = true
			out[i].Source = SourceExplicit
			continue
		}
		index[norm] = len(out)
		out = append(out, Requirement{Skill: norm, Critical: true, Source: SourceExplicit})
	}
	return out
}

// clause is a span of the description with the cues that apply to it.
type clause struct {
	start, end int
	critical   bool
	optional   bool
}

// splitClauses cuts text into clauses at line breaks, semicolons and
// sentence ends. A short line ending in ':' is a heading whose cue applies to
// the following lines until a blank line or the next heading.
func splitClauses(text string) []clause {
	var (
		out             []clause
		sectionCritical bool
		sectionOptional bool
		lineStart       = 0
	)
	for lineStart <= len(text) {
		lineEnd := strings.IndexByte(text[lineStart:], '\n')
		if lineEnd < 0 {
			lineEnd = len(text)
		} else {
			lineEnd += lineStart
		}
		line := text[lineStart:lineEnd]
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == "":
			sectionCritical, sectionOptional = false, false
		case isHeading(trimmed):
			sectionCritical = HasCriticalCue(trimmed) && !HasOptionalCue(trimmed)
			sectionOptional = HasOptionalCue(trimmed)
			out = append(out, clause{start: lineStart, end: lineEnd, critical: sectionCritical, optional: sectionOptional})
		default:
			for _, span := range sentenceSpans(line) {
				s := line[span[0]:span[1]]
				c := clause{start: lineStart + span[0], end: lineStart + span[1]}
				switch {
				case HasOptionalCue(s):
					c.optional = true
				case HasCriticalCue(s):
					c.critical = true
				case sectionCritical:
					c.critical = true
				case sectionOptional:
					c.optional = true
				}
				out = append(out, c)
			}
		}
		lineStart = lineEnd + 1
	}
	return out
}

// sentenceSpans splits one line at ';' and at '.', '!' or '?' followed by a space.
func sentenceSpans(line string) [][2]int {
	var spans [][2]int
	start := 0
	for i := 0; i < len(line); i++ {
		c := line[i]
		cut := c == ';'
		if c == '.' || c == '!' || c == '?' {
			cut = i+1 == len(line) || line[i+1] == ' ' || line[i+1] == '\t'
		}
		if cut {
			spans = append(spans, [2]int{start, i + 1})
			start = i + 1
		}
	}
	if start < len(line) {
		spans = append(spans, [2]int{start, len(line)})
	}
	return spans
}

func isHeading(line string) bool {
	return strings.HasSuffix(line, ":") && len(strings.Fields(line)) <= 6
}

// firstParagraphEnd returns the offset where the description's first
// paragraph ends: the first blank line, or the end of the first line when
// the text has no blank lines.
func firstParagraphEnd(text string) int {
	lead := len(text) - len(strings.TrimLeft(text, " \t\r\n"))
	body := text[lead:]
	lines := strings.SplitAfter(body, "\n")
	offset := lead
	for i, l := range lines {
		if i > 0 && strings.TrimSpace(l) == "" {
			return offset
		}
		offset += len(l)
	}
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		return lead + nl
	}
	return len(text)
}

func clauseAt(clauses []clause, offset int) *clause {
	for i := range clauses {
		if offset >= clauses[i].start && offset < clauses[i].end {
			return &clauses[i]
		}
	}
	return nil
}

func containsAny(s string, cues []string) bool {
	lower := asciiLower(s)
	for _, c := range cues {
		if len(occurrences(lower, c)) > 0 {
			return true
		}
	}
	return false
}
