package resume

import (
	"strings"
)

type section string

const (
	sectionSummary        section = "summary"
	sectionExperience     section = "experience"
	sectionEducation      section = "education"
	sectionSkills         section = "skills"
	sectionProjects       section = "projects"
	sectionCertifications section = "certifications"
	sectionOther          section = "other"
)

// headings maps normalized heading text to its section.
var headings = map[string]section{
	"experience":              sectionExperience,
	"work experience":         sectionExperience,
	"professional experience": sectionExperience,
	"relevant experience":     sectionExperience,
	"employment history":      sectionExperience,
	"employment":              sectionExperience,
	"work history":            sectionExperience,
	"career history":          sectionExperience,

	"education":            sectionEducation,
	"academic background":  sectionEducation,
	"education & training": sectionEducation,
	"academic history":     sectionEducation,

	"skills":               sectionSkills,
	"technical skills":     sectionSkills,
	"core competencies":    sectionSkills,
	"competencies":         sectionSkills,
	"technologies":         sectionSkills,
	"key skills":           sectionSkills,
	"skills & tools":       sectionSkills,
	"tools & technologies": sectionSkills,

	"summary":              sectionSummary,
	"professional summary": sectionSummary,
	"profile":              sectionSummary,
	"objective":            sectionSummary,
	"career objective":     sectionSummary,
	"about":                sectionSummary,
	"about me":             sectionSummary,

	"projects":          sectionProjects,
	"personal projects": sectionProjects,
	"selected projects": sectionProjects,

	"certifications":            sectionCertifications,
	"certificates":              sectionCertifications,
	"licenses & certifications": sectionCertifications,

	"awards":               sectionOther,
	"publications":         sectionOther,
	"interests":            sectionOther,
	"volunteer experience": sectionOther,
	"volunteering":         sectionOther,
	"references":           sectionOther,
}

// document is resume text cut at its headings. header holds the lines before
// the first heading, where the name and contact details usually sit.
type document struct {
	header   []string
	sections map[section][]string
}

func splitSections(text string) document {
	doc := document{sections: make(map[section][]string)}
	current := section("")
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if s, ok := headingOf(line); ok {
			current = s
			continue
		}
		if s, rest, ok := inlineHeading(line); ok {
			// "Technologies: Go, Kafka" inside a role adds skills without
			// ending the role's section.
			doc.sections[s] = append(doc.sections[s], rest)
			if current == "" || s == current {
				continue
			}
			if s != sectionSkills {
				current = s
			}
			continue
		}
		if current == "" {
			doc.header = append(doc.header, line)
			continue
		}
		doc.sections[current] = append(doc.sections[current], line)
	}
	return doc
}

// headingOf reports whether line is a bare section heading such as
// "WORK EXPERIENCE" or "## Skills:".
func headingOf(line string) (section, bool) {
	s, ok := headings[normalizeHeading(line)]
	return s, ok
}

// inlineHeading handles "Skills: Go, Python" where content shares the heading line.
func inlineHeading(line string) (section, string, bool) {
	label, rest, ok := strings.Cut(line, ":")
	if !ok {
		return "", "", false
	}
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return "", "", false
	}
	s, ok := headings[normalizeHeading(label)]
	return s, rest, ok
}

func normalizeHeading(line string) string {
	h := strings.Trim(line, "#*=_-: \t")
	h = strings.ToLower(strings.Join(strings.Fields(h), " "))
	return strings.ReplaceAll(h, " and ", " & ")
}

// stripBullet removes a leading list marker.
func stripBullet(line string) string {
	line = strings.TrimSpace(line)
	for _, marker := range []string{"-", "*", "•", "·", "▪", "‣", "–", "●", "○"} {
		if strings.HasPrefix(line, marker) {
			return strings.TrimSpace(strings.TrimPrefix(line, marker))
		}
	}
	if strings.HasPrefix(line, "o ") {
		return strings.TrimSpace(line[2:])
	}
	return line
}

func isBullet(line string) bool {
	return stripBullet(line) != strings.TrimSpace(line)
}
