// Package resume extracts a structured profile from plain resume text:
// sections, work history, education, skills and contact details.
//
// Parsing is best effort. A section the parser cannot find yields an empty
// slice and is listed in the profile's Incomplete fields; it never fails the
// parse.
package resume

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/job-matcher/internal/logger"
	"github.com/jonathan/job-matcher/internal/skills"
	"github.com/jonathan/job-matcher/internal/types"
)

// Fields reported as incomplete when the parser cannot populate them.
const (
	FieldName       = "name"
	FieldEmail      = "email"
	FieldPhone      = "phone"
	FieldSummary    = "summary"
	FieldSkills     = "skills"
	FieldEducation  = "education"
	FieldExperience = "work_experience"
)

// Parser turns resume text into a ResumeProfile.
type Parser struct {
	logger *zap.Logger
	now    func() time.Time
}

// New creates a Parser. "Present" in date ranges resolves to the time of the call.
func New(log *zap.Logger) *Parser {
	return &Parser{logger: logger.Component(log, "resume"), now: time.Now}
}

// Parse extracts a profile from text.
func (p *Parser) Parse(text string) *types.ResumeProfile {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	doc := splitSections(text)

	profile := &types.ResumeProfile{
		Websites:       []string{},
		Skills:         []string{},
		Education:      []types.EducationEntry{},
		WorkExperience: []types.WorkEntry{},
		RawText:        text,
	}

	c := extractContact(text)
	profile.Email = c.email
	profile.Phone = c.phone
	profile.LinkedIn = c.linkedin
	profile.GitHub = c.github
	profile.Websites = c.websites
	profile.Name = extractName(doc.header)

	if lines := doc.sections[sectionSummary]; len(lines) > 0 {
		profile.Summary = joinParagraph(lines)
	}
	profile.WorkExperience = parseExperience(doc.sections[sectionExperience], p.now())
	profile.Education = parseEducation(doc.sections[sectionEducation])
	profile.Skills = collectSkills(doc.sections[sectionSkills], text)

	profile.Incomplete = incompleteFields(profile)
	if len(profile.Incomplete) > 0 {
		errs := profile.IncompleteErrors()
		p.logger.Debug("resume parse incomplete",
			zap.Strings("fields", profile.Incomplete),
			zap.Errors("errors", errs),
		)
	}
	return profile
}

func incompleteFields(p *types.ResumeProfile) []string {
	var missing []string
	check := func(field string, empty bool) {
		if empty {
			missing = append(missing, field)
		}
	}
	check(FieldName, p.Name == "")
	check(FieldEmail, p.Email == "")
	check(FieldPhone, p.Phone == "")
	check(FieldSummary, p.Summary == "")
	check(FieldSkills, len(p.Skills) == 0)
	check(FieldEducation, len(p.Education) == 0)
	check(FieldExperience, len(p.WorkExperience) == 0)
	return missing
}

// collectSkills merges the tokens listed in the skills section with the
// vocabulary skills named anywhere in the resume.
func collectSkills(section []string, text string) []string {
	var tokens []string
	for _, line := range section {
		line = stripBullet(line)
		if label, rest, ok := strings.Cut(line, ":"); ok && len(strings.Fields(label)) <= 3 {
			line = rest
		}
		for _, tok := range strings.FieldsFunc(line, isSkillSeparator) {
			tok = strings.Trim(strings.TrimSpace(tok), ".")
			if tok == "" || len(strings.Fields(tok)) > 4 {
				continue
			}
			tokens = append(tokens, tok)
		}
	}
	tokens = append(tokens, skills.Skills(text)...)
	return skills.Dedupe(tokens)
}

func isSkillSeparator(r rune) bool {
	switch r {
	case ',', ';', '|', '•', '·', '\t':
		return true
	}
	return false
}

func joinParagraph(lines []string) string {
	parts := make([]string, 0, len(lines))
	for _, l := range lines {
		if l = strings.TrimSpace(stripBullet(l)); l != "" {
			parts = append(parts, l)
		}
	}
	return strings.Join(parts, " ")
}
