package resume

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	emailRe    = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	phoneRe    = regexp.MustCompile(`(?:\+\d{1,3}[\s.\-]?)?(?:\(\d{2,4}\)|\d{2,4})[\s.\-]?\d{3,4}[\s.\-]?\d{3,4}`)
	linkedinRe = regexp.MustCompile(`(?i)(?:https?://)?(?:[a-z]{2,3}\.)?linkedin\.com/in/[A-Za-z0-9_\-%]+/?`)
	githubRe   = regexp.MustCompile(`(?i)(?:https?://)?(?:www\.)?github\.com/[A-Za-z0-9_\-]+`)
	urlRe      = regexp.MustCompile(`(?i)\b(?:https?://|www\.)[^\s,;|()<>]+`)
)

type contact struct {
	email    string
	phone    string
	linkedin string
	github   string
	websites []string
}

func extractContact(text string) contact {
	c := contact{websites: []string{}}
	c.email = emailRe.FindString(text)
	c.linkedin = strings.TrimSuffix(linkedinRe.FindString(text), "/")
	c.github = githubRe.FindString(text)

	for _, m := range phoneRe.FindAllString(text, -1) {
		if n := countDigits(m); n >= 10 && n <= 15 {
			c.phone = strings.TrimSpace(m)
			break
		}
	}

	seen := make(map[string]struct{})
	for _, u := range urlRe.FindAllString(text, -1) {
		u = strings.TrimRight(u, ".")
		lower := strings.ToLower(u)
		if strings.Contains(lower, "linkedin.com") || strings.Contains(lower, "github.com") {
			continue
		}
		if _, ok := seen[lower]; ok {
			continue
		}
		seen[lower] = struct{}{}
		c.websites = append(c.websites, u)
	}
	return c
}

// extractName picks the first header line that reads like a person's name.
func extractName(header []string) string {
	for _, line := range header {
		if looksLikeName(line) {
			return line
		}
	}
	return ""
}

func looksLikeName(line string) bool {
	if emailRe.MatchString(line) || urlRe.MatchString(line) || strings.Contains(line, "linkedin.com") {
		return false
	}
	if _, ok := headingOf(line); ok {
		return false
	}
	words := strings.Fields(line)
	if len(words) < 1 || len(words) > 5 {
		return false
	}
	for _, r := range line {
		if !(unicode.IsLetter(r) || r == ' ' || r == '.' || r == '-' || r == '\'') {
			return false
		}
	}
	return true
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsDigit(r) {
			n++
		}
	}
	return n
}
