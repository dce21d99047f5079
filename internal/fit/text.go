package fit

import (
	"regexp"
	"strings"
	"unicode"
)

var sentenceBreak = regexp.MustCompile(`[.!?;]\s+|\n`)

// sentences splits text into trimmed, non-empty sentences and lines.
func sentences(text string) []string {
	var out []string
	for _, s := range sentenceBreak.Split(text, -1) {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// firstParagraph returns the text before the first blank line, or the first
// line when the text has no blank lines.
func firstParagraph(text string) string {
	text = strings.TrimLeft(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	if i := strings.Index(text, "\n\n"); i >= 0 {
		return text[:i]
	}
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		return text[:i]
	}
	return text
}

// stopWords filters common English and job-posting boilerplate words that
// add noise to keyword matching.
var stopWords = map[string]bool{
	"and": true, "the": true, "for": true, "with": true, "you": true,
	"are": true, "have": true, "will": true, "this": true, "that": true,
	"from": true, "our": true, "your": true, "their": true, "they": true,
	"work": true, "team": true, "role": true, "job": true, "join": true,
	"about": true, "which": true, "what": true, "who": true, "how": true,
	"can": true, "not": true, "but": true, "all": true, "also": true,
	"more": true, "than": true, "into": true, "has": true, "its": true,
	"was": true, "were": true, "been": true, "each": true, "new": true,
	"use": true, "using": true, "used": true, "well": true, "high": true,
	"good": true, "able": true, "get": true, "set": true, "such": true,
	"experience": true, "years": true, "year": true, "ability": true, "strong": true,
	"skills": true, "skill": true, "including": true, "etc": true, "must": true,
	"required": true, "requirements": true, "requirement": true, "preferred": true, "plus": true,
	"knowledge": true, "understanding": true, "responsibilities": true, "qualifications": true, "candidate": true,
	"looking": true, "we're": true, "you'll": true, "other": true, "any": true,
	"working": true, "across": true, "help": true, "within": true, "where": true,
	"when": true, "who's": true, "them": true, "there": true, "these": true,
	"those": true, "would": true, "should": true, "may": true, "both": true,
	"least": true, "minimum": true, "nice": true, "bonus": true, "degree": true,
	"related": true, "field": true, "equivalent": true, "company": true, "position": true,
	"opportunity": true, "based": true, "per": true, "like": true,
	"senior": true, "junior": true, "level": true, "lead": true, "excellent": true,
}

// tokenize splits text into lowercase keywords of at least three runes,
// skipping stop words and numbers. "+", "#" and "." are word characters so
// "c++", "c#" and "node.js" survive.
func tokenize(text string) []string {
	var out []string
	var word strings.Builder
	flush := func() {
		w := strings.TrimRight(word.String(), ".")
		word.Reset()
		if len([]rune(w)) < 3 || stopWords[w] || isNumber(w) {
			return
		}
		out = append(out, w)
	}
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '+' || r == '#' || r == '.' || r == '\'' {
			word.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return out
}

// keywordSet is the distinct tokens of text.
func keywordSet(text string) map[string]bool {
	kw := make(map[string]bool)
	for _, t := range tokenize(text) {
		kw[t] = true
	}
	return kw
}

func isNumber(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) && r != '.' && r != '+' {
			return false
		}
	}
	return true
}
