package skills

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Match is one occurrence of a vocabulary skill in a text.
type Match struct {
	Skill string
	Start int
	End   int
}

// FindInText returns every vocabulary skill occurrence in text, ordered by
// position. Matches respect word boundaries, so "React" does not match inside
// "reactive" and "C" never matches the start of "C++". Overlapping forms
// resolve to the longest one.
func FindInText(text string) []Match {
	if text == "" {
		return nil
	}
	lower := asciiLower(text)
	claimed := make([]bool, len(text))

	var out []Match
	for _, t := range terms {
		haystack, needle := lower, asciiLower(t.text)
		if t.exact {
			haystack, needle = text, t.text
		}
		for _, start := range occurrences(haystack, needle) {
			end := start + len(needle)
			if overlaps(claimed, start, end) {
				continue
			}
			for i := start; i < end; i++ {
				claimed[i] = true
			}
			out = append(out, Match{Skill: t.canonical, Start: start, End: end})
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Start < out[b].Start })
	return out
}

// Skills returns the distinct vocabulary skills in text in order of first
// appearance.
func Skills(text string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, m := range FindInText(text) {
		if _, ok := seen[m.Skill]; ok {
			continue
		}
		seen[m.Skill] = struct{}{}
		out = append(out, m.Skill)
	}
	return out
}

// RoleFamily infers the dominant role family of a text from the families of
// the skills it names and from role words such as "nurse" or "analyst".
// It returns "" when nothing points to a family.
func RoleFamily(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	scores := make(map[string]int, len(Families))
	for _, m := range FindInText(text) {
		if f := FamilyOf(m.Skill); f != "" {
			scores[f] += 2
		}
	}
	lower := asciiLower(text)
	for family, cues := range cueTerms {
		for _, c := range cues {
			scores[family] += len(occurrences(lower, c.text))
		}
	}

	best, bestScore := "", 0
	for _, f := range Families {
		if scores[f] > bestScore {
			best, bestScore = f, scores[f]
		}
	}
	return best
}

// ContainsTerm reports whether text contains term as a whole word or
// phrase, ignoring ASCII case.
func ContainsTerm(text, term string) bool {
	return len(occurrences(asciiLower(text), asciiLower(term))) > 0
}

// occurrences returns the start offsets of needle in haystack that sit on
// word boundaries.
func occurrences(haystack, needle string) []int {
	if needle == "" {
		return nil
	}
	var out []int
	for from := 0; from <= len(haystack)-len(needle); {
		i := strings.Index(haystack[from:], needle)
		if i < 0 {
			break
		}
		start := from + i
		end := start + len(needle)
		if boundaryBefore(haystack, start) && boundaryAfter(haystack, end) {
			out = append(out, start)
		}
		from = start + 1
	}
	return out
}

func boundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return !isWordRune(r)
}

func boundaryAfter(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	// "C" followed by "++" or "#" is a different language.
	return !isWordRune(r) && r != '+' && r != '#'
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

func overlaps(claimed []bool, start, end int) bool {
	for i := start; i < end; i++ {
		if claimed[i] {
			return true
		}
	}
	return false
}

// asciiLower lower-cases ASCII letters only, so byte offsets in the result
// line up with the input.
func asciiLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
