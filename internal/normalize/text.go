package normalize

import (
	"html"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	multiSpace   = regexp.MustCompile(`[ \t\f\v\x{00a0}]+`)
	blankLines   = regexp.MustCompile(`\n{3,}`)
	looksLikeTag = regexp.MustCompile(`<\s*/?\s*[a-zA-Z][^>]*>`)
)

// blockTags are elements whose boundaries become line breaks when HTML is flattened.
var blockTags = "p, div, li, br, ul, ol, h1, h2, h3, h4, h5, h6, tr, section, article"

// CleanText flattens HTML fragments, decodes entities and normalizes
// whitespace while keeping line structure. A trailing ellipsis is kept so
// truncated snippets remain recognizable.
func CleanText(content string) string {
	if strings.TrimSpace(content) == "" {
		return ""
	}
	if looksLikeTag.MatchString(content) {
		content = StripHTML(content)
	} else {
		content = html.UnescapeString(content)
	}

	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")

	lines := strings.Split(content, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		cleaned = append(cleaned, cleanLine(line))
	}

	result := strings.Join(cleaned, "\n")
	result = blankLines.ReplaceAllString(result, "\n\n")
	return strings.TrimSpace(result)
}

func cleanLine(line string) string {
	trimmed := strings.TrimSpace(multiSpace.ReplaceAllString(line, " "))
	if trimmed == "" {
		return ""
	}
	if isBulletLine(trimmed) {
		return "- " + strings.TrimSpace(trimmed[bulletWidth(trimmed):])
	}
	return trimmed
}

func isBulletLine(line string) bool {
	return bulletWidth(line) > 0
}

func bulletWidth(line string) int {
	for _, p := range []string{"- ", "* ", "• ", "· "} {
		if strings.HasPrefix(line, p) {
			return len(p)
		}
	}
	return 0
}

// StripHTML parses an HTML fragment and returns its visible text with block
// elements separated by newlines.
func StripHTML(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return html.UnescapeString(looksLikeTag.ReplaceAllString(fragment, " "))
	}
	doc.Find("script, style, noscript").Remove()
	doc.Find(blockTags).Each(func(_ int, s *goquery.Selection) {
		if goquery.NodeName(s) == "li" {
			s.PrependHtml("• ")
		}
		s.AppendHtml("\n")
	})
	return doc.Text()
}

// CollapseWhitespace joins all whitespace runs into single spaces.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
