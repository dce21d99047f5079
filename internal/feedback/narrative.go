package feedback

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/jonathan/job-matcher/internal/types"
)

// Output limits for model-generated lists and text.
const (
	maxQuickFixes          = 3
	maxWeakSections        = 5
	maxPhrasingSuggestions = 5
	maxHeadlineRunes       = 140
	minEffortMinutes       = 5
	defaultEffortMinutes   = 15
)

// narrative is the model-owned part of a review after decoding. Each field
// is decoded on its own so one bad field does not discard the rest.
type narrative struct {
	SummaryHeadline     string
	OverallFeedback     string
	QuickFixes          []types.QuickFix
	WeakSections        []types.WeakSection
	PhrasingSuggestions []types.PhrasingSuggestion
}

type rawQuickFix struct {
	Title         string      `json:"title"`
	Description   string      `json:"description"`
	Impact        string      `json:"impact"`
	EffortMinutes flexMinutes `json:"effort_minutes"`
}

// flexMinutes accepts 10, 10.5, "10" and "10 minutes". Anything else decodes as 0.
type flexMinutes int

func (m *flexMinutes) UnmarshalJSON(data []byte) error {
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*m = flexMinutes(int(f + 0.5))
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		s = strings.TrimSpace(s)
		end := strings.IndexFunc(s, func(r rune) bool { return !unicode.IsDigit(r) })
		if end < 0 {
			end = len(s)
		}
		if n, err := strconv.Atoi(s[:end]); err == nil {
			*m = flexMinutes(n)
			return nil
		}
	}
	*m = 0
	return nil
}

// decodeNarrative parses a model reply. Only a reply that is not a JSON
// object is an error; damaged fields and items are dropped.
func decodeNarrative(raw string) (*narrative, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, fmt.Errorf("review is not a JSON object: %w", err)
	}

	n := &narrative{
		SummaryHeadline: decodeString(fields["summary_headline"]),
		OverallFeedback: decodeString(fields["overall_feedback"]),
	}
	for _, item := range decodeItems(fields["quick_fixes"]) {
		var q rawQuickFix
		if json.Unmarshal(item, &q) == nil {
			n.QuickFixes = append(n.QuickFixes, types.QuickFix{
				Title:         q.Title,
				Description:   q.Description,
				Impact:        q.Impact,
				EffortMinutes: int(q.EffortMinutes),
			})
		}
	}
	for _, item := range decodeItems(fields["weak_sections"]) {
		var w types.WeakSection
		if json.Unmarshal(item, &w) == nil {
			n.WeakSections = append(n.WeakSections, w)
		}
	}
	for _, item := range decodeItems(fields["phrasing_suggestions"]) {
		var p types.PhrasingSuggestion
		if json.Unmarshal(item, &p) == nil {
			n.PhrasingSuggestions = append(n.PhrasingSuggestions, p)
		}
	}
	return n, nil
}

func decodeString(raw json.RawMessage) string {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

func decodeItems(raw json.RawMessage) []json.RawMessage {
	var items []json.RawMessage
	if len(raw) == 0 || json.Unmarshal(raw, &items) != nil {
		return nil
	}
	return items
}

// applyTo repairs the narrative and copies it into result. The score and
// keyword fields of result are never touched.
func (n *narrative) applyTo(result *types.ReviewResult, hasJob bool) {
	result.SummaryHeadline = truncateRunes(n.SummaryHeadline, maxHeadlineRunes)
	result.OverallFeedback = n.OverallFeedback
	if result.OverallFeedback == "" {
		result.OverallFeedback = defaultFeedback(result.ATSScore, hasJob)
	}
	result.QuickFixes = repairQuickFixes(n.QuickFixes)
	result.WeakSections = repairWeakSections(n.WeakSections)
	result.PhrasingSuggestions = repairPhrasing(n.PhrasingSuggestions)
}

func repairQuickFixes(in []types.QuickFix) []types.QuickFix {
	out := make([]types.QuickFix, 0, maxQuickFixes)
	for _, q := range in {
		if len(out) == maxQuickFixes {
			break
		}
		q.Title = strings.TrimSpace(q.Title)
		q.Description = strings.TrimSpace(q.Description)
		if q.Title == "" || q.Description == "" {
			continue
		}
		q.Impact = normalizeImpact(q.Impact)
		q.EffortMinutes = normalizeEffort(q.EffortMinutes)
		out = append(out, q)
	}
	return out
}

func repairWeakSections(in []types.WeakSection) []types.WeakSection {
	out := make([]types.WeakSection, 0, maxWeakSections)
	for _, w := range in {
		if len(out) == maxWeakSections {
			break
		}
		w.Section = strings.TrimSpace(w.Section)
		w.Issue = strings.TrimSpace(w.Issue)
		w.Evidence = strings.TrimSpace(w.Evidence)
		if w.Section == "" || w.Issue == "" {
			continue
		}
		out = append(out, w)
	}
	return out
}

func repairPhrasing(in []types.PhrasingSuggestion) []types.PhrasingSuggestion {
	out := make([]types.PhrasingSuggestion, 0, maxPhrasingSuggestions)
	for _, p := range in {
		if len(out) == maxPhrasingSuggestions {
			break
		}
		p.Original = strings.TrimSpace(p.Original)
		p.Improved = strings.TrimSpace(p.Improved)
		p.Reason = strings.TrimSpace(p.Reason)
		if p.Original == "" || p.Improved == "" || strings.EqualFold(p.Original, p.Improved) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func normalizeImpact(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high", "critical", "major":
		return types.ImpactHigh
	case "low", "minor":
		return types.ImpactLow
	default:
		return types.ImpactMedium
	}
}

func normalizeEffort(minutes int) int {
	switch {
	case minutes <= 0:
		return defaultEffortMinutes
	case minutes < minEffortMinutes:
		return minEffortMinutes
	default:
		return minutes
	}
}

func truncateRunes(s string, limit int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:limit]))
}

// applyDefaults fills the narrative fields when the model could not be used.
func applyDefaults(result *types.ReviewResult, hasJob bool) {
	result.SummaryHeadline = ""
	result.OverallFeedback = defaultFeedback(result.ATSScore, hasJob)
	result.QuickFixes = []types.QuickFix{}
	result.WeakSections = []types.WeakSection{}
	result.PhrasingSuggestions = []types.PhrasingSuggestion{}
	result.NarrativeStatus = types.NarrativeDefaulted
}

func defaultFeedback(score int, hasJob bool) string {
	if !hasJob {
		switch {
		case score >= 75:
			return fmt.Sprintf("Your resume is well structured for applicant tracking systems (completeness %d/100). Tailor it to each job description you apply for.", score)
		case score >= 50:
			return fmt.Sprintf("Your resume covers the basics (completeness %d/100). Add missing sections and quantify your achievements to strengthen it.", score)
		default:
			return fmt.Sprintf("Your resume is missing key sections (completeness %d/100). Add contact details, a skills section and measurable results for each role.", score)
		}
	}
	switch {
	case score >= 75:
		return fmt.Sprintf("Your resume is a strong match for this role (score %d/100). Keep your most relevant achievements near the top.", score)
	case score >= 50:
		return fmt.Sprintf("Your resume partially matches this role (score %d/100). Covering the missing keywords would improve your chances.", score)
	default:
		return fmt.Sprintf("Your resume is a weak match for this role (score %d/100). Tailor your skills and experience to the job's requirements.", score)
	}
}
