// Package observability provides formatted terminal output for the CLI commands.
package observability

import (
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jonathan/job-matcher/internal/freshness"
	"github.com/jonathan/job-matcher/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 72
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for CLI commands
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %s │\n", pad(title, boxWidth-4))
	fmt.Fprintf(p.out, "├%s┤\n", border)
	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %s │\n", pad(clip(line, boxWidth-4), boxWidth-4))
	}
	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// clip shortens s to width runes, marking the cut with "...".
func clip(s string, width int) string {
	if utf8.RuneCountInString(s) <= width {
		return s
	}
	r := []rune(s)
	return string(r[:width-3]) + "..."
}

// pad right-pads s with spaces to width runes.
func pad(s string, width int) string {
	if n := utf8.RuneCountInString(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}

func moreLine(sb *strings.Builder, total, shown int, noun string) {
	if total > shown {
		fmt.Fprintf(sb, "  ... and %d more %s\n", total-shown, noun)
	}
}

// PrintSearchPage outputs one page of search results.
func (p *Printer) PrintSearchPage(page types.SearchPage) {
	var sb strings.Builder
	if page.Unavailable {
		sb.WriteString("Job source unavailable, try again later.\n")
	}
	fmt.Fprintf(&sb, "Page %d (size %d), %d total matches\n", page.Page, page.PageSize, page.Count)
	if page.Rejected > 0 {
		fmt.Fprintf(&sb, "Dropped %d malformed listings\n", page.Rejected)
	}
	if len(page.Items) > 0 {
		sb.WriteString("\n")
	}
	for i, job := range page.Items {
		fmt.Fprintf(&sb, "%d. %s, %s\n", i+1, job.Title, job.Company)
		details := []string{}
		if loc := job.PrimaryLocation(); loc != "" {
			details = append(details, loc)
		}
		for _, mode := range job.WorkModes {
			details = append(details, string(mode))
		}
		if s := formatSalary(job.Salary); s != "" {
			details = append(details, s)
		}
		if len(details) > 0 {
			fmt.Fprintf(&sb, "   %s\n", strings.Join(details, " | "))
		}
		fmt.Fprintf(&sb, "   id %s\n", job.ID)
	}
	p.printBox("SEARCH RESULTS", strings.TrimSuffix(sb.String(), "\n"))
}

func formatSalary(s *types.Salary) string {
	if s == nil || s.IsEmpty() {
		return ""
	}
	cur := s.Currency
	switch {
	case s.Min != nil && s.Max != nil && *s.Min != *s.Max:
		return strings.TrimSpace(fmt.Sprintf("%s %.0f-%.0f", cur, *s.Min, *s.Max))
	case s.Min != nil:
		return strings.TrimSpace(fmt.Sprintf("%s %.0f", cur, *s.Min))
	default:
		return strings.TrimSpace(fmt.Sprintf("%s up to %.0f", cur, *s.Max))
	}
}

// PrintFitScore outputs the overall score and the per-dimension breakdown.
func (p *Printer) PrintFitScore(result *types.FitScoreResult) {
	if result == nil {
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Overall: %d/100\n\n", result.OverallScore)
	for _, dim := range types.Dimensions {
		d, ok := result.Breakdown[dim]
		if !ok || !d.Applicable {
			fmt.Fprintf(&sb, "%-11s n/a\n", dim)
			continue
		}
		fmt.Fprintf(&sb, "%-11s %3d  (weight %.2f)\n", dim, d.Score, result.Weights[dim])
		if len(d.Missing) > 0 {
			names := make([]string, 0, len(d.Missing))
			for _, item := range d.Missing {
				names = append(names, item.Requirement)
			}
			fmt.Fprintf(&sb, "            missing: %s\n", strings.Join(names, ", "))
		}
	}

	mk := result.MissingKeywords
	if len(mk.MustHave) > 0 || len(mk.NiceToHave) > 0 {
		sb.WriteString("\n")
	}
	if len(mk.MustHave) > 0 {
		fmt.Fprintf(&sb, "Must have:    %s\n", strings.Join(mk.MustHave, ", "))
	}
	if len(mk.NiceToHave) > 0 {
		fmt.Fprintf(&sb, "Nice to have: %s\n", strings.Join(mk.NiceToHave, ", "))
	}

	if len(result.Suggestions) > 0 {
		sb.WriteString("\nSuggestions:\n")
		count := min(len(result.Suggestions), maxItemsToShow)
		for _, s := range result.Suggestions[:count] {
			fmt.Fprintf(&sb, "  • %s\n", s)
		}
		moreLine(&sb, len(result.Suggestions), count, "suggestions")
	}

	p.printBox("RESUME FIT", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintReview outputs the narrative review with its quick fixes.
func (p *Printer) PrintReview(result *types.ReviewResult) {
	if result == nil {
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "ATS score: %d/100\n", result.ATSScore)
	if result.SummaryHeadline != "" {
		fmt.Fprintf(&sb, "%s\n", result.SummaryHeadline)
	}
	if result.NarrativeStatus == types.NarrativeDefaulted {
		sb.WriteString("(narrative feedback unavailable, showing defaults)\n")
	}
	fmt.Fprintf(&sb, "\n%s\n", result.OverallFeedback)

	if len(result.QuickFixes) > 0 {
		sb.WriteString("\nQuick fixes:\n")
		for _, fix := range result.QuickFixes {
			fmt.Fprintf(&sb, "  • [%s, %d min] %s\n", fix.Impact, fix.EffortMinutes, fix.Title)
		}
	}

	if len(result.WeakSections) > 0 {
		sb.WriteString("\nWeak sections:\n")
		count := min(len(result.WeakSections), maxItemsToShow)
		for _, ws := range result.WeakSections[:count] {
			fmt.Fprintf(&sb, "  • %s: %s\n", ws.Section, ws.Issue)
		}
		moreLine(&sb, len(result.WeakSections), count, "sections")
	}

	if len(result.PhrasingSuggestions) > 0 {
		sb.WriteString("\nPhrasing:\n")
		count := min(len(result.PhrasingSuggestions), 3)
		for _, ps := range result.PhrasingSuggestions[:count] {
			fmt.Fprintf(&sb, "  - %s\n", ps.Original)
			fmt.Fprintf(&sb, "  + %s\n", ps.Improved)
		}
		moreLine(&sb, len(result.PhrasingSuggestions), count, "rewrites")
	}

	p.printBox("RESUME REVIEW", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintCycleReport outputs the counts from one freshness monitor cycle.
func (p *Printer) PrintCycleReport(report freshness.CycleReport) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Started:     %s\n", report.StartedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&sb, "Duration:    %s\n", report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond))
	fmt.Fprintf(&sb, "Checked:     %d\n", report.Checked)
	fmt.Fprintf(&sb, "Confirmed:   %d\n", report.Confirmed)
	fmt.Fprintf(&sb, "Missed:      %d\n", report.Missed)
	fmt.Fprintf(&sb, "Superseded:  %d\n", report.Superseded)
	fmt.Fprintf(&sb, "Transitions: %d\n", report.Transitions)
	fmt.Fprintf(&sb, "Purged:      %d\n", report.Purged)
	fmt.Fprintf(&sb, "Errors:      %d", report.Errors)
	p.printBox("FRESHNESS CYCLE", sb.String())
}
