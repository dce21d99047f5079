// Package scrape recovers job details from posting pages when the provider
// payload is incomplete.
package scrape

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/job-matcher/internal/fetch"
	"github.com/jonathan/job-matcher/internal/normalize"
)

// DefaultMinWords is the smallest description accepted from a page.
const DefaultMinWords = 50

// Strategy names how a description was recovered.
type Strategy string

// Extraction strategies, tried in order.
const (
	StrategyJSONLD    Strategy = "json_ld"
	StrategyHeuristic Strategy = "heuristic"
	StrategyMainText  Strategy = "main_text"
	StrategyNone      Strategy = "none"
)

// HeuristicSelectors are the job-description containers used by common boards.
var HeuristicSelectors = []string{
	"#jobDescriptionText",
	".jobDescriptionText",
	"#jobDescription",
	".job-description",
	".jobs-description__content",
	"[data-testid='jobDescription']",
	"[itemprop='description']",
	"article",
}

// Extraction is what a page yielded.
type Extraction struct {
	Record   normalize.ScrapedRecord
	Strategy Strategy
}

// HasData reports whether anything beyond the URL was recovered.
func (e *Extraction) HasData() bool {
	r := e.Record
	return r.Description != "" || r.City != "" || r.Country != "" || r.Remote ||
		len(r.EmploymentType) > 0 || r.SalaryMin != nil || r.SalaryMax != nil
}

// Extract parses a detail page. JSON-LD JobPosting data is read first; when
// it yields no usable description the heuristic selectors and then the
// platform's main-text selectors are tried. Every description candidate must
// contain at least minWords words.
func Extract(pageURL, html string, minWords int) (*Extraction, error) {
	if minWords <= 0 {
		minWords = DefaultMinWords
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	ext := &Extraction{Record: normalize.ScrapedRecord{URL: pageURL}, Strategy: StrategyNone}

	// JSON-LD has to be read before noise removal strips script tags.
	for _, p := range findJobPostings(doc) {
		applyPosting(&ext.Record, p)
		if desc := cleanFragment(p.Description); meaningful(desc, minWords) {
			ext.Record.Description = desc
			ext.Strategy = StrategyJSONLD
			break
		}
	}
	if ext.Strategy != StrategyNone {
		return ext, nil
	}

	platform := fetch.DetectPlatform(pageURL)
	fetch.RemoveNoise(doc, fetch.PlatformNoiseSelectors(platform)...)

	for _, selector := range HeuristicSelectors {
		node := doc.Find(selector).First()
		if node.Length() == 0 {
			continue
		}
		if text := fetch.SelectionText(node); meaningful(text, minWords) {
			ext.Record.Description = text
			ext.Strategy = StrategyHeuristic
			return ext, nil
		}
	}

	for _, selector := range fetch.PlatformContentSelectors(platform) {
		node := doc.Find(selector).First()
		if node.Length() == 0 {
			continue
		}
		if text := fetch.SelectionText(node); meaningful(text, minWords) {
			ext.Record.Description = text
			ext.Strategy = StrategyMainText
			return ext, nil
		}
	}
	return ext, nil
}

func applyPosting(rec *normalize.ScrapedRecord, p jobPostingLD) {
	if rec.Title == "" {
		rec.Title = strings.TrimSpace(p.Title)
	}
	if rec.Company == "" {
		rec.Company = organizationName(p.HiringOrganization)
	}
	if rec.DatePosted == "" {
		rec.DatePosted = strings.TrimSpace(p.DatePosted)
	}
	if len(rec.EmploymentType) == 0 {
		rec.EmploymentType = p.EmploymentType
	}
	if isType(p.JobLocationType, "TELECOMMUTE") {
		rec.Remote = true
	}
	if rec.City == "" && rec.Country == "" {
		if addr, ok := firstAddress(p.JobLocation); ok {
			rec.City = strings.TrimSpace(addr.Locality)
			rec.Region = strings.TrimSpace(addr.Region)
			rec.Country = countryName(addr.Country)
		}
	}
	if rec.SalaryMin == nil && rec.SalaryMax == nil {
		rec.SalaryMin, rec.SalaryMax, rec.SalaryCurrency = salaryRange(p.BaseSalary)
	}
}

// cleanFragment flattens a description that may itself be HTML.
func cleanFragment(s string) string {
	return normalize.CleanText(s)
}

func meaningful(text string, minWords int) bool {
	return fetch.WordCount(text) >= minWords
}
