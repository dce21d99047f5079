package scrape

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mitchellh/mapstructure"
)

// jobPostingLD is the subset of schema.org/JobPosting used for enrichment.
type jobPostingLD struct {
	Type               any      `json:"@type"`
	Title              string   `json:"title"`
	Description        string   `json:"description"`
	DatePosted         string   `json:"datePosted"`
	EmploymentType     []string `json:"employmentType"`
	JobLocationType    any      `json:"jobLocationType"`
	HiringOrganization any      `json:"hiringOrganization"`
	JobLocation        any      `json:"jobLocation"`
	BaseSalary         any      `json:"baseSalary"`
}

type monetaryAmount struct {
	Currency string `json:"currency"`
	Value    any    `json:"value"`
}

type quantitativeValue struct {
	MinValue float64 `json:"minValue"`
	MaxValue float64 `json:"maxValue"`
	Value    float64 `json:"value"`
	UnitText string  `json:"unitText"`
}

type postalAddress struct {
	Locality string `json:"addressLocality"`
	Region   string `json:"addressRegion"`
	Country  any    `json:"addressCountry"`
}

// findJobPostings returns every JobPosting node in the page's JSON-LD
// scripts, including ones nested in arrays or @graph containers.
func findJobPostings(doc *goquery.Document) []jobPostingLD {
	var postings []jobPostingLD
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		var payload any
		if err := json.Unmarshal([]byte(strings.TrimSpace(s.Text())), &payload); err != nil {
			return
		}
		walkLD(payload, func(node map[string]any) {
			var p jobPostingLD
			if err := decodeLD(node, &p); err == nil {
				postings = append(postings, p)
			}
		})
	})
	return postings
}

func walkLD(v any, visit func(map[string]any)) {
	switch node := v.(type) {
	case []any:
		for _, item := range node {
			walkLD(item, visit)
		}
	case map[string]any:
		if isType(node["@type"], "JobPosting") {
			visit(node)
		}
		if graph, ok := node["@graph"]; ok {
			walkLD(graph, visit)
		}
	}
}

func isType(v any, want string) bool {
	switch t := v.(type) {
	case string:
		return strings.EqualFold(t, want)
	case []any:
		for _, item := range t {
			if isType(item, want) {
				return true
			}
		}
	}
	return false
}

func decodeLD(input any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(input); err != nil {
		return fmt.Errorf("decode JSON-LD: %w", err)
	}
	return nil
}

// organizationName reads hiringOrganization as either a name or an Organization node.
func organizationName(v any) string {
	switch org := v.(type) {
	case string:
		return strings.TrimSpace(org)
	case map[string]any:
		if name, ok := org["name"].(string); ok {
			return strings.TrimSpace(name)
		}
	}
	return ""
}

// firstAddress returns the first postal address in a jobLocation value,
// which may be a Place, a list of Places, or a bare address.
func firstAddress(v any) (postalAddress, bool) {
	switch loc := v.(type) {
	case []any:
		for _, item := range loc {
			if addr, ok := firstAddress(item); ok {
				return addr, true
			}
		}
	case map[string]any:
		target := any(loc)
		if nested, ok := loc["address"]; ok {
			target = nested
		}
		if s, ok := target.(string); ok {
			return postalAddress{Locality: s}, s != ""
		}
		var addr postalAddress
		if err := decodeLD(target, &addr); err != nil {
			return postalAddress{}, false
		}
		return addr, addr.Locality != "" || addr.Region != "" || countryName(addr.Country) != ""
	}
	return postalAddress{}, false
}

func countryName(v any) string {
	switch c := v.(type) {
	case string:
		return strings.TrimSpace(c)
	case map[string]any:
		if name, ok := c["name"].(string); ok {
			return strings.TrimSpace(name)
		}
	}
	return ""
}

// salaryRange reads a baseSalary MonetaryAmount. Hourly and monthly figures
// are left as-is; the normalizer annualizes them.
func salaryRange(v any) (lo, hi *float64, currency string) {
	node, ok := v.(map[string]any)
	if !ok {
		return nil, nil, ""
	}
	var amount monetaryAmount
	if err := decodeLD(node, &amount); err != nil {
		return nil, nil, ""
	}
	currency = strings.ToUpper(strings.TrimSpace(amount.Currency))

	var q quantitativeValue
	switch val := amount.Value.(type) {
	case map[string]any:
		if err := decodeLD(val, &q); err != nil {
			return nil, nil, currency
		}
	default:
		if err := decodeLD(map[string]any{"value": val}, &q); err != nil {
			return nil, nil, currency
		}
	}
	if q.MinValue == 0 && q.MaxValue == 0 && q.Value > 0 {
		q.MinValue, q.MaxValue = q.Value, q.Value
	}
	if q.MinValue > 0 {
		v := q.MinValue
		lo = &v
	}
	if q.MaxValue > 0 {
		v := q.MaxValue
		hi = &v
	}
	return lo, hi, currency
}
