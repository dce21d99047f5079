package resume

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jonathan/job-matcher/internal/types"
)

const (
	monthPattern = `(?:jan|feb|mar|apr|may|jun|jul|aug|sep|sept|oct|nov|dec)[a-z]*\.?`
	datePattern  = `(?:` + monthPattern + `\s+(?:19|20)\d{2}|\d{1,2}/(?:19|20)\d{2}|(?:19|20)\d{2})`
)

var (
	dateRangeRe = regexp.MustCompile(`(?i)\(?\s*(` + datePattern + `)\s*(?:-|–|—|to|until)\s*(` + datePattern + `|present|current|now|today)\s*\)?`)
	dateRe      = regexp.MustCompile(`(?i)^(?:(` + monthPattern + `)\s+|(\d{1,2})/)?((?:19|20)\d{2})$`)
)

var monthIndex = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March, "apr": time.April,
	"may": time.May, "jun": time.June, "jul": time.July, "aug": time.August,
	"sep": time.September, "oct": time.October, "nov": time.November, "dec": time.December,
}

// roleWords identify the role half of "Role, Company" style headers.
var roleWords = []string{
	"engineer", "developer", "manager", "analyst", "designer", "intern", "consultant",
	"lead", "director", "specialist", "scientist", "architect", "administrator",
	"coordinator", "nurse", "accountant", "officer", "associate", "assistant",
	"representative", "executive", "programmer", "technician", "head", "founder",
	"president", "vp", "cto", "ceo", "owner", "researcher", "teacher", "writer",
}

// parseExperience reads work entries from the experience section. Header
// lines open an entry, bullet lines become its responsibilities.
func parseExperience(lines []string, now time.Time) []types.WorkEntry {
	entries := []types.WorkEntry{}
	var cur *types.WorkEntry
	open := func() *types.WorkEntry {
		entries = append(entries, types.WorkEntry{Responsibilities: []string{}})
		return &entries[len(entries)-1]
	}

	for _, line := range lines {
		if isBullet(line) {
			if cur == nil {
				cur = open()
			}
			if text := stripBullet(line); text != "" {
				cur.Responsibilities = append(cur.Responsibilities, text)
			}
			continue
		}

		rest, d := cutDateRange(line, now)
		duration := d.text
		role, company := splitRoleCompany(rest)

		switch {
		case rest == "" && duration != "":
			// A line holding only the dates belongs to the entry above it.
			if cur == nil || cur.Duration != "" || len(cur.Responsibilities) > 0 {
				cur = open()
			}
			d.apply(cur)
			continue
		case canExtend(cur, company, duration):
			// "Senior Engineer" on one line, "Acme Corp" on the next.
			fillHeader(cur, role)
			if duration != "" {
				d.apply(cur)
			}
			continue
		case cur != nil && len(cur.Responsibilities) > 0 && company == "" && duration == "" && len(strings.Fields(rest)) > 12:
			// Long prose under a role reads as a responsibility.
			cur.Responsibilities = append(cur.Responsibilities, rest)
			continue
		}

		cur = open()
		cur.Role, cur.Company = role, company
		d.apply(cur)
	}

	out := entries[:0]
	for _, e := range entries {
		if e.Role != "" || e.Company != "" || e.Duration != "" {
			out = append(out, e)
		}
	}
	return out
}

// canExtend reports whether a single-part header line continues the
// current entry instead of opening a new one.
func canExtend(cur *types.WorkEntry, company, duration string) bool {
	if cur == nil || len(cur.Responsibilities) > 0 || company != "" {
		return false
	}
	if cur.Role != "" && cur.Company != "" {
		return false
	}
	return duration == "" || cur.Duration == ""
}

// fillHeader places text in the empty half of the entry's role and company,
// swapping when the text names a role and the current role does not.
func fillHeader(cur *types.WorkEntry, text string) {
	switch {
	case cur.Role == "":
		cur.Role = text
	case hasRoleWord(text) && !hasRoleWord(cur.Role):
		cur.Company, cur.Role = cur.Role, text
	default:
		cur.Company = text
	}
}

// dateRange is a role's dates as written plus the parsed span.
type dateRange struct {
	text   string
	start  int
	months int
}

func (d dateRange) apply(e *types.WorkEntry) {
	e.Duration, e.StartMonth, e.Months = d.text, d.start, d.months
}

// cutDateRange removes a date range from line and returns the remaining
// text and the range.
func cutDateRange(line string, now time.Time) (string, dateRange) {
	loc := dateRangeRe.FindStringSubmatchIndex(line)
	if loc == nil {
		return cleanHeader(line), dateRange{}
	}
	start := line[loc[2]:loc[3]]
	end := line[loc[4]:loc[5]]
	d := dateRange{text: strings.TrimSpace(line[loc[2]:loc[5]])}
	d.start, d.months = monthsBetween(start, end, now)
	rest := cleanHeader(line[:loc[0]] + " " + line[loc[1]:])
	return rest, d
}

// cleanHeader trims separators left behind after removing dates.
func cleanHeader(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return strings.Trim(s, " |,-–—()")
}

// monthsBetween returns the month index of start (see types.MonthIndex) and
// the months from start to end. Year-only dates count from January; when
// both ends name a month both months are included.
func monthsBetween(start, end string, now time.Time) (int, int) {
	sy, sm, sHasMonth, ok := parseDate(start)
	if !ok {
		return 0, 0
	}
	var ey int
	var em time.Month
	var eHasMonth bool
	switch strings.ToLower(end) {
	case "present", "current", "now", "today":
		ey, em, eHasMonth = now.Year(), now.Month(), true
	default:
		if ey, em, eHasMonth, ok = parseDate(end); !ok {
			return 0, 0
		}
	}

	months := (ey-sy)*12 + int(em-sm)
	if sHasMonth && eHasMonth {
		months++
	}
	if months < 0 {
		return 0, 0
	}
	return types.MonthIndex(sy, sm), months
}

func parseDate(s string) (year int, month time.Month, hasMonth bool, ok bool) {
	m := dateRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, 0, false, false
	}
	year, _ = strconv.Atoi(m[3])
	month = time.January
	switch {
	case m[1] != "":
		key := strings.ToLower(m[1])
		if len(key) > 3 {
			key = key[:3]
		}
		month, hasMonth = monthIndex[key], true
	case m[2] != "":
		n, _ := strconv.Atoi(m[2])
		if n >= 1 && n <= 12 {
			month, hasMonth = time.Month(n), true
		}
	}
	return year, month, hasMonth, true
}

// splitRoleCompany recognizes "Role at Company", "Role | Company",
// "Role, Company" and "Company — Role". When neither half carries a role
// word the separator's usual order wins.
func splitRoleCompany(s string) (role, company string) {
	if s == "" {
		return "", ""
	}
	if r, c, ok := cutFold(s, " at "); ok {
		return r, c
	}
	if r, c, ok := cutFold(s, " @ "); ok {
		return r, c
	}
	if strings.Contains(s, "|") {
		var parts []string
		for _, p := range strings.Split(s, "|") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if len(parts) >= 2 {
			return orderByRole(parts[0], parts[1], true)
		}
		if len(parts) == 1 {
			s = parts[0]
		}
	}
	for _, sep := range []string{" — ", " – ", " - "} {
		if a, b, ok := strings.Cut(s, sep); ok {
			return orderByRole(strings.TrimSpace(a), strings.TrimSpace(b), false)
		}
	}
	if a, b, ok := strings.Cut(s, ", "); ok {
		return orderByRole(strings.TrimSpace(a), strings.TrimSpace(b), true)
	}
	return s, ""
}

// orderByRole returns (role, company) from two halves. roleFirst is the
// order assumed when the halves do not say which is which.
func orderByRole(a, b string, roleFirst bool) (string, string) {
	aRole, bRole := hasRoleWord(a), hasRoleWord(b)
	switch {
	case aRole && !bRole:
		return a, b
	case bRole && !aRole:
		return b, a
	case roleFirst:
		return a, b
	default:
		return b, a
	}
}

func hasRoleWord(s string) bool {
	for _, w := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return r == ' ' || r == ',' || r == '/' || r == '-' || r == '(' || r == ')'
	}) {
		for _, rw := range roleWords {
			if w == rw || w == rw+"s" {
				return true
			}
		}
	}
	return false
}

func cutFold(s, sep string) (string, string, bool) {
	i := strings.Index(strings.ToLower(s), sep)
	if i < 0 {
		return "", "", false
	}
	before := strings.TrimSpace(s[:i])
	after := strings.TrimSpace(s[i+len(sep):])
	if before == "" || after == "" {
		return "", "", false
	}
	return before, after, true
}
