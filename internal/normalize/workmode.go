package normalize

import (
	"regexp"
	"strings"

	"github.com/jonathan/job-matcher/internal/types"
)

var modeOrder = map[types.WorkMode]int{
	types.WorkModeRemote: 0,
	types.WorkModeHybrid: 1,
	types.WorkModeOnsite: 2,
}

var workModePatterns = []struct {
	mode types.WorkMode
	re   *regexp.Regexp
}{
	{types.WorkModeRemote, regexp.MustCompile(`(?i)\b(fully remote|remote|work from home|work-from-home|wfh|telecommute|distributed team)\b`)},
	{types.WorkModeHybrid, regexp.MustCompile(`(?i)\bhybrid\b`)},
	{types.WorkModeOnsite, regexp.MustCompile(`(?i)\b(on-site|onsite|on site|in office|in-office|in the office)\b`)},
}

// notRemote catches phrases that mention remote work only to rule it out.
var notRemote = regexp.MustCompile(`(?i)\b(not (a )?remote|no remote|non-remote)\b`)

// InferWorkModes scans free text for work-mode keywords. When nothing
// matches, onsite is assumed only if the listing names a concrete city.
func InferWorkModes(concreteCity bool, texts ...string) []types.WorkMode {
	joined := strings.Join(texts, "\n")
	var modes []types.WorkMode
	for _, p := range workModePatterns {
		if !p.re.MatchString(joined) {
			continue
		}
		if p.mode == types.WorkModeRemote && notRemote.MatchString(joined) && !strings.Contains(strings.ToLower(joined), "fully remote") {
			modes = append(modes, types.WorkModeOnsite)
			continue
		}
		modes = append(modes, p.mode)
	}
	if len(modes) == 0 && concreteCity {
		modes = append(modes, types.WorkModeOnsite)
	}
	return mergeModes(nil, modes)
}
