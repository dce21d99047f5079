package types

// Impact levels allowed for a quick fix.
const (
	ImpactHigh   = "High"
	ImpactMedium = "Medium"
	ImpactLow    = "Low"
)

// Narrative status values for a review.
const (
	NarrativeGenerated = "generated"
	NarrativeDefaulted = "defaulted"
)

// QuickFix is a small, high-leverage resume change.
type QuickFix struct {
	Title         string `json:"title"`
	Description   string `json:"description"`
	Impact        string `json:"impact"`
	EffortMinutes int    `json:"effort_minutes"`
}

// WeakSection flags a resume section that undersells the candidate.
type WeakSection struct {
	Section  string `json:"section"`
	Issue    string `json:"issue"`
	Evidence string `json:"evidence,omitempty"`
}

// PhrasingSuggestion rewrites one resume phrase.
type PhrasingSuggestion struct {
	Original string `json:"original"`
	Improved string `json:"improved"`
	Reason   string `json:"reason,omitempty"`
}

// ReviewResult wraps the deterministic fit score with narrative feedback.
type ReviewResult struct {
	ATSScore            int                  `json:"ats_score"`
	SummaryHeadline     string               `json:"summary_headline"`
	OverallFeedback     string               `json:"overall_feedback"`
	QuickFixes          []QuickFix           `json:"quick_fixes"`
	WeakSections        []WeakSection        `json:"weak_sections"`
	PhrasingSuggestions []PhrasingSuggestion `json:"phrasing_suggestions"`
	MissingKeywords     MissingKeywords      `json:"missing_keywords"`
	ResumeSnapshot      ResumeSnapshot       `json:"resume_snapshot"`
	Fit                 *FitScoreResult      `json:"fit,omitempty"`
	NarrativeStatus     string               `json:"narrative_status"`
}

// ReviewRequest is the body of a review call. The job description is optional.
type ReviewRequest struct {
	ResumeText     string `json:"resume_text" validate:"required"`
	JobDescription string `json:"job_description,omitempty"`
}

// Validate checks required fields.
func (r *ReviewRequest) Validate() error {
	return ValidateStruct(r)
}

// ParseRequest is the body of a resume parse call.
type ParseRequest struct {
	ResumeText string `json:"resume_text" validate:"required"`
}

// Validate checks required fields.
func (r *ParseRequest) Validate() error {
	return ValidateStruct(r)
}
