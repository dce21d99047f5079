package types

// Dimension names one axis of resume-to-job comparison.
type Dimension string

// Scoring dimensions.
const (
	DimensionSkills     Dimension = "skills"
	DimensionExperience Dimension = "experience"
	DimensionEducation  Dimension = "education"
	DimensionKeywords   Dimension = "keywords"
)

// Dimensions lists every dimension in reporting order.
var Dimensions = []Dimension{DimensionSkills, DimensionExperience, DimensionEducation, DimensionKeywords}

// ScoreItem is a single requirement compared against the resume.
type ScoreItem struct {
	Requirement string `json:"requirement"`
	Critical    bool   `json:"critical"`
	MatchedText string `json:"matched_text,omitempty"`
}

// DimensionResult is the score for one dimension.
type DimensionResult struct {
	Applicable bool        `json:"applicable"`
	Score      int         `json:"score"`
	Matched    []ScoreItem `json:"matched"`
	Missing    []ScoreItem `json:"missing"`
}

// MissingKeywords summarizes the gap between the resume and the job.
type MissingKeywords struct {
	RoleFamily *string  `json:"role_family"`
	MustHave   []string `json:"must_have"`
	NiceToHave []string `json:"nice_to_have"`
}

// FitScoreResult is the multi-dimension match between one resume and one job description.
type FitScoreResult struct {
	OverallScore    int                           `json:"overall_score"`
	Breakdown       map[Dimension]DimensionResult `json:"breakdown"`
	MissingKeywords MissingKeywords               `json:"missing_keywords"`
	Weights         map[Dimension]float64         `json:"weights"`
	Suggestions     []string                      `json:"suggestions"`
}

// FitRequest is the body of a single resume-fit call.
type FitRequest struct {
	ResumeText     string   `json:"resume_text" validate:"required"`
	JobDescription string   `json:"job_description" validate:"required"`
	RequiredSkills []string `json:"required_skills,omitempty"`
}

// Validate checks required fields.
func (r *FitRequest) Validate() error {
	return ValidateStruct(r)
}

// BatchFitJob is one job in a batch fit request.
type BatchFitJob struct {
	ID          string `json:"id" validate:"required"`
	Description string `json:"description" validate:"required"`
}

// BatchFitRequest scores one resume against many job descriptions.
type BatchFitRequest struct {
	ResumeText string        `json:"resume_text" validate:"required"`
	Jobs       []BatchFitJob `json:"jobs" validate:"required,min=1,max=50,dive"`
}

// Validate checks required fields.
func (r *BatchFitRequest) Validate() error {
	return ValidateStruct(r)
}

// BatchFitResult pairs a job identifier with its fit score.
type BatchFitResult struct {
	ID     string          `json:"id"`
	Result *FitScoreResult `json:"result"`
}
