// Package fit scores a parsed resume against a job description across the
// skills, experience, education and keyword dimensions.
package fit

import (
	"context"
	"math"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/job-matcher/internal/logger"
	"github.com/jonathan/job-matcher/internal/skills"
	"github.com/jonathan/job-matcher/internal/types"
)

// Default weights for scoring dimensions
const (
	skillsWeight     = 0.4
	experienceWeight = 0.25
	educationWeight  = 0.15
	keywordsWeight   = 0.2
)

// batchConcurrency bounds the number of descriptions scored at once.
const batchConcurrency = 8

// DefaultWeights returns the base dimension weights before renormalization.
func DefaultWeights() map[types.Dimension]float64 {
	return map[types.Dimension]float64{
		types.DimensionSkills:     skillsWeight,
		types.DimensionExperience: experienceWeight,
		types.DimensionEducation:  educationWeight,
		types.DimensionKeywords:   keywordsWeight,
	}
}

// Scorer computes FitScoreResults. It holds no mutable state and is safe
// for concurrent use.
type Scorer struct {
	logger  *zap.Logger
	weights map[types.Dimension]float64
}

// New creates a Scorer with the default weights.
func New(log *zap.Logger) *Scorer {
	return &Scorer{
		logger:  logger.Component(log, "fit"),
		weights: DefaultWeights(),
	}
}

// Score compares profile against a job description. requiredSkills is an
// optional explicit list merged into the skills extracted from the text.
func (s *Scorer) Score(profile *types.ResumeProfile, description string, requiredSkills []string) *types.FitScoreResult {
	if profile == nil {
		profile = &types.ResumeProfile{}
	}

	reqs := skills.ExtractRequirements(description, requiredSkills)
	skillsResult := scoreSkills(profile, reqs)

	breakdown := map[types.Dimension]types.DimensionResult{
		types.DimensionSkills:     skillsResult,
		types.DimensionExperience: scoreExperience(profile, description),
		types.DimensionEducation:  scoreEducation(profile, description),
		types.DimensionKeywords:   scoreKeywords(profile, description, reqs),
	}

	result := &types.FitScoreResult{
		OverallScore:    combine(breakdown, s.weights),
		Breakdown:       breakdown,
		MissingKeywords: missingKeywords(description, skillsResult),
		Weights:         s.weights,
	}
	result.Suggestions = suggestions(breakdown)

	s.logger.Debug("fit scored",
		zap.Int("overall_score", result.OverallScore),
		zap.Int("requirements", len(reqs)),
		zap.Int("must_have_missing", len(result.MissingKeywords.MustHave)),
	)
	return result
}

// ScoreMany scores profile against several job descriptions concurrently.
// Results keep the order of jobs.
func (s *Scorer) ScoreMany(ctx context.Context, profile *types.ResumeProfile, jobs []types.BatchFitJob) ([]types.BatchFitResult, error) {
	results := make([]types.BatchFitResult, len(jobs))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(batchConcurrency)
	for i, job := range jobs {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			results[i] = types.BatchFitResult{
				ID:     job.ID,
				Result: s.Score(profile, job.Description, nil),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// combine is the weighted mean of the applicable dimensions, with weights
// renormalized over that subset. It is 0 when no dimension applies.
func combine(breakdown map[types.Dimension]types.DimensionResult, weights map[types.Dimension]float64) int {
	activeWeight := 0.0
	weighted := 0.0
	for _, d := range types.Dimensions {
		r, ok := breakdown[d]
		if !ok || !r.Applicable {
			continue
		}
		w := weights[d]
		activeWeight += w
		weighted += w * float64(r.Score)
	}
	if activeWeight == 0 {
		return 0
	}
	return clampScore(int(math.Round(weighted / activeWeight)))
}

// missingKeywords splits the unmatched skills into must-have and
// nice-to-have lists and adds the role family hint.
func missingKeywords(description string, skillsResult types.DimensionResult) types.MissingKeywords {
	mk := types.MissingKeywords{MustHave: []string{}, NiceToHave: []string{}}
	for _, item := range skillsResult.Missing {
		if item.Critical {
			mk.MustHave = append(mk.MustHave, item.Requirement)
		} else {
			mk.NiceToHave = append(mk.NiceToHave, item.Requirement)
		}
	}
	if family := skills.RoleFamily(description); family != "" {
		mk.RoleFamily = &family
	}
	return mk
}

func clampScore(v int) int {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}

func percent(part, total float64) int {
	if total <= 0 {
		return 0
	}
	return clampScore(int(math.Round(100 * part / total)))
}
