// Package feedback produces resume reviews: a deterministic ATS score and
// keyword gap plus narrative critique from a language model.
package feedback

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/job-matcher/internal/fit"
	"github.com/jonathan/job-matcher/internal/llm"
	"github.com/jonathan/job-matcher/internal/logger"
	"github.com/jonathan/job-matcher/internal/prompts"
	"github.com/jonathan/job-matcher/internal/schemas"
	"github.com/jonathan/job-matcher/internal/types"
)

const source = "llm"

var errNoClient = errors.New("no language model configured")

// Generator builds ReviewResults. A nil client is allowed; every review is
// then returned with default narrative.
type Generator struct {
	client      llm.Client
	scorer      *fit.Scorer
	logger      *zap.Logger
	provider    string
	tier        llm.ModelTier
	timeout     time.Duration
	maxAttempts int
}

// Option configures a Generator.
type Option func(*Generator)

// WithTimeout sets the deadline applied to each model call.
func WithTimeout(d time.Duration) Option {
	return func(g *Generator) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithMaxAttempts sets how many model calls one review may make.
func WithMaxAttempts(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.maxAttempts = n
		}
	}
}

// WithTier selects the model tier used for reviews.
func WithTier(tier llm.ModelTier) Option {
	return func(g *Generator) { g.tier = tier }
}

// WithProvider names the model backend in log lines.
func WithProvider(provider llm.Provider) Option {
	return func(g *Generator) { g.provider = string(provider) }
}

// CheckPrompts verifies that every review prompt the generator renders is
// embedded in the binary.
func CheckPrompts() error {
	return prompts.Require(prompts.ReviewFile, prompts.KeyReview, prompts.KeyStrictJSONReminder, prompts.KeyNoJobDescription)
}

// New creates a Generator. A nil scorer gets a default one.
func New(client llm.Client, scorer *fit.Scorer, log *zap.Logger, opts ...Option) *Generator {
	if scorer == nil {
		scorer = fit.New(log)
	}
	g := &Generator{
		client:      client,
		scorer:      scorer,
		logger:      logger.Component(log, "feedback"),
		tier:        llm.TierStandard,
		timeout:     llm.DefaultTimeout,
		maxAttempts: llm.DefaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(g)
	}
	if client != nil {
		g.logger = g.logger.With(logger.LLMFields(g.provider, client.GetModel(g.tier))...)
	}
	return g
}

// Review scores profile against jobDescription and asks the model for
// narrative feedback. Model failures never fail the review; the narrative
// falls back to defaults. The only error is a canceled ctx.
func (g *Generator) Review(ctx context.Context, profile *types.ResumeProfile, jobDescription string) (*types.ReviewResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	jobDescription = strings.TrimSpace(jobDescription)

	result := &types.ReviewResult{
		QuickFixes:          []types.QuickFix{},
		WeakSections:        []types.WeakSection{},
		PhrasingSuggestions: []types.PhrasingSuggestion{},
		ResumeSnapshot:      profile.Snapshot(),
	}
	if jobDescription != "" {
		score := g.scorer.Score(profile, jobDescription, nil)
		result.Fit = score
		result.ATSScore = score.OverallScore
		result.MissingKeywords = score.MissingKeywords
	} else {
		result.ATSScore = Completeness(profile)
		result.MissingKeywords = resumeOnlyKeywords(profile)
	}

	n, err := g.narrative(ctx, profile, jobDescription, result)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		g.logger.Warn("narrative feedback unavailable, using defaults",
			zap.Int("ats_score", result.ATSScore),
			zap.Error(err))
		applyDefaults(result, jobDescription != "")
		return result, nil
	}

	n.applyTo(result, jobDescription != "")
	result.NarrativeStatus = types.NarrativeGenerated
	return result, nil
}

// narrative runs up to maxAttempts model calls. A reply that decodes but
// fails the schema is kept and used if no later attempt does better.
func (g *Generator) narrative(ctx context.Context, profile *types.ResumeProfile, jobDescription string, result *types.ReviewResult) (*narrative, error) {
	if g.client == nil {
		return nil, errNoClient
	}
	prompt, err := buildPrompt(profile, jobDescription, result)
	if err != nil {
		return nil, err
	}
	reminder, err := prompts.Get(prompts.ReviewFile, prompts.KeyStrictJSONReminder)
	if err != nil {
		return nil, err
	}

	var partial *narrative
	var lastErr error
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		p := prompt
		if attempt > 1 {
			p = prompt + "\n\n" + reminder
		}

		start := time.Now()
		n, err := g.attempt(ctx, p)
		if err == nil {
			g.logger.Debug("narrative generated",
				zap.Int("attempt", attempt),
				zap.Duration("elapsed", time.Since(start)))
			return n, nil
		}
		lastErr = err
		if n != nil {
			partial = n
		}
		g.logger.Warn("narrative attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", g.maxAttempts),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var unavailable *types.SourceUnavailableError
		if errors.As(err, &unavailable) && unavailable.Kind == types.FailureRejected {
			break
		}
	}

	if partial != nil {
		g.logger.Info("using partially valid narrative", zap.Error(lastErr))
		return partial, nil
	}
	return nil, lastErr
}

// attempt makes one model call under its own deadline. A schema violation
// returns the decoded narrative together with the error.
func (g *Generator) attempt(ctx context.Context, prompt string) (*narrative, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	raw, err := g.client.GenerateJSON(callCtx, prompt, g.tier)
	if err != nil {
		return nil, &types.SourceUnavailableError{Source: source, Kind: llm.Classify(err), Cause: err}
	}
	raw = llm.CleanJSONBlock(llm.StripThinking(raw))

	n, err := decodeNarrative(raw)
	if err != nil {
		return nil, &types.SourceUnavailableError{Source: source, Kind: types.FailureMalformed, Cause: err}
	}
	if err := schemas.Validate(schemas.Review, raw); err != nil {
		return n, &types.MalformedUpstreamError{Source: source, Reason: "review does not match schema", Cause: err}
	}
	return n, nil
}
