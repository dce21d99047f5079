package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/job-matcher/internal/observability"
)

var (
	reviewResumeFile string
	reviewJobFile    string
	reviewJSON       bool
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Review a resume with narrative feedback",
	Long: `Parse a resume and produce an ATS score, quick fixes, weak sections and phrasing
suggestions. With --job the review is tailored to that description. When no model is
configured or the model fails, the scores are kept and default feedback is shown.`,
	RunE: runReview,
}

func init() {
	reviewCmd.Flags().StringVarP(&reviewResumeFile, "resume", "r", "", "Path to the resume file (required)")
	reviewCmd.Flags().StringVarP(&reviewJobFile, "job", "j", "", "Path to a job description text, or - for stdin")
	reviewCmd.Flags().BoolVar(&reviewJSON, "json", false, "Print the result as JSON")
	_ = reviewCmd.MarkFlagRequired("resume")
	rootCmd.AddCommand(reviewCmd)
}

func runReview(cmd *cobra.Command, _ []string) error {
	ctx := commandContext(cmd)
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	resumeText, err := readResume(cmd, reviewResumeFile)
	if err != nil {
		return err
	}
	var jobText string
	if reviewJobFile != "" {
		if jobText, err = readText(cmd, reviewJobFile); err != nil {
			return err
		}
	}
	if err := a.withReviewer(ctx); err != nil {
		return err
	}

	result, err := a.reviewer.Review(ctx, a.parser.Parse(resumeText), jobText)
	if err != nil {
		return fmt.Errorf("review failed: %w", err)
	}
	if reviewJSON {
		return writeJSON(cmd.OutOrStdout(), result)
	}
	observability.NewPrinter(cmd.OutOrStdout()).PrintReview(result)
	return nil
}
