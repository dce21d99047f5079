package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/jonathan/job-matcher/internal/observability"
)

var (
	fitResumeFile string
	fitJobFile    string
	fitSkills     []string
	fitJSON       bool
)

var fitCmd = &cobra.Command{
	Use:   "fit",
	Short: "Score a resume against a job description",
	Long: `Parse a resume (PDF, DOCX, RTF or text) and score it against a job description
across skills, experience, education and seniority. No language model is called.`,
	RunE: runFit,
}

func init() {
	fitCmd.Flags().StringVarP(&fitResumeFile, "resume", "r", "", "Path to the resume file (required)")
	fitCmd.Flags().StringVarP(&fitJobFile, "job", "j", "", "Path to the job description text, or - for stdin (required)")
	fitCmd.Flags().StringSliceVar(&fitSkills, "skills", nil, "Required skills to score in addition to those found in the description")
	fitCmd.Flags().BoolVar(&fitJSON, "json", false, "Print the result as JSON")
	_ = fitCmd.MarkFlagRequired("resume")
	_ = fitCmd.MarkFlagRequired("job")
	rootCmd.AddCommand(fitCmd)
}

func runFit(cmd *cobra.Command, _ []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	resumeText, err := readResume(cmd, fitResumeFile)
	if err != nil {
		return err
	}
	jobText, err := readText(cmd, fitJobFile)
	if err != nil {
		return err
	}
	if jobText == "" {
		return errors.New("job description is empty")
	}

	result := a.scorer.Score(a.parser.Parse(resumeText), jobText, fitSkills)
	if fitJSON {
		return writeJSON(cmd.OutOrStdout(), result)
	}
	observability.NewPrinter(cmd.OutOrStdout()).PrintFitScore(result)
	return nil
}
