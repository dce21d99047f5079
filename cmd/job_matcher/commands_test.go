package main

import (
	"encoding/json"
	"os/exec"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/job-matcher/internal/types"
)

const testResume = `Jane Doe
jane.doe@example.com | +1 (512) 555-0134 | linkedin.com/in/janedoe

Summary
Backend engineer with 6 years building distributed systems.

Work Experience
Senior Software Engineer at Acme Corp (Jan 2020 - Present)
- Led migration of billing services to Kubernetes, cutting deploy time 40%
- Built Go microservices handling 2M requests/day

Education
B.S. in Computer Science, Stanford University, 2016

Skills
Go, Python, PostgreSQL, Docker, Kubernetes
`

const testJob = `Senior Backend Engineer

We are looking for a senior engineer with 5+ years of experience.
Requirements: Go, PostgreSQL, Kubernetes and AWS.
Bachelor's degree in Computer Science required.
`

func TestSearchQueryFromFlags(t *testing.T) {
	parse := func(t *testing.T, args ...string) (types.SearchQuery, error) {
		t.Helper()
		f := pflag.NewFlagSet("search", pflag.ContinueOnError)
		addSearchFlags(f)
		require.NoError(t, f.Parse(args))
		return searchQueryFromFlags(f, 20)
	}

	t.Run("defaults", func(t *testing.T) {
		q, err := parse(t)
		require.NoError(t, err)
		assert.Equal(t, 1, q.Page)
		assert.Equal(t, 20, q.PageSize)
		assert.Nil(t, q.SalaryMin)
		assert.Nil(t, q.SalaryMax)
		assert.Nil(t, q.MaxDaysOld)
	})

	t.Run("filters", func(t *testing.T) {
		q, err := parse(t,
			"--what", "  golang  ", "--where", "Austin",
			"--salary-min", "0", "--salary-max", "150000", "--max-days-old", "7",
			"--remote", "--contract", "--sort", "date", "--page", "3", "--page-size", "10")
		require.NoError(t, err)
		assert.Equal(t, "golang", q.What)
		assert.Equal(t, "Austin", q.Where)
		require.NotNil(t, q.SalaryMin)
		assert.Equal(t, 0, *q.SalaryMin)
		require.NotNil(t, q.SalaryMax)
		assert.Equal(t, 150000, *q.SalaryMax)
		require.NotNil(t, q.MaxDaysOld)
		assert.Equal(t, 7, *q.MaxDaysOld)
		assert.True(t, q.RemoteOnly)
		assert.True(t, q.Contract)
		assert.False(t, q.FullTime)
		assert.Equal(t, "date", q.SortBy)
		assert.Equal(t, 3, q.Page)
		assert.Equal(t, 10, q.PageSize)
	})

	invalid := map[string][]string{
		"unknown sort":        {"--sort", "popularity"},
		"page size too large": {"--page-size", "51"},
		"negative salary":     {"--salary-min", "-1"},
		"inverted salary":     {"--salary-min", "90000", "--salary-max", "50000"},
	}
	for name, args := range invalid {
		t.Run(name, func(t *testing.T) {
			_, err := parse(t, args...)
			var verr *types.ValidationError
			assert.ErrorAs(t, err, &verr)
		})
	}
}

func TestFitCommand(t *testing.T) {
	isolateEnv(t)
	resumePath := writeFile(t, "resume.txt", testResume)
	jobPath := writeFile(t, "job.txt", testJob)

	out, err := runCommand(t, "fit", "--resume", resumePath, "--job", jobPath)
	require.NoError(t, err)
	assert.Contains(t, out, "RESUME FIT")
	assert.Contains(t, out, "Overall:")
	assert.Contains(t, out, "skills")
}

func TestFitCommand_JSON(t *testing.T) {
	isolateEnv(t)
	resumePath := writeFile(t, "resume.txt", testResume)
	jobPath := writeFile(t, "job.txt", testJob)

	out, err := runCommand(t, "fit", "-r", resumePath, "-j", jobPath, "--skills", "Terraform", "--json")
	require.NoError(t, err)

	var result types.FitScoreResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.GreaterOrEqual(t, result.OverallScore, 0)
	assert.LessOrEqual(t, result.OverallScore, 100)
	assert.Contains(t, result.MissingKeywords.MustHave, "Terraform")
}

func TestFitCommand_Errors(t *testing.T) {
	isolateEnv(t)
	resumePath := writeFile(t, "resume.txt", testResume)
	emptyJob := writeFile(t, "empty.txt", "   \n")
	binary := writeFile(t, "resume.exe", "MZ\x00\x01")

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{
			name:    "missing job flag",
			args:    []string{"fit", "--resume", resumePath},
			wantErr: `required flag(s) "job" not set`,
		},
		{
			name:    "empty job description",
			args:    []string{"fit", "--resume", resumePath, "--job", emptyJob},
			wantErr: "job description is empty",
		},
		{
			name:    "missing resume file",
			args:    []string{"fit", "--resume", "does-not-exist.txt", "--job", emptyJob},
			wantErr: "failed to read resume",
		},
		{
			name:    "unsupported resume format",
			args:    []string{"fit", "--resume", binary, "--job", emptyJob},
			wantErr: "failed to extract resume text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCommand(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestReviewCommand_WithoutModel(t *testing.T) {
	isolateEnv(t)
	resumePath := writeFile(t, "resume.txt", testResume)
	jobPath := writeFile(t, "job.txt", testJob)

	out, err := runCommand(t, "review", "--resume", resumePath, "--job", jobPath, "--json")
	require.NoError(t, err)

	var result types.ReviewResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, types.NarrativeDefaulted, result.NarrativeStatus)
	require.NotNil(t, result.Fit)
	assert.Equal(t, result.Fit.OverallScore, result.ATSScore)
	assert.NotEmpty(t, result.OverallFeedback)
}

func TestReviewCommand_ResumeOnly(t *testing.T) {
	isolateEnv(t)
	resumePath := writeFile(t, "resume.txt", testResume)

	out, err := runCommand(t, "review", "--resume", resumePath)
	require.NoError(t, err)
	assert.Contains(t, out, "RESUME REVIEW")
	assert.Contains(t, out, "showing defaults")
}

func TestMonitorCommand_Once(t *testing.T) {
	isolateEnv(t)

	out, err := runCommand(t, "monitor", "--once")
	require.NoError(t, err)
	assert.Contains(t, out, "FRESHNESS CYCLE")
	assert.Contains(t, out, "Checked:     0")
}

func TestMigrateCommand_RequiresDatabaseURL(t *testing.T) {
	isolateEnv(t)

	_, err := runCommand(t, "migrate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.url is required")
}

func TestInvalidConfigFile(t *testing.T) {
	isolateEnv(t)
	path := writeFile(t, "config.yaml", "ingestion:\n  max_page_size: 500\n")

	_, err := runCommand(t, "--config", path, "fit", "--resume", path, "--job", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_page_size")
}

func TestBinary_Help(t *testing.T) {
	binaryPath := getBinaryPath(t)

	for _, sub := range []string{"serve", "search", "fit", "review", "monitor", "migrate"} {
		t.Run(sub, func(t *testing.T) {
			output, err := exec.Command(binaryPath, sub, "--help").CombinedOutput()
			require.NoError(t, err)
			assert.Contains(t, string(output), "Usage:")
		})
	}
}
