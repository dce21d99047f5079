package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/jonathan/job-matcher/internal/observability"
	"github.com/jonathan/job-matcher/internal/types"
)

var searchJSON bool

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Run one realtime job search",
	Long: `Query the job source, normalize and deduplicate the results, enrich thin listings
from their detail pages and persist them, then print the requested page.`,
	RunE: runSearch,
}

func init() {
	addSearchFlags(searchCmd.Flags())
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "Print the page as JSON")
	rootCmd.AddCommand(searchCmd)
}

func addSearchFlags(f *pflag.FlagSet) {
	f.String("what", "", "Keywords to search for")
	f.String("where", "", "Location to search in")
	f.Int("salary-min", 0, "Minimum annual salary")
	f.Int("salary-max", 0, "Maximum annual salary")
	f.Int("max-days-old", 0, "Only listings posted within this many days")
	f.Bool("remote", false, "Only remote listings")
	f.Bool("full-time", false, "Only full-time listings")
	f.Bool("contract", false, "Only contract listings")
	f.String("sort", "", "Sort order: date, relevance or salary")
	f.Int("page", 1, "Page number")
	f.Int("page-size", 0, "Results per page (defaults to ingestion.default_page_size)")
}

func runSearch(cmd *cobra.Command, _ []string) error {
	ctx := commandContext(cmd)
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	q, err := searchQueryFromFlags(cmd.Flags(), a.cfg.Ingestion.DefaultPageSize)
	if err != nil {
		return err
	}
	if err := a.withStore(ctx); err != nil {
		return err
	}
	a.withProvider()
	a.withSearch(ctx)

	page, err := a.search.Search(ctx, q)
	if err != nil && !page.Unavailable {
		return fmt.Errorf("search failed: %w", err)
	}
	if searchJSON {
		return writeJSON(cmd.OutOrStdout(), page)
	}
	observability.NewPrinter(cmd.OutOrStdout()).PrintSearchPage(page)
	return nil
}

// searchQueryFromFlags builds a validated query. Numeric filters apply only
// when their flag was given.
func searchQueryFromFlags(f *pflag.FlagSet, defaultPageSize int) (types.SearchQuery, error) {
	var q types.SearchQuery
	q.What, _ = f.GetString("what")
	q.Where, _ = f.GetString("where")
	q.SortBy, _ = f.GetString("sort")
	q.RemoteOnly, _ = f.GetBool("remote")
	q.FullTime, _ = f.GetBool("full-time")
	q.Contract, _ = f.GetBool("contract")
	q.Page, _ = f.GetInt("page")
	q.PageSize, _ = f.GetInt("page-size")
	if q.PageSize == 0 {
		q.PageSize = defaultPageSize
	}

	for name, dst := range map[string]**int{
		"salary-min":   &q.SalaryMin,
		"salary-max":   &q.SalaryMax,
		"max-days-old": &q.MaxDaysOld,
	} {
		if !f.Changed(name) {
			continue
		}
		v, err := f.GetInt(name)
		if err != nil {
			return q, err
		}
		*dst = &v
	}

	q = q.WithDefaults()
	if err := q.Validate(); err != nil {
		return q, err
	}
	return q, nil
}
