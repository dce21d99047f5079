// Package provider defines the job-listing provider capability and its
// Adzuna implementation.
package provider

import (
	"context"
	"encoding/json"

	"github.com/jonathan/job-matcher/internal/types"
)

// RawPage is one page of provider results in the provider's native shape.
type RawPage struct {
	Source  string
	Records []json.RawMessage
	// Count is the provider's reported total across all pages.
	Count int
}

// Provider fetches raw job records for a search query.
type Provider interface {
	Name() string
	Search(ctx context.Context, q types.SearchQuery) (*RawPage, error)
}
