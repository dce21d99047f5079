package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/api/googleapi"

	"github.com/jonathan/job-matcher/internal/types"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want types.FailureKind
	}{
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), types.FailureTimeout},
		{"empty response", fmt.Errorf("no content: %w", ErrEmptyResponse), types.FailureMalformed},
		{"missing key", ErrNoAPIKey, types.FailureRejected},
		{"google rate limit", &googleapi.Error{Code: http.StatusTooManyRequests}, types.FailureRateLimited},
		{"google forbidden", &googleapi.Error{Code: http.StatusForbidden}, types.FailureRejected},
		{"google server error", &googleapi.Error{Code: http.StatusInternalServerError}, types.FailureUpstream},
		{"unknown", errors.New("connection reset"), types.FailureUpstream},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}
