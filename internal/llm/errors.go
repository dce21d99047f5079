package llm

import (
	"context"
	"errors"
	"net/http"

	"github.com/openai/openai-go/v3"
	"google.golang.org/api/googleapi"

	"github.com/jonathan/job-matcher/internal/types"
)

// Classify maps a client error to a failure kind for SourceUnavailableError.
func Classify(err error) types.FailureKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return types.FailureTimeout
	}
	if errors.Is(err, ErrEmptyResponse) {
		return types.FailureMalformed
	}
	if errors.Is(err, ErrNoAPIKey) {
		return types.FailureRejected
	}

	status := 0
	var oaErr *openai.Error
	var gErr *googleapi.Error
	switch {
	case errors.As(err, &oaErr):
		status = oaErr.StatusCode
	case errors.As(err, &gErr):
		status = gErr.Code
	}
	switch {
	case status == http.StatusTooManyRequests:
		return types.FailureRateLimited
	case status == http.StatusUnauthorized, status == http.StatusForbidden, status == http.StatusBadRequest:
		return types.FailureRejected
	}
	return types.FailureUpstream
}
