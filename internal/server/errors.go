package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/job-matcher/internal/extract"
	"github.com/jonathan/job-matcher/internal/types"
)

// ErrBadRequest indicates a request body or query that could not be read.
type ErrBadRequest struct {
	Message string
	Cause   error
}

func (e *ErrBadRequest) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("bad request: %s: %v", e.Message, e.Cause)
	}
	return "bad request: " + e.Message
}

func (e *ErrBadRequest) Unwrap() error {
	return e.Cause
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		badRequest  *ErrBadRequest
		validation  *types.ValidationError
		unavailable *types.SourceUnavailableError
		maxBytes    *http.MaxBytesError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &badRequest), errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, extract.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, extract.ErrNoText):
		return http.StatusUnprocessableEntity
	case errors.Is(err, types.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, types.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &unavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, types.ErrAllMalformed):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage is the error text safe to return to a client.
func publicMessage(err error, status int) string {
	var unavailable *types.SourceUnavailableError
	switch {
	case status == http.StatusInternalServerError:
		return "internal server error"
	case errors.As(err, &unavailable):
		return fmt.Sprintf("%s is unavailable (%s), try again later", unavailable.Source, unavailable.Kind)
	case status == http.StatusBadGateway:
		return "upstream returned no usable records"
	default:
		return err.Error()
	}
}
