package types

import (
	"errors"
	"fmt"
)

// FailureKind classifies why an external call failed.
type FailureKind string

// Failure kinds for provider and language-model calls.
const (
	FailureTimeout     FailureKind = "timeout"
	FailureRateLimited FailureKind = "rate_limited"
	FailureMalformed   FailureKind = "malformed"
	FailureUpstream    FailureKind = "upstream"
	FailureRejected    FailureKind = "rejected"
)

// Retryable reports whether a call that failed this way may be retried.
func (k FailureKind) Retryable() bool {
	return k != FailureRejected
}

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrUnauthorized is returned when a request carries no valid identity.
var ErrUnauthorized = errors.New("unauthorized")

// ErrAllMalformed is returned when every record in a provider page failed normalization.
var ErrAllMalformed = errors.New("every record in the provider page was malformed")

// SourceUnavailableError means a provider or language-model call failed after retry.
// Callers receive no partial data.
type SourceUnavailableError struct {
	Source string
	Kind   FailureKind
	Cause  error
}

func (e *SourceUnavailableError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("source %s unavailable (%s): %v", e.Source, e.Kind, e.Cause)
	}
	return fmt.Sprintf("source %s unavailable (%s)", e.Source, e.Kind)
}

func (e *SourceUnavailableError) Unwrap() error {
	return e.Cause
}

// MalformedUpstreamError means a raw record or generated document failed shape validation.
type MalformedUpstreamError struct {
	Source string
	Reason string
	Cause  error
}

func (e *MalformedUpstreamError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("malformed %s payload: %s: %v", e.Source, e.Reason, e.Cause)
	}
	return fmt.Sprintf("malformed %s payload: %s", e.Source, e.Reason)
}

func (e *MalformedUpstreamError) Unwrap() error {
	return e.Cause
}

// EnrichmentSkippedError means a scrape did not produce usable data.
// It is logged and never surfaced to a request.
type EnrichmentSkippedError struct {
	URL    string
	Reason string
	Cause  error
}

func (e *EnrichmentSkippedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("enrichment skipped for %s: %s: %v", e.URL, e.Reason, e.Cause)
	}
	return fmt.Sprintf("enrichment skipped for %s: %s", e.URL, e.Reason)
}

func (e *EnrichmentSkippedError) Unwrap() error {
	return e.Cause
}

// ParseIncompleteError names a resume field the parser could not populate.
type ParseIncompleteError struct {
	Field string
}

func (e *ParseIncompleteError) Error() string {
	return fmt.Sprintf("resume field not found: %s", e.Field)
}

// ValidationError indicates request validation failure.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// IsSourceUnavailable reports whether err is or wraps a SourceUnavailableError.
func IsSourceUnavailable(err error) bool {
	var target *SourceUnavailableError
	return errors.As(err, &target)
}

// IsMalformed reports whether err is or wraps a MalformedUpstreamError.
func IsMalformed(err error) bool {
	var target *MalformedUpstreamError
	return errors.As(err, &target)
}
