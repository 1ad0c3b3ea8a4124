package domain

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for common error conditions.
var (
	// ErrNotFound indicates that a requested entity was not found.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates that the input data is invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrRateLimited indicates that an external source throttled the request.
	ErrRateLimited = errors.New("rate limited")

	// ErrUpstreamUnavailable indicates a network or timeout failure talking to
	// an external service.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrJudgeOutputInvalid indicates that the generative judge returned output
	// that could not be parsed into the expected shape.
	ErrJudgeOutputInvalid = errors.New("judge output invalid")

	// ErrNoCandidates indicates that ranking was requested with an empty
	// candidate set. This is a normal empty-result condition, not a failure.
	ErrNoCandidates = errors.New("no candidates")
)

// ValidationError represents a validation error for a specific field.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// NotFoundError provides details about a not found entity.
type NotFoundError struct {
	Entity string
	ID     string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.ID)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// RateLimitError provides details about a rate limit response from an
// external source.
type RateLimitError struct {
	Source     string
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited by %s: retry after %s", e.Source, e.RetryAfter)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *RateLimitError) Unwrap() error {
	return ErrRateLimited
}

// ExternalAPIError provides details about an external API failure.
type ExternalAPIError struct {
	Source     string
	StatusCode int
	Message    string
	Cause      error
}

// Error implements the error interface.
func (e *ExternalAPIError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Source, e.StatusCode, e.Message)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
// Network-level failures (no HTTP response) and 5xx responses unwrap to
// ErrUpstreamUnavailable; everything else unwraps to the cause.
func (e *ExternalAPIError) Unwrap() error {
	if e.StatusCode == 0 || e.StatusCode >= 500 {
		return ErrUpstreamUnavailable
	}
	return e.Cause
}

// JudgeOutputError describes why a generative response failed validation.
// Stage distinguishes the independent failure modes: the raw text was not
// JSON, the JSON did not have the expected shape, or a referenced id was
// unknown.
type JudgeOutputError struct {
	Stage  JudgeFailureStage
	Detail string
	Cause  error
}

// JudgeFailureStage classifies where judge output validation failed.
type JudgeFailureStage string

const (
	// JudgeFailureNotJSON means the response was not parseable JSON after
	// fence stripping.
	JudgeFailureNotJSON JudgeFailureStage = "not_json"

	// JudgeFailureWrongShape means the response was valid JSON but did not
	// match the expected schema.
	JudgeFailureWrongShape JudgeFailureStage = "wrong_shape"

	// JudgeFailureUnknownID means the response referenced a candidate id not
	// present in the aggregated set.
	JudgeFailureUnknownID JudgeFailureStage = "unknown_id"
)

// Error implements the error interface.
func (e *JudgeOutputError) Error() string {
	return fmt.Sprintf("judge output invalid (%s): %s", e.Stage, e.Detail)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *JudgeOutputError) Unwrap() error {
	return ErrJudgeOutputInvalid
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(entity, id string) *NotFoundError {
	return &NotFoundError{
		Entity: entity,
		ID:     id,
	}
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// NewRateLimitError creates a new RateLimitError.
func NewRateLimitError(source string, retryAfter time.Duration) *RateLimitError {
	return &RateLimitError{
		Source:     source,
		RetryAfter: retryAfter,
	}
}

// NewExternalAPIError creates a new ExternalAPIError.
func NewExternalAPIError(source string, statusCode int, message string, cause error) *ExternalAPIError {
	return &ExternalAPIError{
		Source:     source,
		StatusCode: statusCode,
		Message:    message,
		Cause:      cause,
	}
}

// NewJudgeOutputError creates a new JudgeOutputError.
func NewJudgeOutputError(stage JudgeFailureStage, detail string, cause error) *JudgeOutputError {
	return &JudgeOutputError{
		Stage:  stage,
		Detail: detail,
		Cause:  cause,
	}
}
