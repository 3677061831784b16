package fpl

import (
	"context"
	"errors"
	"fmt"
)

// ErrorClass classifies a failed request for metrics and retry decisions.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx responses.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx responses.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 responses and requests refused by the
	// local error budget.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents transport errors and timeouts.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassEmpty represents a 200 response with an empty or null body.
	ErrorClassEmpty ErrorClass = "empty"

	// ErrorClassDecode represents a 200 response whose body is not valid JSON
	// for the expected shape.
	ErrorClassDecode ErrorClass = "decode"
)

var (
	// ErrEmptyResponse is returned when the provider answers 200 with no payload.
	ErrEmptyResponse = errors.New("empty response")

	// ErrRequestBlocked is returned when the shared error budget refuses a request.
	ErrRequestBlocked = errors.New("request blocked: error budget exhausted")
)

// APIError describes a failed request to the provider.
type APIError struct {
	Endpoint   string
	StatusCode int
	Class      ErrorClass
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fpl %s error (status %d) on %s: %s: %v",
			e.Class, e.StatusCode, e.Endpoint, e.Message, e.Err)
	}
	return fmt.Sprintf("fpl %s error (status %d) on %s: %s",
		e.Class, e.StatusCode, e.Endpoint, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is a per-request failure worth retrying.
// Every provider failure counts, 4xx included, because the provider answers
// 404 for squads that are briefly unavailable around a gameweek deadline.
// Cancellation of the caller's context is never transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return true
	}
	return errors.Is(err, ErrEmptyResponse) || errors.Is(err, context.DeadlineExceeded)
}

// ClassOf returns the error class of err, or "" for non-API errors.
func ClassOf(err error) ErrorClass {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Class
	}
	return ""
}
