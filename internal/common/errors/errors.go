// Package errors provides the standardized error taxonomy for the
// discovery engine. Redaction outcomes are deliberately absent: a viewer
// lacking the tier for a field is a policy result, not an error.
package errors

import (
	"fmt"
	"time"
)

// ErrorCode identifies a user-surfaceable failure kind.
type ErrorCode string

const (
	// Geocoding / place search found nothing usable. Recovered locally:
	// the persisted listing fetch is never blocked by this.
	ErrCodeResolutionFailed ErrorCode = "RESOLUTION_FAILED"

	// Persisted listing fetch failed. The last-known-good marker set
	// stays on screen; the user gets a manual retry.
	ErrCodeListingFetchFailed  ErrorCode = "LISTING_FETCH_FAILED"
	ErrCodeListingFetchTimeout ErrorCode = "LISTING_FETCH_TIMEOUT"

	// Device geolocation outcomes, each with its own message and never
	// silently retried.
	ErrCodeGeolocationDenied      ErrorCode = "GEOLOCATION_DENIED"
	ErrCodeGeolocationUnavailable ErrorCode = "GEOLOCATION_UNAVAILABLE"
	ErrCodeGeolocationTimeout     ErrorCode = "GEOLOCATION_TIMEOUT"

	ErrCodeInvalidFilter   ErrorCode = "INVALID_FILTER"
	ErrCodeSearchInFlight  ErrorCode = "SEARCH_IN_FLIGHT"
	ErrCodeSessionInactive ErrorCode = "SESSION_INACTIVE"
)

// StandardError is a structured application error.
type StandardError struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Retryable bool      `json:"retryable"`
	Timestamp time.Time `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Is lets errors.Is match two StandardErrors by code.
func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	return ok && t.Code == e.Code
}

// NewResolutionFailedError marks a geocode/keyword search that found
// nothing. Not retryable as-is; the user should adjust the query.
func NewResolutionFailedError(query string) *StandardError {
	return &StandardError{
		Code:      ErrCodeResolutionFailed,
		Message:   "No location found for the search term",
		Details:   fmt.Sprintf("query: %s", query),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewListingFetchFailedError wraps a store/network failure while loading
// persisted listings.
func NewListingFetchFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeListingFetchFailed,
		Message:   "Could not load listings",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewListingFetchTimeoutError marks a listing fetch that exceeded its
// generous deadline. Distinct from a hard failure so the UI can suggest
// narrowing the search.
func NewListingFetchTimeoutError() *StandardError {
	return &StandardError{
		Code:      ErrCodeListingFetchTimeout,
		Message:   "Loading listings is taking too long, try narrowing your search",
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewGeolocationError maps a device location outcome to its message.
// code must be one of the three geolocation codes.
func NewGeolocationError(code ErrorCode) *StandardError {
	msg := "Could not determine your location"
	switch code {
	case ErrCodeGeolocationDenied:
		msg = "Location permission was denied"
	case ErrCodeGeolocationTimeout:
		msg = "Determining your location took too long"
	}
	return &StandardError{
		Code:      code,
		Message:   msg,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidFilterError marks a filter document that failed validation.
func NewInvalidFilterError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidFilter,
		Message:   "Search filter is invalid",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSearchInFlightError marks a search request dropped because one is
// already running. Callers may retry once Searching() reports false.
func NewSearchInFlightError() *StandardError {
	return &StandardError{
		Code:      ErrCodeSearchInFlight,
		Message:   "A search is already running",
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSessionInactiveError marks a result discarded because the
// initiating view went away before the work finished.
func NewSessionInactiveError() *StandardError {
	return &StandardError{
		Code:      ErrCodeSessionInactive,
		Message:   "Discovery session is no longer active",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}
