// Package apperr defines the error taxonomy shared across the resolution
// pipeline. Every failure mode maps to one of these sentinels so callers
// can classify outcomes with errors.Is while still surfacing a structured,
// success-shaped response to the client.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is the generic missing-entity sentinel used by the
	// mapping store and the API layer.
	ErrNotFound = errors.New("not found")

	// ErrCredentialMissing means no credential was supplied at all.
	ErrCredentialMissing = errors.New("missing credential")

	// ErrCredentialMalformed means the credential is structurally invalid
	// (wrong segment count, undecodable payload). Non-fatal: resolution
	// continues when an explicit scope id is available.
	ErrCredentialMalformed = errors.New("malformed credential")

	// ErrScopeUndeterminable means no location or company scope could be
	// resolved after all discovery attempts.
	ErrScopeUndeterminable = errors.New("scope undeterminable")

	// ErrUpstreamAuth maps an upstream 401: invalid or expired credential.
	ErrUpstreamAuth = errors.New("upstream authentication failed")

	// ErrUpstreamPermission maps an upstream 403: the credential lacks
	// access to the requested scope.
	ErrUpstreamPermission = errors.New("upstream permission denied")

	// ErrUpstreamNotFound maps an upstream 404: scope id not found.
	ErrUpstreamNotFound = errors.New("upstream scope not found")

	// ErrUpstreamShape means a response parsed as JSON but contained no
	// recognizable record collection.
	ErrUpstreamShape = errors.New("unrecognized upstream response shape")
)

// UpstreamError carries the last HTTP status and response body observed
// while probing upstream endpoints, for diagnostics in the API response.
type UpstreamError struct {
	Status int
	Body   string
	Err    error
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%v (status %d)", e.Err, e.Status)
	}
	return e.Err.Error()
}

// Unwrap exposes the taxonomy sentinel for errors.Is.
func (e *UpstreamError) Unwrap() error { return e.Err }

// FromStatus classifies an HTTP status code into the taxonomy. Statuses
// outside the mapped set yield a generic wrapped error.
func FromStatus(status int, body string) *UpstreamError {
	var err error
	switch status {
	case 401:
		err = ErrUpstreamAuth
	case 403:
		err = ErrUpstreamPermission
	case 404:
		err = ErrUpstreamNotFound
	default:
		err = fmt.Errorf("upstream request failed: HTTP %d", status)
	}
	return &UpstreamError{Status: status, Body: body, Err: err}
}
