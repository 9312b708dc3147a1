// Package services defines the business logic for contact submissions and
// certifications. This file centralizes common service-level error values so
// that they can be consistently returned by service methods and checked by
// callers.
//
// These errors are intended for internal use by the service layer and
// translation into user-facing messages or HTTP status codes should be
// performed at the handler layer.
package services

import (
	"errors"

	"github.com/cptec/go-academy-backend/internal/validation"
)

var (
	// ErrSubmissionNotFound indicates that the requested submission does
	// not exist.
	ErrSubmissionNotFound = errors.New("submission not found")

	// ErrCertificationNotFound indicates that the requested certification
	// does not exist, whether looked up by id, unique link, or codigo.
	ErrCertificationNotFound = errors.New("certification not found")

	// ErrLinkIssuance is returned when the store kept rejecting freshly
	// generated unique links. With 128-bit random tokens this is
	// effectively unreachable outside of tests.
	ErrLinkIssuance = errors.New("could not issue a unique link")
)

// ValidationError carries the aggregated field→messages map produced by the
// validation layer. It is an expected control-flow outcome, not an
// exceptional condition: handlers translate it into a 400 with the structured
// error body and nothing is ever persisted when one is returned.
type ValidationError struct {
	Fields validation.Errors
}

// Error implements the error interface.
func (e *ValidationError) Error() string { return "validation failed" }

// AsValidationError unwraps err into a *ValidationError when possible.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
