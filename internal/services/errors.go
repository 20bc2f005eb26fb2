// Package services defines the business logic of the record store, the
// showcase gallery, and the build pipeline. This file centralizes common
// service-level error values so that they can be consistently returned by
// service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and translation
// into user-facing messages or HTTP status codes should be performed at the
// handler/controller layer.
package services

import "errors"

// Store-related errors.
var (
	// ErrRecordNotFound indicates the requested record does not exist.
	ErrRecordNotFound = errors.New("record not found")

	// ErrProtectedNamespace is returned when a public write or delete targets
	// a platform-reserved namespace (any "_"-prefixed bucket).
	ErrProtectedNamespace = errors.New("namespace is reserved")

	// ErrValueTooLarge is returned when a serialized value exceeds the
	// configured size cap.
	ErrValueTooLarge = errors.New("value exceeds size limit")

	// ErrInvalidValue is returned when a stored payload is not valid JSON.
	ErrInvalidValue = errors.New("value is not valid JSON")

	// ErrInvalidName is returned when a namespace or key is empty or
	// contains characters outside the allowed set.
	ErrInvalidName = errors.New("invalid namespace or key")
)

// Pipeline-related errors.
var (
	// ErrAlreadyBuilt indicates that an inbound event was already processed,
	// as witnessed by its ledger entry.
	ErrAlreadyBuilt = errors.New("event already processed")

	// ErrRateLimited is returned when a user has exhausted the daily build
	// ceiling.
	ErrRateLimited = errors.New("daily build limit reached")

	// ErrRequestRejected indicates the request failed safety screening.
	// Callers unwrap the rejection details from the pipeline result.
	ErrRequestRejected = errors.New("request rejected by screening")

	// ErrGenerationFailed indicates the model produced no usable artifact.
	ErrGenerationFailed = errors.New("artifact generation failed")
)
