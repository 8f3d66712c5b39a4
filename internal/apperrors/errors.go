// Package apperrors defines the sentinel errors shared across services and
// handlers. Services wrap these with fmt.Errorf("%w: ...") to add context;
// handlers map them to HTTP status codes with errors.Is.
package apperrors

import "errors"

var (
	// ErrValidation indicates bad caller input (e.g. a past-dated schedule).
	ErrValidation = errors.New("validation error")

	// ErrNotFound indicates a missing draw, ticket or payment.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState indicates an operation illegal in the entity's current
	// state, such as starting a non-UPCOMING draw.
	ErrInvalidState = errors.New("invalid state")

	// ErrAlreadyRunning indicates a concurrent draw run observed the DRAWING
	// status and must not proceed.
	ErrAlreadyRunning = errors.New("draw is already running")

	// ErrAlreadyCompleted indicates a run attempt on a completed draw.
	ErrAlreadyCompleted = errors.New("draw already completed")

	// ErrEmptyDraw indicates a run attempt with zero eligible tickets.
	ErrEmptyDraw = errors.New("no eligible tickets in draw")

	// ErrUnauthorized indicates a failed authenticity check, such as a webhook
	// signature mismatch. Fails closed with no side effects.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrExternalDependency indicates an anchor fetch or provider API failure.
	ErrExternalDependency = errors.New("external dependency failure")
)
