package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Expected business denials are NOT errors; they travel as Decision values.

var (
	// Contract violations, fatal to the call, never retried.
	ErrInvalidInput   = errors.New("invalid input")
	ErrUnknownPlayer  = errors.New("player not found")
	ErrUnknownContest = errors.New("contest not found")

	// Store errors
	ErrNoCredits         = errors.New("no contest credits remaining")
	ErrAlreadyRegistered = errors.New("player already registered for contest")

	// External collaborator errors; the caller may retry with backoff.
	// The reset scheduler specifically does not retry before its next boundary.
	ErrTransientExternal = errors.New("transient external failure")

	// Payments
	ErrPaymentsDisabled = errors.New("payment session creator not configured")
)
