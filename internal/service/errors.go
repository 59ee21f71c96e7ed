package service

import "errors"

// Engine error taxonomy. Handlers map these onto typed response codes;
// services wrap them with context via fmt.Errorf("%w").
var (
	// ErrNotEntitled means payment was not confirmed or no attempts remain.
	ErrNotEntitled = errors.New("user is not entitled to this exam")

	// ErrAlreadyStarted means a start call hit a session whose deadline was
	// already stamped. The deadline is never recomputed.
	ErrAlreadyStarted = errors.New("session already started")

	// ErrSessionNotActive is a deterministic wrong-state rejection. Callers
	// should refresh session state and stop sending mutations.
	ErrSessionNotActive = errors.New("session is not active")

	// ErrSessionExpired means the deadline elapsed; the session has been
	// finalized and the accompanying result carries the outcome.
	ErrSessionExpired = errors.New("session deadline has elapsed")

	// ErrInvalidAnswer means a malformed question/option reference. Rejected
	// without counting as a violation.
	ErrInvalidAnswer = errors.New("invalid question or option reference")

	// ErrUnknownSignal means a signal kind outside the classification table.
	ErrUnknownSignal = errors.New("unknown signal kind")

	// ErrNotSessionOwner means the authenticated user does not own the session.
	ErrNotSessionOwner = errors.New("session belongs to another user")

	// ErrNotFinalized means no result exists yet for the session.
	ErrNotFinalized = errors.New("session has no result yet")
)
