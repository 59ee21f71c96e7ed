package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrTokenRequired ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid  ErrCode = "TOKEN_INVALID"
	ErrTokenExpired  ErrCode = "TOKEN_EXPIRED"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden       ErrCode = "FORBIDDEN"
	ErrCandidateOnly   ErrCode = "CANDIDATE_ACCESS_ONLY"
	ErrNotSessionOwner ErrCode = "NOT_SESSION_OWNER"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Session engine ────────────────────────────────────────────────
	ErrNotEntitled      ErrCode = "NOT_ENTITLED"
	ErrAlreadyStarted   ErrCode = "SESSION_ALREADY_STARTED"
	ErrSessionNotActive ErrCode = "SESSION_NOT_ACTIVE"
	ErrSessionExpired   ErrCode = "SESSION_EXPIRED"
	ErrInvalidAnswer    ErrCode = "INVALID_ANSWER"
	ErrUnknownSignal    ErrCode = "UNKNOWN_SIGNAL_KIND"
	ErrQuitDenied       ErrCode = "QUIT_DENIED"
	ErrNotFinalized     ErrCode = "NOT_FINALIZED"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrTokenRequired:
		return "Authentication token is required."
	case ErrTokenInvalid:
		return "Authentication token is invalid."
	case ErrTokenExpired:
		return "Authentication token has expired."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You do not have permission to access this resource."
	case ErrCandidateOnly:
		return "This resource is restricted to exam candidates."
	case ErrNotSessionOwner:
		return "This exam session belongs to another candidate."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."
	case ErrConflict:
		return "Resource already exists."

	// ─── Session engine ────────────────────────────────────────────────
	case ErrNotEntitled:
		return "You cannot start this exam. Payment was not confirmed or no attempts remain."
	case ErrAlreadyStarted:
		return "This exam session has already been started."
	case ErrSessionNotActive:
		return "This exam session is no longer active. Refresh your session state."
	case ErrSessionExpired:
		return "Time is up. The exam has been submitted with your recorded answers."
	case ErrInvalidAnswer:
		return "The question or option reference is not part of this exam."
	case ErrUnknownSignal:
		return "Unrecognized integrity signal kind."
	case ErrQuitDenied:
		return "Quit password does not match."
	case ErrNotFinalized:
		return "This exam session has not been finalized yet."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
