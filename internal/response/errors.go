package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrTokenRequired     ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid      ErrCode = "TOKEN_INVALID"
	ErrTokenExpired      ErrCode = "TOKEN_EXPIRED"
	ErrStudentAccessOnly ErrCode = "STUDENT_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Progression ───────────────────────────────────────────────────
	ErrNotEnrolled               ErrCode = "NOT_ENROLLED"
	ErrContentLocked             ErrCode = "CONTENT_LOCKED"
	ErrAttemptLimitExceeded      ErrCode = "ATTEMPT_LIMIT_EXCEEDED"
	ErrAttemptNotFound           ErrCode = "ATTEMPT_NOT_FOUND"
	ErrAttemptAlreadyCompleted   ErrCode = "ATTEMPT_ALREADY_COMPLETED"
	ErrWatchLimitExceeded        ErrCode = "WATCH_LIMIT_EXCEEDED"
	ErrInsufficientWatchCoverage ErrCode = "INSUFFICIENT_WATCH_COVERAGE"
	ErrNotAssessment             ErrCode = "NOT_AN_ASSESSMENT"
	ErrGradingFailed             ErrCode = "GRADING_FAILED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrRateLimited ErrCode = "RATE_LIMIT_EXCEEDED"
	ErrInternal    ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid."
	case ErrTokenExpired:
		return "The authentication token has expired."
	case ErrStudentAccessOnly:
		return "This endpoint is only accessible to students."

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
		return "The resource was modified concurrently."

	// ─── Progression ───────────────────────────────────────────────────
	case ErrNotEnrolled:
		return "You are not enrolled in this course."
	case ErrContentLocked:
		return "This content is locked. Complete the earlier material first."
	case ErrAttemptLimitExceeded:
		return "You have used all attempts for this assessment."
	case ErrAttemptNotFound:
		return "No such attempt exists for this content."
	case ErrAttemptAlreadyCompleted:
		return "This attempt has already been submitted."
	case ErrWatchLimitExceeded:
		return "You have reached the watch limit for this video."
	case ErrInsufficientWatchCoverage:
		return "Not enough of the video has been watched to count as complete."
	case ErrNotAssessment:
		return "This content item does not take attempts."
	case ErrGradingFailed:
		return "The submission could not be graded."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrRateLimited:
		return "Too many requests. Slow down and try again."
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
