package service

import "errors"

// Domain errors. Handlers map these onto response codes and HTTP statuses.
var (
	ErrContentNotFound           = errors.New("content not found")
	ErrNotEnrolled               = errors.New("student is not enrolled in this course")
	ErrContentLocked             = errors.New("content is locked")
	ErrNotAssessment             = errors.New("content item does not take attempts")
	ErrNoQuestions               = errors.New("content item has no questions configured")
	ErrQuestionNotFound          = errors.New("question not found")
	ErrAttemptLimitExceeded      = errors.New("attempt limit exceeded")
	ErrAttemptNotFound           = errors.New("attempt not found")
	ErrAttemptAlreadyCompleted   = errors.New("attempt already completed")
	ErrWatchLimitExceeded        = errors.New("watch limit exceeded")
	ErrInsufficientWatchCoverage = errors.New("insufficient watch coverage")
	ErrInvalidWatchData          = errors.New("invalid watch data")
	ErrGradingFailed             = errors.New("grading failed")
)
