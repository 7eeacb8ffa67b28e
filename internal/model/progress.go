package model

import (
	"time"

	"github.com/google/uuid"
)

// CompletionStatus tracks a content item's lifecycle for one student.
// It only moves forward: not_started → in_progress → {completed, failed}.
// A failed assessment may restart while attempts remain.
type CompletionStatus string

const (
	CompletionNotStarted CompletionStatus = "not_started"
	CompletionInProgress CompletionStatus = "in_progress"
	CompletionCompleted  CompletionStatus = "completed"
	CompletionFailed     CompletionStatus = "failed"
)

// AttemptStatus enumerates attempt session states.
type AttemptStatus string

const (
	AttemptStatusInProgress AttemptStatus = "IN_PROGRESS"
	AttemptStatusCompleted  AttemptStatus = "COMPLETED"
	AttemptStatusFailed     AttemptStatus = "FAILED"
	AttemptStatusTimedOut   AttemptStatus = "TIMED_OUT"
	AttemptStatusAbandoned  AttemptStatus = "ABANDONED"
)

// Terminal reports whether the status ends the attempt's mutability.
func (s AttemptStatus) Terminal() bool {
	return s != AttemptStatusInProgress
}

// ContentProgressRecord is the per-student-per-content progress state.
// Created lazily on first interaction.
type ContentProgressRecord struct {
	ID                 uuid.UUID        `json:"id"`
	EnrollmentID       uuid.UUID        `json:"enrollment_id"`
	ContentID          uuid.UUID        `json:"content_id"`
	ContentType        ContentType      `json:"content_type"`
	CompletionStatus   CompletionStatus `json:"completion_status"`
	ProgressPercentage float64          `json:"progress_percentage"`
	// Attempts counts terminal attempt transitions only; it never moves
	// while an attempt is still in progress.
	Attempts     int        `json:"attempts"`
	BestScore    *float64   `json:"best_score,omitempty"`
	WatchCount   int        `json:"watch_count"`
	LastAccessed time.Time  `json:"last_accessed"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// AnswerRecord is one graded answer inside a completed attempt.
type AnswerRecord struct {
	QuestionID     uuid.UUID    `json:"question_id"`
	SelectedAnswer string       `json:"selected_answer"`
	CorrectAnswer  string       `json:"correct_answer"`
	IsCorrect      bool         `json:"is_correct"`
	Points         float64      `json:"points"`
	QuestionType   QuestionType `json:"question_type"`
}

// ShufflePlan is the per-attempt permutation snapshot. Once persisted for
// an attempt number it is immutable for that attempt's lifetime, so an
// engine change can never reorder an in-progress attempt.
type ShufflePlan struct {
	// QuestionOrder[displayIndex] = original question index.
	QuestionOrder []int `json:"question_order"`
	// OptionOrders maps question ID → option permutation, same convention.
	OptionOrders map[string][]int `json:"option_orders,omitempty"`
}

// AttemptRecord is one timed trial of an assessment content item.
type AttemptRecord struct {
	ID            uuid.UUID     `json:"id"`
	ProgressID    uuid.UUID     `json:"progress_id"`
	AttemptNumber int           `json:"attempt_number"`
	StartedAt     time.Time     `json:"started_at"`
	CompletedAt   *time.Time    `json:"completed_at,omitempty"`
	// ExpectedEnd is nil for untimed attempts (duration 0).
	ExpectedEnd      *time.Time     `json:"expected_end,omitempty"`
	TimeSpentSeconds int            `json:"time_spent_seconds"`
	Score            *float64       `json:"score,omitempty"`
	CorrectAnswers   int            `json:"correct_answers"`
	TotalQuestions   int            `json:"total_questions"`
	Passed           bool           `json:"passed"`
	PassingScore     float64        `json:"passing_score"`
	Status           AttemptStatus  `json:"status"`
	Answers          []AnswerRecord `json:"answers,omitempty"`
	Shuffle          ShufflePlan    `json:"shuffle"`
}

// ────────────────────────────────────────────────────────────────────────────
// Request payloads
// ────────────────────────────────────────────────────────────────────────────

// SubmittedAnswer is a single answer inside an attempt submission.
type SubmittedAnswer struct {
	QuestionID uuid.UUID `json:"question_id" binding:"required"`
	Answer     string    `json:"answer"`
}

// SubmitAttemptRequest is the payload for submitting a completed attempt.
type SubmitAttemptRequest struct {
	Answers          []SubmittedAnswer `json:"answers" binding:"required,dive"`
	TimeSpentSeconds int               `json:"time_spent_seconds" binding:"min=0"`
}

// PlaySegment is a reported contiguous stretch of video playback, in seconds.
type PlaySegment struct {
	Start float64 `json:"start" binding:"min=0"`
	End   float64 `json:"end" binding:"min=0"`
}

// UpdateProgressRequest is the payload for non-assessment progress updates.
// Video content reports play segments; reading-style content reports a
// scroll/view percentage.
type UpdateProgressRequest struct {
	Segments        []PlaySegment `json:"segments" binding:"omitempty,dive"`
	VideoDuration   float64       `json:"video_duration" binding:"omitempty,min=0"`
	ReportedPercent float64       `json:"reported_percent" binding:"omitempty,min=0,max=100"`
	ProgressPercent float64       `json:"progress_percent" binding:"omitempty,min=0,max=100"`
}

// AttemptTiming describes the clock state of an attempt as seen by a client.
type AttemptTiming struct {
	DurationMinutes  int     `json:"duration_minutes"`
	RemainingSeconds float64 `json:"remaining_seconds"`
	IsExpired        bool    `json:"is_expired"`
}
