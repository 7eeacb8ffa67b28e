package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lumenlms/progression-backend/internal/model"
)

// The services consume narrow store interfaces so the progression logic can
// be exercised against in-memory fakes. The pgx/Redis implementations live
// in internal/repository.

// ContentGraph is the read-only view of the course content graph.
type ContentGraph interface {
	GetByID(ctx context.Context, contentID uuid.UUID) (*model.ContentItem, error)
	GetCourse(ctx context.Context, courseID uuid.UUID) (*model.Course, error)
	CourseIDForContent(ctx context.Context, contentID uuid.UUID) (uuid.UUID, error)
	CourseTopics(ctx context.Context, courseID uuid.UUID) ([]model.Topic, error)
}

// QuestionStore loads raw question data, answer keys included. Only the
// grading path and the secure delivery builder may touch it.
type QuestionStore interface {
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Question, error)
}

// EnrollmentStore validates enrollment and persists derived course progress.
type EnrollmentStore interface {
	GetByStudentAndCourse(ctx context.Context, studentID, courseID uuid.UUID) (*model.Enrollment, error)
	UpdateProgress(ctx context.Context, enrollmentID uuid.UUID, percentage float64, completedTopics []uuid.UUID) error
}

// ProgressStore is the keyed per-student-per-content progress repository.
type ProgressStore interface {
	GetOrCreate(ctx context.Context, enrollmentID, contentID uuid.UUID, contentType model.ContentType) (*model.ContentProgressRecord, error)
	GetByEnrollmentAndContent(ctx context.Context, enrollmentID, contentID uuid.UUID) (*model.ContentProgressRecord, error)
	ListByEnrollment(ctx context.Context, enrollmentID uuid.UUID) ([]model.ContentProgressRecord, error)
	MarkInProgress(ctx context.Context, id uuid.UUID, percentage float64) error
	MarkCompleted(ctx context.Context, id uuid.UUID, percentage float64) (bool, error)
	IncrementWatchCount(ctx context.Context, id uuid.UUID, maxWatchCount *int) (bool, error)

	GetActiveAttempt(ctx context.Context, progressID uuid.UUID) (*model.AttemptRecord, error)
	GetAttempt(ctx context.Context, progressID uuid.UUID, attemptNumber int) (*model.AttemptRecord, error)
	CountTerminalAttempts(ctx context.Context, progressID uuid.UUID) (int, error)
	CreateAttempt(ctx context.Context, a *model.AttemptRecord) error
	FinalizeAttempt(ctx context.Context, a *model.AttemptRecord, newStatus model.CompletionStatus, percentage float64) (bool, bool, error)
	ExpireAttempt(ctx context.Context, attemptID, progressID uuid.UUID) (bool, error)
}

// AttemptCacheStore is the Redis fast lane for attempt deadlines and
// shuffle plans. Misses are not errors; PostgreSQL is the source of truth.
type AttemptCacheStore interface {
	GetShuffle(ctx context.Context, studentID, contentID uuid.UUID, attemptNumber int) (*model.ShufflePlan, error)
	PutShuffle(ctx context.Context, studentID, contentID uuid.UUID, attemptNumber int, plan *model.ShufflePlan) error
	GetDeadline(ctx context.Context, studentID, contentID uuid.UUID, attemptNumber int) (time.Time, bool, error)
	PutDeadline(ctx context.Context, studentID, contentID uuid.UUID, attemptNumber int, deadline time.Time) error
}

// TaskQueue feeds the write-behind workers.
type TaskQueue interface {
	EnqueueProgressSnapshot(ctx context.Context, snap model.ProgressSnapshot) error
	EnqueueCompletion(ctx context.Context, notice model.CompletionNotice) error
}
