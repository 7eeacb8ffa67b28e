package model

import (
	"time"

	"github.com/google/uuid"
)

// Enrollment links a student to a course and carries the rolled-up
// course-level progress.
type Enrollment struct {
	ID                 uuid.UUID   `json:"id"`
	StudentID          uuid.UUID   `json:"student_id"`
	CourseID           uuid.UUID   `json:"course_id"`
	ProgressPercentage float64     `json:"progress_percentage"`
	CompletedTopics    []uuid.UUID `json:"completed_topics,omitempty"`
	EnrolledAt         time.Time   `json:"enrolled_at"`
}

// Student is a learner account. Token issuance lives in an external auth
// service; this engine only validates and references students by ID.
type Student struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// TopicProgressView is the aggregated completion of one topic for a student.
type TopicProgressView struct {
	TopicID          uuid.UUID `json:"topic_id"`
	Title            string    `json:"title"`
	CompletedContent int       `json:"completed_content"`
	TotalContent     int       `json:"total_content"`
	Percentage       float64   `json:"percentage"`
	Completed        bool      `json:"completed"`
}

// CourseProgressView is the pull-based aggregate over all published topics.
type CourseProgressView struct {
	CourseID        uuid.UUID           `json:"course_id"`
	Percentage      float64             `json:"percentage"`
	CompletedTopics int                 `json:"completed_topics"`
	TotalTopics     int                 `json:"total_topics"`
	Topics          []TopicProgressView `json:"topics"`
}

// ProgressSnapshot is a freshly derived course percentage queued for
// write-behind persistence onto the enrollment row.
type ProgressSnapshot struct {
	EnrollmentID    uuid.UUID   `json:"enrollment_id"`
	Percentage      float64     `json:"percentage"`
	CompletedTopics []uuid.UUID `json:"completed_topics,omitempty"`
}

// CompletionNotice is handed to the external notification dispatcher when a
// content item first transitions into completed.
type CompletionNotice struct {
	StudentID    uuid.UUID   `json:"student_id"`
	ContentTitle string      `json:"content_title"`
	ContentType  ContentType `json:"content_type"`
	Course       string      `json:"course"`
}
