package model

import (
	"time"

	"github.com/google/uuid"
)

// ContentType enumerates the kinds of learning content inside a topic.
type ContentType string

const (
	ContentTypeVideo      ContentType = "video"
	ContentTypePDF        ContentType = "pdf"
	ContentTypeReading    ContentType = "reading"
	ContentTypeLink       ContentType = "link"
	ContentTypeZoom       ContentType = "zoom"
	ContentTypeQuiz       ContentType = "quiz"
	ContentTypeHomework   ContentType = "homework"
	ContentTypeAssignment ContentType = "assignment"
)

// IsAssessment reports whether the content type is taken as a timed,
// graded attempt.
func (t ContentType) IsAssessment() bool {
	return t == ContentTypeQuiz || t == ContentTypeHomework || t == ContentTypeAssignment
}

// AssessmentSettings configures a quiz/homework content item.
type AssessmentSettings struct {
	// DurationMinutes of 0 means the attempt never expires.
	DurationMinutes int `json:"duration_minutes"`
	// PassingScore is nil when the item relies on the configured default
	// for its content type.
	PassingScore *float64 `json:"passing_score,omitempty"`
	// MaxAttempts of 0 means unlimited.
	MaxAttempts      int  `json:"max_attempts"`
	ShuffleQuestions bool `json:"shuffle_questions"`
	ShuffleOptions   bool `json:"shuffle_options"`
}

// QuestionRef links a question into a content item with its point weight
// and authored position.
type QuestionRef struct {
	QuestionID uuid.UUID `json:"question_id"`
	Points     float64   `json:"points"`
	OrderNum   int       `json:"order_num"`
}

// ContentItem is an atomic learning unit inside a topic. Immutable for the
// duration of any attempt referencing it.
type ContentItem struct {
	ID          uuid.UUID   `json:"id"`
	TopicID     uuid.UUID   `json:"topic_id"`
	Title       string      `json:"title"`
	ContentType ContentType `json:"content_type"`
	OrderNum    int         `json:"order_num"`
	// Prerequisites are explicit cross-topic edges on top of the course's
	// linear ordering.
	Prerequisites []uuid.UUID `json:"prerequisites,omitempty"`
	// DurationSeconds is the playable length for video content.
	DurationSeconds int `json:"duration_seconds,omitempty"`
	// MaxWatchCount caps accepted video completions when set.
	MaxWatchCount *int `json:"max_watch_count,omitempty"`

	Assessment        AssessmentSettings `json:"assessment"`
	SelectedQuestions []QuestionRef      `json:"selected_questions,omitempty"`
}

// Topic is an ordered group of content items inside a course. The publish
// flag gates student visibility.
type Topic struct {
	ID        uuid.UUID     `json:"id"`
	CourseID  uuid.UUID     `json:"course_id"`
	Title     string        `json:"title"`
	OrderNum  int           `json:"order_num"`
	Published bool          `json:"published"`
	Contents  []ContentItem `json:"contents,omitempty"`
}

// Course is the top of the content graph.
type Course struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Published bool      `json:"published"`
	CreatedAt time.Time `json:"created_at"`
}
