package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/lumenlms/progression-backend/internal/model"
	"github.com/rs/zerolog"
)

// UnlockStatus is the resolver verdict for one content item.
type UnlockStatus struct {
	Unlocked       bool            `json:"unlocked"`
	Reason         string          `json:"reason"`
	MissingContent *MissingContent `json:"missing_content,omitempty"`
}

// MissingContent identifies the first unsatisfied gate.
type MissingContent struct {
	ID    uuid.UUID `json:"id"`
	Title string    `json:"title"`
}

// UnlockService decides whether a student may open a content item. Two
// gates apply: linear order within the course, and explicit prerequisites
// on the item itself. Both must pass.
type UnlockService struct {
	graph       ContentGraph
	enrollments EnrollmentStore
	progress    ProgressStore
	log         zerolog.Logger
}

// NewUnlockService creates a new UnlockService.
func NewUnlockService(graph ContentGraph, enrollments EnrollmentStore, progress ProgressStore, log zerolog.Logger) *UnlockService {
	return &UnlockService{
		graph:       graph,
		enrollments: enrollments,
		progress:    progress,
		log:         log.With().Str("component", "unlock_service").Logger(),
	}
}

// Status resolves the unlock state of a content item for a student.
func (s *UnlockService) Status(ctx context.Context, studentID, contentID uuid.UUID) (*UnlockStatus, error) {
	courseID, err := s.graph.CourseIDForContent(ctx, contentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrContentNotFound
		}
		return nil, fmt.Errorf("resolve course for content: %w", err)
	}

	enrollment, err := s.enrollments.GetByStudentAndCourse(ctx, studentID, courseID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotEnrolled
		}
		return nil, fmt.Errorf("get enrollment: %w", err)
	}

	return s.StatusForEnrollment(ctx, enrollment, contentID)
}

// StatusForEnrollment resolves unlock state when the enrollment is already
// in hand, sparing callers a second lookup.
func (s *UnlockService) StatusForEnrollment(ctx context.Context, enrollment *model.Enrollment, contentID uuid.UUID) (*UnlockStatus, error) {
	topics, err := s.graph.CourseTopics(ctx, enrollment.CourseID)
	if err != nil {
		return nil, fmt.Errorf("load course topics: %w", err)
	}

	var linear []model.ContentItem
	for _, topic := range topics {
		linear = append(linear, topic.Contents...)
	}

	target := -1
	byID := make(map[uuid.UUID]int, len(linear))
	for i, item := range linear {
		byID[item.ID] = i
		if item.ID == contentID {
			target = i
		}
	}
	if target < 0 {
		// Unknown or unpublished content resolves to locked, never open.
		return &UnlockStatus{Unlocked: false, Reason: "content is not available in this course"}, nil
	}

	records, err := s.progress.ListByEnrollment(ctx, enrollment.ID)
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	completed := make(map[uuid.UUID]bool, len(records))
	for _, rec := range records {
		if rec.CompletionStatus == model.CompletionCompleted {
			completed[rec.ContentID] = true
		}
	}

	for i := 0; i < target; i++ {
		if !completed[linear[i].ID] {
			return &UnlockStatus{
				Unlocked:       false,
				Reason:         fmt.Sprintf("complete %q first", linear[i].Title),
				MissingContent: &MissingContent{ID: linear[i].ID, Title: linear[i].Title},
			}, nil
		}
	}

	for _, prereqID := range linear[target].Prerequisites {
		idx, known := byID[prereqID]
		if !known {
			s.log.Warn().
				Str("content_id", contentID.String()).
				Str("prerequisite_id", prereqID.String()).
				Msg("prerequisite points outside the published course")
			return &UnlockStatus{Unlocked: false, Reason: "a prerequisite is not available"}, nil
		}
		if !completed[prereqID] {
			return &UnlockStatus{
				Unlocked:       false,
				Reason:         fmt.Sprintf("complete %q first", linear[idx].Title),
				MissingContent: &MissingContent{ID: prereqID, Title: linear[idx].Title},
			}, nil
		}
	}

	return &UnlockStatus{Unlocked: true, Reason: "all requirements satisfied"}, nil
}
