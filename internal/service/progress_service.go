package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/lumenlms/progression-backend/internal/config"
	"github.com/lumenlms/progression-backend/internal/model"
	"github.com/rs/zerolog"
)

// ProgressUpdateResult is returned from a non-assessment progress update.
type ProgressUpdateResult struct {
	ContentProgress *model.ContentProgressRecord `json:"content_progress"`
	CourseProgress  *model.CourseProgressView    `json:"course_progress,omitempty"`
	Watch           *WatchResult                 `json:"watch,omitempty"`
}

// ProgressService handles direct progress updates for non-assessment
// content (video, pdf, reading, link, zoom) and serves the course roll-up.
// Assessment progress is owned by the attempt lifecycle and rejected here.
type ProgressService struct {
	graph       ContentGraph
	enrollments EnrollmentStore
	progress    ProgressStore
	unlock      *UnlockService
	aggregator  *ProgressAggregator
	watch       *WatchValidator
	queue       TaskQueue
	cfg         *config.Config
	log         zerolog.Logger
}

// NewProgressService creates a new ProgressService.
func NewProgressService(
	graph ContentGraph,
	enrollments EnrollmentStore,
	progress ProgressStore,
	unlock *UnlockService,
	aggregator *ProgressAggregator,
	watch *WatchValidator,
	queue TaskQueue,
	cfg *config.Config,
	log zerolog.Logger,
) *ProgressService {
	return &ProgressService{
		graph:       graph,
		enrollments: enrollments,
		progress:    progress,
		unlock:      unlock,
		aggregator:  aggregator,
		watch:       watch,
		queue:       queue,
		cfg:         cfg,
		log:         log.With().Str("component", "progress_service").Logger(),
	}
}

func (s *ProgressService) resolve(ctx context.Context, studentID, contentID uuid.UUID) (*model.ContentItem, *model.Enrollment, error) {
	content, err := s.graph.GetByID(ctx, contentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrContentNotFound
		}
		return nil, nil, fmt.Errorf("get content: %w", err)
	}
	courseID, err := s.graph.CourseIDForContent(ctx, contentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrContentNotFound
		}
		return nil, nil, fmt.Errorf("resolve course: %w", err)
	}
	enrollment, err := s.enrollments.GetByStudentAndCourse(ctx, studentID, courseID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrNotEnrolled
		}
		return nil, nil, fmt.Errorf("get enrollment: %w", err)
	}
	return content, enrollment, nil
}

// UnlockStatus resolves the unlock state of a content item for a student.
func (s *ProgressService) UnlockStatus(ctx context.Context, studentID, contentID uuid.UUID) (*UnlockStatus, error) {
	return s.unlock.Status(ctx, studentID, contentID)
}

// UpdateProgress records a progress event on non-assessment content. Video
// events carry play segments and run through watch validation; other types
// carry a viewed percentage and complete once it crosses the configured
// threshold.
func (s *ProgressService) UpdateProgress(ctx context.Context, studentID, contentID uuid.UUID, req *model.UpdateProgressRequest) (*ProgressUpdateResult, error) {
	content, enrollment, err := s.resolve(ctx, studentID, contentID)
	if err != nil {
		return nil, err
	}
	if content.ContentType.IsAssessment() {
		return nil, ErrNotAssessment
	}

	status, err := s.unlock.StatusForEnrollment(ctx, enrollment, contentID)
	if err != nil {
		return nil, err
	}
	if !status.Unlocked {
		return nil, fmt.Errorf("%w: %s", ErrContentLocked, status.Reason)
	}

	rec, err := s.progress.GetOrCreate(ctx, enrollment.ID, contentID, content.ContentType)
	if err != nil {
		return nil, fmt.Errorf("get or create progress: %w", err)
	}

	result := &ProgressUpdateResult{}
	var firstCompletion bool

	switch content.ContentType {
	case model.ContentTypeVideo:
		result.Watch, firstCompletion, err = s.applyVideoUpdate(ctx, content, rec, req)
	default:
		firstCompletion, err = s.applyViewUpdate(ctx, rec, req)
	}
	if err != nil {
		return nil, err
	}

	if firstCompletion {
		s.notifyCompletion(ctx, studentID, content, enrollment)
	}

	fresh, err := s.progress.GetByEnrollmentAndContent(ctx, enrollment.ID, contentID)
	if err != nil {
		return nil, fmt.Errorf("reload progress: %w", err)
	}
	result.ContentProgress = fresh

	result.CourseProgress = s.recomputeAndPersist(ctx, enrollment)
	return result, nil
}

// applyVideoUpdate validates watch coverage and completes the video on
// acceptance. The watch count cap is checked before validation and again
// atomically at increment time, and a rejected update never consumes a watch.
func (s *ProgressService) applyVideoUpdate(ctx context.Context, content *model.ContentItem, rec *model.ContentProgressRecord, req *model.UpdateProgressRequest) (*WatchResult, bool, error) {
	if content.MaxWatchCount != nil && rec.WatchCount >= *content.MaxWatchCount {
		return nil, false, ErrWatchLimitExceeded
	}
	if len(req.Segments) == 0 {
		return nil, false, ErrInvalidWatchData
	}

	duration := req.VideoDuration
	if duration <= 0 {
		duration = float64(content.DurationSeconds)
	}

	watch, err := s.watch.Validate(req.Segments, duration, req.ReportedPercent)
	if err != nil {
		return nil, false, err
	}
	if !watch.Accepted {
		return watch, false, fmt.Errorf("%w: measured %.1f%% of the video", ErrInsufficientWatchCoverage, watch.ActualPercent)
	}

	ok, err := s.progress.IncrementWatchCount(ctx, rec.ID, content.MaxWatchCount)
	if err != nil {
		return nil, false, fmt.Errorf("increment watch count: %w", err)
	}
	if !ok {
		return nil, false, ErrWatchLimitExceeded
	}

	first, err := s.progress.MarkCompleted(ctx, rec.ID, 100)
	if err != nil {
		return nil, false, fmt.Errorf("mark completed: %w", err)
	}
	return watch, first, nil
}

// applyViewUpdate handles pdf/reading/link/zoom progress, which is a plain
// viewed percentage completing at the configured threshold.
func (s *ProgressService) applyViewUpdate(ctx context.Context, rec *model.ContentProgressRecord, req *model.UpdateProgressRequest) (bool, error) {
	if req.ProgressPercent >= s.cfg.ReadingCompletePercent {
		first, err := s.progress.MarkCompleted(ctx, rec.ID, 100)
		if err != nil {
			return false, fmt.Errorf("mark completed: %w", err)
		}
		return first, nil
	}
	if err := s.progress.MarkInProgress(ctx, rec.ID, req.ProgressPercent); err != nil {
		return false, fmt.Errorf("mark in progress: %w", err)
	}
	return false, nil
}

// CourseProgress serves the roll-up for one of the student's courses.
func (s *ProgressService) CourseProgress(ctx context.Context, studentID, courseID uuid.UUID) (*model.CourseProgressView, error) {
	enrollment, err := s.enrollments.GetByStudentAndCourse(ctx, studentID, courseID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotEnrolled
		}
		return nil, fmt.Errorf("get enrollment: %w", err)
	}

	view, err := s.aggregator.CourseProgress(ctx, enrollment)
	if err != nil {
		return nil, err
	}
	s.enqueueSnapshot(ctx, enrollment.ID, view)
	return view, nil
}

// ContentProgress returns the stored per-content record, creating nothing.
func (s *ProgressService) ContentProgress(ctx context.Context, studentID, contentID uuid.UUID) (*model.ContentProgressRecord, error) {
	_, enrollment, err := s.resolve(ctx, studentID, contentID)
	if err != nil {
		return nil, err
	}
	rec, err := s.progress.GetByEnrollmentAndContent(ctx, enrollment.ID, contentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrContentNotFound
		}
		return nil, fmt.Errorf("get progress: %w", err)
	}
	return rec, nil
}

// recomputeAndPersist rebuilds the course roll-up with one retry, queues it
// for write-behind persistence, and returns it. On a double failure the
// update stands on its own and nil is returned; the next event heals the
// derived numbers.
func (s *ProgressService) recomputeAndPersist(ctx context.Context, enrollment *model.Enrollment) *model.CourseProgressView {
	view, err := s.aggregator.CourseProgress(ctx, enrollment)
	if err != nil {
		view, err = s.aggregator.CourseProgress(ctx, enrollment)
	}
	if err != nil {
		s.log.Error().Err(err).Str("enrollment_id", enrollment.ID.String()).Msg("course progress recompute failed twice")
		return nil
	}
	s.enqueueSnapshot(ctx, enrollment.ID, view)
	return view
}

func (s *ProgressService) enqueueSnapshot(ctx context.Context, enrollmentID uuid.UUID, view *model.CourseProgressView) {
	snap := model.ProgressSnapshot{
		EnrollmentID:    enrollmentID,
		Percentage:      view.Percentage,
		CompletedTopics: completedTopicIDs(view),
	}
	if err := s.queue.EnqueueProgressSnapshot(ctx, snap); err != nil {
		s.log.Error().Err(err).Str("enrollment_id", enrollmentID.String()).Msg("failed to enqueue progress snapshot")
	}
}

func (s *ProgressService) notifyCompletion(ctx context.Context, studentID uuid.UUID, content *model.ContentItem, enrollment *model.Enrollment) {
	courseTitle := ""
	if course, err := s.graph.GetCourse(ctx, enrollment.CourseID); err == nil {
		courseTitle = course.Title
	}
	notice := model.CompletionNotice{
		StudentID:    studentID,
		ContentTitle: content.Title,
		ContentType:  content.ContentType,
		Course:       courseTitle,
	}
	if err := s.queue.EnqueueCompletion(ctx, notice); err != nil {
		s.log.Error().Err(err).Str("content_id", content.ID.String()).Msg("failed to enqueue completion notice")
	}
}
