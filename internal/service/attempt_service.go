package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/lumenlms/progression-backend/internal/config"
	"github.com/lumenlms/progression-backend/internal/grading"
	"github.com/lumenlms/progression-backend/internal/model"
	"github.com/lumenlms/progression-backend/internal/shuffle"
	"github.com/rs/zerolog"
)

// StartAttemptResult is the payload returned by Start. Starting is
// idempotent: calling Start while an unexpired attempt is active resumes
// it with the same attempt number, deadline and question order.
type StartAttemptResult struct {
	AttemptNumber int                    `json:"attempt_number"`
	Resumed       bool                   `json:"resumed"`
	Timing        model.AttemptTiming    `json:"timing"`
	Questions     []model.SecureQuestion `json:"questions"`
}

// SubmitAttemptResult is the grading outcome of a submission. IsExpired is
// set when the submission arrived past the deadline grace window, in which
// case no grading happened and the attempt timed out.
type SubmitAttemptResult struct {
	Score          float64 `json:"score"`
	CorrectAnswers int     `json:"correct_answers"`
	TotalQuestions int     `json:"total_questions"`
	Passed         bool    `json:"passed"`
	PassingScore   float64 `json:"passing_score"`
	IsExpired      bool    `json:"is_expired"`
}

// AttemptService manages the attempt session lifecycle for assessment
// content: start/resume, secure question delivery, timing, submission and
// grading. The database guards the hard invariants (one active attempt,
// terminal transitions happen once); this service sequences around them.
type AttemptService struct {
	graph       ContentGraph
	questions   QuestionStore
	enrollments EnrollmentStore
	progress    ProgressStore
	unlock      *UnlockService
	aggregator  *ProgressAggregator
	cache       AttemptCacheStore
	queue       TaskQueue
	grader      *grading.Engine
	cfg         *config.Config
	log         zerolog.Logger
}

// NewAttemptService creates a new AttemptService.
func NewAttemptService(
	graph ContentGraph,
	questions QuestionStore,
	enrollments EnrollmentStore,
	progress ProgressStore,
	unlock *UnlockService,
	aggregator *ProgressAggregator,
	cache AttemptCacheStore,
	queue TaskQueue,
	cfg *config.Config,
	log zerolog.Logger,
) *AttemptService {
	return &AttemptService{
		graph:       graph,
		questions:   questions,
		enrollments: enrollments,
		progress:    progress,
		unlock:      unlock,
		aggregator:  aggregator,
		cache:       cache,
		queue:       queue,
		grader:      grading.NewEngine(),
		cfg:         cfg,
		log:         log.With().Str("component", "attempt_service").Logger(),
	}
}

// resolve loads the content item and the student's enrollment in its course.
func (s *AttemptService) resolve(ctx context.Context, studentID, contentID uuid.UUID) (*model.ContentItem, *model.Enrollment, error) {
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

// passingScore resolves the effective passing score for a content item.
func (s *AttemptService) passingScore(content *model.ContentItem) float64 {
	if content.Assessment.PassingScore != nil {
		return *content.Assessment.PassingScore
	}
	if content.ContentType == model.ContentTypeHomework {
		return s.cfg.HomeworkPassingScoreDefault
	}
	return s.cfg.QuizPassingScoreDefault
}

// Start opens a new attempt or resumes the active one. An expired active
// attempt is finalized as timed out before a fresh attempt is considered.
func (s *AttemptService) Start(ctx context.Context, studentID, contentID uuid.UUID) (*StartAttemptResult, error) {
	content, enrollment, err := s.resolve(ctx, studentID, contentID)
	if err != nil {
		return nil, err
	}
	if !content.ContentType.IsAssessment() {
		return nil, ErrNotAssessment
	}
	if len(content.SelectedQuestions) == 0 {
		return nil, ErrNoQuestions
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

	now := time.Now()
	active, err := s.progress.GetActiveAttempt(ctx, rec.ID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get active attempt: %w", err)
	}
	if active != nil {
		if !attemptExpired(active, now) {
			return s.resume(ctx, studentID, content, active, now)
		}
		if _, err := s.progress.ExpireAttempt(ctx, active.ID, rec.ID); err != nil {
			return nil, fmt.Errorf("expire stale attempt: %w", err)
		}
	}

	terminal, err := s.progress.CountTerminalAttempts(ctx, rec.ID)
	if err != nil {
		return nil, fmt.Errorf("count attempts: %w", err)
	}
	if max := content.Assessment.MaxAttempts; max > 0 && terminal >= max {
		return nil, ErrAttemptLimitExceeded
	}
	attemptNumber := terminal + 1

	questions, err := s.loadQuestions(ctx, content)
	if err != nil {
		return nil, err
	}

	plan := buildShufflePlan(studentID, contentID, attemptNumber, content, questions)

	var expectedEnd *time.Time
	if d := content.Assessment.DurationMinutes; d > 0 {
		end := now.Add(time.Duration(d) * time.Minute)
		expectedEnd = &end
	}

	attempt := &model.AttemptRecord{
		ProgressID:     rec.ID,
		AttemptNumber:  attemptNumber,
		ExpectedEnd:    expectedEnd,
		TotalQuestions: len(content.SelectedQuestions),
		PassingScore:   s.passingScore(content),
		Status:         model.AttemptStatusInProgress,
		Shuffle:        plan,
	}
	err = s.progress.CreateAttempt(ctx, attempt)
	if errors.Is(err, pgx.ErrNoRows) {
		// Lost a race with a concurrent start; resume whatever won.
		active, err := s.progress.GetActiveAttempt(ctx, rec.ID)
		if err != nil {
			return nil, fmt.Errorf("get attempt after create race: %w", err)
		}
		return s.resume(ctx, studentID, content, active, now)
	}
	if err != nil {
		return nil, fmt.Errorf("create attempt: %w", err)
	}

	if err := s.progress.MarkInProgress(ctx, rec.ID, rec.ProgressPercentage); err != nil {
		return nil, fmt.Errorf("mark in progress: %w", err)
	}

	s.warmCache(ctx, studentID, contentID, attempt)

	payload, err := BuildSecureQuestions(content, questions, plan)
	if err != nil {
		return nil, err
	}

	return &StartAttemptResult{
		AttemptNumber: attemptNumber,
		Timing:        timing(content, attempt, now),
		Questions:     payload,
	}, nil
}

// resume rebuilds the client payload for an active attempt from its stored
// shuffle plan. The plan is never recomputed here.
func (s *AttemptService) resume(ctx context.Context, studentID uuid.UUID, content *model.ContentItem, attempt *model.AttemptRecord, now time.Time) (*StartAttemptResult, error) {
	plan := attempt.Shuffle
	if cached, err := s.cache.GetShuffle(ctx, studentID, content.ID, attempt.AttemptNumber); err != nil {
		s.log.Warn().Err(err).Msg("shuffle cache read failed, using stored plan")
	} else if cached == nil {
		s.warmCache(ctx, studentID, content.ID, attempt)
	} else {
		plan = *cached
	}

	questions, err := s.loadQuestions(ctx, content)
	if err != nil {
		return nil, err
	}
	payload, err := BuildSecureQuestions(content, questions, plan)
	if err != nil {
		return nil, err
	}

	return &StartAttemptResult{
		AttemptNumber: attempt.AttemptNumber,
		Resumed:       true,
		Timing:        timing(content, attempt, now),
		Questions:     payload,
	}, nil
}

// Submit grades a submission and finalizes the attempt. A submission past
// the deadline plus the grace window is not graded; the attempt times out
// and the result reports IsExpired.
func (s *AttemptService) Submit(ctx context.Context, studentID, contentID uuid.UUID, attemptNumber int, req *model.SubmitAttemptRequest) (*SubmitAttemptResult, error) {
	content, enrollment, err := s.resolve(ctx, studentID, contentID)
	if err != nil {
		return nil, err
	}
	if !content.ContentType.IsAssessment() {
		return nil, ErrNotAssessment
	}

	rec, err := s.progress.GetByEnrollmentAndContent(ctx, enrollment.ID, contentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("get progress: %w", err)
	}

	attempt, err := s.progress.GetAttempt(ctx, rec.ID, attemptNumber)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	if attempt.Status.Terminal() {
		return nil, ErrAttemptAlreadyCompleted
	}

	now := time.Now()
	if attempt.ExpectedEnd != nil && now.After(attempt.ExpectedEnd.Add(s.cfg.SubmitGrace)) {
		if _, err := s.progress.ExpireAttempt(ctx, attempt.ID, rec.ID); err != nil {
			return nil, fmt.Errorf("expire attempt: %w", err)
		}
		s.persistCourseProgress(ctx, enrollment)
		return &SubmitAttemptResult{
			TotalQuestions: attempt.TotalQuestions,
			PassingScore:   attempt.PassingScore,
			IsExpired:      true,
		}, nil
	}

	questions, err := s.loadQuestions(ctx, content)
	if err != nil {
		return nil, err
	}
	points := make(map[uuid.UUID]float64, len(content.SelectedQuestions))
	for _, ref := range content.SelectedQuestions {
		points[ref.QuestionID] = ref.Points
	}

	result, err := s.grader.Grade(questions, points, req.Answers)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGradingFailed, err)
	}

	passed := result.Score >= attempt.PassingScore
	attempt.Score = &result.Score
	attempt.CorrectAnswers = result.CorrectCount
	attempt.TotalQuestions = result.TotalQuestions
	attempt.Passed = passed
	attempt.TimeSpentSeconds = req.TimeSpentSeconds
	attempt.Answers = result.Answers
	if passed {
		attempt.Status = model.AttemptStatusCompleted
	} else {
		attempt.Status = model.AttemptStatusFailed
	}

	newStatus := model.CompletionFailed
	percentage := result.Score
	if passed {
		newStatus = model.CompletionCompleted
		percentage = 100
	}

	finalized, firstCompletion, err := s.progress.FinalizeAttempt(ctx, attempt, newStatus, percentage)
	if err != nil {
		return nil, fmt.Errorf("finalize attempt: %w", err)
	}
	if !finalized {
		return nil, ErrAttemptAlreadyCompleted
	}

	if firstCompletion {
		s.notifyCompletion(ctx, studentID, content, enrollment)
	}
	s.persistCourseProgress(ctx, enrollment)

	return &SubmitAttemptResult{
		Score:          result.Score,
		CorrectAnswers: result.CorrectCount,
		TotalQuestions: result.TotalQuestions,
		Passed:         passed,
		PassingScore:   attempt.PassingScore,
	}, nil
}

// Timing reports the clock state of the active attempt. An expired attempt
// found here is lazily finalized as timed out.
func (s *AttemptService) Timing(ctx context.Context, studentID, contentID uuid.UUID) (*model.AttemptTiming, error) {
	content, enrollment, err := s.resolve(ctx, studentID, contentID)
	if err != nil {
		return nil, err
	}
	if !content.ContentType.IsAssessment() {
		return nil, ErrNotAssessment
	}

	rec, err := s.progress.GetByEnrollmentAndContent(ctx, enrollment.ID, contentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("get progress: %w", err)
	}
	attempt, err := s.progress.GetActiveAttempt(ctx, rec.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("get active attempt: %w", err)
	}

	now := time.Now()
	deadline := attempt.ExpectedEnd
	if deadline != nil {
		if cached, found, err := s.cache.GetDeadline(ctx, studentID, contentID, attempt.AttemptNumber); err != nil {
			s.log.Warn().Err(err).Msg("deadline cache read failed, using stored deadline")
		} else if !found {
			s.warmCache(ctx, studentID, contentID, attempt)
		} else {
			deadline = &cached
		}
	}

	t := timing(content, attempt, now)
	if deadline != nil && !now.Before(*deadline) {
		if _, err := s.progress.ExpireAttempt(ctx, attempt.ID, rec.ID); err != nil {
			return nil, fmt.Errorf("expire attempt: %w", err)
		}
		t.RemainingSeconds = 0
		t.IsExpired = true
	}
	return &t, nil
}

func (s *AttemptService) loadQuestions(ctx context.Context, content *model.ContentItem) ([]model.Question, error) {
	ids := make([]uuid.UUID, 0, len(content.SelectedQuestions))
	for _, ref := range content.SelectedQuestions {
		ids = append(ids, ref.QuestionID)
	}
	questions, err := s.questions.ListByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	if len(questions) != len(ids) {
		return nil, fmt.Errorf("%w: content references %d questions, found %d", ErrQuestionNotFound, len(ids), len(questions))
	}
	return questions, nil
}

// warmCache writes the attempt's shuffle plan and deadline to Redis.
// Best effort; the attempt row already holds both.
func (s *AttemptService) warmCache(ctx context.Context, studentID, contentID uuid.UUID, attempt *model.AttemptRecord) {
	if err := s.cache.PutShuffle(ctx, studentID, contentID, attempt.AttemptNumber, &attempt.Shuffle); err != nil {
		s.log.Warn().Err(err).Msg("failed to cache shuffle plan")
	}
	if attempt.ExpectedEnd != nil {
		if err := s.cache.PutDeadline(ctx, studentID, contentID, attempt.AttemptNumber, *attempt.ExpectedEnd); err != nil {
			s.log.Warn().Err(err).Msg("failed to cache attempt deadline")
		}
	}
}

// notifyCompletion enqueues a first-completion notice. Best effort.
func (s *AttemptService) notifyCompletion(ctx context.Context, studentID uuid.UUID, content *model.ContentItem, enrollment *model.Enrollment) {
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

// persistCourseProgress recomputes the derived course percentage and queues
// it for write-behind persistence. Recompute is retried once; a second
// failure is logged and the stale stored value stands until the next event.
func (s *AttemptService) persistCourseProgress(ctx context.Context, enrollment *model.Enrollment) {
	view, err := s.aggregator.CourseProgress(ctx, enrollment)
	if err != nil {
		view, err = s.aggregator.CourseProgress(ctx, enrollment)
	}
	if err != nil {
		s.log.Error().Err(err).Str("enrollment_id", enrollment.ID.String()).Msg("course progress recompute failed twice")
		return
	}
	snap := model.ProgressSnapshot{
		EnrollmentID:    enrollment.ID,
		Percentage:      view.Percentage,
		CompletedTopics: completedTopicIDs(view),
	}
	if err := s.queue.EnqueueProgressSnapshot(ctx, snap); err != nil {
		s.log.Error().Err(err).Str("enrollment_id", enrollment.ID.String()).Msg("failed to enqueue progress snapshot")
	}
}

// buildShufflePlan derives the permutation set for a new attempt. Disabled
// shuffles produce identity orders so delivery code has one path.
func buildShufflePlan(studentID, contentID uuid.UUID, attemptNumber int, content *model.ContentItem, questions []model.Question) model.ShufflePlan {
	seed := shuffle.Seed(studentID, contentID, attemptNumber)
	n := len(content.SelectedQuestions)

	plan := model.ShufflePlan{}
	if content.Assessment.ShuffleQuestions {
		plan.QuestionOrder = shuffle.Permutation(seed, n)
	} else {
		plan.QuestionOrder = shuffle.Identity(n)
	}

	if content.Assessment.ShuffleOptions {
		plan.OptionOrders = make(map[string][]int, len(questions))
		for _, q := range questions {
			// Written questions carry no options to permute.
			if len(q.Options) < 2 || q.QuestionType == model.QuestionTypeWritten {
				continue
			}
			qseed := shuffle.QuestionSeed(seed, q.ID)
			plan.OptionOrders[q.ID.String()] = shuffle.Permutation(qseed, len(q.Options))
		}
	}
	return plan
}

func attemptExpired(a *model.AttemptRecord, now time.Time) bool {
	return a.ExpectedEnd != nil && now.After(*a.ExpectedEnd)
}

func timing(content *model.ContentItem, attempt *model.AttemptRecord, now time.Time) model.AttemptTiming {
	t := model.AttemptTiming{DurationMinutes: content.Assessment.DurationMinutes}
	if attempt.ExpectedEnd == nil {
		return t
	}
	remaining := attempt.ExpectedEnd.Sub(now).Seconds()
	if remaining <= 0 {
		t.IsExpired = true
		return t
	}
	t.RemainingSeconds = math.Floor(remaining)
	return t
}
