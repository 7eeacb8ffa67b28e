package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/lumenlms/progression-backend/internal/model"
)

// fakeStore is an in-memory stand-in for every store interface the
// services consume. Not-found lookups return pgx.ErrNoRows to match the
// repository layer.
type fakeStore struct {
	courses       map[uuid.UUID]*model.Course
	courseTopics  map[uuid.UUID][]model.Topic
	contents      map[uuid.UUID]*model.ContentItem
	contentCourse map[uuid.UUID]uuid.UUID
	questions     map[uuid.UUID]model.Question
	enrollments   []*model.Enrollment
	records       map[uuid.UUID]*model.ContentProgressRecord
	attempts      map[uuid.UUID]*model.AttemptRecord

	shuffles  map[string]*model.ShufflePlan
	deadlines map[string]time.Time

	snapshots []model.ProgressSnapshot
	notices   []model.CompletionNotice
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		courses:       make(map[uuid.UUID]*model.Course),
		courseTopics:  make(map[uuid.UUID][]model.Topic),
		contents:      make(map[uuid.UUID]*model.ContentItem),
		contentCourse: make(map[uuid.UUID]uuid.UUID),
		questions:     make(map[uuid.UUID]model.Question),
		records:       make(map[uuid.UUID]*model.ContentProgressRecord),
		attempts:      make(map[uuid.UUID]*model.AttemptRecord),
		shuffles:      make(map[string]*model.ShufflePlan),
		deadlines:     make(map[string]time.Time),
	}
}

// ── ContentGraph ────────────────────────────────────────────────────────────

func (f *fakeStore) GetByID(_ context.Context, contentID uuid.UUID) (*model.ContentItem, error) {
	if c, ok := f.contents[contentID]; ok {
		return c, nil
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeStore) GetCourse(_ context.Context, courseID uuid.UUID) (*model.Course, error) {
	if c, ok := f.courses[courseID]; ok {
		return c, nil
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeStore) CourseIDForContent(_ context.Context, contentID uuid.UUID) (uuid.UUID, error) {
	if id, ok := f.contentCourse[contentID]; ok {
		return id, nil
	}
	return uuid.Nil, pgx.ErrNoRows
}

func (f *fakeStore) CourseTopics(_ context.Context, courseID uuid.UUID) ([]model.Topic, error) {
	return f.courseTopics[courseID], nil
}

// ── QuestionStore ───────────────────────────────────────────────────────────

func (f *fakeStore) ListByIDs(_ context.Context, ids []uuid.UUID) ([]model.Question, error) {
	out := make([]model.Question, 0, len(ids))
	for _, id := range ids {
		if q, ok := f.questions[id]; ok {
			out = append(out, q)
		}
	}
	return out, nil
}

// ── EnrollmentStore ─────────────────────────────────────────────────────────

func (f *fakeStore) GetByStudentAndCourse(_ context.Context, studentID, courseID uuid.UUID) (*model.Enrollment, error) {
	for _, e := range f.enrollments {
		if e.StudentID == studentID && e.CourseID == courseID {
			return e, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeStore) UpdateProgress(_ context.Context, enrollmentID uuid.UUID, percentage float64, completedTopics []uuid.UUID) error {
	for _, e := range f.enrollments {
		if e.ID == enrollmentID {
			e.ProgressPercentage = percentage
			e.CompletedTopics = completedTopics
			return nil
		}
	}
	return pgx.ErrNoRows
}

// ── ProgressStore ───────────────────────────────────────────────────────────

func (f *fakeStore) findRecord(enrollmentID, contentID uuid.UUID) *model.ContentProgressRecord {
	for _, rec := range f.records {
		if rec.EnrollmentID == enrollmentID && rec.ContentID == contentID {
			return rec
		}
	}
	return nil
}

func (f *fakeStore) GetOrCreate(_ context.Context, enrollmentID, contentID uuid.UUID, contentType model.ContentType) (*model.ContentProgressRecord, error) {
	if rec := f.findRecord(enrollmentID, contentID); rec != nil {
		rec.LastAccessed = time.Now()
		return rec, nil
	}
	rec := &model.ContentProgressRecord{
		ID:               uuid.New(),
		EnrollmentID:     enrollmentID,
		ContentID:        contentID,
		ContentType:      contentType,
		CompletionStatus: model.CompletionNotStarted,
		LastAccessed:     time.Now(),
	}
	f.records[rec.ID] = rec
	return rec, nil
}

func (f *fakeStore) GetByEnrollmentAndContent(_ context.Context, enrollmentID, contentID uuid.UUID) (*model.ContentProgressRecord, error) {
	if rec := f.findRecord(enrollmentID, contentID); rec != nil {
		return rec, nil
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeStore) ListByEnrollment(_ context.Context, enrollmentID uuid.UUID) ([]model.ContentProgressRecord, error) {
	var out []model.ContentProgressRecord
	for _, rec := range f.records {
		if rec.EnrollmentID == enrollmentID {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (f *fakeStore) MarkInProgress(_ context.Context, id uuid.UUID, percentage float64) error {
	rec, ok := f.records[id]
	if !ok {
		return pgx.ErrNoRows
	}
	if rec.CompletionStatus == model.CompletionCompleted {
		return nil
	}
	rec.CompletionStatus = model.CompletionInProgress
	if percentage > rec.ProgressPercentage {
		rec.ProgressPercentage = percentage
	}
	return nil
}

func (f *fakeStore) MarkCompleted(_ context.Context, id uuid.UUID, percentage float64) (bool, error) {
	rec, ok := f.records[id]
	if !ok {
		return false, pgx.ErrNoRows
	}
	first := rec.CompletionStatus != model.CompletionCompleted
	rec.CompletionStatus = model.CompletionCompleted
	if percentage > rec.ProgressPercentage {
		rec.ProgressPercentage = percentage
	}
	if rec.CompletedAt == nil {
		now := time.Now()
		rec.CompletedAt = &now
	}
	return first, nil
}

func (f *fakeStore) IncrementWatchCount(_ context.Context, id uuid.UUID, maxWatchCount *int) (bool, error) {
	rec, ok := f.records[id]
	if !ok {
		return false, pgx.ErrNoRows
	}
	if maxWatchCount != nil && rec.WatchCount >= *maxWatchCount {
		return false, nil
	}
	rec.WatchCount++
	return true, nil
}

func (f *fakeStore) GetActiveAttempt(_ context.Context, progressID uuid.UUID) (*model.AttemptRecord, error) {
	for _, a := range f.attempts {
		if a.ProgressID == progressID && a.Status == model.AttemptStatusInProgress {
			return a, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeStore) GetAttempt(_ context.Context, progressID uuid.UUID, attemptNumber int) (*model.AttemptRecord, error) {
	for _, a := range f.attempts {
		if a.ProgressID == progressID && a.AttemptNumber == attemptNumber {
			// Return a copy so callers mutating the result before
			// FinalizeAttempt don't alias the stored row, mirroring a
			// real repository read.
			cp := *a
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeStore) CountTerminalAttempts(_ context.Context, progressID uuid.UUID) (int, error) {
	n := 0
	for _, a := range f.attempts {
		if a.ProgressID == progressID && a.Status.Terminal() {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) CreateAttempt(ctx context.Context, a *model.AttemptRecord) error {
	if _, err := f.GetActiveAttempt(ctx, a.ProgressID); err == nil {
		return pgx.ErrNoRows
	}
	a.ID = uuid.New()
	a.StartedAt = time.Now()
	stored := *a
	f.attempts[a.ID] = &stored
	return nil
}

func (f *fakeStore) FinalizeAttempt(_ context.Context, a *model.AttemptRecord, newStatus model.CompletionStatus, percentage float64) (bool, bool, error) {
	stored, ok := f.attempts[a.ID]
	if !ok {
		return false, false, pgx.ErrNoRows
	}
	if stored.Status != model.AttemptStatusInProgress {
		return false, false, nil
	}
	rec, ok := f.records[a.ProgressID]
	if !ok {
		return false, false, pgx.ErrNoRows
	}
	prior := rec.CompletionStatus

	now := time.Now()
	*stored = *a
	stored.CompletedAt = &now

	rec.Attempts++
	if prior != model.CompletionCompleted {
		rec.CompletionStatus = newStatus
	}
	if percentage > rec.ProgressPercentage {
		rec.ProgressPercentage = percentage
	}
	if a.Score != nil && (rec.BestScore == nil || *a.Score > *rec.BestScore) {
		score := *a.Score
		rec.BestScore = &score
	}
	if rec.CompletionStatus == model.CompletionCompleted && rec.CompletedAt == nil {
		rec.CompletedAt = &now
	}

	first := prior != model.CompletionCompleted && newStatus == model.CompletionCompleted
	return true, first, nil
}

func (f *fakeStore) ExpireAttempt(_ context.Context, attemptID, progressID uuid.UUID) (bool, error) {
	stored, ok := f.attempts[attemptID]
	if !ok || stored.Status != model.AttemptStatusInProgress {
		return false, nil
	}
	stored.Status = model.AttemptStatusTimedOut
	now := time.Now()
	stored.CompletedAt = &now

	rec, ok := f.records[progressID]
	if !ok {
		return false, pgx.ErrNoRows
	}
	rec.Attempts++
	if rec.CompletionStatus != model.CompletionCompleted {
		rec.CompletionStatus = model.CompletionFailed
	}
	return true, nil
}

// ── AttemptCacheStore ───────────────────────────────────────────────────────

func cacheKey(studentID, contentID uuid.UUID, attemptNumber int) string {
	return fmt.Sprintf("%s:%s:%d", studentID, contentID, attemptNumber)
}

func (f *fakeStore) GetShuffle(_ context.Context, studentID, contentID uuid.UUID, attemptNumber int) (*model.ShufflePlan, error) {
	return f.shuffles[cacheKey(studentID, contentID, attemptNumber)], nil
}

func (f *fakeStore) PutShuffle(_ context.Context, studentID, contentID uuid.UUID, attemptNumber int, plan *model.ShufflePlan) error {
	f.shuffles[cacheKey(studentID, contentID, attemptNumber)] = plan
	return nil
}

func (f *fakeStore) GetDeadline(_ context.Context, studentID, contentID uuid.UUID, attemptNumber int) (time.Time, bool, error) {
	d, ok := f.deadlines[cacheKey(studentID, contentID, attemptNumber)]
	return d, ok, nil
}

func (f *fakeStore) PutDeadline(_ context.Context, studentID, contentID uuid.UUID, attemptNumber int, deadline time.Time) error {
	f.deadlines[cacheKey(studentID, contentID, attemptNumber)] = deadline
	return nil
}

// ── TaskQueue ───────────────────────────────────────────────────────────────

func (f *fakeStore) EnqueueProgressSnapshot(_ context.Context, snap model.ProgressSnapshot) error {
	f.snapshots = append(f.snapshots, snap)
	return nil
}

func (f *fakeStore) EnqueueCompletion(_ context.Context, notice model.CompletionNotice) error {
	f.notices = append(f.notices, notice)
	return nil
}
