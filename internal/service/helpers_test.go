package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lumenlms/progression-backend/internal/config"
	"github.com/lumenlms/progression-backend/internal/model"
	"github.com/rs/zerolog"
)

// testEnv wires the services over a fakeStore with a small fixture course:
// topic 1 holds a video and a reading, topic 2 holds a timed quiz.
type testEnv struct {
	store *fakeStore
	cfg   *config.Config

	unlock   *UnlockService
	progress *ProgressService
	attempts *AttemptService

	studentID uuid.UUID
	courseID  uuid.UUID
	videoID   uuid.UUID
	readingID uuid.UUID
	quizID    uuid.UUID
	q1ID      uuid.UUID
	q2ID      uuid.UUID
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := newFakeStore()
	cfg := &config.Config{
		SubmitGrace:                 30 * time.Second,
		WatchAcceptPercent:          85,
		WatchFrontendPercent:        90,
		WatchFallbackPercent:        75,
		WatchSegmentMergeGap:        2,
		ReadingCompletePercent:      90,
		QuizPassingScoreDefault:     60,
		HomeworkPassingScoreDefault: 60,
	}

	env := &testEnv{
		store:     store,
		cfg:       cfg,
		studentID: uuid.New(),
		courseID:  uuid.New(),
		videoID:   uuid.New(),
		readingID: uuid.New(),
		quizID:    uuid.New(),
		q1ID:      uuid.New(),
		q2ID:      uuid.New(),
	}

	store.courses[env.courseID] = &model.Course{ID: env.courseID, Title: "Algebra I", Published: true}

	maxWatch := 2
	video := model.ContentItem{
		ID:              env.videoID,
		Title:           "Intro video",
		ContentType:     model.ContentTypeVideo,
		OrderNum:        1,
		DurationSeconds: 100,
		MaxWatchCount:   &maxWatch,
	}
	reading := model.ContentItem{
		ID:          env.readingID,
		Title:       "Chapter one",
		ContentType: model.ContentTypeReading,
		OrderNum:    2,
	}
	quiz := model.ContentItem{
		ID:          env.quizID,
		Title:       "Checkpoint quiz",
		ContentType: model.ContentTypeQuiz,
		OrderNum:    1,
		Assessment: model.AssessmentSettings{
			DurationMinutes:  30,
			MaxAttempts:      2,
			ShuffleQuestions: true,
			ShuffleOptions:   true,
		},
		SelectedQuestions: []model.QuestionRef{
			{QuestionID: env.q1ID, Points: 2, OrderNum: 1},
			{QuestionID: env.q2ID, Points: 5, OrderNum: 2},
		},
	}

	topic1 := model.Topic{ID: uuid.New(), CourseID: env.courseID, Title: "Basics", OrderNum: 1, Published: true, Contents: []model.ContentItem{video, reading}}
	topic2 := model.Topic{ID: uuid.New(), CourseID: env.courseID, Title: "Checkpoint", OrderNum: 2, Published: true, Contents: []model.ContentItem{quiz}}
	store.courseTopics[env.courseID] = []model.Topic{topic1, topic2}

	for _, item := range []model.ContentItem{video, reading, quiz} {
		c := item
		store.contents[c.ID] = &c
		store.contentCourse[c.ID] = env.courseID
	}

	store.questions[env.q1ID] = model.Question{
		ID:           env.q1ID,
		QuestionType: model.QuestionTypeMCQ,
		QuestionText: "2 + 2 = ?",
		Options: []model.Option{
			{ID: "a", Text: "3"},
			{ID: "b", Text: "4"},
			{ID: "c", Text: "5"},
			{ID: "d", Text: "22"},
		},
		CorrectAnswer: "1",
	}
	store.questions[env.q2ID] = model.Question{
		ID:             env.q2ID,
		QuestionType:   model.QuestionTypeWritten,
		QuestionText:   "Capital of France?",
		CorrectAnswers: []string{"paris"},
	}

	store.enrollments = append(store.enrollments, &model.Enrollment{
		ID:         uuid.New(),
		StudentID:  env.studentID,
		CourseID:   env.courseID,
		EnrolledAt: time.Now(),
	})

	log := zerolog.Nop()
	env.unlock = NewUnlockService(store, store, store, log)
	aggregator := NewProgressAggregator(store, store)
	watch := NewWatchValidator(WatchPolicyFromConfig(cfg))
	env.progress = NewProgressService(store, store, store, env.unlock, aggregator, watch, store, cfg, log)
	env.attempts = NewAttemptService(store, store, store, store, env.unlock, aggregator, store, store, cfg, log)
	return env
}

// completeContent marks a content item completed directly in the store,
// bypassing the services, to satisfy unlock gates in fixtures.
func (env *testEnv) completeContent(t *testing.T, contentID uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	enrollment, err := env.store.GetByStudentAndCourse(ctx, env.studentID, env.courseID)
	if err != nil {
		t.Fatalf("get enrollment: %v", err)
	}
	content := env.store.contents[contentID]
	rec, err := env.store.GetOrCreate(ctx, enrollment.ID, contentID, content.ContentType)
	if err != nil {
		t.Fatalf("get or create progress: %v", err)
	}
	if _, err := env.store.MarkCompleted(ctx, rec.ID, 100); err != nil {
		t.Fatalf("mark completed: %v", err)
	}
}

// progressRecord fetches the stored record for a content item.
func (env *testEnv) progressRecord(t *testing.T, contentID uuid.UUID) *model.ContentProgressRecord {
	t.Helper()
	ctx := context.Background()
	enrollment, err := env.store.GetByStudentAndCourse(ctx, env.studentID, env.courseID)
	if err != nil {
		t.Fatalf("get enrollment: %v", err)
	}
	rec := env.store.findRecord(enrollment.ID, contentID)
	if rec == nil {
		t.Fatalf("no progress record for content %s", contentID)
	}
	return rec
}
