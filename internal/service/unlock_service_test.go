package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestUnlockFirstContentIsOpen(t *testing.T) {
	env := newTestEnv(t)

	status, err := env.unlock.Status(context.Background(), env.studentID, env.videoID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !status.Unlocked {
		t.Fatalf("first content should be unlocked, got reason %q", status.Reason)
	}
}

func TestUnlockRequiresEarlierContent(t *testing.T) {
	env := newTestEnv(t)

	status, err := env.unlock.Status(context.Background(), env.studentID, env.readingID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.Unlocked {
		t.Fatal("reading should be locked behind the video")
	}
	if status.MissingContent == nil || status.MissingContent.ID != env.videoID {
		t.Fatalf("missing content should be the video, got %+v", status.MissingContent)
	}

	env.completeContent(t, env.videoID)

	status, err = env.unlock.Status(context.Background(), env.studentID, env.readingID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !status.Unlocked {
		t.Fatalf("reading should unlock after video, got reason %q", status.Reason)
	}
}

func TestUnlockCrossTopicOrder(t *testing.T) {
	env := newTestEnv(t)
	env.completeContent(t, env.videoID)

	status, err := env.unlock.Status(context.Background(), env.studentID, env.quizID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.Unlocked {
		t.Fatal("quiz should stay locked while the reading is incomplete")
	}
	if status.MissingContent == nil || status.MissingContent.ID != env.readingID {
		t.Fatalf("missing content should be the reading, got %+v", status.MissingContent)
	}
}

func TestUnlockExplicitPrerequisite(t *testing.T) {
	env := newTestEnv(t)

	// Point the video at the quiz, a forward edge the linear gate would
	// never require.
	env.store.contents[env.videoID].Prerequisites = []uuid.UUID{env.quizID}
	topics := env.store.courseTopics[env.courseID]
	topics[0].Contents[0].Prerequisites = []uuid.UUID{env.quizID}

	status, err := env.unlock.Status(context.Background(), env.studentID, env.videoID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.Unlocked {
		t.Fatal("explicit prerequisite should lock the video")
	}
	if status.MissingContent == nil || status.MissingContent.ID != env.quizID {
		t.Fatalf("missing content should be the quiz, got %+v", status.MissingContent)
	}
}

func TestUnlockUnknownContent(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.unlock.Status(context.Background(), env.studentID, uuid.New())
	if !errors.Is(err, ErrContentNotFound) {
		t.Fatalf("expected ErrContentNotFound, got %v", err)
	}
}

func TestUnlockUnpublishedContentStaysLocked(t *testing.T) {
	env := newTestEnv(t)

	// Content known to the graph but absent from the published topic list.
	hidden := uuid.New()
	env.store.contentCourse[hidden] = env.courseID

	status, err := env.unlock.Status(context.Background(), env.studentID, hidden)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.Unlocked {
		t.Fatal("content outside the published course must resolve locked")
	}
}

func TestUnlockNotEnrolled(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.unlock.Status(context.Background(), uuid.New(), env.videoID)
	if !errors.Is(err, ErrNotEnrolled) {
		t.Fatalf("expected ErrNotEnrolled, got %v", err)
	}
}
