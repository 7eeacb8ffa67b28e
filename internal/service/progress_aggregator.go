package service

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/lumenlms/progression-backend/internal/model"
)

// ProgressAggregator derives topic and course completion percentages from
// the per-content progress records. The derived numbers are never stored as
// truth; the records are, and the enrollment row only carries a write-behind
// snapshot for cheap listing queries.
type ProgressAggregator struct {
	graph    ContentGraph
	progress ProgressStore
}

// NewProgressAggregator creates a new ProgressAggregator.
func NewProgressAggregator(graph ContentGraph, progress ProgressStore) *ProgressAggregator {
	return &ProgressAggregator{graph: graph, progress: progress}
}

// CourseProgress recomputes the full roll-up for one enrollment. Topic
// percentage is completed content over total content within the topic;
// course percentage is the mean of topic percentages, so every topic
// weighs the same regardless of how many items it holds.
func (a *ProgressAggregator) CourseProgress(ctx context.Context, enrollment *model.Enrollment) (*model.CourseProgressView, error) {
	topics, err := a.graph.CourseTopics(ctx, enrollment.CourseID)
	if err != nil {
		return nil, fmt.Errorf("load course topics: %w", err)
	}

	records, err := a.progress.ListByEnrollment(ctx, enrollment.ID)
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	completed := make(map[uuid.UUID]bool, len(records))
	for _, rec := range records {
		if rec.CompletionStatus == model.CompletionCompleted {
			completed[rec.ContentID] = true
		}
	}

	view := &model.CourseProgressView{CourseID: enrollment.CourseID}
	var percentSum float64
	var counted int
	for _, topic := range topics {
		total := len(topic.Contents)
		if total == 0 {
			continue
		}
		done := 0
		for _, item := range topic.Contents {
			if completed[item.ID] {
				done++
			}
		}
		pct := roundPercent(float64(done) / float64(total) * 100)
		tv := model.TopicProgressView{
			TopicID:          topic.ID,
			Title:            topic.Title,
			CompletedContent: done,
			TotalContent:     total,
			Percentage:       pct,
			Completed:        done == total,
		}
		if tv.Completed {
			view.CompletedTopics++
		}
		view.Topics = append(view.Topics, tv)
		percentSum += pct
		counted++
	}
	view.TotalTopics = counted
	if counted > 0 {
		view.Percentage = roundPercent(percentSum / float64(counted))
	}
	return view, nil
}

// completedTopicIDs extracts the IDs of fully completed topics from a view.
func completedTopicIDs(view *model.CourseProgressView) []uuid.UUID {
	ids := make([]uuid.UUID, 0, view.CompletedTopics)
	for _, tv := range view.Topics {
		if tv.Completed {
			ids = append(ids, tv.TopicID)
		}
	}
	return ids
}

func roundPercent(p float64) float64 {
	return math.Round(p*100) / 100
}
