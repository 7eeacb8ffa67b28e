package service

import (
	"errors"
	"testing"

	"github.com/lumenlms/progression-backend/internal/model"
)

func newWatchValidator() *WatchValidator {
	return NewWatchValidator(WatchPolicy{
		AcceptPercent:   85,
		FrontendPercent: 90,
		FallbackPercent: 75,
		SegmentMergeGap: 2,
	})
}

func TestWatchMergeOverlappingSegments(t *testing.T) {
	v := newWatchValidator()

	merged := v.MergeSegments([]model.PlaySegment{{Start: 0, End: 10}, {Start: 9, End: 20}})
	if len(merged) != 1 {
		t.Fatalf("expected 1 merged segment, got %d", len(merged))
	}
	if merged[0].Start != 0 || merged[0].End != 20 {
		t.Fatalf("expected [0,20], got [%v,%v]", merged[0].Start, merged[0].End)
	}
}

func TestWatchMergeWithinGap(t *testing.T) {
	v := newWatchValidator()

	merged := v.MergeSegments([]model.PlaySegment{{Start: 11.5, End: 20}, {Start: 0, End: 10}})
	if len(merged) != 1 {
		t.Fatalf("segments %v seconds apart should merge within the gap, got %d", 1.5, len(merged))
	}

	merged = v.MergeSegments([]model.PlaySegment{{Start: 0, End: 10}, {Start: 13, End: 20}})
	if len(merged) != 2 {
		t.Fatalf("segments past the gap should stay apart, got %d", len(merged))
	}
}

func TestWatchFullCoverageAccepted(t *testing.T) {
	v := newWatchValidator()

	res, err := v.Validate([]model.PlaySegment{{Start: 0, End: 10}, {Start: 9, End: 20}}, 20, 0)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if res.ActualPercent != 100 {
		t.Fatalf("expected 100%% coverage, got %v", res.ActualPercent)
	}
	if !res.Accepted {
		t.Fatal("full coverage should be accepted")
	}
}

func TestWatchRejectsInflatedReport(t *testing.T) {
	v := newWatchValidator()

	// Client claims 95% but segments only cover half the video.
	res, err := v.Validate([]model.PlaySegment{{Start: 0, End: 50}}, 100, 95)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if res.Accepted {
		t.Fatal("50%% measured coverage must be rejected regardless of the reported figure")
	}
	if res.ActualPercent != 50 {
		t.Fatalf("expected 50%% measured, got %v", res.ActualPercent)
	}
}

func TestWatchFallbackPath(t *testing.T) {
	v := newWatchValidator()

	// 80% measured sits between fallback and accept; the client report
	// breaks the tie.
	res, err := v.Validate([]model.PlaySegment{{Start: 0, End: 80}}, 100, 95)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !res.Accepted {
		t.Fatal("80%% measured with a 95%% report should pass the fallback rule")
	}

	res, err = v.Validate([]model.PlaySegment{{Start: 0, End: 80}}, 100, 80)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if res.Accepted {
		t.Fatal("80%% measured with an 80%% report should not pass")
	}
}

func TestWatchClampsToDuration(t *testing.T) {
	v := newWatchValidator()

	res, err := v.Validate([]model.PlaySegment{{Start: 0, End: 500}}, 100, 0)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if res.ActualPercent != 100 {
		t.Fatalf("coverage should clamp to 100%%, got %v", res.ActualPercent)
	}
}

func TestWatchInvalidDuration(t *testing.T) {
	v := newWatchValidator()

	_, err := v.Validate([]model.PlaySegment{{Start: 0, End: 10}}, 0, 0)
	if !errors.Is(err, ErrInvalidWatchData) {
		t.Fatalf("expected ErrInvalidWatchData, got %v", err)
	}
}
