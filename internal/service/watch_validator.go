package service

import (
	"sort"

	"github.com/lumenlms/progression-backend/internal/config"
	"github.com/lumenlms/progression-backend/internal/model"
)

// WatchPolicy holds the acceptance thresholds for video watch validation.
type WatchPolicy struct {
	AcceptPercent   float64
	FrontendPercent float64
	FallbackPercent float64
	SegmentMergeGap float64
}

// WatchPolicyFromConfig builds the policy from environment configuration.
func WatchPolicyFromConfig(cfg *config.Config) WatchPolicy {
	return WatchPolicy{
		AcceptPercent:   cfg.WatchAcceptPercent,
		FrontendPercent: cfg.WatchFrontendPercent,
		FallbackPercent: cfg.WatchFallbackPercent,
		SegmentMergeGap: cfg.WatchSegmentMergeGap,
	}
}

// WatchResult is the verdict over one reported set of play segments.
type WatchResult struct {
	TotalWatchedSeconds float64 `json:"total_watched_seconds"`
	ActualPercent       float64 `json:"actual_percent"`
	Accepted            bool    `json:"accepted"`
}

// WatchValidator recomputes watched coverage from raw play segments instead
// of trusting the percentage the client reports. The client figure is only
// a tie-breaker when measured coverage lands between the fallback and
// accept thresholds.
type WatchValidator struct {
	policy WatchPolicy
}

// NewWatchValidator creates a new WatchValidator.
func NewWatchValidator(policy WatchPolicy) *WatchValidator {
	return &WatchValidator{policy: policy}
}

// MergeSegments sorts segments by start and merges any that overlap or sit
// within the configured gap of each other. Segments with a non-positive
// span are dropped. The input slice is not modified.
func (v *WatchValidator) MergeSegments(segments []model.PlaySegment) []model.PlaySegment {
	valid := make([]model.PlaySegment, 0, len(segments))
	for _, seg := range segments {
		if seg.End > seg.Start {
			valid = append(valid, seg)
		}
	}
	if len(valid) == 0 {
		return nil
	}

	sort.Slice(valid, func(i, j int) bool { return valid[i].Start < valid[j].Start })

	merged := []model.PlaySegment{valid[0]}
	for _, seg := range valid[1:] {
		last := &merged[len(merged)-1]
		if seg.Start <= last.End+v.policy.SegmentMergeGap {
			if seg.End > last.End {
				last.End = seg.End
			}
			continue
		}
		merged = append(merged, seg)
	}
	return merged
}

// Validate measures coverage of the video and applies the acceptance rule:
// accept when measured coverage reaches AcceptPercent, or when the client
// reports at least FrontendPercent and measured coverage still reaches
// FallbackPercent.
func (v *WatchValidator) Validate(segments []model.PlaySegment, videoDuration, reportedPercent float64) (*WatchResult, error) {
	if videoDuration <= 0 {
		return nil, ErrInvalidWatchData
	}

	var total float64
	for _, seg := range v.MergeSegments(segments) {
		end := seg.End
		if end > videoDuration {
			end = videoDuration
		}
		if end > seg.Start {
			total += end - seg.Start
		}
	}

	actual := total / videoDuration * 100
	accepted := actual >= v.policy.AcceptPercent ||
		(reportedPercent >= v.policy.FrontendPercent && actual >= v.policy.FallbackPercent)

	return &WatchResult{
		TotalWatchedSeconds: total,
		ActualPercent:       actual,
		Accepted:            accepted,
	}, nil
}
