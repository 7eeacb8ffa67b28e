// Package notify delivers first-completion notices. The delivery channel
// (mail, push, LMS inbox) lives behind the Dispatcher interface so the
// worker does not care which one is wired in.
package notify

import (
	"context"

	"github.com/lumenlms/progression-backend/internal/model"
	"github.com/rs/zerolog"
)

// Dispatcher delivers one completion notice.
type Dispatcher interface {
	Dispatch(ctx context.Context, notice model.CompletionNotice) error
}

// LogDispatcher writes notices to the structured log. It is the default
// until a real channel integration is configured.
type LogDispatcher struct {
	log zerolog.Logger
}

// NewLogDispatcher creates a new LogDispatcher.
func NewLogDispatcher(log zerolog.Logger) *LogDispatcher {
	return &LogDispatcher{log: log.With().Str("component", "notify").Logger()}
}

// Dispatch logs the notice.
func (d *LogDispatcher) Dispatch(_ context.Context, notice model.CompletionNotice) error {
	d.log.Info().
		Str("student_id", notice.StudentID.String()).
		Str("content_title", notice.ContentTitle).
		Str("content_type", string(notice.ContentType)).
		Str("course", notice.Course).
		Msg("Content completed")
	return nil
}
