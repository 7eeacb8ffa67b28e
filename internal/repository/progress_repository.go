package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lumenlms/progression-backend/internal/model"
)

// ProgressRepository is the keyed progress store: one record per
// (enrollment, content), with attempt records hanging off it. All terminal
// transitions go through conditional updates keyed on the current status,
// so concurrent submissions cannot double-complete an attempt.
type ProgressRepository struct {
	pool *pgxpool.Pool
}

// NewProgressRepository creates a new ProgressRepository.
func NewProgressRepository(pool *pgxpool.Pool) *ProgressRepository {
	return &ProgressRepository{pool: pool}
}

const progressCols = `id, enrollment_id, content_id, content_type, completion_status,
	progress_percentage, attempts, best_score, watch_count, last_accessed, completed_at`

func scanProgress(row pgx.Row) (*model.ContentProgressRecord, error) {
	rec := &model.ContentProgressRecord{}
	err := row.Scan(
		&rec.ID, &rec.EnrollmentID, &rec.ContentID, &rec.ContentType,
		&rec.CompletionStatus, &rec.ProgressPercentage, &rec.Attempts,
		&rec.BestScore, &rec.WatchCount, &rec.LastAccessed, &rec.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// GetOrCreate returns the progress record for (enrollment, content),
// creating it lazily on first interaction.
func (r *ProgressRepository) GetOrCreate(ctx context.Context, enrollmentID, contentID uuid.UUID, contentType model.ContentType) (*model.ContentProgressRecord, error) {
	return scanProgress(r.pool.QueryRow(ctx,
		`INSERT INTO content_progress (enrollment_id, content_id, content_type)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (enrollment_id, content_id) DO UPDATE SET last_accessed = NOW()
		 RETURNING `+progressCols,
		enrollmentID, contentID, contentType,
	))
}

// GetByEnrollmentAndContent retrieves an existing record without creating one.
func (r *ProgressRepository) GetByEnrollmentAndContent(ctx context.Context, enrollmentID, contentID uuid.UUID) (*model.ContentProgressRecord, error) {
	return scanProgress(r.pool.QueryRow(ctx,
		`SELECT `+progressCols+` FROM content_progress
		 WHERE enrollment_id = $1 AND content_id = $2`,
		enrollmentID, contentID,
	))
}

// ListByEnrollment retrieves all progress records for an enrollment.
func (r *ProgressRepository) ListByEnrollment(ctx context.Context, enrollmentID uuid.UUID) ([]model.ContentProgressRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+progressCols+` FROM content_progress
		 WHERE enrollment_id = $1`, enrollmentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []model.ContentProgressRecord
	for rows.Next() {
		rec := model.ContentProgressRecord{}
		if err := rows.Scan(
			&rec.ID, &rec.EnrollmentID, &rec.ContentID, &rec.ContentType,
			&rec.CompletionStatus, &rec.ProgressPercentage, &rec.Attempts,
			&rec.BestScore, &rec.WatchCount, &rec.LastAccessed, &rec.CompletedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// MarkInProgress moves a record into in_progress. Completion status only
// moves forward, so a completed record is left untouched; progress
// percentage never shrinks.
func (r *ProgressRepository) MarkInProgress(ctx context.Context, id uuid.UUID, percentage float64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE content_progress
		 SET completion_status = $1,
		     progress_percentage = GREATEST(progress_percentage, $2),
		     last_accessed = NOW()
		 WHERE id = $3 AND completion_status <> $4`,
		model.CompletionInProgress, percentage, id, model.CompletionCompleted)
	return err
}

// MarkCompleted transitions a record into completed. Returns true only on
// the first transition, which is the notification trigger.
func (r *ProgressRepository) MarkCompleted(ctx context.Context, id uuid.UUID, percentage float64) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE content_progress
		 SET completion_status = $1,
		     progress_percentage = $2,
		     completed_at = NOW(),
		     last_accessed = NOW()
		 WHERE id = $3 AND completion_status <> $1`,
		model.CompletionCompleted, percentage, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// IncrementWatchCount bumps the watch counter, honoring the optional cap.
// Returns false when the cap is already reached, leaving the counter as-is.
func (r *ProgressRepository) IncrementWatchCount(ctx context.Context, id uuid.UUID, maxWatchCount *int) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE content_progress
		 SET watch_count = watch_count + 1, last_accessed = NOW()
		 WHERE id = $1 AND ($2::int IS NULL OR watch_count < $2)`,
		id, maxWatchCount)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ────────────────────────────────────────────────────────────────────────────
// Attempts
// ────────────────────────────────────────────────────────────────────────────

const attemptCols = `id, progress_id, attempt_number, started_at, completed_at,
	expected_end, time_spent_seconds, score, correct_answers, total_questions,
	passed, passing_score, status, answers, question_order, option_orders`

func scanAttempt(row pgx.Row) (*model.AttemptRecord, error) {
	a := &model.AttemptRecord{}
	var rawAnswers, rawOrder, rawOptionOrders []byte
	err := row.Scan(
		&a.ID, &a.ProgressID, &a.AttemptNumber, &a.StartedAt, &a.CompletedAt,
		&a.ExpectedEnd, &a.TimeSpentSeconds, &a.Score, &a.CorrectAnswers,
		&a.TotalQuestions, &a.Passed, &a.PassingScore, &a.Status,
		&rawAnswers, &rawOrder, &rawOptionOrders,
	)
	if err != nil {
		return nil, err
	}
	if len(rawAnswers) > 0 {
		if err := json.Unmarshal(rawAnswers, &a.Answers); err != nil {
			return nil, fmt.Errorf("decode answers: %w", err)
		}
	}
	if len(rawOrder) > 0 {
		if err := json.Unmarshal(rawOrder, &a.Shuffle.QuestionOrder); err != nil {
			return nil, fmt.Errorf("decode question order: %w", err)
		}
	}
	if len(rawOptionOrders) > 0 {
		if err := json.Unmarshal(rawOptionOrders, &a.Shuffle.OptionOrders); err != nil {
			return nil, fmt.Errorf("decode option orders: %w", err)
		}
	}
	return a, nil
}

// GetActiveAttempt retrieves the single in-progress attempt for a progress
// record, if any. The partial unique index guarantees at most one exists.
func (r *ProgressRepository) GetActiveAttempt(ctx context.Context, progressID uuid.UUID) (*model.AttemptRecord, error) {
	return scanAttempt(r.pool.QueryRow(ctx,
		`SELECT `+attemptCols+` FROM quiz_attempts
		 WHERE progress_id = $1 AND status = $2`,
		progressID, model.AttemptStatusInProgress,
	))
}

// GetAttempt retrieves one attempt by number.
func (r *ProgressRepository) GetAttempt(ctx context.Context, progressID uuid.UUID, attemptNumber int) (*model.AttemptRecord, error) {
	return scanAttempt(r.pool.QueryRow(ctx,
		`SELECT `+attemptCols+` FROM quiz_attempts
		 WHERE progress_id = $1 AND attempt_number = $2`,
		progressID, attemptNumber,
	))
}

// CountTerminalAttempts counts attempts that have reached a terminal state.
// This is the number checked against max_attempts; an in-progress attempt
// never counts.
func (r *ProgressRepository) CountTerminalAttempts(ctx context.Context, progressID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM quiz_attempts
		 WHERE progress_id = $1 AND status <> $2`,
		progressID, model.AttemptStatusInProgress,
	).Scan(&n)
	return n, err
}

// CreateAttempt inserts a new in-progress attempt with its shuffle snapshot.
// The shuffle columns are written exactly once here and never updated, so a
// persisted permutation can never change mid-attempt. Returns pgx.ErrNoRows
// when a concurrent start already created the attempt.
func (r *ProgressRepository) CreateAttempt(ctx context.Context, a *model.AttemptRecord) error {
	rawOrder, err := json.Marshal(a.Shuffle.QuestionOrder)
	if err != nil {
		return err
	}
	rawOptionOrders, err := json.Marshal(a.Shuffle.OptionOrders)
	if err != nil {
		return err
	}

	return r.pool.QueryRow(ctx,
		`INSERT INTO quiz_attempts
		   (progress_id, attempt_number, expected_end, total_questions, passing_score, status, question_order, option_orders)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT DO NOTHING
		 RETURNING id, started_at`,
		a.ProgressID, a.AttemptNumber, a.ExpectedEnd, a.TotalQuestions,
		a.PassingScore, model.AttemptStatusInProgress, rawOrder, rawOptionOrders,
	).Scan(&a.ID, &a.StartedAt)
}

// FinalizeAttempt completes an attempt and rolls the terminal transition
// into the progress record in one transaction. The conditional update on
// the attempt's status is the serialization point: of two concurrent
// submissions, exactly one observes rows-affected > 0.
//
// Returns (finalized, firstCompletion): finalized is false when the attempt
// was no longer in progress; firstCompletion is true only when the content
// record moved into completed for the first time.
func (r *ProgressRepository) FinalizeAttempt(ctx context.Context, a *model.AttemptRecord, newStatus model.CompletionStatus, percentage float64) (bool, bool, error) {
	rawAnswers, err := json.Marshal(a.Answers)
	if err != nil {
		return false, false, err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, false, err
	}
	defer tx.Rollback(ctx)

	var prior model.CompletionStatus
	if err := tx.QueryRow(ctx,
		`SELECT completion_status FROM content_progress WHERE id = $1 FOR UPDATE`,
		a.ProgressID,
	).Scan(&prior); err != nil {
		return false, false, err
	}

	tag, err := tx.Exec(ctx,
		`UPDATE quiz_attempts
		 SET status = $1, completed_at = NOW(), time_spent_seconds = $2,
		     score = $3, correct_answers = $4, passed = $5, answers = $6
		 WHERE id = $7 AND status = $8`,
		a.Status, a.TimeSpentSeconds, a.Score, a.CorrectAnswers, a.Passed,
		rawAnswers, a.ID, model.AttemptStatusInProgress)
	if err != nil {
		return false, false, err
	}
	if tag.RowsAffected() == 0 {
		return false, false, nil
	}

	_, err = tx.Exec(ctx,
		`UPDATE content_progress
		 SET attempts = attempts + 1,
		     completion_status = CASE WHEN completion_status = $1 THEN completion_status ELSE $2::text END,
		     progress_percentage = GREATEST(progress_percentage, $3),
		     best_score = GREATEST(COALESCE(best_score, 0), COALESCE($4, 0)),
		     completed_at = CASE WHEN completed_at IS NULL AND $2 = $1 THEN NOW() ELSE completed_at END,
		     last_accessed = NOW()
		 WHERE id = $5`,
		model.CompletionCompleted, newStatus, percentage, a.Score, a.ProgressID)
	if err != nil {
		return false, false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, false, err
	}

	first := prior != model.CompletionCompleted && newStatus == model.CompletionCompleted
	return true, first, nil
}

// ExpireAttempt lazily times out an attempt whose deadline passed. Runs the
// same conditional-update guard as FinalizeAttempt; expiry on read and a
// concurrent grace-window submission cannot both win.
func (r *ProgressRepository) ExpireAttempt(ctx context.Context, attemptID, progressID uuid.UUID) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE quiz_attempts
		 SET status = $1, completed_at = NOW(), passed = FALSE
		 WHERE id = $2 AND status = $3`,
		model.AttemptStatusTimedOut, attemptID, model.AttemptStatusInProgress)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	_, err = tx.Exec(ctx,
		`UPDATE content_progress
		 SET attempts = attempts + 1,
		     completion_status = CASE WHEN completion_status = $1 THEN completion_status ELSE $2::text END,
		     last_accessed = NOW()
		 WHERE id = $3`,
		model.CompletionCompleted, model.CompletionFailed, progressID)
	if err != nil {
		return false, err
	}

	return true, tx.Commit(ctx)
}
