package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lumenlms/progression-backend/internal/model"
)

// EnrollmentRepository handles enrollment data access.
type EnrollmentRepository struct {
	pool *pgxpool.Pool
}

// NewEnrollmentRepository creates a new EnrollmentRepository.
func NewEnrollmentRepository(pool *pgxpool.Pool) *EnrollmentRepository {
	return &EnrollmentRepository{pool: pool}
}

// GetByStudentAndCourse retrieves a student's enrollment in a course.
func (r *EnrollmentRepository) GetByStudentAndCourse(ctx context.Context, studentID, courseID uuid.UUID) (*model.Enrollment, error) {
	e := &model.Enrollment{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, student_id, course_id, progress_percentage, completed_topics, enrolled_at
		 FROM enrollments
		 WHERE student_id = $1 AND course_id = $2`, studentID, courseID,
	).Scan(&e.ID, &e.StudentID, &e.CourseID, &e.ProgressPercentage, &e.CompletedTopics, &e.EnrolledAt)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// UpdateProgress persists a freshly derived course percentage and completed
// topic set. Recomputation is idempotent, so last write wins.
func (r *EnrollmentRepository) UpdateProgress(ctx context.Context, enrollmentID uuid.UUID, percentage float64, completedTopics []uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE enrollments
		 SET progress_percentage = $1, completed_topics = $2
		 WHERE id = $3`,
		percentage, completedTopics, enrollmentID)
	return err
}
