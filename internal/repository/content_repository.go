package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lumenlms/progression-backend/internal/model"
)

// ContentRepository is the read-only accessor over the course content graph
// (courses → topics → contents plus explicit prerequisite edges).
type ContentRepository struct {
	pool *pgxpool.Pool
}

// NewContentRepository creates a new ContentRepository.
func NewContentRepository(pool *pgxpool.Pool) *ContentRepository {
	return &ContentRepository{pool: pool}
}

const contentCols = `id, topic_id, title, content_type, order_num, prerequisites,
	duration_seconds, max_watch_count, duration_minutes, passing_score,
	max_attempts, shuffle_questions, shuffle_options`

// GetByID retrieves one content item with its question selection.
func (r *ContentRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ContentItem, error) {
	c := &model.ContentItem{}
	err := r.pool.QueryRow(ctx,
		`SELECT `+contentCols+` FROM contents WHERE id = $1`, id,
	).Scan(
		&c.ID, &c.TopicID, &c.Title, &c.ContentType, &c.OrderNum, &c.Prerequisites,
		&c.DurationSeconds, &c.MaxWatchCount, &c.Assessment.DurationMinutes,
		&c.Assessment.PassingScore, &c.Assessment.MaxAttempts,
		&c.Assessment.ShuffleQuestions, &c.Assessment.ShuffleOptions,
	)
	if err != nil {
		return nil, err
	}

	refs, err := r.listQuestionRefs(ctx, id)
	if err != nil {
		return nil, err
	}
	c.SelectedQuestions = refs
	return c, nil
}

func (r *ContentRepository) listQuestionRefs(ctx context.Context, contentID uuid.UUID) ([]model.QuestionRef, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT question_id, points, order_num
		 FROM content_questions
		 WHERE content_id = $1
		 ORDER BY order_num`, contentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refs []model.QuestionRef
	for rows.Next() {
		var ref model.QuestionRef
		if err := rows.Scan(&ref.QuestionID, &ref.Points, &ref.OrderNum); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

// CourseIDForContent resolves which course a content item belongs to.
func (r *ContentRepository) CourseIDForContent(ctx context.Context, contentID uuid.UUID) (uuid.UUID, error) {
	var courseID uuid.UUID
	err := r.pool.QueryRow(ctx,
		`SELECT t.course_id
		 FROM contents c
		 JOIN topics t ON c.topic_id = t.id
		 WHERE c.id = $1`, contentID,
	).Scan(&courseID)
	return courseID, err
}

// GetCourse retrieves a course row.
func (r *ContentRepository) GetCourse(ctx context.Context, id uuid.UUID) (*model.Course, error) {
	c := &model.Course{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, title, published, created_at FROM courses WHERE id = $1`, id,
	).Scan(&c.ID, &c.Title, &c.Published, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// CourseTopics retrieves the published topics of a course in authored order,
// each populated with its content items in authored order. This is the
// linear ordering the unlock resolver and progress aggregator walk.
// Question selections are not loaded here.
func (r *ContentRepository) CourseTopics(ctx context.Context, courseID uuid.UUID) ([]model.Topic, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, course_id, title, order_num, published
		 FROM topics
		 WHERE course_id = $1 AND published
		 ORDER BY order_num`, courseID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var topics []model.Topic
	index := make(map[uuid.UUID]int)
	for rows.Next() {
		var t model.Topic
		if err := rows.Scan(&t.ID, &t.CourseID, &t.Title, &t.OrderNum, &t.Published); err != nil {
			return nil, err
		}
		index[t.ID] = len(topics)
		topics = append(topics, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	crows, err := r.pool.Query(ctx,
		`SELECT c.id, c.topic_id, c.title, c.content_type, c.order_num, c.prerequisites,
		        c.duration_seconds, c.max_watch_count, c.duration_minutes, c.passing_score,
		        c.max_attempts, c.shuffle_questions, c.shuffle_options
		 FROM contents c
		 JOIN topics t ON c.topic_id = t.id
		 WHERE t.course_id = $1 AND t.published
		 ORDER BY t.order_num, c.order_num`, courseID,
	)
	if err != nil {
		return nil, err
	}
	defer crows.Close()

	for crows.Next() {
		var c model.ContentItem
		if err := crows.Scan(
			&c.ID, &c.TopicID, &c.Title, &c.ContentType, &c.OrderNum, &c.Prerequisites,
			&c.DurationSeconds, &c.MaxWatchCount, &c.Assessment.DurationMinutes,
			&c.Assessment.PassingScore, &c.Assessment.MaxAttempts,
			&c.Assessment.ShuffleQuestions, &c.Assessment.ShuffleOptions,
		); err != nil {
			return nil, err
		}
		if i, ok := index[c.TopicID]; ok {
			topics[i].Contents = append(topics[i].Contents, c)
		}
	}
	return topics, crows.Err()
}
