package worker

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lumenlms/progression-backend/internal/config"
	"github.com/lumenlms/progression-backend/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	ProgressBatchSize    = 50
	ProgressBatchTimeout = 2 * time.Second
	ProgressPollTimeout  = 1 * time.Second
)

// ProgressWorker drains derived course-progress snapshots from Redis and
// persists them onto enrollment rows in batches. Snapshots are idempotent
// recomputations, so within a batch only the newest per enrollment matters.
type ProgressWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  zerolog.Logger
}

// NewProgressWorker creates a new ProgressWorker.
func NewProgressWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *ProgressWorker {
	return &ProgressWorker{
		pool: pool,
		rdb:  rdb,
		log:  log.With().Str("component", "progress_worker").Logger(),
	}
}

// Start runs the worker loop until the context is cancelled.
func (w *ProgressWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ProgressWorker started")

	batch := make([]*model.ProgressSnapshot, 0, ProgressBatchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= ProgressBatchSize || time.Since(lastFlush) >= ProgressBatchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, ProgressPollTimeout, config.WorkerKey.PersistProgressQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			var snap model.ProgressSnapshot
			if err := json.Unmarshal([]byte(item[1]), &snap); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}

			batch = append(batch, &snap)
		}
	}
}

func (w *ProgressWorker) flushSafe(ctx context.Context, batch []*model.ProgressSnapshot) {
	if len(batch) == 0 {
		return
	}

	deduped := dedupeSnapshots(batch)

	if err := w.bulkUpdateProgress(ctx, deduped); err != nil {
		w.log.Warn().Err(err).Msg("bulk progress update failed, using fallback")

		for _, snap := range deduped {
			if err := w.persistSingle(ctx, snap); err != nil {
				w.log.Error().Err(err).Msg("persistSingle failed, requeueing")
				raw, _ := json.Marshal(snap)
				w.rdb.RPush(ctx, config.WorkerKey.PersistProgressQueue, raw)
			}
		}
	}
}

// dedupeSnapshots keeps only the newest snapshot per enrollment, preserving
// arrival order for the rest.
func dedupeSnapshots(batch []*model.ProgressSnapshot) []*model.ProgressSnapshot {
	latest := make(map[uuid.UUID]int, len(batch))
	for i, snap := range batch {
		latest[snap.EnrollmentID] = i
	}
	out := make([]*model.ProgressSnapshot, 0, len(latest))
	for i, snap := range batch {
		if latest[snap.EnrollmentID] == i {
			out = append(out, snap)
		}
	}
	return out
}

// bulkUpdateProgress updates all enrollments in one statement via UNNEST.
// completed_topics travels as array literals cast back to uuid[] per row,
// since UNNEST cannot carry an array-of-arrays.
func (w *ProgressWorker) bulkUpdateProgress(ctx context.Context, batch []*model.ProgressSnapshot) error {
	n := len(batch)

	ids := make([]uuid.UUID, 0, n)
	percentages := make([]float64, 0, n)
	topicSets := make([]string, 0, n)

	for _, snap := range batch {
		ids = append(ids, snap.EnrollmentID)
		percentages = append(percentages, snap.Percentage)
		topicSets = append(topicSets, uuidArrayLiteral(snap.CompletedTopics))
	}

	query := `
		UPDATE enrollments AS e
		SET progress_percentage = t.percentage,
		    completed_topics = t.topics::uuid[]
		FROM (
			SELECT
				u.id,
				u.percentage,
				u.topics
			FROM UNNEST(
				$1::uuid[],
				$2::float8[],
				$3::text[]
			) AS u (id, percentage, topics)
		) AS t
		WHERE e.id = t.id
	`

	_, err := w.pool.Exec(ctx, query, ids, percentages, topicSets)
	return err
}

func (w *ProgressWorker) persistSingle(ctx context.Context, snap *model.ProgressSnapshot) error {
	_, err := w.pool.Exec(ctx,
		`UPDATE enrollments
		 SET progress_percentage = $1,
		     completed_topics = $2
		 WHERE id = $3`,
		snap.Percentage, snap.CompletedTopics, snap.EnrollmentID,
	)
	return err
}

// uuidArrayLiteral renders a Postgres array literal for a set of UUIDs.
func uuidArrayLiteral(ids []uuid.UUID) string {
	if len(ids) == 0 {
		return "{}"
	}
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, id.String())
	}
	return "{" + strings.Join(parts, ",") + "}"
}
