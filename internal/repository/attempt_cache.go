package repository

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/lumenlms/progression-backend/internal/config"
	"github.com/lumenlms/progression-backend/internal/model"
	"github.com/redis/go-redis/v9"
)

// attemptCacheTTL bounds how long attempt keys linger after an attempt
// would normally have ended. PostgreSQL remains the source of truth; a
// cache miss falls back to the stored attempt and self-heals.
const attemptCacheTTL = 24 * time.Hour

// AttemptCache is the Redis fast lane for per-attempt state: the shuffle
// plan and the deadline. Both are immutable once written for an attempt
// number, so the cache never needs invalidation, only expiry.
type AttemptCache struct {
	rdb *redis.Client
}

// NewAttemptCache creates a new AttemptCache.
func NewAttemptCache(rdb *redis.Client) *AttemptCache {
	return &AttemptCache{rdb: rdb}
}

// GetShuffle returns the cached shuffle plan, or nil on a cache miss.
func (c *AttemptCache) GetShuffle(ctx context.Context, studentID, contentID uuid.UUID, attemptNumber int) (*model.ShufflePlan, error) {
	key := config.CacheKey.AttemptShuffleKey(studentID.String(), contentID.String(), attemptNumber)
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	plan := &model.ShufflePlan{}
	if err := json.Unmarshal(raw, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

// PutShuffle caches a shuffle plan for an attempt.
func (c *AttemptCache) PutShuffle(ctx context.Context, studentID, contentID uuid.UUID, attemptNumber int, plan *model.ShufflePlan) error {
	raw, err := json.Marshal(plan)
	if err != nil {
		return err
	}
	key := config.CacheKey.AttemptShuffleKey(studentID.String(), contentID.String(), attemptNumber)
	return c.rdb.Set(ctx, key, raw, attemptCacheTTL).Err()
}

// GetDeadline returns the cached attempt deadline. The boolean is false on
// a cache miss.
func (c *AttemptCache) GetDeadline(ctx context.Context, studentID, contentID uuid.UUID, attemptNumber int) (time.Time, bool, error) {
	key := config.CacheKey.AttemptDeadlineKey(studentID.String(), contentID.String(), attemptNumber)
	val, err := c.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	unix, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return time.Time{}, false, err
	}
	return time.Unix(unix, 0), true, nil
}

// PutDeadline caches an attempt deadline as unix seconds.
func (c *AttemptCache) PutDeadline(ctx context.Context, studentID, contentID uuid.UUID, attemptNumber int, deadline time.Time) error {
	key := config.CacheKey.AttemptDeadlineKey(studentID.String(), contentID.String(), attemptNumber)
	return c.rdb.Set(ctx, key, deadline.Unix(), attemptCacheTTL).Err()
}
