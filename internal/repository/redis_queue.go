package repository

import (
	"context"
	"encoding/json"

	"github.com/lumenlms/progression-backend/internal/config"
	"github.com/lumenlms/progression-backend/internal/model"
	"github.com/redis/go-redis/v9"
)

// RedisQueue enqueues write-behind work for the background workers.
// Enqueue failures are for the caller to log; they must never fail the
// mutation that produced them.
type RedisQueue struct {
	rdb *redis.Client
}

// NewRedisQueue creates a new RedisQueue.
func NewRedisQueue(rdb *redis.Client) *RedisQueue {
	return &RedisQueue{rdb: rdb}
}

// EnqueueProgressSnapshot queues a derived course percentage for batched
// persistence onto the enrollment row.
func (q *RedisQueue) EnqueueProgressSnapshot(ctx context.Context, snap model.ProgressSnapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return q.rdb.RPush(ctx, config.WorkerKey.PersistProgressQueue, raw).Err()
}

// EnqueueCompletion queues a completion notice for the notification worker.
func (q *RedisQueue) EnqueueCompletion(ctx context.Context, notice model.CompletionNotice) error {
	raw, err := json.Marshal(notice)
	if err != nil {
		return err
	}
	return q.rdb.RPush(ctx, config.WorkerKey.NotifyCompletionQueue, raw).Err()
}
