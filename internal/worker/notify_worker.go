package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/lumenlms/progression-backend/internal/config"
	"github.com/lumenlms/progression-backend/internal/model"
	"github.com/lumenlms/progression-backend/internal/notify"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const NotifyPollTimeout = 1 * time.Second

// NotifyWorker drains first-completion notices from Redis and hands them to
// the configured dispatcher. Notices only ever exist once per (student,
// content) thanks to the first-transition guard upstream, so the worker
// never needs to dedupe.
type NotifyWorker struct {
	rdb        *redis.Client
	dispatcher notify.Dispatcher
	log        zerolog.Logger
}

// NewNotifyWorker creates a new NotifyWorker.
func NewNotifyWorker(rdb *redis.Client, dispatcher notify.Dispatcher, log zerolog.Logger) *NotifyWorker {
	return &NotifyWorker{
		rdb:        rdb,
		dispatcher: dispatcher,
		log:        log.With().Str("component", "notify_worker").Logger(),
	}
}

// Start runs the worker loop until the context is cancelled.
func (w *NotifyWorker) Start(ctx context.Context) {
	w.log.Info().Msg("NotifyWorker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested")
			return

		default:
			item, err := w.rdb.BLPop(ctx, NotifyPollTimeout, config.WorkerKey.NotifyCompletionQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			var notice model.CompletionNotice
			if err := json.Unmarshal([]byte(item[1]), &notice); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}

			if err := w.dispatcher.Dispatch(ctx, notice); err != nil {
				w.log.Error().Err(err).Msg("Dispatch failed, requeueing")
				raw, _ := json.Marshal(notice)
				w.rdb.RPush(ctx, config.WorkerKey.NotifyCompletionQueue, raw)
			}
		}
	}
}
