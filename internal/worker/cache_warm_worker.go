package worker

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/formbank-backend/internal/config"
	"github.com/stemsi/formbank-backend/internal/service"
)

// retryDelay is how long a failed warm waits before its ID is requeued.
const retryDelay = 5 * time.Second

// Warmer loads one bank into the cache.
type Warmer interface {
	WarmCache(ctx context.Context, id string) error
}

// CacheWarmWorker consumes warm_bank_cache_queue and loads each queued bank
// tree into the cache.
type CacheWarmWorker struct {
	rdb        *redis.Client
	warmer     Warmer
	queue      string
	retryDelay time.Duration
	log        zerolog.Logger
}

// NewCacheWarmWorker creates a new CacheWarmWorker.
func NewCacheWarmWorker(rdb *redis.Client, warmer Warmer, log zerolog.Logger) *CacheWarmWorker {
	return &CacheWarmWorker{
		rdb:        rdb,
		warmer:     warmer,
		queue:      config.WorkerKey.WarmBankCacheQueue,
		retryDelay: retryDelay,
		log:        log.With().Str("component", "cache_warm_worker").Logger(),
	}
}

// Start begins the infinite worker loop. Call in a goroutine.
func (w *CacheWarmWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopped")
			return
		default:
			w.processNext(ctx)
		}
	}
}

func (w *CacheWarmWorker) processNext(ctx context.Context) {
	// BLPop blocks until an item is available or timeout (1 second).
	result, err := w.rdb.BLPop(ctx, time.Second, w.queue).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("BLPop error")
			time.Sleep(time.Second)
		}
		return
	}

	if len(result) < 2 {
		return
	}
	id := result[1]

	if err := w.warmer.WarmCache(ctx, id); err != nil {
		if ctx.Err() != nil {
			return
		}
		if errors.Is(err, service.ErrBankNotFound) {
			w.log.Debug().Str("questionbank_id", id).Msg("Bank deleted before warm, skipping")
			return
		}
		w.log.Error().Err(err).
			Str("questionbank_id", id).
			Dur("retry_in", w.retryDelay).
			Msg("Warm error, requeueing")
		if err := w.rdb.RPush(ctx, w.queue, id).Err(); err != nil {
			w.log.Error().Err(err).
				Str("questionbank_id", id).
				Msg("Failed to requeue bank, warm dropped")
			return
		}
		time.Sleep(w.retryDelay)
		return
	}

	w.log.Debug().Str("questionbank_id", id).Msg("Bank cache warmed")
}
