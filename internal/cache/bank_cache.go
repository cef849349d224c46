// Package cache keeps reconstructed bank trees in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stemsi/formbank-backend/internal/config"
	"github.com/stemsi/formbank-backend/internal/model"
)

// errStaleGeneration aborts a Set whose tree was loaded before the latest
// invalidation.
var errStaleGeneration = errors.New("bank generation changed")

// RedisBankCache is a cache-aside store for bank trees keyed by bank ID.
type RedisBankCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisBankCache creates a new RedisBankCache. A zero ttl keeps entries
// until they are invalidated.
func NewRedisBankCache(rdb *redis.Client, ttl time.Duration) *RedisBankCache {
	return &RedisBankCache{rdb: rdb, ttl: ttl}
}

// Get returns the cached tree, or nil, nil on a miss.
func (c *RedisBankCache) Get(ctx context.Context, id string) (*model.QuestionBank, error) {
	data, err := c.rdb.Get(ctx, config.CacheKey.BankTreeKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cached bank: %w", err)
	}

	var bank model.QuestionBank
	if err := json.Unmarshal(data, &bank); err != nil {
		// A corrupt entry is dropped so the next read repopulates it.
		c.rdb.Del(ctx, config.CacheKey.BankTreeKey(id))
		return nil, fmt.Errorf("unmarshal cached bank: %w", err)
	}
	return &bank, nil
}

// Generation returns the invalidation counter of a bank; 0 if never invalidated.
func (c *RedisBankCache) Generation(ctx context.Context, id string) (int64, error) {
	return generation(ctx, c.rdb, id)
}

// Set stores a tree unless the bank was invalidated after gen was read.
// A skipped write is not an error.
func (c *RedisBankCache) Set(ctx context.Context, bank *model.QuestionBank, gen int64) error {
	data, err := json.Marshal(bank)
	if err != nil {
		return fmt.Errorf("marshal bank: %w", err)
	}

	genKey := config.CacheKey.BankGenerationKey(bank.ID)
	err = c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		current, err := generation(ctx, tx, bank.ID)
		if err != nil {
			return err
		}
		if current != gen {
			return errStaleGeneration
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, config.CacheKey.BankTreeKey(bank.ID), data, c.ttl)
			return nil
		})
		return err
	}, genKey)

	switch {
	case err == nil, errors.Is(err, errStaleGeneration), errors.Is(err, redis.TxFailedErr):
		return nil
	default:
		return fmt.Errorf("set cached bank: %w", err)
	}
}

// Invalidate drops a cached tree and advances its generation.
func (c *RedisBankCache) Invalidate(ctx context.Context, id string) error {
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, config.CacheKey.BankGenerationKey(id))
		pipe.Del(ctx, config.CacheKey.BankTreeKey(id))
		return nil
	})
	if err != nil {
		return fmt.Errorf("invalidate cached bank: %w", err)
	}
	return nil
}

// ScheduleWarm queues a bank for the cache warm worker.
func (c *RedisBankCache) ScheduleWarm(ctx context.Context, id string) error {
	return c.rdb.RPush(ctx, config.WorkerKey.WarmBankCacheQueue, id).Err()
}

func generation(ctx context.Context, r redis.Cmdable, id string) (int64, error) {
	gen, err := r.Get(ctx, config.CacheKey.BankGenerationKey(id)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get bank generation: %w", err)
	}
	return gen, nil
}
