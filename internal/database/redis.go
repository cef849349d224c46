package database

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/formbank-backend/internal/config"
	"github.com/stemsi/formbank-backend/internal/logger"
)

// NewRedisClient connects to the bank tree cache and pings it. The connection
// name shows up in CLIENT LIST as the service name.
func NewRedisClient(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*redis.Client, error) {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	if opt.ClientName == "" {
		opt.ClientName = logger.ServiceName
	}

	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", opt.Addr, err)
	}

	event := log.Info().
		Str("addr", opt.Addr).
		Int("db", opt.DB).
		Str("warm_queue", config.WorkerKey.WarmBankCacheQueue)
	if cfg.CacheTTL > 0 {
		event = event.Dur("cache_ttl", cfg.CacheTTL)
	} else {
		event = event.Str("cache_ttl", "none")
	}
	event.Msg("Bank cache connected")

	return rdb, nil
}
