package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jakwakwa/cv-ai-parser-sub002/internal/config"
	"github.com/jakwakwa/cv-ai-parser-sub002/internal/errors"
)

// Open builds the configured gateway: memory or postgres, optionally behind
// the Redis cache. An unreachable Redis is logged and skipped.
func Open(ctx context.Context, cfg config.StoreConfig, logger *errors.Logger) (Gateway, error) {
	if logger == nil {
		logger = errors.NewNopLogger()
	}

	var gw Gateway
	switch cfg.Driver {
	case "", "memory":
		gw = NewMemoryGateway()
	case "postgres":
		pg, err := OpenPostgres(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			_ = pg.Close()
			return nil, err
		}
		gw = pg
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("Unknown store driver %q", cfg.Driver), nil)
	}
	logger.Info("Persistence gateway ready", "driver", cfg.Driver)

	if !cfg.Redis.Enabled {
		return gw, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("Redis unavailable, resume cache disabled", "addr", cfg.Redis.Addr, "error", err.Error())
		_ = client.Close()
		return NewCachedGateway(gw, nil, cfg.Redis.TTL, logger), nil
	}

	logger.Info("Resume cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.TTL)
	return NewCachedGateway(gw, client, cfg.Redis.TTL, logger), nil
}
