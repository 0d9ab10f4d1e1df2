package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/querypilot/engine/pkg/config"
)

// redisStore backs the cache with Redis. Backend errors degrade to misses
// and dropped writes so the engine stays fully functional without it.
type redisStore struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisStore connects to Redis with the given configuration. Returns
// (nil, nil) when Redis is not configured (host is empty); the caller
// should fall back to the in-process store.
func NewRedisStore(cfg *config.RedisConfig, logger *zap.Logger) (Store, error) {
	if cfg.Host == "" {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &redisStore{client: client, logger: logger.Named("redis")}, nil
}

func (s *redisStore) Get(ctx context.Context, key string) ([]byte, bool) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.logger.Warn("redis get failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	return data, true
}

func (s *redisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		s.logger.Warn("redis set failed", zap.String("key", key), zap.Error(err))
	}
}
