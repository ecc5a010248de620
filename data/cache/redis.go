package cache

import (
	"context"
	"errors"
	"log/slog"

	"github.com/KotFed0t/networth_tracker_bot/config"
	"github.com/KotFed0t/networth_tracker_bot/utils"
	"github.com/redis/go-redis/v9"
)

// RedisCache is the production key-value store behind the market cache.
// Entries carry a housekeeping TTL only, the dated key schema is what makes
// entries expire logically.
type RedisCache struct {
	redis *redis.Client
	cfg   *config.Config
}

func NewRedisCache(redisClient *redis.Client, cfg *config.Config) *RedisCache {
	return &RedisCache{redis: redisClient, cfg: cfg}
}

func (r *RedisCache) Get(ctx context.Context, key string) (string, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	res, err := r.redis.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		slog.Error("failed on redis.Get", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.String("key", key))
		return "", err
	}

	return res, nil
}

func (r *RedisCache) Set(ctx context.Context, key, value string) error {
	rqID := utils.GetRequestIDFromCtx(ctx)

	_, err := r.redis.Set(ctx, key, value, r.cfg.Cache.MarketEntryTTL).Result()
	if err != nil {
		slog.Error("failed on redis.Set", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.String("key", key))
		return err
	}

	return nil
}

// DeleteByPrefix removes every key under the given prefix. Uses SCAN so the
// session keys sharing the redis DB stay untouched.
func (r *RedisCache) DeleteByPrefix(ctx context.Context, prefix string) error {
	rqID := utils.GetRequestIDFromCtx(ctx)

	iter := r.redis.Scan(ctx, 0, prefix+"*", 0).Iterator()
	keys := make([]string, 0)
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		slog.Error("failed on redis.Scan", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.String("prefix", prefix))
		return err
	}

	if len(keys) == 0 {
		return nil
	}

	_, err := r.redis.Del(ctx, keys...).Result()
	if err != nil {
		slog.Error("failed on redis.Del", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return err
	}

	return nil
}
