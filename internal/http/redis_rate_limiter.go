package httpx

import (
	"context"
	"strconv"
	"time"

	"log/slog"

	redis "github.com/redis/go-redis/v9"
)

const (
	redisLimiterPrefix  = "placify:ratelimit:"
	redisLimiterTimeout = 250 * time.Millisecond
)

// redisLimiter shares counters between API replicas. Each window gets its
// own key, expired by Redis at the window's end.
type redisLimiter struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisRateLimiter connects to Redis and returns a RateLimiter backed by
// it. The connection is checked before returning.
func NewRedisRateLimiter(addr, password string, db int, logger *slog.Logger) (RateLimiter, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return &redisLimiter{client: client, logger: logger}, nil
}

func (rl *redisLimiter) Allow(key string, limit int, window time.Duration) rateDecision {
	if limit <= 0 || window <= 0 {
		return rateDecision{allowed: true}
	}
	start, end := windowBounds(time.Now(), window)
	redisKey := redisLimiterPrefix + key + ":" + strconv.FormatInt(start.Unix(), 10)

	ctx, cancel := context.WithTimeout(context.Background(), redisLimiterTimeout)
	defer cancel()
	pipe := rl.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.ExpireAt(ctx, redisKey, end)
	if _, err := pipe.Exec(ctx); err != nil {
		// Fail open on Redis errors.
		if rl.logger != nil {
			rl.logger.Error("redis rate limiter error", "key", key, "error", err)
		}
		return rateDecision{allowed: true}
	}
	count := int(incr.Val())
	return rateDecision{allowed: count <= limit, count: count, windowEnd: end}
}

func (rl *redisLimiter) Close() {
	_ = rl.client.Close()
}
