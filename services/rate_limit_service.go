package services

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiterInterface defines the contract for rate limiting operations.
type RateLimiterInterface interface {
	CheckLimit(ctx context.Context, key string, limit int, duration time.Duration) (bool, time.Duration, error)
}

// RateLimitService is a fixed-window counter in Redis. The payment routes
// use it to throttle gateway charges per user.
type RateLimitService struct {
	redis     redis.Cmdable
	keyPrefix string
}

var _ RateLimiterInterface = (*RateLimitService)(nil)

func NewRateLimitService(rdb redis.Cmdable) *RateLimitService {
	return &RateLimitService{
		redis:     rdb,
		keyPrefix: "rate_limit:",
	}
}

// CheckLimit counts one hit against key. When the limit is exceeded it
// returns false and the time until the window resets.
func (s *RateLimitService) CheckLimit(ctx context.Context, key string, limit int, duration time.Duration) (bool, time.Duration, error) {
	rKey := s.keyPrefix + key

	pipe := s.redis.TxPipeline()
	incr := pipe.Incr(ctx, rKey)
	pipe.ExpireNX(ctx, rKey, duration)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, err
	}

	if incr.Val() > int64(limit) {
		ttl, err := s.redis.TTL(ctx, rKey).Result()
		if err != nil {
			return false, 0, err
		}
		return false, ttl, nil
	}

	return true, 0, nil
}
