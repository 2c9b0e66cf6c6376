package config

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/KidRide/kidride-backend/logger"
	"github.com/redis/go-redis/v9"
)

// ConfigureRedisOptions creates redis.Options with retry and timeout settings.
func ConfigureRedisOptions(cfg *RedisConfig) *redis.Options {
	log := logger.GetLogger()

	redisOptions := &redis.Options{
		Addr:            cfg.Address,
		Password:        cfg.Password,
		DB:              cfg.DB,
		PoolSize:        cfg.PoolSize,
		MinIdleConns:    cfg.MinIdleConns,
		ConnMaxLifetime: time.Hour,
		MaxRetries:      3,
		MinRetryBackoff: 100 * time.Millisecond,
		MaxRetryBackoff: 2 * time.Second,
		DialTimeout:     5 * time.Second,
		ReadTimeout:     3 * time.Second,
		WriteTimeout:    3 * time.Second,
	}

	log.Infow("Configuring Redis connection",
		"address", cfg.Address,
		"db", cfg.DB,
		"poolSize", cfg.PoolSize,
		"useTls", cfg.UseTLS)

	if cfg.UseTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	return redisOptions
}

// TestRedisConnection pings Redis, retrying a few times before giving up.
func TestRedisConnection(ctx context.Context, client *redis.Client) error {
	log := logger.GetLogger()
	const maxRetries = 5
	retryDelay := 2 * time.Second

	var err error
	for i := 0; i < maxRetries; i++ {
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		_, err = client.Ping(pingCtx).Result()
		cancel()
		if err == nil {
			if i > 0 {
				log.Infow("Connected to Redis after retries", "attempt", i+1)
			}
			return nil
		}
		log.Warnw("Failed to ping Redis, retrying", "error", err, "attempt", i+1, "maxAttempts", maxRetries)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryDelay):
		}
	}
	return fmt.Errorf("failed to ping Redis after %d attempts: %w", maxRetries, err)
}
