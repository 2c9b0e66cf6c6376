// Package db owns the PostgreSQL connection pool and the embedded schema
// migrations of the payment ledger.
package db

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/KidRide/kidride-backend/config"
	"github.com/KidRide/kidride-backend/logger"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	defaultMaxConns    = 20
	defaultMinConns    = 2
	defaultConnMaxLife = time.Hour
	connectAttempts    = 5
	connectBackoff     = 2 * time.Second
)

// PoolConfig builds the pgx pool configuration from the database section.
// Production connections require TLS.
func PoolConfig(cfg *config.DatabaseConfig, production bool) (*pgxpool.Config, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	poolConfig.MaxConns = defaultMaxConns
	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	}
	poolConfig.MinConns = defaultMinConns
	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = int32(cfg.MaxIdleConns)
	}
	if poolConfig.MinConns > poolConfig.MaxConns {
		poolConfig.MinConns = poolConfig.MaxConns
	}

	poolConfig.MaxConnLifetime = defaultConnMaxLife
	if cfg.ConnMaxLife != "" {
		life, err := time.ParseDuration(cfg.ConnMaxLife)
		if err != nil {
			return nil, fmt.Errorf("invalid CONN_MAX_LIFE %q: %w", cfg.ConnMaxLife, err)
		}
		poolConfig.MaxConnLifetime = life
	}

	if production {
		poolConfig.ConnConfig.TLSConfig = &tls.Config{
			ServerName: cfg.Host,
			MinVersion: tls.VersionTLS12,
		}
	}
	return poolConfig, nil
}

// Connect opens the pool and waits for the database to answer a ping,
// retrying while it starts up.
func Connect(ctx context.Context, cfg *config.DatabaseConfig, production bool) (*pgxpool.Pool, error) {
	log := logger.GetLogger()

	poolConfig, err := PoolConfig(cfg, production)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				log.Infow("Connected to database",
					"host", cfg.Host,
					"database", cfg.Name,
					"maxConns", poolConfig.MaxConns)
				return pool, nil
			}
			pool.Close()
		}
		lastErr = err
		log.Warnw("Database not ready, retrying",
			"attempt", attempt,
			"maxAttempts", connectAttempts,
			"error", err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * connectBackoff):
		}
	}
	return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", connectAttempts, lastErr)
}
