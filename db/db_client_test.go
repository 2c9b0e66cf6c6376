package db

import (
	"context"
	"testing"
	"time"

	"github.com/KidRide/kidride-backend/config"
	"github.com/KidRide/kidride-backend/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.IsTest = true
}

func testDatabaseConfig() *config.DatabaseConfig {
	return &config.DatabaseConfig{
		Host:     "db.internal",
		Port:     5432,
		User:     "kidride",
		Password: "p@ss word",
		Name:     "kidride",
		SSLMode:  "disable",
	}
}

func TestPoolConfig_Defaults(t *testing.T) {
	pc, err := PoolConfig(testDatabaseConfig(), false)
	require.NoError(t, err)

	assert.Equal(t, int32(defaultMaxConns), pc.MaxConns)
	assert.Equal(t, int32(defaultMinConns), pc.MinConns)
	assert.Equal(t, defaultConnMaxLife, pc.MaxConnLifetime)
	assert.Equal(t, "db.internal", pc.ConnConfig.Host)
	assert.Equal(t, "p@ss word", pc.ConnConfig.Password)
	assert.Nil(t, pc.ConnConfig.TLSConfig)
}

func TestPoolConfig_Overrides(t *testing.T) {
	cfg := testDatabaseConfig()
	cfg.MaxOpenConns = 4
	cfg.MaxIdleConns = 10
	cfg.ConnMaxLife = "15m"

	pc, err := PoolConfig(cfg, false)
	require.NoError(t, err)

	assert.Equal(t, int32(4), pc.MaxConns)
	assert.Equal(t, int32(4), pc.MinConns, "min conns are capped at max conns")
	assert.Equal(t, 15*time.Minute, pc.MaxConnLifetime)
}

func TestPoolConfig_ProductionTLS(t *testing.T) {
	pc, err := PoolConfig(testDatabaseConfig(), true)
	require.NoError(t, err)

	require.NotNil(t, pc.ConnConfig.TLSConfig)
	assert.Equal(t, "db.internal", pc.ConnConfig.TLSConfig.ServerName)
}

func TestPoolConfig_BadLifetime(t *testing.T) {
	cfg := testDatabaseConfig()
	cfg.ConnMaxLife = "forever"

	_, err := PoolConfig(cfg, false)
	assert.Error(t, err)
}

func TestConnect_CancelledContext(t *testing.T) {
	cfg := testDatabaseConfig()
	cfg.Host = "127.0.0.1"
	cfg.Port = 1

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Connect(ctx, cfg, false)
	assert.Error(t, err)
}
