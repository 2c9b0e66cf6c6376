package config

import (
	"context"
	"errors"
	"testing"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigureRedisOptions(t *testing.T) {
	opts := ConfigureRedisOptions(&RedisConfig{Address: "localhost:6379", DB: 2, PoolSize: 5, UseTLS: true})
	assert.Equal(t, "localhost:6379", opts.Addr)
	assert.Equal(t, 2, opts.DB)
	assert.NotNil(t, opts.TLSConfig)

	plain := ConfigureRedisOptions(&RedisConfig{Address: "localhost:6379"})
	assert.Nil(t, plain.TLSConfig)
}

func TestTestRedisConnection(t *testing.T) {
	client, mock := redismock.NewClientMock()
	mock.ExpectPing().SetVal("PONG")

	require.NoError(t, TestRedisConnection(context.Background(), client))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTestRedisConnection_CancelledContext(t *testing.T) {
	client, mock := redismock.NewClientMock()
	mock.ExpectPing().SetErr(errors.New("connection refused"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := TestRedisConnection(ctx, client)
	assert.ErrorIs(t, err, context.Canceled)
}
