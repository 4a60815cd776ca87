package redis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/turtacn/MetaboScope/pkg/errors"
)

func TestNewClient_Standalone(t *testing.T) {
	_, client := newMiniredisClient(t)

	assert.NoError(t, client.Ping(context.Background()))
	assert.Equal(t, 3, client.config.MaxRetries)
}

func TestNewClient_ConnectionFailed(t *testing.T) {
	client, err := NewClient(&RedisConfig{Mode: "standalone", Addr: "127.0.0.1:1"}, nil)

	assert.Nil(t, client)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeCacheError))
}

func TestClient_ClosedRefusesCommands(t *testing.T) {
	_, client := newMiniredisClient(t)
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, "k", "v", 0).Err())
	require.NoError(t, client.Close())
	require.NoError(t, client.Close())

	assert.ErrorIs(t, client.Get(ctx, "k").Err(), ErrClientClosed)
	assert.ErrorIs(t, client.Del(ctx, "k").Err(), ErrClientClosed)
	assert.ErrorIs(t, client.Ping(ctx), ErrClientClosed)
}
