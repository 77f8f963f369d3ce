package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/vigil/ports"
)

func newTestRedis(t *testing.T) ports.KV {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewRedisStore(client)
}

func TestRedisStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestRedis(t)

	require.NoError(t, s.Set(ctx, "idToken", "id-token", 0))

	got, err := s.Get(ctx, "idToken")
	require.NoError(t, err)
	assert.Equal(t, "id-token", got)
}

func TestRedisStoreMissingKey(t *testing.T) {
	s := newTestRedis(t)

	_, err := s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ports.ErrNotFound)
}

func TestRedisStoreDel(t *testing.T) {
	ctx := context.Background()
	s := newTestRedis(t)

	require.NoError(t, s.Set(ctx, "idToken", "id-token", 0))
	require.NoError(t, s.Set(ctx, "expiresAt", "12345", 0))

	require.NoError(t, s.Del(ctx, "idToken", "expiresAt"))

	_, err := s.Get(ctx, "idToken")
	assert.ErrorIs(t, err, ports.ErrNotFound)
}

func TestRedisStoreTTL(t *testing.T) {
	ctx := context.Background()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	s := NewRedisStore(client)

	require.NoError(t, s.Set(ctx, "mfaSession", "cont-1", 10*time.Minute))

	mr.FastForward(11 * time.Minute)

	_, err := s.Get(ctx, "mfaSession")
	assert.ErrorIs(t, err, ports.ErrNotFound)
}
