package throttle

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRedisAddr() string {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		return addr
	}
	return "localhost:6379"
}

func TestKeyIsHashed(t *testing.T) {
	l := &RedisLimiter{prefix: "reset:"}
	k := l.key("a@example.com")
	assert.NotContains(t, k, "example.com")
	assert.Equal(t, k, l.key("a@example.com"))
	assert.NotEqual(t, k, l.key("b@example.com"))
}

func TestRedisLimiter(t *testing.T) {
	ctx := context.Background()
	l, err := NewRedisLimiter(ctx, testRedisAddr(), "collab-test:"+t.Name()+":", 2, time.Minute)
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	defer l.Close()
	key := time.Now().String()
	defer l.client.Del(ctx, l.key(key))

	for i, want := range []bool{true, true, false} {
		ok, err := l.Allow(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, want, ok, "hit %d", i+1)
	}
	ttl, err := l.client.TTL(ctx, l.key(key)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}

func TestRedisLimiterWindowIsNotExtended(t *testing.T) {
	ctx := context.Background()
	l, err := NewRedisLimiter(ctx, testRedisAddr(), "collab-test:"+t.Name()+":", 5, time.Minute)
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	defer l.Close()
	key := time.Now().String()
	defer l.client.Del(ctx, l.key(key))

	// A key left without a TTL gets one on the next hit.
	require.NoError(t, l.client.Set(ctx, l.key(key), 1, 0).Err())
	ok, err := l.Allow(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	ttl, err := l.client.TTL(ctx, l.key(key)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, l.client.Expire(ctx, l.key(key), 10*time.Second).Err())
	_, err = l.Allow(ctx, key)
	require.NoError(t, err)
	ttl, err = l.client.TTL(ctx, l.key(key)).Result()
	require.NoError(t, err)
	assert.LessOrEqual(t, ttl, 10*time.Second)
}
