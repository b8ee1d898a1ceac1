// Package throttle limits how often a key may perform an action within a
// fixed time window.
package throttle

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter counts hits per key in Redis. Keys are hashed so that email
// addresses are not stored in clear.
type RedisLimiter struct {
	client *redis.Client
	prefix string
	limit  int64
	window time.Duration
}

func NewRedisLimiter(ctx context.Context, addr, prefix string, limit int, window time.Duration) (*RedisLimiter, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", addr, err)
	}
	return &RedisLimiter{client: client, prefix: prefix, limit: int64(limit), window: window}, nil
}

func (l *RedisLimiter) Close() error { return l.client.Close() }

func (l *RedisLimiter) key(k string) string {
	sum := sha256.Sum256([]byte(k))
	return l.prefix + hex.EncodeToString(sum[:16])
}

// Allow records a hit for key and reports whether it is within the limit. The
// increment and the window expiry are sent in one MULTI so a key never
// outlives its window.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	k := l.key(key)
	var incr *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		pipe.ExpireNX(ctx, k, l.window)
		return nil
	})
	if err != nil {
		return false, err
	}
	return incr.Val() <= l.limit, nil
}
