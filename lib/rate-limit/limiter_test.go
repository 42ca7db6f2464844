package ratelimit

import (
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiter(t *testing.T) {
	now := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)
	limiter := NewMemory(3, 15*time.Minute, func() time.Time { return now })

	t.Run("limit per key check", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			require.True(t, limiter.Allow("10.0.0.1"))
		}
		require.False(t, limiter.Allow("10.0.0.1"))
		require.True(t, limiter.Allow("10.0.0.2"))
	})

	t.Run("window reset check", func(t *testing.T) {
		now = now.Add(15 * time.Minute)
		require.True(t, limiter.Allow("10.0.0.1"))
	})
}

func TestConnect(t *testing.T) {
	t.Run("memory backend check", func(t *testing.T) {
		require.NoError(t, Connect(10, time.Minute, ""))
		_, ok := Instance.(*memoryImpl)
		require.True(t, ok)
	})

	t.Run("redis backend check", func(t *testing.T) {
		require.NoError(t, Connect(10, time.Minute, "redis://localhost:6379/0"))
		_, ok := Instance.(*redisImpl)
		require.True(t, ok)
	})

	t.Run("bad redis url check", func(t *testing.T) {
		require.Error(t, Connect(10, time.Minute, "://bad"))
	})

	t.Run("redis unavailable fails open check", func(t *testing.T) {
		client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
		defer client.Close()
		require.True(t, NewRedis(client, 1, time.Minute).Allow("10.0.0.1"))
	})
}
