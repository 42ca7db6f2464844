package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Provider counts requests per key inside a fixed window.
type Provider interface {
	Allow(key string) bool
}

var Instance Provider

// Connect selects the redis backend when redisURL is set, the in-process one otherwise.
func Connect(requests int, window time.Duration, redisURL string) error {
	if redisURL == "" {
		Instance = NewMemory(requests, window, time.Now)
		return nil
	}
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return errors.Wrap(err, "failed to parse rate limit redis url")
	}
	Instance = NewRedis(redis.NewClient(opt), requests, window)
	return nil
}

type bucket struct {
	count   int
	resetAt time.Time
}

type memoryImpl struct {
	mu       sync.Mutex
	requests int
	window   time.Duration
	now      func() time.Time
	buckets  map[string]*bucket
	sweepAt  time.Time
}

func NewMemory(requests int, window time.Duration, now func() time.Time) Provider {
	return &memoryImpl{
		requests: requests,
		window:   window,
		now:      now,
		buckets:  map[string]*bucket{},
	}
}

func (m *memoryImpl) Allow(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	m.sweep(now)
	b, ok := m.buckets[key]
	if !ok || !now.Before(b.resetAt) {
		b = &bucket{resetAt: now.Add(m.window)}
		m.buckets[key] = b
	}
	b.count++
	return b.count <= m.requests
}

// sweep drops expired buckets at most once per window.
func (m *memoryImpl) sweep(now time.Time) {
	if now.Before(m.sweepAt) {
		return
	}
	for key, b := range m.buckets {
		if !now.Before(b.resetAt) {
			delete(m.buckets, key)
		}
	}
	m.sweepAt = now.Add(m.window)
}

type redisImpl struct {
	client   *redis.Client
	requests int
	window   time.Duration
}

func NewRedis(client *redis.Client, requests int, window time.Duration) Provider {
	return &redisImpl{
		client:   client,
		requests: requests,
		window:   window,
	}
}

func (r *redisImpl) Allow(key string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	redisKey := fmt.Sprintf("ratelimit:%s", key)
	count, err := r.client.Incr(ctx, redisKey).Result()
	if err != nil {
		log.WithError(err).Warn("rate limit backend unavailable, request allowed")
		return true
	}
	if count == 1 {
		if err = r.client.Expire(ctx, redisKey, r.window).Err(); err != nil {
			log.WithError(err).Warn("failed to set rate limit window")
		}
	}
	return count <= int64(r.requests)
}
