package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var _ Store = (*RedisStore)(nil)

// RedisStore keeps quota counters in Redis, which makes allowances correct
// across multiple service instances. Each daily window gets its own key, so
// INCR alone is the whole read-modify-write.
type RedisStore struct {
	client *redis.Client
	limit  int
	now    func() time.Time
}

// NewRedisStore creates a RedisStore talking to addr.
func NewRedisStore(addr string, limit int) *RedisStore {
	return &RedisStore{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		limit:  limit,
		now:    time.Now,
	}
}

// Allow consumes one unit for key if the daily limit permits. Over-limit
// calls decrement back so a rejected request never consumes allowance.
func (s *RedisStore) Allow(ctx context.Context, key string) (bool, error) {
	now := s.now()
	window := windowStart(now)
	redisKey := fmt.Sprintf("quota:%s:%s", window.Format("2006-01-02"), key)

	count, err := s.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, fmt.Errorf("incrementing quota key: %w", err)
	}
	if count == 1 {
		// Fresh key: expire at the end of the window.
		s.client.Expire(ctx, redisKey, window.Add(24*time.Hour).Sub(now))
	}
	if count > int64(s.limit) {
		s.client.Decr(ctx, redisKey)
		return false, nil
	}
	return true, nil
}

// Close releases the underlying Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
