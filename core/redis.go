package core

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// LoginLimiter decides whether another login attempt from key is allowed.
type LoginLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// NewRedisClient returns a configured go-redis client from URL (e.g., redis://localhost:6379/0).
func NewRedisClient(redisURL string) (*redis.Client, error) {
	if redisURL == "" {
		return nil, errors.New("empty redis url")
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return client, nil
}

const loginAttemptsPrefix = "login_attempts:"

// The first INCR in a window starts the window's expiry.
var loginAllowScript = redis.NewScript(`
local current = redis.call('INCR', KEYS[1])
if current == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return current
`)

// RedisLoginLimiter is a fixed-window counter shared by every API instance.
type RedisLoginLimiter struct {
	client redis.Scripter
	limit  int
	window time.Duration
}

func NewRedisLoginLimiter(client redis.Scripter, limit int, window time.Duration) *RedisLoginLimiter {
	if window <= 0 {
		window = time.Minute
	}
	return &RedisLoginLimiter{client: client, limit: limit, window: window}
}

// Allow counts an attempt for key and reports whether it is within the limit.
func (l *RedisLoginLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if l.limit <= 0 {
		return true, nil
	}
	current, err := loginAllowScript.Run(ctx, l.client, []string{loginAttemptsPrefix + key}, l.window.Milliseconds()).Int64()
	if err != nil {
		return false, err
	}
	return current <= int64(l.limit), nil
}
