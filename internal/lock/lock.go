// Package lock keeps scheduled jobs from running on two replicas at once.
package lock

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "agregador:lock:"

// Locker grants named, expiring locks.
type Locker interface {
	// TryAcquire returns ok=false without error when another holder has name.
	// release must be called once the job finishes.
	TryAcquire(ctx context.Context, name string) (release func(), ok bool, err error)
}

// NopLocker always grants the lock. Used when no Redis is configured.
type NopLocker struct{}

func (NopLocker) TryAcquire(context.Context, string) (func(), bool, error) {
	return func() {}, true, nil
}

// deletes the key only while it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisLocker implements Locker with SET NX PX.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisLocker returns a locker whose locks expire after ttl even if the
// holder dies. Failed releases are logged to logger.
func NewRedisLocker(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisLocker {
	return &RedisLocker{client: client, ttl: ttl, logger: logger}
}

// Dial parses a redis:// URL and pings the server.
func Dial(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return client, nil
}

func (l *RedisLocker) TryAcquire(ctx context.Context, name string) (func(), bool, error) {
	key := keyPrefix + name
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquiring lock %s: %w", name, err)
	}
	if !ok {
		return nil, false, nil
	}

	release := func() {
		// The job's ctx may already be done; releasing must still happen.
		rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		deleted, err := releaseScript.Run(rctx, l.client, []string{key}, token).Int()
		if err != nil {
			l.logger.Error("releasing lock failed, held until ttl", "lock", name, "ttl", l.ttl, "error", err)
			return
		}
		if deleted == 0 {
			l.logger.Warn("lock expired before release", "lock", name, "ttl", l.ttl)
		}
	}
	return release, true, nil
}
