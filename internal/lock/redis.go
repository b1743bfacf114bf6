package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "posiljke:lock:"

// releaseScript deletes the key only when it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// extendScript resets the expiry only when the key still holds our token.
var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// Redis is a Locker backed by SET NX with an expiry.
type Redis struct {
	client redis.UniversalClient
	ttl    time.Duration
	logger *zap.Logger
	sleep  func(context.Context, time.Duration) error
}

// NewRedis wraps an existing client.
func NewRedis(client redis.UniversalClient, ttl time.Duration, logger *zap.Logger) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Redis{client: client, ttl: ttl, logger: logger, sleep: sleepCtx}
}

// New connects to Redis at addr. When addr is empty or Redis cannot be
// reached it falls back to an in-process locker.
func New(ctx context.Context, addr string, ttl time.Duration, logger *zap.Logger) Locker {
	if addr == "" {
		return NewLocal(ttl)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		MaxRetries:   3,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("Failed to connect to Redis, using in-process run lock",
			zap.String("addr", addr),
			zap.Error(err),
		)
		client.Close()
		return NewLocal(ttl)
	}

	logger.Info("Redis run lock initialized", zap.String("addr", addr))
	return NewRedis(client, ttl, logger)
}

type redisLease struct {
	r          *Redis
	key, token string
}

func (rl *redisLease) Extend(ctx context.Context) error { return rl.r.extend(ctx, rl.key, rl.token) }
func (rl *redisLease) Release()                         { rl.r.release(rl.key, rl.token) }

// Acquire returns ErrLocked only when the key is held by someone else. If
// Redis itself failed on the last attempt, that error is returned instead.
func (r *Redis) Acquire(ctx context.Context, key string) (Lease, error) {
	key = keyPrefix + key
	token := uuid.NewString()

	var lastErr error
	for i := 0; i < attempts; i++ {
		ok, err := r.client.SetNX(ctx, key, token, r.ttl).Result()
		lastErr = err
		if err != nil {
			r.logger.Error("failed to acquire lock, redis error", zap.String("key", key), zap.Error(err))
		}
		if ok {
			return &redisLease{r: r, key: key, token: token}, nil
		}
		if i < attempts-1 {
			if err := r.sleep(ctx, retryBackoff); err != nil {
				return nil, fmt.Errorf("acquiring lock: %w", err)
			}
		}
	}
	if lastErr != nil {
		return nil, fmt.Errorf("acquiring lock: %w", lastErr)
	}
	return nil, ErrLocked
}

func (r *Redis) extend(ctx context.Context, key, token string) error {
	n, err := extendScript.Run(ctx, r.client, []string{key}, token, r.ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("extending lock: %w", err)
	}
	if n == 0 {
		return ErrLockLost
	}
	return nil
}

func (r *Redis) release(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := releaseScript.Run(ctx, r.client, []string{key}, token).Err(); err != nil {
		r.logger.Warn("failed to release lock", zap.String("key", key), zap.Error(err))
	}
}
