package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/vsinha/labledger/pkg/domain/repositories"
)

// ErrNotObtained is returned when the lock stays taken until the context ends
var ErrNotObtained = errors.New("document lock not obtained")

// RedisLocker serializes writers across processes with a Redis lease
type RedisLocker struct {
	client *redislock.Client
	ttl    time.Duration
	retry  time.Duration
	logger *zap.Logger
}

// NewRedisLocker wraps rdb. ttl bounds how long a crashed writer can hold the lock.
func NewRedisLocker(rdb redis.UniversalClient, ttl time.Duration, logger *zap.Logger) *RedisLocker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisLocker{client: redislock.New(rdb), ttl: ttl, retry: 100 * time.Millisecond, logger: logger}
}

var _ repositories.Locker = (*RedisLocker)(nil)

// Lock retries until the lease is obtained or ctx is done
func (l *RedisLocker) Lock(ctx context.Context, key string) (repositories.Unlock, error) {
	lockKey := fmt.Sprintf("labledger:lock:%s", key)
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.ttl)
		defer cancel()
	}

	lease, err := l.client.Obtain(ctx, lockKey, l.ttl, &redislock.Options{
		RetryStrategy: redislock.LinearBackoff(l.retry),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		l.logger.Warn("could not obtain document lock", zap.String("key", lockKey))
		return nil, fmt.Errorf("%s: %w", lockKey, ErrNotObtained)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to obtain %s: %w", lockKey, err)
	}

	return func(ctx context.Context) error {
		err := lease.Release(ctx)
		if errors.Is(err, redislock.ErrLockNotHeld) {
			l.logger.Warn("document lock expired before release", zap.String("key", lockKey))
			return nil
		}
		return err
	}, nil
}
