package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/iho/ledgerbook/internal/domain"
	"github.com/iho/ledgerbook/internal/infrastructure/metrics"
	redisinfra "github.com/iho/ledgerbook/internal/infrastructure/redis"
)

// ErrLockNotAcquired is returned when another writer holds the lock past the wait budget.
var ErrLockNotAcquired = fmt.Errorf("%w: record is being modified by another request", domain.ErrConflict)

// unlockScript deletes the key only while it still holds our token.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end
`)

// Locker implements usecase.Locker with SET NX PX and a compare-and-delete release.
type Locker struct {
	client        *redis.Client
	prefix        string
	ttl           time.Duration
	retryInterval time.Duration
	maxWait       time.Duration
	logger        zerolog.Logger
	metrics       *metrics.Metrics
}

// LockerOption configures a Locker.
type LockerOption func(*Locker)

// WithRetryInterval sets the pause between acquisition attempts.
func WithRetryInterval(d time.Duration) LockerOption {
	return func(l *Locker) { l.retryInterval = d }
}

// WithMaxWait bounds how long Lock waits for a held key.
func WithMaxWait(d time.Duration) LockerOption {
	return func(l *Locker) { l.maxWait = d }
}

// WithLockerLogger sets the logger.
func WithLockerLogger(logger zerolog.Logger) LockerOption {
	return func(l *Locker) { l.logger = logger }
}

// WithLockerMetrics counts contended acquisitions.
func WithLockerMetrics(m *metrics.Metrics) LockerOption {
	return func(l *Locker) { l.metrics = m }
}

// NewLocker creates a new Locker. Locks expire after ttl even if never released.
func NewLocker(client *redis.Client, ttl time.Duration, opts ...LockerOption) *Locker {
	l := &Locker{
		client:        client,
		prefix:        redisinfra.KeyPrefix + "lock:",
		ttl:           ttl,
		retryInterval: 25 * time.Millisecond,
		maxWait:       ttl,
		logger:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Lock blocks until key is acquired, maxWait elapses or ctx is done.
func (l *Locker) Lock(ctx context.Context, key string) (func(context.Context) error, error) {
	fullKey := l.prefix + key
	token := ulid.Make().String()

	deadline := time.Now().Add(l.maxWait)
	contended := false

	for {
		ok, err := l.client.SetNX(ctx, fullKey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			return l.unlockFunc(fullKey, token), nil
		}

		if !contended {
			contended = true
			if l.metrics != nil {
				l.metrics.LockContention.Inc()
			}
			l.logger.Debug().Str("key", fullKey).Msg("lock held, waiting")
		}

		if time.Now().After(deadline) {
			return nil, ErrLockNotAcquired
		}

		timer := time.NewTimer(l.retryInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("acquire lock %s: %w", key, ctx.Err())
		case <-timer.C:
		}
	}
}

func (l *Locker) unlockFunc(fullKey, token string) func(context.Context) error {
	return func(ctx context.Context) error {
		deleted, err := unlockScript.Run(ctx, l.client, []string{fullKey}, token).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("release lock %s: %w", fullKey, err)
		}
		if deleted == 0 {
			// Expired, possibly re-acquired by someone else; nothing of ours to release.
			l.logger.Warn().Str("key", fullKey).Msg("lock expired before release")
		}
		return nil
	}
}
