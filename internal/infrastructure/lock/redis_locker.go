// Package lock serializa operaciones sobre un mismo documento entre instancias.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/jhoicas/joyeria-erp/internal/application/billing"
	"github.com/jhoicas/joyeria-erp/internal/domain"
	"github.com/jhoicas/joyeria-erp/pkg/logger"
	"github.com/redis/go-redis/v9"
)

var _ billing.RecordLocker = (*RedisLocker)(nil)

// RedisLocker bloqueo distribuido con redislock. Si no se obtiene tras los reintentos
// devuelve domain.ErrLockNotObtained.
type RedisLocker struct {
	client  *redislock.Client
	ttl     time.Duration
	retries int
	backoff time.Duration
	log     *logger.Logger
}

// NewRedisLocker construye el locker sobre un cliente go-redis.
func NewRedisLocker(rdb redis.UniversalClient, ttl time.Duration, log *logger.Logger) *RedisLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisLocker{
		client:  redislock.New(rdb),
		ttl:     ttl,
		retries: 20,
		backoff: 100 * time.Millisecond,
		log:     log,
	}
}

// Lock obtiene el bloqueo key; la función devuelta lo libera.
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(context.Context), error) {
	lk, err := l.client.Obtain(ctx, key, l.ttl, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(l.backoff), l.retries),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, fmt.Errorf("bloqueo %s: %w", key, domain.ErrLockNotObtained)
	}
	if err != nil {
		return nil, fmt.Errorf("obtener bloqueo %s: %w", key, err)
	}
	return func(ctx context.Context) {
		if err := lk.Release(ctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			l.log.Warn().Err(err).Str("key", key).Msg("no se pudo liberar el bloqueo")
		}
	}, nil
}

// NewRedisClient crea el cliente go-redis y verifica la conexión.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return rdb, nil
}
