package lock

import (
	"context"
	"fmt"
	"sync"

	"github.com/jhoicas/joyeria-erp/internal/application/billing"
	"github.com/jhoicas/joyeria-erp/internal/domain"
)

var (
	_ billing.RecordLocker = (*LocalLocker)(nil)
	_ billing.RecordLocker = NoopLocker{}
)

// LocalLocker bloqueo por clave dentro de un solo proceso (modo desarrollo, una instancia).
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

// NewLocalLocker construye el locker.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]chan struct{})}
}

// Lock espera a que key quede libre o a que ctx termine.
func (l *LocalLocker) Lock(ctx context.Context, key string) (func(context.Context), error) {
	for {
		l.mu.Lock()
		ch, held := l.locks[key]
		if !held {
			ch = make(chan struct{})
			l.locks[key] = ch
			l.mu.Unlock()
			return func(context.Context) {
				l.mu.Lock()
				delete(l.locks, key)
				l.mu.Unlock()
				close(ch)
			}, nil
		}
		l.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return nil, fmt.Errorf("bloqueo %s: %v: %w", key, ctx.Err(), domain.ErrLockNotObtained)
		}
	}
}

// NoopLocker no bloquea; la transacción (FOR UPDATE + compare-and-set) sigue protegiendo.
type NoopLocker struct{}

// Lock siempre tiene éxito.
func (NoopLocker) Lock(context.Context, string) (func(context.Context), error) {
	return func(context.Context) {}, nil
}
