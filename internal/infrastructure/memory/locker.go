package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sngm3741/building-survey-services/api/internal/domain"
)

// Locker serialises work per key inside one process.
type Locker struct {
	mu   sync.Mutex
	held map[string]chan struct{}
}

func NewLocker() *Locker {
	return &Locker{held: make(map[string]chan struct{})}
}

// Lock blocks until key is free. If ctx ends first it fails with domain.ErrConflict.
// The returned func releases the key and is safe to call more than once.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	for {
		l.mu.Lock()
		wait, busy := l.held[key]
		if !busy {
			done := make(chan struct{})
			l.held[key] = done
			l.mu.Unlock()

			var once sync.Once
			return func() {
				once.Do(func() {
					l.mu.Lock()
					delete(l.held, key)
					l.mu.Unlock()
					close(done)
				})
			}, nil
		}
		l.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return nil, fmt.Errorf("%s is locked: %w", key, errors.Join(domain.ErrConflict, ctx.Err()))
		}
	}
}
