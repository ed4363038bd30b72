package guard

import (
	"context"
	"sync"
	"sync/atomic"
)

// Locker is a non-blocking single-slot lock. TryAcquire never waits: when the
// slot is taken it returns ok=false. The returned release func is idempotent.
type Locker interface {
	TryAcquire(ctx context.Context) (release func(), ok bool, err error)
	Held(ctx context.Context) (bool, error)
}

// Do runs fn while holding l and releases the slot however fn returns.
// It reports false without calling fn when the slot is already held.
func Do(ctx context.Context, l Locker, fn func() error) (bool, error) {
	release, ok, err := l.TryAcquire(ctx)
	if err != nil || !ok {
		return false, err
	}
	defer release()

	return true, fn()
}

type Local struct {
	held atomic.Bool
}

func NewLocal() *Local {
	return &Local{}
}

func (l *Local) TryAcquire(ctx context.Context) (func(), bool, error) {
	if !l.held.CompareAndSwap(false, true) {
		return nil, false, nil
	}
	var once sync.Once
	return func() { once.Do(func() { l.held.Store(false) }) }, true, nil
}

func (l *Local) Held(ctx context.Context) (bool, error) {
	return l.held.Load(), nil
}
