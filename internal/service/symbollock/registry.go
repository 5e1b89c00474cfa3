package symbollock

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// ErrBusy is returned when a symbol's lock is not acquired within the wait.
var ErrBusy = fmt.Errorf("symbol lock: acquisition timed out")

// Registry serializes work per symbol. Each symbol has its own exclusive
// section so monitoring one symbol never blocks execution on another.
type Registry struct {
	mu      sync.Mutex
	locks   map[string]chan struct{}
	maxWait time.Duration
}

// New creates a registry with the given bounded acquisition wait.
func New(maxWait time.Duration) *Registry {
	return &Registry{locks: make(map[string]chan struct{}), maxWait: maxWait}
}

func (r *Registry) lock(symbol string) chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch, ok := r.locks[symbol]
	if !ok {
		ch = make(chan struct{}, 1)
		r.locks[symbol] = ch
	}
	return ch
}

// Acquire takes the symbol's exclusive section, waiting at most the
// registry's bound. The returned release func must be called exactly once.
func (r *Registry) Acquire(ctx context.Context, symbol string) (func(), error) {
	ch := r.lock(symbol)

	timer := time.NewTimer(r.maxWait)
	defer timer.Stop()

	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-timer.C:
		return nil, fmt.Errorf("%w: %s after %s", ErrBusy, symbol, r.maxWait)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Do runs fn inside the symbol's exclusive section.
func (r *Registry) Do(ctx context.Context, symbol string, fn func() error) error {
	release, err := r.Acquire(ctx, symbol)
	if err != nil {
		return err
	}
	defer release()
	return fn()
}
