package database

import (
	"context"
	"sync"
	"sync/atomic"
)

// Lazy is a process wide handle opened on first use. Concurrent first callers
// share a single open; a failed open is not cached so the next call retries.
type Lazy[T any] struct {
	open func(ctx context.Context) (T, error)

	mu    sync.Mutex
	ready atomic.Bool
	value T
}

func NewLazy[T any](open func(ctx context.Context) (T, error)) *Lazy[T] {
	return &Lazy[T]{open: open}
}

// Get returns the handle, opening it if needed.
func (l *Lazy[T]) Get(ctx context.Context) (T, error) {
	if l.ready.Load() {
		return l.value, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ready.Load() {
		return l.value, nil
	}

	v, err := l.open(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	l.value = v
	l.ready.Store(true)
	return v, nil
}

// Peek returns the handle only if it has been opened.
func (l *Lazy[T]) Peek() (T, bool) {
	if l.ready.Load() {
		return l.value, true
	}
	var zero T
	return zero, false
}
