package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// DefaultTimeout bounds Acquire when the caller passes no timeout.
const DefaultTimeout = 2 * time.Second

var ErrTimeout = errors.New("lock acquisition timed out")

type entry struct {
	sem  *semaphore.Weighted
	refs int
}

// Keyed is a set of mutexes addressed by string key. Holders of different keys
// never wait on each other; idle keys are dropped.
type Keyed struct {
	mu      sync.Mutex
	entries map[string]*entry
}

func New() *Keyed {
	return &Keyed{
		entries: make(map[string]*entry),
	}
}

// Acquire blocks until key is free, ctx is done or timeout elapses. A
// non-positive timeout means DefaultTimeout, so every wait is bounded. The
// returned release is safe to call more than once.
func (k *Keyed) Acquire(ctx context.Context, key string, timeout time.Duration) (func(), error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	e := k.ref(key)

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := e.sem.Acquire(waitCtx, 1); err != nil {
		k.unref(key)

		if ctx.Err() != nil {
			return nil, fmt.Errorf("acquire %s: %w", key, ctx.Err())
		}

		return nil, fmt.Errorf("acquire %s after %v: %w", key, timeout, ErrTimeout)
	}

	var once sync.Once

	return func() {
		once.Do(func() {
			e.sem.Release(1)
			k.unref(key)
		})
	}, nil
}

// Len is the number of keys currently held or waited on.
func (k *Keyed) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()

	return len(k.entries)
}

func (k *Keyed) ref(key string) *entry {
	k.mu.Lock()
	defer k.mu.Unlock()

	e, ok := k.entries[key]
	if !ok {
		e = &entry{sem: semaphore.NewWeighted(1)}
		k.entries[key] = e
	}

	e.refs++

	return e
}

func (k *Keyed) unref(key string) {
	k.mu.Lock()
	defer k.mu.Unlock()

	e, ok := k.entries[key]
	if !ok {
		return
	}

	e.refs--
	if e.refs <= 0 {
		delete(k.entries, key)
	}
}
