package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// Lock key constructors. Player locks must be acquired in ascending player
// id order to keep multi-player acquisition deadlock free.
func MatchLockKey(matchID int) string   { return fmt.Sprintf("match:%d", matchID) }
func PlayerLockKey(playerID int) string { return fmt.Sprintf("player:%d", playerID) }
func GroupLockKey(groupID int) string   { return fmt.Sprintf("group:%d", groupID) }

// LockManager hands out per-key mutual exclusion with a bounded wait.
// A caller that cannot acquire the key within the timeout gets
// ErrConcurrencyConflict instead of blocking indefinitely.
type LockManager struct {
	mu      sync.Mutex
	sems    map[string]*semaphore.Weighted
	timeout time.Duration
}

func NewLockManager(timeout time.Duration) *LockManager {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &LockManager{
		sems:    make(map[string]*semaphore.Weighted),
		timeout: timeout,
	}
}

func (m *LockManager) semFor(key string) *semaphore.Weighted {
	m.mu.Lock()
	defer m.mu.Unlock()
	sem, ok := m.sems[key]
	if !ok {
		sem = semaphore.NewWeighted(1)
		m.sems[key] = sem
	}
	return sem
}

// Acquire takes the key's lock, waiting at most the manager's timeout.
// The returned release function must be called exactly once.
func (m *LockManager) Acquire(ctx context.Context, key string) (release func(), err error) {
	sem := m.semFor(key)

	acquireCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	if err := sem.Acquire(acquireCtx, 1); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: lock %s", ErrConcurrencyConflict, key)
	}
	return func() { sem.Release(1) }, nil
}

// AcquireAll takes every key in the given order, releasing everything
// already held if any acquisition fails. Callers pass keys pre-sorted.
func (m *LockManager) AcquireAll(ctx context.Context, keys []string) (release func(), err error) {
	releases := make([]func(), 0, len(keys))
	for _, key := range keys {
		rel, err := m.Acquire(ctx, key)
		if err != nil {
			for i := len(releases) - 1; i >= 0; i-- {
				releases[i]()
			}
			return nil, err
		}
		releases = append(releases, rel)
	}
	return func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}, nil
}
