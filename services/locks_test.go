package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockManagerMutualExclusion(t *testing.T) {
	m := NewLockManager(50 * time.Millisecond)
	ctx := context.Background()

	release, err := m.Acquire(ctx, MatchLockKey(1))
	require.NoError(t, err)

	// A second acquisition times out with a retryable conflict.
	_, err = m.Acquire(ctx, MatchLockKey(1))
	require.ErrorIs(t, err, ErrConcurrencyConflict)

	release()
	release, err = m.Acquire(ctx, MatchLockKey(1))
	require.NoError(t, err)
	release()
}

func TestLockManagerKeysAreIndependent(t *testing.T) {
	m := NewLockManager(50 * time.Millisecond)
	ctx := context.Background()

	releaseMatch, err := m.Acquire(ctx, MatchLockKey(1))
	require.NoError(t, err)
	defer releaseMatch()

	releasePlayer, err := m.Acquire(ctx, PlayerLockKey(1))
	require.NoError(t, err)
	releasePlayer()
}

func TestLockManagerCancelledContext(t *testing.T) {
	m := NewLockManager(time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Acquire(ctx, GroupLockKey(1))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLockManagerWaitsForRelease(t *testing.T) {
	m := NewLockManager(time.Second)
	ctx := context.Background()

	release, err := m.Acquire(ctx, MatchLockKey(1))
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		r, err := m.Acquire(ctx, MatchLockKey(1))
		if err == nil {
			r()
		}
		close(acquired)
	}()

	time.Sleep(10 * time.Millisecond)
	release()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second acquisition never completed after release")
	}
}

func TestAcquireAllRollsBackOnConflict(t *testing.T) {
	m := NewLockManager(50 * time.Millisecond)
	ctx := context.Background()

	blocker, err := m.Acquire(ctx, PlayerLockKey(2))
	require.NoError(t, err)

	_, err = m.AcquireAll(ctx, []string{PlayerLockKey(1), PlayerLockKey(2)})
	require.ErrorIs(t, err, ErrConcurrencyConflict)

	// The first key must have been released on the failed batch.
	release, err := m.Acquire(ctx, PlayerLockKey(1))
	require.NoError(t, err)
	release()

	blocker()
	release, err = m.AcquireAll(ctx, []string{PlayerLockKey(1), PlayerLockKey(2)})
	require.NoError(t, err)
	release()
}
