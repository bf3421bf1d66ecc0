// Copyright (c) 2026 Hush Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package storagetest provides a conformance suite which every
// session.Store implementation must pass. Backend test packages call Run
// with a factory producing a fresh empty store per subtest.
package storagetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hushcomm/hush/cipher"
	"github.com/hushcomm/hush/session"
)

// Factory returns a fresh empty store for one subtest.
type Factory func(t testing.TB) session.Store

// Run exercises the full session.Store contract against stores built by
// factory.
func Run(t *testing.T, factory Factory) {
	t.Run("InsertAndGet", func(t *testing.T) { testInsertAndGet(t, factory(t)) })
	t.Run("SingleActive", func(t *testing.T) { testSingleActive(t, factory(t)) })
	t.Run("GetByPublicKey", func(t *testing.T) { testGetByPublicKey(t, factory(t)) })
	t.Run("StatusTransitions", func(t *testing.T) { testStatusTransitions(t, factory(t)) })
	t.Run("MessageCount", func(t *testing.T) { testMessageCount(t, factory(t)) })
	t.Run("Lease", func(t *testing.T) { testLease(t, factory(t)) })
	t.Run("ConcurrentInsert", func(t *testing.T) { testConcurrentInsert(t, factory(t)) })
	t.Run("ConcurrentBump", func(t *testing.T) { testConcurrentBump(t, factory(t)) })
}

// NewRecord builds a valid record for tests.
func NewRecord(t testing.TB, threadID string, status session.Status) *session.Record {
	t.Helper()
	key, err := cipher.Curve25519Generate(cipher.RandReader)
	require.NoError(t, err)
	now := time.Now().UTC().Truncate(time.Microsecond)
	rec := &session.Record{
		ID:        uuid.New().String(),
		ThreadID:  threadID,
		Status:    status,
		CreatedAt: now,
		ExpiresAt: now.Add(24 * time.Hour),
	}
	rec.PublicKey = *key.PublicKey()
	rec.PrivateKey = *key.PrivateKey()
	return rec
}

func testInsertAndGet(t *testing.T, store session.Store) {
	ctx := context.Background()

	_, err := store.GetActive(ctx, "thread-1")
	require.ErrorIs(t, err, session.ErrNotFound)
	_, err = store.GetRotating(ctx, "thread-1")
	require.ErrorIs(t, err, session.ErrNotFound)

	rec := NewRecord(t, "thread-1", session.StatusActive)
	require.NoError(t, store.Insert(ctx, rec))

	got, err := store.GetActive(ctx, "thread-1")
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, rec.ThreadID, got.ThreadID)
	assert.Equal(t, rec.PublicKey, got.PublicKey)
	assert.Equal(t, rec.PrivateKey, got.PrivateKey)
	assert.Equal(t, session.StatusActive, got.Status)
	assert.WithinDuration(t, rec.CreatedAt, got.CreatedAt, time.Millisecond)
	assert.WithinDuration(t, rec.ExpiresAt, got.ExpiresAt, time.Millisecond)

	// records are isolated per thread
	_, err = store.GetActive(ctx, "thread-2")
	require.ErrorIs(t, err, session.ErrNotFound)
}

func testSingleActive(t *testing.T, store session.Store) {
	ctx := context.Background()

	first := NewRecord(t, "thread-1", session.StatusActive)
	require.NoError(t, store.Insert(ctx, first))

	// a second active record for the same thread must be rejected
	second := NewRecord(t, "thread-1", session.StatusActive)
	require.ErrorIs(t, store.Insert(ctx, second), session.ErrActiveExists)

	// re-inserting the same record is an overwrite, not a conflict
	require.NoError(t, store.Insert(ctx, first))

	// an active record on another thread is unaffected
	other := NewRecord(t, "thread-2", session.StatusActive)
	require.NoError(t, store.Insert(ctx, other))

	// once the first record leaves active, a successor may be inserted
	require.NoError(t, store.UpdateStatus(ctx, first.ID, session.StatusActive, session.StatusRotating, time.Time{}))
	require.NoError(t, store.Insert(ctx, second))
}

func testGetByPublicKey(t *testing.T, store session.Store) {
	ctx := context.Background()

	rec := NewRecord(t, "thread-1", session.StatusActive)
	require.NoError(t, store.Insert(ctx, rec))

	got, err := store.GetByPublicKey(ctx, "thread-1", &rec.PublicKey)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)

	// lookup works regardless of status
	require.NoError(t, store.UpdateStatus(ctx, rec.ID, session.StatusActive, session.StatusRotating, time.Time{}))
	got, err = store.GetByPublicKey(ctx, "thread-1", &rec.PublicKey)
	require.NoError(t, err)
	assert.Equal(t, session.StatusRotating, got.Status)

	// unknown key and wrong thread both miss
	unknown := NewRecord(t, "thread-1", session.StatusActive)
	_, err = store.GetByPublicKey(ctx, "thread-1", &unknown.PublicKey)
	require.ErrorIs(t, err, session.ErrNotFound)
	_, err = store.GetByPublicKey(ctx, "thread-2", &rec.PublicKey)
	require.ErrorIs(t, err, session.ErrNotFound)
}

func testStatusTransitions(t *testing.T, store session.Store) {
	ctx := context.Background()

	rec := NewRecord(t, "thread-1", session.StatusActive)
	require.NoError(t, store.Insert(ctx, rec))

	_, err := store.GetRotating(ctx, "thread-1")
	require.ErrorIs(t, err, session.ErrNotFound)

	// unknown record
	err = store.UpdateStatus(ctx, uuid.New().String(), session.StatusActive, session.StatusRotating, time.Time{})
	require.ErrorIs(t, err, session.ErrNotFound)

	// wrong from status
	err = store.UpdateStatus(ctx, rec.ID, session.StatusRotating, session.StatusExpired, time.Time{})
	require.ErrorIs(t, err, session.ErrStatusConflict)

	// active -> rotating moves the expiry when one is given
	deadline := time.Now().UTC().Add(5 * time.Minute).Truncate(time.Microsecond)
	require.NoError(t, store.UpdateStatus(ctx, rec.ID, session.StatusActive, session.StatusRotating, deadline))
	got, err := store.GetRotating(ctx, "thread-1")
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.WithinDuration(t, deadline, got.ExpiresAt, time.Millisecond)

	// backwards transitions are rejected
	err = store.UpdateStatus(ctx, rec.ID, session.StatusRotating, session.StatusActive, time.Time{})
	require.ErrorIs(t, err, session.ErrStatusConflict)

	// rotating -> expired without touching the expiry
	require.NoError(t, store.UpdateStatus(ctx, rec.ID, session.StatusRotating, session.StatusExpired, time.Time{}))
	got, err = store.GetByPublicKey(ctx, "thread-1", &rec.PublicKey)
	require.NoError(t, err)
	assert.Equal(t, session.StatusExpired, got.Status)
	assert.WithinDuration(t, deadline, got.ExpiresAt, time.Millisecond)

	// expired is terminal
	err = store.UpdateStatus(ctx, rec.ID, session.StatusExpired, session.StatusActive, time.Time{})
	require.ErrorIs(t, err, session.ErrStatusConflict)
}

func testMessageCount(t *testing.T, store session.Store) {
	ctx := context.Background()

	count, err := store.MessageCount(ctx, "thread-1")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)

	for i := 1; i <= 3; i++ {
		count, err = store.BumpMessageCount(ctx, "thread-1")
		require.NoError(t, err)
		assert.Equal(t, uint64(i), count)
	}

	// counters are per thread
	count, err = store.MessageCount(ctx, "thread-2")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)

	require.NoError(t, store.ResetMessageCount(ctx, "thread-1"))
	count, err = store.MessageCount(ctx, "thread-1")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}

func testLease(t *testing.T, store session.Store) {
	ctx := context.Background()
	now := time.Now().UTC()

	lease, err := store.AcquireLease(ctx, "thread-1", "holder-a", now, 30*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "holder-a", lease.Holder)
	assert.WithinDuration(t, now.Add(30*time.Second), lease.ExpiresAt, time.Millisecond)

	// a live lease blocks other holders
	_, err = store.AcquireLease(ctx, "thread-1", "holder-b", now.Add(time.Second), 30*time.Second)
	require.ErrorIs(t, err, session.ErrLeaseHeld)

	// the same holder may extend its own lease
	_, err = store.AcquireLease(ctx, "thread-1", "holder-a", now.Add(time.Second), 30*time.Second)
	require.NoError(t, err)

	// other threads are independent
	_, err = store.AcquireLease(ctx, "thread-2", "holder-b", now, 30*time.Second)
	require.NoError(t, err)

	// an expired lease is taken over
	_, err = store.AcquireLease(ctx, "thread-1", "holder-b", now.Add(time.Minute), 30*time.Second)
	require.NoError(t, err)

	// release by a non-holder is a no-op
	require.NoError(t, store.ReleaseLease(ctx, "thread-1", "holder-a"))
	_, err = store.AcquireLease(ctx, "thread-1", "holder-c", now.Add(time.Minute), 30*time.Second)
	require.ErrorIs(t, err, session.ErrLeaseHeld)

	// release by the holder frees the lease
	require.NoError(t, store.ReleaseLease(ctx, "thread-1", "holder-b"))
	_, err = store.AcquireLease(ctx, "thread-1", "holder-c", now.Add(time.Minute), 30*time.Second)
	require.NoError(t, err)

	// releasing a nonexistent lease is a no-op
	require.NoError(t, store.ReleaseLease(ctx, "thread-3", "holder-a"))
}

func testConcurrentInsert(t *testing.T, store session.Store) {
	ctx := context.Background()
	const writers = 8

	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = store.Insert(ctx, NewRecord(t, "thread-1", session.StatusActive))
		}(i)
	}
	wg.Wait()

	var won int
	for _, err := range errs {
		if err == nil {
			won++
		} else {
			require.ErrorIs(t, err, session.ErrActiveExists)
		}
	}
	assert.Equal(t, 1, won, "exactly one concurrent insert must win")
}

func testConcurrentBump(t *testing.T, store session.Store) {
	ctx := context.Background()
	const bumps = 32

	var wg sync.WaitGroup
	for i := 0; i < bumps; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.BumpMessageCount(ctx, "thread-1")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	count, err := store.MessageCount(ctx, "thread-1")
	require.NoError(t, err)
	assert.Equal(t, uint64(bumps), count)
}
