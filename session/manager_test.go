// Copyright (c) 2026 Hush Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package session_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/curve25519"

	"github.com/hushcomm/hush/audit"
	"github.com/hushcomm/hush/def"
	"github.com/hushcomm/hush/session"
	"github.com/hushcomm/hush/session/memstore"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// captureSink records audit events for inspection.
type captureSink struct {
	mu     sync.Mutex
	events []audit.Event
	ops    []string
}

func (s *captureSink) Event(ctx context.Context, event audit.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *captureSink) Error(ctx context.Context, op string, err error, threadID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops = append(s.ops, op)
}

func (s *captureSink) last() audit.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events[len(s.events)-1]
}

// flakyStore fails one store method a given number of times with
// ErrStoreUnavailable before handing through.
type flakyStore struct {
	session.Store
	mu        sync.Mutex
	method    string
	remaining int
	calls     int
}

func (f *flakyStore) fail(method string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.method != method {
		return false
	}
	f.calls++
	if f.remaining > 0 {
		f.remaining--
		return true
	}
	return false
}

func (f *flakyStore) UpdateStatus(ctx context.Context, id string, from, to session.Status, expiresAt time.Time) error {
	if f.fail("UpdateStatus") {
		return session.ErrStoreUnavailable
	}
	return f.Store.UpdateStatus(ctx, id, from, to, expiresAt)
}

func (f *flakyStore) ResetMessageCount(ctx context.Context, threadID string) error {
	if f.fail("ResetMessageCount") {
		return session.ErrStoreUnavailable
	}
	return f.Store.ResetMessageCount(ctx, threadID)
}

func TestGetOrCreate(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	clock := newFakeClock()
	m := session.NewManager(store, session.WithClock(clock))

	rec, err := m.GetOrCreate(ctx, "thread-1")
	require.NoError(t, err)
	assert.Equal(t, "thread-1", rec.ThreadID)
	assert.Equal(t, session.StatusActive, rec.Status)
	assert.True(t, rec.CreatedAt.Equal(clock.Now()))
	assert.True(t, rec.ExpiresAt.Equal(clock.Now().Add(def.SessionKeyExpiry)))
	assert.Empty(t, rec.PreviousKeyID)

	// the pair is a real scalar/point pair
	var pub [32]byte
	curve25519.ScalarBaseMult(&pub, &rec.PrivateKey)
	assert.Equal(t, pub, rec.PublicKey)

	again, err := m.GetOrCreate(ctx, "thread-1")
	require.NoError(t, err)
	assert.Equal(t, rec.ID, again.ID)
}

func TestRotationByCount(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	clock := newFakeClock()
	sink := &captureSink{}
	m := session.NewManager(store, session.WithClock(clock),
		session.WithThreshold(3), session.WithSink(sink))

	rec1, err := m.GetOrCreate(ctx, "thread-1")
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		require.NoError(t, m.Bump(ctx, "thread-1"))
	}
	clock.Advance(time.Second)

	rec2, err := m.GetOrCreate(ctx, "thread-1")
	require.NoError(t, err)
	assert.NotEqual(t, rec1.ID, rec2.ID)
	assert.Equal(t, rec1.ID, rec2.PreviousKeyID)
	assert.Equal(t, session.StatusActive, rec2.Status)

	// the outgoing record entered its transition window
	old, err := store.GetRotating(ctx, "thread-1")
	require.NoError(t, err)
	assert.Equal(t, rec1.ID, old.ID)
	assert.True(t, old.ExpiresAt.Equal(clock.Now().Add(def.KeyTransitionPeriod)))

	count, err := m.Count(ctx, "thread-1")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)

	event := sink.last()
	assert.Equal(t, audit.KindRotation, event.Kind)
	assert.Equal(t, audit.StatusSuccess, event.Status)
	assert.Equal(t, rec2.ID, event.Meta["keyId"])
	assert.Equal(t, rec1.ID, event.Meta["previousKeyId"])
}

func TestRotationByAge(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	clock := newFakeClock()
	m := session.NewManager(store, session.WithClock(clock))

	rec1, err := m.GetOrCreate(ctx, "thread-1")
	require.NoError(t, err)

	clock.Advance(def.SessionKeyExpiry - def.KeyTransitionPeriod)
	rec2, err := m.GetOrCreate(ctx, "thread-1")
	require.NoError(t, err)
	assert.NotEqual(t, rec1.ID, rec2.ID)
	assert.Equal(t, rec1.ID, rec2.PreviousKeyID)
}

func TestExpiredWithoutRotation(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	clock := newFakeClock()
	m := session.NewManager(store, session.WithClock(clock))

	rec1, err := m.GetOrCreate(ctx, "thread-1")
	require.NoError(t, err)

	// the key aged out entirely; the session restarts instead of rotating
	clock.Advance(def.SessionKeyExpiry + time.Minute)
	rec2, err := m.GetOrCreate(ctx, "thread-1")
	require.NoError(t, err)
	assert.NotEqual(t, rec1.ID, rec2.ID)
	assert.Empty(t, rec2.PreviousKeyID)

	old, err := store.GetByPublicKey(ctx, "thread-1", &rec1.PublicKey)
	require.NoError(t, err)
	assert.Equal(t, session.StatusExpired, old.Status)
}

func TestCurrentThroughTransition(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	clock := newFakeClock()
	m := session.NewManager(store, session.WithClock(clock), session.WithThreshold(1))

	rec1, err := m.GetOrCreate(ctx, "thread-1")
	require.NoError(t, err)
	require.NoError(t, m.Bump(ctx, "thread-1"))
	clock.Advance(time.Second)

	rec2, err := m.GetOrCreate(ctx, "thread-1")
	require.NoError(t, err)
	require.NotEqual(t, rec1.ID, rec2.ID)

	// the outgoing key resolves during the transition window
	cur, err := m.Current(ctx, "thread-1", &rec1.PublicKey)
	require.NoError(t, err)
	assert.Equal(t, rec1.ID, cur.ID)

	// and is gone afterwards
	clock.Advance(def.KeyTransitionPeriod + time.Second)
	_, err = m.Current(ctx, "thread-1", &rec1.PublicKey)
	assert.ErrorIs(t, err, session.ErrKeyExpired)

	old, err := store.GetByPublicKey(ctx, "thread-1", &rec1.PublicKey)
	require.NoError(t, err)
	assert.Equal(t, session.StatusExpired, old.Status)

	// unknown public values surface the same way
	var unknown [32]byte
	unknown[0] = 1
	_, err = m.Current(ctx, "thread-1", &unknown)
	assert.ErrorIs(t, err, session.ErrKeyExpired)

	cur2, err := m.Current(ctx, "thread-1", &rec2.PublicKey)
	require.NoError(t, err)
	assert.Equal(t, rec2.ID, cur2.ID)
}

func TestRotateForced(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	clock := newFakeClock()
	m := session.NewManager(store, session.WithClock(clock))

	rec1, err := m.Rotate(ctx, "thread-1")
	require.NoError(t, err)
	assert.Empty(t, rec1.PreviousKeyID)

	clock.Advance(time.Second)
	rec2, err := m.Rotate(ctx, "thread-1")
	require.NoError(t, err)
	assert.Equal(t, rec1.ID, rec2.PreviousKeyID)
}

func TestRotationContention(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	clock := newFakeClock()
	m := session.NewManager(store, session.WithClock(clock), session.WithThreshold(1))

	rec1, err := m.GetOrCreate(ctx, "thread-1")
	require.NoError(t, err)
	require.NoError(t, m.Bump(ctx, "thread-1"))

	// a foreign lease defers the rotation; the current key stays valid
	_, err = store.AcquireLease(ctx, "thread-1", "foreign-holder", clock.Now(), def.LeaseTTL)
	require.NoError(t, err)

	rec, err := m.GetOrCreate(ctx, "thread-1")
	require.NoError(t, err)
	assert.Equal(t, rec1.ID, rec.ID)
}

func TestLeaseTakeover(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	clock := newFakeClock()
	m := session.NewManager(store, session.WithClock(clock), session.WithThreshold(1))

	rec1, err := m.GetOrCreate(ctx, "thread-1")
	require.NoError(t, err)
	require.NoError(t, m.Bump(ctx, "thread-1"))

	_, err = store.AcquireLease(ctx, "thread-1", "crashed-holder", clock.Now(), def.LeaseTTL)
	require.NoError(t, err)

	// the abandoned lease expires and rotation proceeds
	clock.Advance(def.LeaseTTL + time.Second)
	rec2, err := m.GetOrCreate(ctx, "thread-1")
	require.NoError(t, err)
	assert.NotEqual(t, rec1.ID, rec2.ID)
	assert.Equal(t, rec1.ID, rec2.PreviousKeyID)
}

func TestRotationResumesAfterTransientFailure(t *testing.T) {
	ctx := context.Background()
	base := memstore.New()
	flaky := &flakyStore{Store: base, method: "ResetMessageCount", remaining: 2}
	clock := newFakeClock()
	m := session.NewManager(flaky, session.WithClock(clock),
		session.WithThreshold(1), session.WithBackoff(time.Millisecond))

	rec1, err := m.GetOrCreate(ctx, "thread-1")
	require.NoError(t, err)
	require.NoError(t, m.Bump(ctx, "thread-1"))
	clock.Advance(time.Second)

	// the first two attempts die after the insert; the third resumes the
	// partially completed rotation
	rec2, err := m.GetOrCreate(ctx, "thread-1")
	require.NoError(t, err)
	assert.Equal(t, rec1.ID, rec2.PreviousKeyID)

	active, err := base.GetActive(ctx, "thread-1")
	require.NoError(t, err)
	assert.Equal(t, rec2.ID, active.ID)

	count, err := m.Count(ctx, "thread-1")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}

func TestRotationFailsAfterRetries(t *testing.T) {
	ctx := context.Background()
	base := memstore.New()
	flaky := &flakyStore{Store: base, method: "UpdateStatus", remaining: 100}
	clock := newFakeClock()
	sink := &captureSink{}
	m := session.NewManager(flaky, session.WithClock(clock),
		session.WithThreshold(1), session.WithBackoff(time.Millisecond),
		session.WithSink(sink))

	rec1, err := m.GetOrCreate(ctx, "thread-1")
	require.NoError(t, err)
	require.NoError(t, m.Bump(ctx, "thread-1"))
	clock.Advance(time.Second)

	_, err = m.GetOrCreate(ctx, "thread-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, session.ErrStoreUnavailable)
	assert.Equal(t, def.RotationAttempts, flaky.calls)

	// the previous key survived the failed rotation
	active, err := base.GetActive(ctx, "thread-1")
	require.NoError(t, err)
	assert.Equal(t, rec1.ID, active.ID)

	event := sink.last()
	assert.Equal(t, audit.KindRotation, event.Kind)
	assert.Equal(t, audit.StatusFailure, event.Status)
}

func TestConcurrentGetOrCreate(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	clock := newFakeClock()
	m := session.NewManager(store, session.WithClock(clock))

	const workers = 8
	var wg sync.WaitGroup
	recs := make([]*session.Record, workers)
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			recs[i], errs[i] = m.GetOrCreate(ctx, "thread-1")
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, recs[0].ID, recs[i].ID)
	}
}

func TestConcurrentRotation(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	clock := newFakeClock()
	mA := session.NewManager(store, session.WithClock(clock), session.WithThreshold(1))
	mB := session.NewManager(store, session.WithClock(clock), session.WithThreshold(1))

	rec1, err := mA.GetOrCreate(ctx, "thread-1")
	require.NoError(t, err)
	require.NoError(t, mA.Bump(ctx, "thread-1"))
	clock.Advance(time.Second)

	var wg sync.WaitGroup
	results := make([]*session.Record, 2)
	errs := make([]error, 2)
	for i, m := range []*session.Manager{mA, mB} {
		wg.Add(1)
		go func(i int, m *session.Manager) {
			defer wg.Done()
			results[i], errs[i] = m.GetOrCreate(ctx, "thread-1")
		}(i, m)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	// exactly one rotation happened; losers kept the outgoing key
	active, err := store.GetActive(ctx, "thread-1")
	require.NoError(t, err)
	assert.Equal(t, rec1.ID, active.PreviousKeyID)
	for i := range results {
		assert.Contains(t, []string{rec1.ID, active.ID}, results[i].ID)
	}
}
