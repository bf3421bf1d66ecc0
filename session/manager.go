// Copyright (c) 2026 Hush Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jpillora/backoff"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/singleflight"

	"github.com/hushcomm/hush/audit"
	"github.com/hushcomm/hush/cipher"
	"github.com/hushcomm/hush/def"
)

// Manager decides when a thread's session key must rotate, serializes
// rotation through a store-backed lease, and keeps the outgoing key usable
// for a transition window. The lease and the rotating-record double-check
// are both validated against the durable store, so rotation stays correct
// across processes and restarts.
type Manager struct {
	store Store
	sink  audit.Sink
	log   zerolog.Logger
	clock Clock
	rand  io.Reader

	holder     string
	threshold  uint64
	expiry     time.Duration
	transition time.Duration
	leaseTTL   time.Duration
	attempts   uint64
	backoff    time.Duration

	group singleflight.Group
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the manager's logger.
func WithLogger(log zerolog.Logger) Option {
	return func(m *Manager) {
		m.log = log.With().Str("component", "session").Logger()
	}
}

// WithSink sets the audit sink.
func WithSink(sink audit.Sink) Option {
	return func(m *Manager) { m.sink = sink }
}

// WithClock sets the clock (for tests).
func WithClock(clock Clock) Option {
	return func(m *Manager) { m.clock = clock }
}

// WithRand sets the entropy source for key generation.
func WithRand(rand io.Reader) Option {
	return func(m *Manager) { m.rand = rand }
}

// WithThreshold sets the message count at which rotation triggers.
func WithThreshold(threshold uint64) Option {
	return func(m *Manager) { m.threshold = threshold }
}

// WithExpiry sets the session key lifetime.
func WithExpiry(expiry time.Duration) Option {
	return func(m *Manager) { m.expiry = expiry }
}

// WithTransition sets how long an outgoing key stays decryptable after
// rotation.
func WithTransition(transition time.Duration) Option {
	return func(m *Manager) { m.transition = transition }
}

// WithLeaseTTL sets the rotation lease lifetime.
func WithLeaseTTL(ttl time.Duration) Option {
	return func(m *Manager) { m.leaseTTL = ttl }
}

// WithBackoff sets the base of the linear retry backoff (for tests).
func WithBackoff(base time.Duration) Option {
	return func(m *Manager) { m.backoff = base }
}

// NewManager returns a manager persisting through store. Unset options fall
// back to the defaults in the def package.
func NewManager(store Store, opts ...Option) *Manager {
	m := &Manager{
		store:      store,
		sink:       audit.NopSink{},
		log:        zerolog.Nop(),
		clock:      realClock{},
		rand:       cipher.RandReader,
		holder:     uuid.New().String(),
		threshold:  def.MessageCountThreshold,
		expiry:     def.SessionKeyExpiry,
		transition: def.KeyTransitionPeriod,
		leaseTTL:   def.LeaseTTL,
		attempts:   def.RotationAttempts,
		backoff:    def.RotationBackoff,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// GetOrCreate returns the thread's current active key record, guaranteed
// unexpired at return time. It creates the first record for an unseen
// thread and rotates when the message count or key age demands it. If a
// rotation is already in flight elsewhere the existing active record is
// returned unchanged. Concurrent calls for the same thread collapse into
// one store round trip.
func (m *Manager) GetOrCreate(ctx context.Context, threadID string) (*Record, error) {
	v, err, _ := m.group.Do(threadID, func() (interface{}, error) {
		return m.getOrCreate(ctx, threadID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Record), nil
}

func (m *Manager) getOrCreate(ctx context.Context, threadID string) (*Record, error) {
	now := m.clock.Now()
	rec, err := m.store.GetActive(ctx, threadID)
	if errors.Is(err, ErrNotFound) {
		return m.create(ctx, threadID)
	}
	if err != nil {
		return nil, fmt.Errorf("session: get active record: %w", err)
	}
	if rec.Expired(now) {
		// the key aged out without rotation; end the session and start
		// a fresh one
		uerr := m.store.UpdateStatus(ctx, rec.ID, StatusActive, StatusExpired, time.Time{})
		if uerr != nil && !errors.Is(uerr, ErrStatusConflict) {
			return nil, fmt.Errorf("session: expire stale record: %w", uerr)
		}
		return m.create(ctx, threadID)
	}
	count, err := m.store.MessageCount(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("session: read message count: %w", err)
	}
	if !m.rotationDue(rec, count, now) {
		return rec, nil
	}
	next, err := m.rotate(ctx, rec)
	if errors.Is(err, ErrLeaseHeld) || errors.Is(err, ErrRotationConflict) {
		// another rotation is in flight; the current key stays valid
		// through the transition window
		m.log.Debug().Str("thread", threadID).Msg("rotation contended, keeping current key")
		return rec, nil
	}
	if err != nil {
		return nil, err
	}
	return next, nil
}

// Rotate forces a rotation for the thread, waiting with jittered backoff
// while the lease or the store shows another rotation in flight. It creates
// the thread's first record if none exists. Cancel ctx to stop waiting.
func (m *Manager) Rotate(ctx context.Context, threadID string) (*Record, error) {
	boff := &backoff.Backoff{
		Min:    50 * time.Millisecond,
		Max:    2 * time.Second,
		Jitter: true,
	}
	for {
		rec, err := m.store.GetActive(ctx, threadID)
		if errors.Is(err, ErrNotFound) {
			return m.create(ctx, threadID)
		}
		if err != nil {
			return nil, fmt.Errorf("session: get active record: %w", err)
		}
		next, err := m.rotate(ctx, rec)
		if errors.Is(err, ErrLeaseHeld) || errors.Is(err, ErrRotationConflict) {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(boff.Duration()):
			}
			continue
		}
		return next, err
	}
}

// Current resolves the record a received message was encrypted under by its
// sender public value. Records past their expiry are lazily expired in the
// store. Unknown and expired keys both surface as ErrKeyExpired.
func (m *Manager) Current(ctx context.Context, threadID string, publicKey *[32]byte) (*Record, error) {
	rec, err := m.store.GetByPublicKey(ctx, threadID, publicKey)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrKeyExpired
	}
	if err != nil {
		return nil, fmt.Errorf("session: lookup record by public key: %w", err)
	}
	if rec.Status == StatusExpired {
		return nil, ErrKeyExpired
	}
	if rec.Expired(m.clock.Now()) {
		uerr := m.store.UpdateStatus(ctx, rec.ID, rec.Status, StatusExpired, time.Time{})
		if uerr != nil && !errors.Is(uerr, ErrStatusConflict) {
			m.log.Warn().Err(uerr).Str("thread", threadID).Msg("lazy expiry failed")
		}
		return nil, ErrKeyExpired
	}
	return rec, nil
}

// Bump increments the thread's message counter after a successful send.
func (m *Manager) Bump(ctx context.Context, threadID string) error {
	if _, err := m.store.BumpMessageCount(ctx, threadID); err != nil {
		return fmt.Errorf("session: bump message count: %w", err)
	}
	return nil
}

// Count returns the thread's message count since the last rotation.
func (m *Manager) Count(ctx context.Context, threadID string) (uint64, error) {
	count, err := m.store.MessageCount(ctx, threadID)
	if err != nil {
		return 0, fmt.Errorf("session: read message count: %w", err)
	}
	return count, nil
}

func (m *Manager) rotationDue(rec *Record, count uint64, now time.Time) bool {
	if count >= m.threshold {
		return true
	}
	return now.Sub(rec.CreatedAt) >= m.expiry-m.transition
}

func (m *Manager) newRecord(threadID, previousKeyID string) (*Record, error) {
	key, err := cipher.Curve25519Generate(m.rand)
	if err != nil {
		return nil, fmt.Errorf("session: generate key pair: %w", err)
	}
	now := m.clock.Now()
	rec := &Record{
		ID:            uuid.New().String(),
		ThreadID:      threadID,
		Status:        StatusActive,
		CreatedAt:     now,
		ExpiresAt:     now.Add(m.expiry),
		PreviousKeyID: previousKeyID,
	}
	rec.PublicKey = *key.PublicKey()
	rec.PrivateKey = *key.PrivateKey()
	return rec, nil
}

// create inserts the first record for a thread. Concurrent creators race
// through the store's single-active constraint; losers adopt the winner's
// record.
func (m *Manager) create(ctx context.Context, threadID string) (*Record, error) {
	rec, err := m.newRecord(threadID, "")
	if err != nil {
		return nil, err
	}
	if err := m.store.Insert(ctx, rec); err != nil {
		if errors.Is(err, ErrActiveExists) {
			winner, gerr := m.store.GetActive(ctx, threadID)
			if gerr != nil {
				return nil, fmt.Errorf("session: reload record after insert race: %w", gerr)
			}
			return winner, nil
		}
		return nil, fmt.Errorf("session: insert initial record: %w", err)
	}
	m.sink.Event(ctx, audit.Event{
		Kind:     audit.KindRotation,
		ThreadID: threadID,
		Status:   audit.StatusSuccess,
		Meta:     map[string]string{"keyId": rec.ID, "initial": "true"},
	})
	m.log.Info().Str("thread", threadID).Str("key", rec.ID).Msg("created initial session key")
	return rec, nil
}

// rotate performs one full rotation of cur: lease, durable double-check,
// retried store transitions, audit, release. Only an active record may
// begin rotation.
func (m *Manager) rotate(ctx context.Context, cur *Record) (*Record, error) {
	if cur.Status != StatusActive {
		return nil, ErrRotationConflict
	}
	now := m.clock.Now()
	lease, err := m.store.AcquireLease(ctx, cur.ThreadID, m.holder, now, m.leaseTTL)
	if err != nil {
		if errors.Is(err, ErrLeaseHeld) {
			return nil, err
		}
		return nil, fmt.Errorf("session: acquire rotation lease: %w", err)
	}
	defer func() {
		if rerr := m.store.ReleaseLease(ctx, lease.ThreadID, lease.Holder); rerr != nil {
			m.log.Warn().Err(rerr).Str("thread", cur.ThreadID).Msg("rotation lease release failed")
		}
	}()

	// the lease alone cannot rule out a rotation left behind by a crashed
	// instance: double-check the durable store
	rot, err := m.store.GetRotating(ctx, cur.ThreadID)
	if err == nil {
		if !rot.Expired(m.clock.Now()) {
			return nil, ErrRotationConflict
		}
		// transition window over; expire the leftover and continue
		uerr := m.store.UpdateStatus(ctx, rot.ID, StatusRotating, StatusExpired, time.Time{})
		if uerr != nil && !errors.Is(uerr, ErrStatusConflict) {
			return nil, fmt.Errorf("session: expire outgoing record: %w", uerr)
		}
	} else if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("session: check for concurrent rotation: %w", err)
	}

	// generate the successor once so retries stay idempotent
	next, err := m.newRecord(cur.ThreadID, cur.ID)
	if err != nil {
		return nil, err
	}

	boff := retry.WithMaxRetries(m.attempts-1, linearBackoff(m.backoff))
	err = retry.Do(ctx, boff, func(ctx context.Context) error {
		if err := m.rotateOnce(ctx, cur, next); err != nil {
			if errors.Is(err, ErrStoreUnavailable) {
				return retry.RetryableError(err)
			}
			return err
		}
		return nil
	})
	if errors.Is(err, ErrActiveExists) {
		// a concurrent creator won the active slot while we held the
		// lease; surface as contention, not failure
		return nil, ErrRotationConflict
	}
	if err != nil {
		m.sink.Error(ctx, "rotate", err, cur.ThreadID)
		m.sink.Event(ctx, audit.Event{
			Kind:     audit.KindRotation,
			ThreadID: cur.ThreadID,
			Status:   audit.StatusFailure,
			Meta:     map[string]string{"previousKeyId": cur.ID},
		})
		return nil, fmt.Errorf("session: rotation failed: %w", err)
	}
	m.sink.Event(ctx, audit.Event{
		Kind:     audit.KindRotation,
		ThreadID: cur.ThreadID,
		Status:   audit.StatusSuccess,
		Meta:     map[string]string{"keyId": next.ID, "previousKeyId": cur.ID},
	})
	m.log.Info().
		Str("thread", cur.ThreadID).
		Str("key", next.ID).
		Str("previous", cur.ID).
		Msg("rotated session key")
	return next, nil
}

// rotateOnce runs the store side of a rotation. Every step tolerates
// partial completion from an earlier attempt, so a retry after a transient
// failure resumes instead of conflicting with itself.
func (m *Manager) rotateOnce(ctx context.Context, cur, next *Record) error {
	// the outgoing record enters its transition window: decryptable until
	// the shortened expiry, then lazily expired
	deadline := m.clock.Now().Add(m.transition)
	err := m.store.UpdateStatus(ctx, cur.ID, StatusActive, StatusRotating, deadline)
	if err != nil && !errors.Is(err, ErrStatusConflict) {
		return err
	}
	// ErrStatusConflict here means an earlier attempt already moved it;
	// the lease guarantees the move was ours
	if err := m.store.Insert(ctx, next); err != nil {
		return err
	}
	if err := m.store.ResetMessageCount(ctx, cur.ThreadID); err != nil {
		return err
	}
	return nil
}

// linearBackoff waits base*n after the nth failed attempt.
func linearBackoff(base time.Duration) retry.Backoff {
	var attempts uint64
	return retry.BackoffFunc(func() (time.Duration, bool) {
		n := atomic.AddUint64(&attempts, 1)
		return time.Duration(n) * base, false
	})
}
