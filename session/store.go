// Copyright (c) 2026 Hush Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package session

import (
	"context"
	"time"
)

// The Store interface defines all methods for persisting session key
// records, per-thread message counters, and rotation leases. Implementations
// must make Insert and UpdateStatus transactional enough that two records
// can never be active for the same thread at once, and must wrap transient
// I/O failures in ErrStoreUnavailable.
type Store interface {
	// GetActive returns the thread's record in active status, or
	// ErrNotFound.
	GetActive(ctx context.Context, threadID string) (*Record, error)
	// GetRotating returns the thread's record in rotating status, or
	// ErrNotFound.
	GetRotating(ctx context.Context, threadID string) (*Record, error)
	// GetByPublicKey returns the thread's record with the given public key,
	// regardless of status, or ErrNotFound.
	GetByPublicKey(ctx context.Context, threadID string, publicKey *[32]byte) (*Record, error)
	// Insert stores a record. Inserting a record whose ID already exists
	// overwrites it. Inserting an active record while the thread has a
	// different active record fails with ErrActiveExists.
	Insert(ctx context.Context, record *Record) error
	// UpdateStatus moves the record from status from to status to as a
	// compare-and-swap. It fails with ErrStatusConflict if the record's
	// current status differs from from or the transition is not allowed.
	// If expiresAt is non-zero the record's expiry is moved to expiresAt in
	// the same update.
	UpdateStatus(ctx context.Context, id string, from, to Status, expiresAt time.Time) error

	// MessageCount returns the thread's message counter.
	MessageCount(ctx context.Context, threadID string) (uint64, error)
	// BumpMessageCount increments the thread's message counter and returns
	// the new value.
	BumpMessageCount(ctx context.Context, threadID string) (uint64, error)
	// ResetMessageCount sets the thread's message counter to zero.
	ResetMessageCount(ctx context.Context, threadID string) error

	// AcquireLease claims the thread's rotation lease for holder until
	// now+ttl. It fails with ErrLeaseHeld if another holder has an
	// unexpired lease; an expired lease is taken over.
	AcquireLease(ctx context.Context, threadID, holder string, now time.Time, ttl time.Duration) (*Lease, error)
	// ReleaseLease releases the thread's lease if holder still owns it.
	// Releasing a lease owned by someone else or no lease at all is a
	// no-op.
	ReleaseLease(ctx context.Context, threadID, holder string) error
}
