// Copyright (c) 2026 Hush Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package memstore implements a session key store in memory (for testing
// purposes and single-process deployments).
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/hushcomm/hush/session"
)

// MemStore implements the session.Store interface in memory. All methods
// are safe for concurrent use; the single mutex stands in for the
// transactionality a durable backend gets from its storage engine.
type MemStore struct {
	mu      sync.RWMutex
	records map[string]*session.Record // by record ID
	threads map[string][]string        // thread ID -> record IDs in insert order
	counts  map[string]uint64
	leases  map[string]*session.Lease
}

// New returns a new MemStore.
func New() *MemStore {
	return &MemStore{
		records: make(map[string]*session.Record),
		threads: make(map[string][]string),
		counts:  make(map[string]uint64),
		leases:  make(map[string]*session.Lease),
	}
}

// GetActive implemented in memory.
func (ms *MemStore) GetActive(ctx context.Context, threadID string) (*session.Record, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return ms.byStatus(threadID, session.StatusActive)
}

// GetRotating implemented in memory.
func (ms *MemStore) GetRotating(ctx context.Context, threadID string) (*session.Record, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return ms.byStatus(threadID, session.StatusRotating)
}

// GetByPublicKey implemented in memory.
func (ms *MemStore) GetByPublicKey(ctx context.Context, threadID string, publicKey *[32]byte) (*session.Record, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	for _, id := range ms.threads[threadID] {
		rec := ms.records[id]
		if rec.PublicKey == *publicKey {
			return copyRecord(rec), nil
		}
	}
	return nil, session.ErrNotFound
}

// Insert implemented in memory.
func (ms *MemStore) Insert(ctx context.Context, record *session.Record) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if record.Status == session.StatusActive {
		for _, id := range ms.threads[record.ThreadID] {
			if id != record.ID && ms.records[id].Status == session.StatusActive {
				return session.ErrActiveExists
			}
		}
	}
	if _, ok := ms.records[record.ID]; !ok {
		ms.threads[record.ThreadID] = append(ms.threads[record.ThreadID], record.ID)
	}
	ms.records[record.ID] = copyRecord(record)
	return nil
}

// UpdateStatus implemented in memory.
func (ms *MemStore) UpdateStatus(ctx context.Context, id string, from, to session.Status, expiresAt time.Time) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	rec, ok := ms.records[id]
	if !ok {
		return session.ErrNotFound
	}
	if rec.Status != from || !from.CanTransition(to) {
		return session.ErrStatusConflict
	}
	rec.Status = to
	if !expiresAt.IsZero() {
		rec.ExpiresAt = expiresAt
	}
	return nil
}

// MessageCount implemented in memory.
func (ms *MemStore) MessageCount(ctx context.Context, threadID string) (uint64, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return ms.counts[threadID], nil
}

// BumpMessageCount implemented in memory.
func (ms *MemStore) BumpMessageCount(ctx context.Context, threadID string) (uint64, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.counts[threadID]++
	return ms.counts[threadID], nil
}

// ResetMessageCount implemented in memory.
func (ms *MemStore) ResetMessageCount(ctx context.Context, threadID string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.counts[threadID] = 0
	return nil
}

// AcquireLease implemented in memory.
func (ms *MemStore) AcquireLease(ctx context.Context, threadID, holder string, now time.Time, ttl time.Duration) (*session.Lease, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if cur, ok := ms.leases[threadID]; ok {
		if cur.Holder != holder && !cur.Expired(now) {
			return nil, session.ErrLeaseHeld
		}
	}
	lease := &session.Lease{
		ThreadID:   threadID,
		Holder:     holder,
		AcquiredAt: now,
		ExpiresAt:  now.Add(ttl),
	}
	ms.leases[threadID] = lease
	cp := *lease
	return &cp, nil
}

// ReleaseLease implemented in memory.
func (ms *MemStore) ReleaseLease(ctx context.Context, threadID, holder string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if cur, ok := ms.leases[threadID]; ok && cur.Holder == holder {
		delete(ms.leases, threadID)
	}
	return nil
}

// byStatus returns the thread's record with the given status. The caller
// must hold the mutex.
func (ms *MemStore) byStatus(threadID string, status session.Status) (*session.Record, error) {
	for _, id := range ms.threads[threadID] {
		rec := ms.records[id]
		if rec.Status == status {
			return copyRecord(rec), nil
		}
	}
	return nil, session.ErrNotFound
}

func copyRecord(rec *session.Record) *session.Record {
	cp := *rec
	return &cp
}
