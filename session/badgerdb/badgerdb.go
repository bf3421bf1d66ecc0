// Copyright (c) 2026 Hush Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package badgerdb implements a session key store on top of BadgerDB.
// Records are kept twice: under their record ID and in a per-thread index,
// written together in one transaction. Conflicting transactions are retried,
// so the single-active constraint holds under concurrent use.
package badgerdb

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/hushcomm/hush/session"
)

const (
	recordPrefix = "record/"
	threadPrefix = "thread/"
	markPrefix   = "threadmark/"
	countPrefix  = "count/"
	leasePrefix  = "lease/"
)

// Store implements the session.Store interface on a Badger database.
type Store struct {
	db   *badger.DB
	owns bool
}

// New opens the Badger database in dir and returns a store backed by it.
func New(dir string) (*Store, error) {
	options := badger.DefaultOptions(dir)
	options.Logger = nil
	db, err := badger.Open(options)
	if err != nil {
		return nil, fmt.Errorf("badgerdb: open %s: %w", dir, err)
	}
	return &Store{db: db, owns: true}, nil
}

// NewWithDB wraps an already open Badger database. Close leaves it open.
func NewWithDB(db *badger.DB) *Store {
	return &Store{db: db}
}

// Close closes the underlying database if this store opened it.
func (s *Store) Close() error {
	if !s.owns {
		return nil
	}
	return s.db.Close()
}

// GetActive implements session.Store.
func (s *Store) GetActive(ctx context.Context, threadID string) (*session.Record, error) {
	return s.byStatus(ctx, threadID, session.StatusActive)
}

// GetRotating implements session.Store.
func (s *Store) GetRotating(ctx context.Context, threadID string) (*session.Record, error) {
	return s.byStatus(ctx, threadID, session.StatusRotating)
}

// GetByPublicKey implements session.Store.
func (s *Store) GetByPublicKey(ctx context.Context, threadID string, publicKey *[32]byte) (*session.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var found *session.Record
	err := s.db.View(func(txn *badger.Txn) error {
		return s.scanThread(txn, threadID, func(rec *session.Record) bool {
			if rec.PublicKey == *publicKey {
				found = rec
				return false
			}
			return true
		})
	})
	if err != nil {
		return nil, storeErr(err)
	}
	if found == nil {
		return nil, session.ErrNotFound
	}
	return found, nil
}

// Insert implements session.Store.
func (s *Store) Insert(ctx context.Context, record *session.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.update(func(txn *badger.Txn) error {
		// read and write a per-thread marker so concurrent inserts
		// conflict even when the scan sees no records yet (badger does
		// not detect phantoms)
		mark := []byte(markPrefix + record.ThreadID)
		if _, err := txn.Get(mark); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if record.Status == session.StatusActive {
			var conflict bool
			err := s.scanThread(txn, record.ThreadID, func(rec *session.Record) bool {
				if rec.ID != record.ID && rec.Status == session.StatusActive {
					conflict = true
					return false
				}
				return true
			})
			if err != nil {
				return err
			}
			if conflict {
				return session.ErrActiveExists
			}
		}
		raw, err := json.Marshal(encodeRecord(record))
		if err != nil {
			return err
		}
		if err := txn.Set([]byte(recordPrefix+record.ID), raw); err != nil {
			return err
		}
		if err := txn.Set([]byte(threadPrefix+record.ThreadID+"/"+record.ID), []byte(record.ID)); err != nil {
			return err
		}
		return txn.Set(mark, []byte(record.ID))
	})
	return storeErr(err)
}

// UpdateStatus implements session.Store.
func (s *Store) UpdateStatus(ctx context.Context, id string, from, to session.Status, expiresAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.update(func(txn *badger.Txn) error {
		rec, err := s.getRecord(txn, id)
		if err != nil {
			return err
		}
		if rec.Status != from || !from.CanTransition(to) {
			return session.ErrStatusConflict
		}
		rec.Status = to
		if !expiresAt.IsZero() {
			rec.ExpiresAt = expiresAt
		}
		raw, err := json.Marshal(encodeRecord(rec))
		if err != nil {
			return err
		}
		return txn.Set([]byte(recordPrefix+id), raw)
	})
	return storeErr(err)
}

// MessageCount implements session.Store.
func (s *Store) MessageCount(ctx context.Context, threadID string) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var count uint64
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(countPrefix + threadID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if len(val) == 8 {
				count = binary.BigEndian.Uint64(val)
			}
			return nil
		})
	})
	if err != nil {
		return 0, storeErr(err)
	}
	return count, nil
}

// BumpMessageCount implements session.Store.
func (s *Store) BumpMessageCount(ctx context.Context, threadID string) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var count uint64
	err := s.update(func(txn *badger.Txn) error {
		count = 0
		item, err := txn.Get([]byte(countPrefix + threadID))
		if err == nil {
			verr := item.Value(func(val []byte) error {
				if len(val) == 8 {
					count = binary.BigEndian.Uint64(val)
				}
				return nil
			})
			if verr != nil {
				return verr
			}
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		count++
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, count)
		return txn.Set([]byte(countPrefix+threadID), buf)
	})
	if err != nil {
		return 0, storeErr(err)
	}
	return count, nil
}

// ResetMessageCount implements session.Store.
func (s *Store) ResetMessageCount(ctx context.Context, threadID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.update(func(txn *badger.Txn) error {
		buf := make([]byte, 8)
		return txn.Set([]byte(countPrefix+threadID), buf)
	})
	return storeErr(err)
}

// AcquireLease implements session.Store.
func (s *Store) AcquireLease(ctx context.Context, threadID, holder string, now time.Time, ttl time.Duration) (*session.Lease, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	lease := &session.Lease{
		ThreadID:   threadID,
		Holder:     holder,
		AcquiredAt: now,
		ExpiresAt:  now.Add(ttl),
	}
	err := s.update(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(leasePrefix + threadID))
		if err == nil {
			var cur session.Lease
			verr := item.Value(func(val []byte) error {
				return decodeLease(val, &cur)
			})
			if verr != nil {
				return verr
			}
			if cur.Holder != holder && !cur.Expired(now) {
				return session.ErrLeaseHeld
			}
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		raw, err := json.Marshal(encodeLease(lease))
		if err != nil {
			return err
		}
		return txn.Set([]byte(leasePrefix+threadID), raw)
	})
	if err != nil {
		return nil, storeErr(err)
	}
	return lease, nil
}

// ReleaseLease implements session.Store.
func (s *Store) ReleaseLease(ctx context.Context, threadID, holder string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.update(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(leasePrefix + threadID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		var cur session.Lease
		if verr := item.Value(func(val []byte) error { return decodeLease(val, &cur) }); verr != nil {
			return verr
		}
		if cur.Holder != holder {
			return nil
		}
		return txn.Delete([]byte(leasePrefix + threadID))
	})
	return storeErr(err)
}

// update runs fn in a read-write transaction, retrying on transaction
// conflicts.
func (s *Store) update(fn func(txn *badger.Txn) error) error {
	for {
		err := s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
}

func (s *Store) byStatus(ctx context.Context, threadID string, status session.Status) (*session.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var found *session.Record
	err := s.db.View(func(txn *badger.Txn) error {
		return s.scanThread(txn, threadID, func(rec *session.Record) bool {
			if rec.Status == status {
				found = rec
				return false
			}
			return true
		})
	})
	if err != nil {
		return nil, storeErr(err)
	}
	if found == nil {
		return nil, session.ErrNotFound
	}
	return found, nil
}

// scanThread visits every record of the thread until fn returns false.
func (s *Store) scanThread(txn *badger.Txn, threadID string, fn func(*session.Record) bool) error {
	opts := badger.DefaultIteratorOptions
	prefix := []byte(threadPrefix + threadID + "/")
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		var id string
		err := it.Item().Value(func(val []byte) error {
			id = string(val)
			return nil
		})
		if err != nil {
			return err
		}
		rec, err := s.getRecord(txn, id)
		if err != nil {
			return err
		}
		if !fn(rec) {
			return nil
		}
	}
	return nil
}

func (s *Store) getRecord(txn *badger.Txn, id string) (*session.Record, error) {
	item, err := txn.Get([]byte(recordPrefix + id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var rec *session.Record
	err = item.Value(func(val []byte) error {
		var derr error
		rec, derr = decodeRecord(val)
		return derr
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// storeErr classifies backend failures as transient for the caller while
// passing our own sentinels through untouched.
func storeErr(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, session.ErrNotFound),
		errors.Is(err, session.ErrActiveExists),
		errors.Is(err, session.ErrStatusConflict),
		errors.Is(err, session.ErrLeaseHeld),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return fmt.Errorf("%w: %v", session.ErrStoreUnavailable, err)
}

type storedRecord struct {
	ID            string `json:"id"`
	ThreadID      string `json:"threadId"`
	PublicKey     string `json:"publicKey"`
	PrivateKey    string `json:"privateKey"`
	Status        string `json:"status"`
	CreatedAt     int64  `json:"createdAt"`
	ExpiresAt     int64  `json:"expiresAt"`
	PreviousKeyID string `json:"previousKeyId,omitempty"`
}

type storedLease struct {
	ThreadID   string `json:"threadId"`
	Holder     string `json:"holder"`
	AcquiredAt int64  `json:"acquiredAt"`
	ExpiresAt  int64  `json:"expiresAt"`
}

func encodeRecord(rec *session.Record) *storedRecord {
	return &storedRecord{
		ID:            rec.ID,
		ThreadID:      rec.ThreadID,
		PublicKey:     hex.EncodeToString(rec.PublicKey[:]),
		PrivateKey:    hex.EncodeToString(rec.PrivateKey[:]),
		Status:        string(rec.Status),
		CreatedAt:     rec.CreatedAt.UnixNano(),
		ExpiresAt:     rec.ExpiresAt.UnixNano(),
		PreviousKeyID: rec.PreviousKeyID,
	}
}

func decodeRecord(raw []byte) (*session.Record, error) {
	var sr storedRecord
	if err := json.Unmarshal(raw, &sr); err != nil {
		return nil, err
	}
	rec := &session.Record{
		ID:            sr.ID,
		ThreadID:      sr.ThreadID,
		Status:        session.Status(sr.Status),
		CreatedAt:     time.Unix(0, sr.CreatedAt).UTC(),
		ExpiresAt:     time.Unix(0, sr.ExpiresAt).UTC(),
		PreviousKeyID: sr.PreviousKeyID,
	}
	pub, err := hex.DecodeString(sr.PublicKey)
	if err != nil || len(pub) != 32 {
		return nil, fmt.Errorf("badgerdb: malformed public key for record %s", sr.ID)
	}
	priv, err := hex.DecodeString(sr.PrivateKey)
	if err != nil || len(priv) != 32 {
		return nil, fmt.Errorf("badgerdb: malformed private key for record %s", sr.ID)
	}
	copy(rec.PublicKey[:], pub)
	copy(rec.PrivateKey[:], priv)
	return rec, nil
}

func encodeLease(lease *session.Lease) *storedLease {
	return &storedLease{
		ThreadID:   lease.ThreadID,
		Holder:     lease.Holder,
		AcquiredAt: lease.AcquiredAt.UnixNano(),
		ExpiresAt:  lease.ExpiresAt.UnixNano(),
	}
}

func decodeLease(raw []byte, lease *session.Lease) error {
	var sl storedLease
	if err := json.Unmarshal(raw, &sl); err != nil {
		return err
	}
	lease.ThreadID = sl.ThreadID
	lease.Holder = sl.Holder
	lease.AcquiredAt = time.Unix(0, sl.AcquiredAt).UTC()
	lease.ExpiresAt = time.Unix(0, sl.ExpiresAt).UTC()
	return nil
}
