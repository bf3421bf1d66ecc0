// Copyright (c) 2026 Hush Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package keydb

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/hushcomm/hush/session"
)

// GetActive implements session.Store.
func (db *Store) GetActive(ctx context.Context, threadID string) (*session.Record, error) {
	return db.byStatus(ctx, threadID, session.StatusActive)
}

// GetRotating implements session.Store.
func (db *Store) GetRotating(ctx context.Context, threadID string) (*session.Record, error) {
	return db.byStatus(ctx, threadID, session.StatusRotating)
}

// GetByPublicKey implements session.Store.
func (db *Store) GetByPublicKey(ctx context.Context, threadID string, publicKey *[32]byte) (*session.Record, error) {
	row := db.getByPubKeyQuery.QueryRowContext(ctx, threadID, hex.EncodeToString(publicKey[:]))
	rec, err := scanRecord(row)
	switch {
	case err == sql.ErrNoRows:
		return nil, session.ErrNotFound
	case err != nil:
		return nil, storeErr(err)
	default:
		return rec, nil
	}
}

// Insert implements session.Store.
func (db *Store) Insert(ctx context.Context, record *session.Record) error {
	tx, err := db.encDB.BeginTx(ctx, nil)
	if err != nil {
		return storeErr(err)
	}
	defer tx.Rollback()
	if record.Status == session.StatusActive {
		var n int64
		err := tx.StmtContext(ctx, db.countActiveQuery).
			QueryRowContext(ctx, record.ThreadID, string(session.StatusActive), record.ID).
			Scan(&n)
		if err != nil {
			return storeErr(err)
		}
		if n > 0 {
			return session.ErrActiveExists
		}
	}
	_, err = tx.StmtContext(ctx, db.insertRecordQuery).ExecContext(ctx,
		record.ID,
		record.ThreadID,
		hex.EncodeToString(record.PublicKey[:]),
		hex.EncodeToString(record.PrivateKey[:]),
		string(record.Status),
		record.CreatedAt.UnixNano(),
		record.ExpiresAt.UnixNano(),
		record.PreviousKeyID,
	)
	if err != nil {
		return storeErr(err)
	}
	return storeErr(tx.Commit())
}

// UpdateStatus implements session.Store.
func (db *Store) UpdateStatus(ctx context.Context, id string, from, to session.Status, expiresAt time.Time) error {
	if !from.CanTransition(to) {
		return session.ErrStatusConflict
	}
	var res sql.Result
	var err error
	if expiresAt.IsZero() {
		res, err = db.casStatusQuery.ExecContext(ctx, string(to), id, string(from))
	} else {
		res, err = db.casStatusUntilQuery.ExecContext(ctx, string(to), expiresAt.UnixNano(), id, string(from))
	}
	if err != nil {
		return storeErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeErr(err)
	}
	if n == 0 {
		row := db.getRecordQuery.QueryRowContext(ctx, id)
		if _, err := scanRecord(row); err == sql.ErrNoRows {
			return session.ErrNotFound
		} else if err != nil {
			return storeErr(err)
		}
		return session.ErrStatusConflict
	}
	return nil
}

// MessageCount implements session.Store.
func (db *Store) MessageCount(ctx context.Context, threadID string) (uint64, error) {
	var count uint64
	err := db.getCountQuery.QueryRowContext(ctx, threadID).Scan(&count)
	switch {
	case err == sql.ErrNoRows:
		return 0, nil
	case err != nil:
		return 0, storeErr(err)
	default:
		return count, nil
	}
}

// BumpMessageCount implements session.Store.
func (db *Store) BumpMessageCount(ctx context.Context, threadID string) (uint64, error) {
	tx, err := db.encDB.BeginTx(ctx, nil)
	if err != nil {
		return 0, storeErr(err)
	}
	defer tx.Rollback()
	var count uint64
	err = tx.StmtContext(ctx, db.getCountQuery).QueryRowContext(ctx, threadID).Scan(&count)
	if err != nil && err != sql.ErrNoRows {
		return 0, storeErr(err)
	}
	count++
	_, err = tx.StmtContext(ctx, db.setCountQuery).ExecContext(ctx, threadID, count)
	if err != nil {
		return 0, storeErr(err)
	}
	if err := tx.Commit(); err != nil {
		return 0, storeErr(err)
	}
	return count, nil
}

// ResetMessageCount implements session.Store.
func (db *Store) ResetMessageCount(ctx context.Context, threadID string) error {
	_, err := db.setCountQuery.ExecContext(ctx, threadID, 0)
	return storeErr(err)
}

// AcquireLease implements session.Store.
func (db *Store) AcquireLease(ctx context.Context, threadID, holder string, now time.Time, ttl time.Duration) (*session.Lease, error) {
	tx, err := db.encDB.BeginTx(ctx, nil)
	if err != nil {
		return nil, storeErr(err)
	}
	defer tx.Rollback()
	var (
		curHolder  string
		acquiredAt int64
		expiresAt  int64
	)
	err = tx.StmtContext(ctx, db.getLeaseQuery).QueryRowContext(ctx, threadID).
		Scan(&curHolder, &acquiredAt, &expiresAt)
	if err != nil && err != sql.ErrNoRows {
		return nil, storeErr(err)
	}
	if err == nil {
		cur := session.Lease{
			ThreadID:   threadID,
			Holder:     curHolder,
			AcquiredAt: time.Unix(0, acquiredAt).UTC(),
			ExpiresAt:  time.Unix(0, expiresAt).UTC(),
		}
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
	_, err = tx.StmtContext(ctx, db.setLeaseQuery).ExecContext(ctx,
		threadID, holder, lease.AcquiredAt.UnixNano(), lease.ExpiresAt.UnixNano())
	if err != nil {
		return nil, storeErr(err)
	}
	if err := tx.Commit(); err != nil {
		return nil, storeErr(err)
	}
	return lease, nil
}

// ReleaseLease implements session.Store.
func (db *Store) ReleaseLease(ctx context.Context, threadID, holder string) error {
	_, err := db.delLeaseQuery.ExecContext(ctx, threadID, holder)
	return storeErr(err)
}

func (db *Store) byStatus(ctx context.Context, threadID string, status session.Status) (*session.Record, error) {
	row := db.getByStatusQuery.QueryRowContext(ctx, threadID, string(status))
	rec, err := scanRecord(row)
	switch {
	case err == sql.ErrNoRows:
		return nil, session.ErrNotFound
	case err != nil:
		return nil, storeErr(err)
	default:
		return rec, nil
	}
}

func scanRecord(row *sql.Row) (*session.Record, error) {
	var (
		rec       session.Record
		pubKey    string
		privKey   string
		status    string
		createdAt int64
		expiresAt int64
	)
	err := row.Scan(&rec.ID, &rec.ThreadID, &pubKey, &privKey, &status,
		&createdAt, &expiresAt, &rec.PreviousKeyID)
	if err != nil {
		return nil, err
	}
	rec.Status = session.Status(status)
	rec.CreatedAt = time.Unix(0, createdAt).UTC()
	rec.ExpiresAt = time.Unix(0, expiresAt).UTC()
	pub, err := hex.DecodeString(pubKey)
	if err != nil || len(pub) != 32 {
		return nil, fmt.Errorf("keydb: malformed public key for record %s", rec.ID)
	}
	priv, err := hex.DecodeString(privKey)
	if err != nil || len(priv) != 32 {
		return nil, fmt.Errorf("keydb: malformed private key for record %s", rec.ID)
	}
	copy(rec.PublicKey[:], pub)
	copy(rec.PrivateKey[:], priv)
	return &rec, nil
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
