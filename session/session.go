// Copyright (c) 2026 Hush Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package session manages the lifecycle of per-thread session key records in
// Hush. A thread has at most one active record at any time; rotation marks
// the outgoing record rotating for a transition window before it expires, so
// in-flight messages stay decryptable.
package session

import (
	"time"
)

// Status describes the lifecycle state of a session key record.
type Status string

// The session key record states. A record moves active -> rotating ->
// expired and never backwards. An active record without a successor may
// expire directly.
const (
	StatusActive   Status = "active"
	StatusRotating Status = "rotating"
	StatusExpired  Status = "expired"
)

// CanTransition reports whether a status change from s to next is allowed.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusActive:
		return next == StatusRotating || next == StatusExpired
	case StatusRotating:
		return next == StatusExpired
	}
	return false
}

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusRotating, StatusExpired:
		return true
	}
	return false
}

// Record is a single session key record for a thread. PublicKey is the
// Curve25519 public key of the pair, PrivateKey the corresponding scalar.
type Record struct {
	ID            string
	ThreadID      string
	PublicKey     [32]byte
	PrivateKey    [32]byte
	Status        Status
	CreatedAt     time.Time
	ExpiresAt     time.Time
	PreviousKeyID string
}

// Expired reports whether the record's expiry has passed at now.
func (r *Record) Expired(now time.Time) bool {
	return !r.ExpiresAt.After(now)
}

// Lease is a time-bounded exclusive claim on a thread's key rotation. It is
// held by at most one manager instance at a time and reclaimed after expiry,
// bounding the stall caused by a crashed rotator.
type Lease struct {
	ThreadID   string
	Holder     string
	AcquiredAt time.Time
	ExpiresAt  time.Time
}

// Expired reports whether the lease has lapsed at now.
func (l *Lease) Expired(now time.Time) bool {
	return now.After(l.ExpiresAt)
}
