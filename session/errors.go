// Copyright (c) 2026 Hush Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package session

import (
	"errors"
)

// ErrNotFound is raised when no matching session key record exists.
var ErrNotFound = errors.New("session: record not found")

// ErrLeaseHeld is raised when another rotation holds an unexpired lease for
// the thread.
var ErrLeaseHeld = errors.New("session: rotation lease held")

// ErrRotationConflict is raised when the store shows a concurrent rotation
// for the thread.
var ErrRotationConflict = errors.New("session: concurrent rotation in progress")

// ErrStoreUnavailable is raised on transient store failures. Rotation
// retries these before surfacing them.
var ErrStoreUnavailable = errors.New("session: store unavailable")

// ErrKeyExpired is raised when no valid session key exists for the request.
var ErrKeyExpired = errors.New("session: key expired")

// ErrStatusConflict is raised when a status update does not match the
// record's current status or the transition is not allowed.
var ErrStatusConflict = errors.New("session: status conflict")

// ErrActiveExists is raised when inserting an active record while the
// thread already has a different active record.
var ErrActiveExists = errors.New("session: thread already has an active record")
