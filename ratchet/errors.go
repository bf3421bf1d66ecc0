// Copyright (c) 2026 Hush Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ratchet

import (
	"errors"
)

// ErrReplay is raised when a message number has already been consumed and
// its key is no longer cached.
var ErrReplay = errors.New("ratchet: message replay detected")

// ErrRatchetOverflow is raised when decrypting a message would require
// caching more skipped message keys than the hard bound allows.
var ErrRatchetOverflow = errors.New("ratchet: skipped message bound exceeded")

// ErrClosed is raised when operating on a closed engine.
var ErrClosed = errors.New("ratchet: engine is closed")

// ErrIdentity is raised when the party identifiers are empty or identical.
var ErrIdentity = errors.New("ratchet: invalid party identifiers")

// ErrPartyMismatch is raised when a thread is used with different parties
// than it was first used with.
var ErrPartyMismatch = errors.New("ratchet: thread bound to different parties")
