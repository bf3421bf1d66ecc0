// Copyright (c) 2026 Hush Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package def defines all default values used in Hush.
package def

import (
	"time"
)

// MessageCountThreshold is the number of messages after which a thread's
// session key must be rotated.
const MessageCountThreshold = 100

// SessionKeyExpiry is the maximum lifetime of a session key record.
const SessionKeyExpiry = 24 * time.Hour

// KeyTransitionPeriod is how long an outgoing session key remains usable
// for decryption after its successor became active. Rotation is triggered
// this long before SessionKeyExpiry so readers never observe an expired
// active key.
const KeyTransitionPeriod = 5 * time.Minute

// LeaseTTL is the maximum time a single rotation may hold a thread's
// rotation lease. An expired lease can be taken over.
const LeaseTTL = 30 * time.Second

// RotationAttempts is the number of times the store side of a rotation is
// tried before the rotation fails for the calling operation.
const RotationAttempts = 3

// RotationBackoff is the base of the linear backoff between rotation
// attempts (1*RotationBackoff after the first failure, 2*RotationBackoff
// after the second, and so on).
const RotationBackoff = time.Second

// MaxSkippedKeys is the hard upper bound on cached skipped message keys per
// thread. Gaps larger than this abort decryption instead of growing memory.
const MaxSkippedKeys = 1000

// MaxContentLength is the maximum length of a message plaintext.
const MaxContentLength = 64 * 1024

// MaxQueuedEnvelopes is the per-thread capacity of a relay queue. Delivery
// to a full queue is refused.
const MaxQueuedEnvelopes = 1024

// MaxFetchCount is the maximum number of envelopes returned by a single
// relay fetch.
const MaxFetchCount = 100

// KDFIterations is the PBKDF2 iteration count used to protect database
// keyfiles.
const KDFIterations = 64000
