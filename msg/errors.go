// Copyright (c) 2026 Hush Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package msg

import (
	"errors"
)

// ErrAuthentication is raised when a ciphertext fails authentication on open.
var ErrAuthentication = errors.New("msg: message authentication failed")

// ErrMaxContentLength is raised when a plaintext exceeds the maximum content
// length.
var ErrMaxContentLength = errors.New("msg: maximum content length exceeded")

// ErrThreadIDLength is raised when a thread ID exceeds the maximum length
// that can be bound as associated data.
var ErrThreadIDLength = errors.New("msg: thread ID exceeds maximum length")

// ErrInvalidEnvelope is raised when an envelope misses required fields.
var ErrInvalidEnvelope = errors.New("msg: invalid envelope")
