// Copyright (c) 2026 Hush Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package msg defines the wire envelope for encrypted Hush messages and the
// codec that seals and opens message payloads.
//
// An envelope carries the ciphertext, the ratchet header a recipient needs
// to derive the message key, and an optional proof attesting the envelope
// with the sender's long-term signature key. The thread ID, the sender
// public value, the message number, and the previous chain length are bound
// to the ciphertext as associated data, so any header tampering fails
// authentication.
package msg

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// PublicValue is a 32-byte X25519 public value that encodes to lowercase hex
// in JSON.
type PublicValue [32]byte

// MarshalText implements encoding.TextMarshaler.
func (p PublicValue) MarshalText() ([]byte, error) {
	return []byte(hex.EncodeToString(p[:])), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *PublicValue) UnmarshalText(text []byte) error {
	b, err := hex.DecodeString(string(text))
	if err != nil {
		return fmt.Errorf("msg: malformed public value: %w", err)
	}
	if len(b) != 32 {
		return fmt.Errorf("msg: public value must be 32 bytes (got %d)", len(b))
	}
	copy(p[:], b)
	return nil
}

// Bytes returns the public value for key agreement calls.
func (p *PublicValue) Bytes() *[32]byte {
	return (*[32]byte)(p)
}

// Header carries the ratchet values a recipient needs to derive the message
// key.
type Header struct {
	SenderPublicValue   PublicValue `json:"senderPublicValue"`
	MessageNumber       uint64      `json:"messageNumber"`
	PreviousChainLength uint64      `json:"previousChainLength"`
}

// Envelope is the wire form of an encrypted message. Ciphertext and Proof
// encode to standard base64 in JSON.
type Envelope struct {
	Ciphertext []byte `json:"ciphertext"`
	Header     Header `json:"header"`
	Proof      []byte `json:"proof,omitempty"`
}

// Parse decodes the JSON encoding of an envelope.
func Parse(jsn []byte) (*Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(jsn, &e); err != nil {
		return nil, fmt.Errorf("msg: %w", err)
	}
	if len(e.Ciphertext) == 0 {
		return nil, ErrInvalidEnvelope
	}
	return &e, nil
}

// Marshal encodes the envelope as JSON.
func (e *Envelope) Marshal() ([]byte, error) {
	jsn, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("msg: %w", err)
	}
	return jsn, nil
}
