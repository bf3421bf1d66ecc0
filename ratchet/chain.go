// Copyright (c) 2026 Hush Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ratchet

import (
	"fmt"
	"time"

	"github.com/hushcomm/hush/cipher"
	"github.com/hushcomm/hush/session"
	"github.com/hushcomm/hush/util/bzero"
)

// epoch is the ratchet state derived from one session key record. The
// record's public key identifies the epoch on the wire; the private
// scalar, shared by both parties through the store, seeds the root key.
type epoch struct {
	pub       [32]byte
	createdAt time.Time
	expiresAt time.Time
	fix       []byte
	root      []byte
	chains    map[string]*chain
}

// newEpoch derives the epoch state for a session key record. fix is the
// thread's identity fix.
func newEpoch(rec *session.Record, fix []byte) (*epoch, error) {
	root, err := cipher.HKDF(rec.PrivateKey[:], fix, []byte("ROOT"), 64)
	if err != nil {
		return nil, fmt.Errorf("ratchet: derive root key: %w", err)
	}
	return &epoch{
		pub:       rec.PublicKey,
		createdAt: rec.CreatedAt,
		expiresAt: rec.ExpiresAt,
		fix:       fix,
		root:      root,
		chains:    make(map[string]*chain),
	}, nil
}

// chainFor returns the author's message chain within the epoch, seeding
// it on first use. Both parties derive the same chain for a given author.
func (ep *epoch) chainFor(author string) (*chain, error) {
	if c, ok := ep.chains[author]; ok {
		return c, nil
	}
	seed, err := cipher.HKDF(ep.root, ep.fix, append([]byte("CHAIN"), author...), 64)
	if err != nil {
		return nil, fmt.Errorf("ratchet: seed message chain: %w", err)
	}
	c := &chain{
		label: append(append([]byte("MESSAGE"), cipher.SHA512(ep.pub[:])...), ep.fix...),
		key:   seed,
	}
	ep.chains[author] = c
	return c, nil
}

// expired reports whether the epoch's key material may no longer be used
// at now.
func (ep *epoch) expired(now time.Time) bool {
	return !ep.expiresAt.After(now)
}

// wipe destroys the epoch's key material.
func (ep *epoch) wipe() {
	bzero.Bytes(ep.root)
	for _, c := range ep.chains {
		c.wipe()
	}
}

// chain is one author's symmetric message chain within an epoch. key is
// the current chain key, next the number the author's next message on the
// chain carries. prevLen carries the author's chain length from the prior
// epoch into message headers.
type chain struct {
	label   []byte
	key     []byte
	next    uint64
	prevLen uint64
}

// messageKey derives the message key for the chain's current position.
// The caller must zero the returned key after use.
func (c *chain) messageKey() []byte {
	return cipher.HMAC(c.key, c.label)[:cipher.AEADKeySize]
}

// advance moves the chain forward one message and destroys the previous
// chain key. Stepping back is impossible.
func (c *chain) advance() {
	key := cipher.HMAC(c.key, []byte("CHAIN"))
	bzero.Bytes(c.key)
	c.key = key
	c.next++
}

// clone copies the chain so derivations can run without mutating it.
func (c *chain) clone() *chain {
	key := make([]byte, len(c.key))
	copy(key, c.key)
	return &chain{label: c.label, key: key, next: c.next, prevLen: c.prevLen}
}

// wipe destroys the chain key.
func (c *chain) wipe() {
	bzero.Bytes(c.key)
}
