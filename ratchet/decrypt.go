// Copyright (c) 2026 Hush Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ratchet

import (
	"context"
	"strconv"

	"github.com/hushcomm/hush/audit"
	"github.com/hushcomm/hush/msg"
	"github.com/hushcomm/hush/util/bzero"
)

// DecryptArgs are the arguments of Engine.Decrypt.
type DecryptArgs struct {
	// ThreadID is the conversation the message belongs to.
	ThreadID string
	// LocalID is the receiving party, PeerID the sending party.
	LocalID string
	PeerID  string
	// Envelope is the received message.
	Envelope *msg.Envelope
}

// Decrypt authenticates and decrypts a received envelope and returns the
// plaintext. Messages arriving out of order are served by caching the
// skipped message keys, each of which decrypts exactly one message.
// Replayed message numbers fail with ErrReplay, messages under expired
// session keys with session.ErrKeyExpired, gaps beyond the skipped key
// bound with ErrRatchetOverflow and tampered envelopes with
// msg.ErrAuthentication. Chain state moves forward only when a message
// authenticates.
func (e *Engine) Decrypt(ctx context.Context, args DecryptArgs) ([]byte, error) {
	if args.Envelope == nil {
		return nil, msg.ErrInvalidEnvelope
	}
	if err := validParties(args.LocalID, args.PeerID); err != nil {
		return nil, err
	}
	ts, err := e.thread(args.ThreadID, args.LocalID, args.PeerID)
	if err != nil {
		return nil, err
	}
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if err := ts.check(args.LocalID, args.PeerID); err != nil {
		return nil, err
	}
	plaintext, err := e.decrypt(ctx, ts, args)
	if err != nil {
		e.sink.Error(ctx, "decrypt", err, args.ThreadID)
		e.sink.Event(ctx, audit.Event{
			Kind:     audit.KindDecrypt,
			ThreadID: args.ThreadID,
			Status:   audit.StatusFailure,
		})
		return nil, err
	}
	e.sink.Event(ctx, audit.Event{
		Kind:     audit.KindDecrypt,
		ThreadID: args.ThreadID,
		Status:   audit.StatusSuccess,
		Meta:     map[string]string{"number": strconv.FormatUint(args.Envelope.Header.MessageNumber, 10)},
	})
	return plaintext, nil
}

func (e *Engine) decrypt(ctx context.Context, ts *threadState, args DecryptArgs) ([]byte, error) {
	env := args.Envelope
	pub := [32]byte(env.Header.SenderPublicValue)
	n := env.Header.MessageNumber

	// cached skipped keys first: they serve late messages even after the
	// epoch state they came from is gone
	ck := skippedKey{pub: pub, author: args.PeerID, number: n}
	if cached, ok := ts.skipped.Get(ck); ok {
		key := make([]byte, len(cached))
		copy(key, cached)
		plaintext, err := msg.Open(key, args.ThreadID, &env.Header, env.Ciphertext)
		bzero.Bytes(key)
		if err != nil {
			// a failed attempt must not consume the cached key
			return nil, err
		}
		ts.skipped.Remove(ck)
		return plaintext, nil
	}

	ep, err := e.receiveEpoch(ctx, ts, args, &pub)
	if err != nil {
		return nil, err
	}
	c, err := ep.chainFor(args.PeerID)
	if err != nil {
		return nil, err
	}
	if n < c.next {
		// consumed and no longer cached
		return nil, ErrReplay
	}
	if n-c.next > uint64(e.maxSkipped) {
		return nil, ErrRatchetOverflow
	}

	// derive on a copy; the chain only moves once the message
	// authenticates
	work := c.clone()
	type derived struct {
		number uint64
		key    []byte
	}
	var skipped []derived
	for work.next < n {
		skipped = append(skipped, derived{number: work.next, key: work.messageKey()})
		work.advance()
	}
	key := work.messageKey()
	plaintext, err := msg.Open(key, args.ThreadID, &env.Header, env.Ciphertext)
	bzero.Bytes(key)
	if err != nil {
		for _, d := range skipped {
			bzero.Bytes(d.key)
		}
		work.wipe()
		return nil, err
	}
	work.advance()
	for _, d := range skipped {
		ts.skipped.Add(skippedKey{pub: pub, author: args.PeerID, number: d.number}, d.key)
	}
	c.wipe()
	ep.chains[args.PeerID] = work
	return plaintext, nil
}

// receiveEpoch resolves the epoch an envelope's sender public value
// refers to: the thread's current epoch, its superseded epoch within the
// transition window, or a record looked up in the store. A public value
// matching a newer store record rolls the thread over; an older record
// resolves to a rebuilt superseded epoch.
func (e *Engine) receiveEpoch(ctx context.Context, ts *threadState, args DecryptArgs, pub *[32]byte) (*epoch, error) {
	now := e.clock.Now()
	if ts.current != nil && ts.current.expired(now) {
		ts.current.wipe()
		ts.current = nil
	}
	if ts.previous != nil && ts.previous.expired(now) {
		ts.previous.wipe()
		ts.previous = nil
	}
	if ts.current != nil && ts.current.pub == *pub {
		return ts.current, nil
	}
	if ts.previous != nil && ts.previous.pub == *pub {
		return ts.previous, nil
	}
	rec, err := e.manager.Current(ctx, args.ThreadID, pub)
	if err != nil {
		return nil, err
	}
	if ts.current == nil || rec.CreatedAt.After(ts.current.createdAt) {
		// the sender moved to a newer session key; adopt it and keep the
		// superseded epoch decryptable through the transition window
		prev := ts.current
		next, err := e.rollover(ts, rec)
		if err != nil {
			return nil, err
		}
		if prev != nil {
			err := e.cacheRemainder(ts, prev, args.PeerID, args.Envelope.Header.PreviousChainLength)
			if err != nil {
				return nil, err
			}
		}
		return next, nil
	}
	// an older record no longer in memory: the engine restarted during
	// the transition window
	prev, err := newEpoch(rec, ts.fix)
	if err != nil {
		return nil, err
	}
	if ts.previous != nil {
		ts.previous.wipe()
	}
	ts.previous = prev
	return prev, nil
}

// cacheRemainder derives and caches the undelivered tail of the author's
// chain in the superseded epoch, up to the chain length the author
// declared for it. The length comes from an unauthenticated header; the
// skipped key bound caps what a forged value can derive.
func (e *Engine) cacheRemainder(ts *threadState, prev *epoch, author string, length uint64) error {
	c, err := prev.chainFor(author)
	if err != nil {
		return err
	}
	if length <= c.next {
		return nil
	}
	if length-c.next > uint64(e.maxSkipped) {
		return ErrRatchetOverflow
	}
	for c.next < length {
		ts.skipped.Add(skippedKey{pub: prev.pub, author: author, number: c.next}, c.messageKey())
		c.advance()
	}
	return nil
}
