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

// EncryptArgs are the arguments of Engine.Encrypt.
type EncryptArgs struct {
	// ThreadID is the conversation the message belongs to.
	ThreadID string
	// LocalID is the sending party, PeerID the receiving party.
	LocalID string
	PeerID  string
	// Plaintext is the message content.
	Plaintext []byte
}

// Encrypt encrypts a message for the thread and returns its envelope.
// Session key resolution may trigger a key rotation; the message is
// sealed under the epoch that is active afterwards. The local author's
// sending chain advances by one, so every envelope carries a fresh
// message key and a unique message number within its epoch.
func (e *Engine) Encrypt(ctx context.Context, args EncryptArgs) (*msg.Envelope, error) {
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
	env, err := e.encrypt(ctx, ts, args)
	if err != nil {
		e.sink.Error(ctx, "encrypt", err, args.ThreadID)
		e.sink.Event(ctx, audit.Event{
			Kind:     audit.KindEncrypt,
			ThreadID: args.ThreadID,
			Status:   audit.StatusFailure,
		})
		return nil, err
	}
	e.sink.Event(ctx, audit.Event{
		Kind:     audit.KindEncrypt,
		ThreadID: args.ThreadID,
		Status:   audit.StatusSuccess,
		Meta:     map[string]string{"number": strconv.FormatUint(env.Header.MessageNumber, 10)},
	})
	return env, nil
}

func (e *Engine) encrypt(ctx context.Context, ts *threadState, args EncryptArgs) (*msg.Envelope, error) {
	cur, err := e.sendEpoch(ctx, ts, args.ThreadID, args.LocalID)
	if err != nil {
		return nil, err
	}
	c, err := cur.chainFor(args.LocalID)
	if err != nil {
		return nil, err
	}
	h := &msg.Header{
		SenderPublicValue:   msg.PublicValue(cur.pub),
		MessageNumber:       c.next,
		PreviousChainLength: c.prevLen,
	}
	key := c.messageKey()
	ciphertext, err := msg.Seal(key, args.ThreadID, h, args.Plaintext, e.rand)
	bzero.Bytes(key)
	if err != nil {
		return nil, err
	}
	// the number is on the wire now, consume it
	c.advance()
	env := &msg.Envelope{Ciphertext: ciphertext, Header: *h}
	if e.signKey != nil {
		env.SignProof(args.ThreadID, e.signKey)
	}
	// the envelope already exists; a failed counter update must not void it
	if err := e.manager.Bump(ctx, args.ThreadID); err != nil {
		e.log.Warn().Err(err).Str("thread", args.ThreadID).Msg("message count update failed")
	}
	return env, nil
}

// sendEpoch resolves the epoch new messages are sealed under, rolling the
// thread's in-memory state over when the active record changed. A thread
// whose counter shows sends from an earlier engine lifetime is rotated
// first: the chain position under the old record is lost, and reusing the
// record would reuse message numbers.
func (e *Engine) sendEpoch(ctx context.Context, ts *threadState, threadID, local string) (*epoch, error) {
	if ts.current == nil {
		count, err := e.manager.Count(ctx, threadID)
		if err != nil {
			return nil, err
		}
		if count > 0 {
			e.log.Debug().Str("thread", threadID).Uint64("count", count).
				Msg("unknown chain position, forcing key rotation")
			rec, err := e.manager.Rotate(ctx, threadID)
			if err != nil {
				return nil, err
			}
			return e.rollover(ts, rec)
		}
	}
	rec, err := e.manager.GetOrCreate(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if ts.current != nil && ts.current.pub == rec.PublicKey {
		return ts.current, nil
	}
	prev := ts.current
	next, err := e.rollover(ts, rec)
	if err != nil {
		return nil, err
	}
	// carry the sending chain length into headers of the new epoch so the
	// receiver can cache the superseded chain's undelivered tail
	if prev != nil {
		if old, ok := prev.chains[local]; ok {
			c, err := next.chainFor(local)
			if err != nil {
				return nil, err
			}
			c.prevLen = old.next
		}
	}
	return next, nil
}
