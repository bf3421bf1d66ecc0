// Copyright (c) 2026 Hush Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ratchet implements Hush's per-thread message ratchet on top of
// the session key records managed by the session package. Each session key
// record spans an epoch: a root key is derived from the record's private
// scalar, one symmetric chain per author is seeded from the root, and
// every message advances its author's chain by one step. Keys of skipped
// messages are cached in a bounded LRU so out-of-order delivery works,
// and each cached key decrypts exactly one message.
//
// Engine state lives in memory and is rebuilt from the session store on
// demand. Replay detection therefore spans the lifetime of one engine,
// not the lifetime of a thread.
package ratchet

import (
	"fmt"
	"io"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"github.com/hushcomm/hush/audit"
	"github.com/hushcomm/hush/cipher"
	"github.com/hushcomm/hush/def"
	"github.com/hushcomm/hush/session"
	"github.com/hushcomm/hush/util/bzero"
)

// Engine encrypts and decrypts thread messages with session keys resolved
// through a session.Manager. All ratchet state is in memory, guarded by a
// per-thread mutex; operations on different threads do not contend.
type Engine struct {
	manager    *session.Manager
	sink       audit.Sink
	log        zerolog.Logger
	clock      session.Clock
	rand       io.Reader
	signKey    *cipher.Ed25519Key
	transition time.Duration
	maxSkipped int

	mu      sync.Mutex
	threads map[string]*threadState
	closed  bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine's logger.
func WithLogger(log zerolog.Logger) Option {
	return func(e *Engine) {
		e.log = log.With().Str("component", "ratchet").Logger()
	}
}

// WithSink sets the audit sink.
func WithSink(sink audit.Sink) Option {
	return func(e *Engine) { e.sink = sink }
}

// WithClock sets the clock (for tests).
func WithClock(clock session.Clock) Option {
	return func(e *Engine) { e.clock = clock }
}

// WithRand sets the entropy source for nonce generation.
func WithRand(rand io.Reader) Option {
	return func(e *Engine) { e.rand = rand }
}

// WithSigningKey sets the Ed25519 key used to attach provenance proofs to
// outgoing envelopes.
func WithSigningKey(key *cipher.Ed25519Key) Option {
	return func(e *Engine) { e.signKey = key }
}

// WithTransition sets how long a superseded epoch stays decryptable after
// the engine observes its successor.
func WithTransition(transition time.Duration) Option {
	return func(e *Engine) { e.transition = transition }
}

// WithMaxSkipped sets the per-thread bound on cached skipped message
// keys. Values below one are ignored.
func WithMaxSkipped(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxSkipped = n
		}
	}
}

// New returns an engine resolving session keys through manager. Unset
// options fall back to the defaults in the def package.
func New(manager *session.Manager, opts ...Option) *Engine {
	e := &Engine{
		manager:    manager,
		sink:       audit.NopSink{},
		log:        zerolog.Nop(),
		clock:      session.SystemClock(),
		rand:       cipher.RandReader,
		transition: def.KeyTransitionPeriod,
		maxSkipped: def.MaxSkippedKeys,
		threads:    make(map[string]*threadState),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Close wipes all in-memory key material. The engine must not be used
// afterwards; operations return ErrClosed.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	for _, ts := range e.threads {
		ts.mu.Lock()
		ts.closed = true
		ts.wipe()
		ts.mu.Unlock()
	}
	e.threads = nil
}

// threadState is the in-memory ratchet state of a single thread. All
// fields are guarded by mu.
type threadState struct {
	mu      sync.Mutex
	id      string
	parties [2]string
	fix     []byte
	closed  bool

	current  *epoch
	previous *epoch
	skipped  *lru.Cache[skippedKey, []byte]
}

// skippedKey addresses one cached message key: the epoch public value the
// key belongs to, the chain author and the message number.
type skippedKey struct {
	pub    [32]byte
	author string
	number uint64
}

// thread returns the thread's state, creating it on first use. The party
// pair passed on first use binds the thread.
func (e *Engine) thread(threadID, local, peer string) (*threadState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrClosed
	}
	ts, ok := e.threads[threadID]
	if !ok {
		skipped, err := lru.NewWithEvict[skippedKey, []byte](e.maxSkipped,
			func(_ skippedKey, key []byte) { bzero.Bytes(key) })
		if err != nil {
			return nil, fmt.Errorf("ratchet: create skipped key cache: %w", err)
		}
		ts = &threadState{
			id:      threadID,
			parties: sortParties(local, peer),
			fix:     identityFix(local, peer),
			skipped: skipped,
		}
		e.threads[threadID] = ts
	}
	return ts, nil
}

// check guards an operation on locked thread state.
func (ts *threadState) check(local, peer string) error {
	if ts.closed {
		return ErrClosed
	}
	if ts.parties != sortParties(local, peer) {
		return ErrPartyMismatch
	}
	return nil
}

// wipe destroys all chain and cached message keys of the thread.
func (ts *threadState) wipe() {
	if ts.current != nil {
		ts.current.wipe()
		ts.current = nil
	}
	if ts.previous != nil {
		ts.previous.wipe()
		ts.previous = nil
	}
	ts.skipped.Purge()
}

// rollover makes rec's epoch the thread's current epoch. The superseded
// epoch stays decryptable until its transition deadline, epochs older
// than that are destroyed.
func (e *Engine) rollover(ts *threadState, rec *session.Record) (*epoch, error) {
	next, err := newEpoch(rec, ts.fix)
	if err != nil {
		return nil, err
	}
	prev := ts.current
	if prev != nil {
		deadline := e.clock.Now().Add(e.transition)
		if deadline.Before(prev.expiresAt) {
			prev.expiresAt = deadline
		}
	}
	if ts.previous != nil {
		ts.previous.wipe()
	}
	ts.previous = prev
	ts.current = next
	e.log.Debug().Str("thread", ts.id).Str("key", rec.ID).Msg("rolled over to new session key epoch")
	return next, nil
}

func validParties(local, peer string) error {
	if local == "" || peer == "" || local == peer {
		return ErrIdentity
	}
	return nil
}

func sortParties(a, b string) [2]string {
	if a > b {
		a, b = b, a
	}
	return [2]string{a, b}
}

// identityFix hashes the sorted party identifiers. Both parties derive
// the same value regardless of direction, fixing the role assignment for
// chain seeding.
func identityFix(a, b string) []byte {
	if a > b {
		a, b = b, a
	}
	return cipher.SHA512(append([]byte(a), b...))
}
