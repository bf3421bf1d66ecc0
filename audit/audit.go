// Copyright (c) 2026 Hush Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package audit defines the sink for structured audit events emitted by the
// session key and ratchet core.
package audit

import (
	"context"
)

// Kind identifies the class of an audited operation.
type Kind string

// The audited operation classes.
const (
	KindRotation Kind = "rotation"
	KindEncrypt  Kind = "encrypt"
	KindDecrypt  Kind = "decrypt"
)

// Event status values.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Event is a single structured audit record.
type Event struct {
	Kind     Kind
	ThreadID string
	Status   string
	Meta     map[string]string
}

// Sink receives audit events from the crypto core. Implementations must be
// safe for concurrent use and must not block callers on slow consumers.
type Sink interface {
	// Event records a structured event for an operation.
	Event(ctx context.Context, event Event)
	// Error records a failed operation.
	Error(ctx context.Context, op string, err error, threadID string)
}

// NopSink discards all events.
type NopSink struct{}

// Event implements Sink.
func (NopSink) Event(ctx context.Context, event Event) {}

// Error implements Sink.
func (NopSink) Error(ctx context.Context, op string, err error, threadID string) {}

// MultiSink fans every event out to all wrapped sinks in order.
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink returns a sink which forwards to all given sinks.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

// Event implements Sink.
func (m *MultiSink) Event(ctx context.Context, event Event) {
	for _, s := range m.sinks {
		s.Event(ctx, event)
	}
}

// Error implements Sink.
func (m *MultiSink) Error(ctx context.Context, op string, err error, threadID string) {
	for _, s := range m.sinks {
		s.Error(ctx, op, err, threadID)
	}
}
