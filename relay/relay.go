// Copyright (c) 2026 Hush Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package relay implements the Hush message relay: a JSON-RPC 2.0 service
// that queues encrypted envelopes per thread until the recipient fetches
// them. The relay handles opaque envelopes only, it never holds keys and
// never sees plaintext.
package relay

import (
	"errors"

	"github.com/gorilla/rpc/v2/json2"

	"github.com/hushcomm/hush/msg"
)

// ServiceName is the JSON-RPC service prefix of the relay methods.
const ServiceName = "Relay"

// JSON-RPC error codes returned by the relay, from the server-defined
// range of the JSON-RPC 2.0 spec.
const (
	// CodeQueueFull signals that the thread's queue is at capacity.
	CodeQueueFull json2.ErrorCode = -32001
)

// ErrQueueFull is raised when delivering to a thread whose queue is at
// capacity. The sender retries later.
var ErrQueueFull = errors.New("relay: thread queue is full")

// DeliverArgs are the arguments of Relay.Deliver.
type DeliverArgs struct {
	ThreadID string        `json:"threadId"`
	Envelope *msg.Envelope `json:"envelope"`
}

// DeliverReply is the result of Relay.Deliver.
type DeliverReply struct {
	// Queued is the queue depth of the thread after delivery.
	Queued int `json:"queued"`
}

// FetchArgs are the arguments of Relay.Fetch.
type FetchArgs struct {
	ThreadID string `json:"threadId"`
	// Max bounds the number of envelopes returned. Zero or negative
	// values request the server maximum.
	Max int `json:"max"`
}

// FetchReply is the result of Relay.Fetch. Fetched envelopes are removed
// from the queue, in delivery order.
type FetchReply struct {
	Envelopes []*msg.Envelope `json:"envelopes"`
}
