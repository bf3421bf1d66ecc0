// Copyright (c) 2026 Hush Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package relay

import (
	"net/http"

	"github.com/gorilla/rpc/v2/json2"
	"github.com/rs/zerolog"

	"github.com/hushcomm/hush/def"
)

// Service answers the relay RPC methods over a shared queue set. It is
// registered under ServiceName, so the wire methods are Relay.Deliver and
// Relay.Fetch.
type Service struct {
	queue    *Queue
	maxFetch int
	log      zerolog.Logger
}

// NewService creates a relay service over the given queue set.
func NewService(queue *Queue, log zerolog.Logger) *Service {
	return &Service{
		queue:    queue,
		maxFetch: def.MaxFetchCount,
		log:      log.With().Str("component", "relay").Logger(),
	}
}

// Deliver queues an envelope for its thread.
func (s *Service) Deliver(r *http.Request, args *DeliverArgs, reply *DeliverReply) error {
	if args.ThreadID == "" {
		return &json2.Error{Code: json2.E_BAD_PARAMS, Message: "relay: missing thread ID"}
	}
	if args.Envelope == nil || len(args.Envelope.Ciphertext) == 0 {
		return &json2.Error{Code: json2.E_BAD_PARAMS, Message: "relay: missing envelope"}
	}
	depth, err := s.queue.Enqueue(args.ThreadID, args.Envelope)
	if err != nil {
		s.log.Warn().Str("thread", args.ThreadID).Int("depth", depth).
			Msg("delivery refused, queue full")
		return &json2.Error{Code: CodeQueueFull, Message: ErrQueueFull.Error()}
	}
	s.log.Debug().Str("thread", args.ThreadID).
		Uint64("number", args.Envelope.Header.MessageNumber).Int("depth", depth).
		Msg("envelope queued")
	reply.Queued = depth
	return nil
}

// Fetch removes and returns queued envelopes for a thread, oldest first.
func (s *Service) Fetch(r *http.Request, args *FetchArgs, reply *FetchReply) error {
	if args.ThreadID == "" {
		return &json2.Error{Code: json2.E_BAD_PARAMS, Message: "relay: missing thread ID"}
	}
	max := args.Max
	if max <= 0 || max > s.maxFetch {
		max = s.maxFetch
	}
	reply.Envelopes = s.queue.Dequeue(args.ThreadID, max)
	s.log.Debug().Str("thread", args.ThreadID).Int("n", len(reply.Envelopes)).
		Msg("envelopes fetched")
	return nil
}
