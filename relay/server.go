// Copyright (c) 2026 Hush Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package relay

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/rpc/v2"
	"github.com/gorilla/rpc/v2/json2"
	"github.com/rs/zerolog"
)

// Server serves the relay RPC endpoint over HTTP.
type Server struct {
	queue *Queue
	rpc   *rpc.Server
	http  *http.Server
	log   zerolog.Logger
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithServerLogger sets the server's logger.
func WithServerLogger(log zerolog.Logger) ServerOption {
	return func(s *Server) {
		s.log = log.With().Str("component", "relay").Logger()
	}
}

// WithQueueCapacity sets the per-thread queue capacity.
func WithQueueCapacity(capacity int) ServerOption {
	return func(s *Server) { s.queue = NewQueue(capacity) }
}

// NewServer creates a relay server listening on addr.
func NewServer(addr string, opts ...ServerOption) *Server {
	s := &Server{
		queue: NewQueue(0),
		log:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.rpc = rpc.NewServer()
	s.rpc.RegisterCodec(json2.NewCodec(), "application/json")
	s.rpc.RegisterService(NewService(s.queue, s.log), ServiceName)
	mux := http.NewServeMux()
	mux.Handle("/", s.rpc)
	s.http = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the HTTP handler serving the RPC endpoint, for mounting
// in tests or in an existing server.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// ListenAndServe serves until Shutdown is called or the listener fails.
// Like http.Server, it returns http.ErrServerClosed after a clean
// shutdown.
func (s *Server) ListenAndServe() error {
	s.log.Info().Str("addr", s.http.Addr).Msg("relay listening")
	return s.http.ListenAndServe()
}

// Shutdown stops the server, waiting for running requests to finish until
// ctx expires. Queued envelopes are dropped; the relay stores nothing.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("relay shutting down")
	return s.http.Shutdown(ctx)
}
