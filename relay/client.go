// Copyright (c) 2026 Hush Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package relay

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/rpc/v2/json2"
	"github.com/jpillora/backoff"
	"github.com/rs/zerolog"

	"github.com/hushcomm/hush/msg"
)

// ErrCertLoad is raised when the pinned server certificate cannot be
// parsed.
var ErrCertLoad = errors.New("relay: certificate load failed")

// Client calls a relay server over JSON-RPC. Transport failures are
// retried with jittered backoff; RPC-level errors are returned to the
// caller.
type Client struct {
	url      string
	hc       *http.Client
	log      zerolog.Logger
	rootCA   []byte
	attempts int
	min, max time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithClientLogger sets the client's logger.
func WithClientLogger(log zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.log = log.With().Str("component", "relayclient").Logger()
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.hc = hc }
}

// WithRootCA pins the given PEM-encoded certificate as the only trusted
// root for HTTPS relay URLs.
func WithRootCA(pem []byte) ClientOption {
	return func(c *Client) { c.rootCA = pem }
}

// WithAttempts sets how often a call is tried before a transport failure
// is surfaced. Values below one are ignored.
func WithAttempts(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.attempts = n
		}
	}
}

// NewClient creates a client for the relay at url.
func NewClient(url string, opts ...ClientOption) (*Client, error) {
	c := &Client{
		url:      url,
		log:      zerolog.Nop(),
		attempts: 3,
		min:      100 * time.Millisecond,
		max:      2 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.hc == nil {
		transport := new(http.Transport)
		if c.rootCA != nil {
			pool := x509.NewCertPool()
			if !pool.AppendCertsFromPEM(c.rootCA) {
				return nil, ErrCertLoad
			}
			transport.TLSClientConfig = &tls.Config{RootCAs: pool}
		}
		c.hc = &http.Client{Transport: transport}
	}
	return c, nil
}

// Deliver sends an envelope to the thread's queue and returns the queue
// depth after delivery. A full queue surfaces as ErrQueueFull.
func (c *Client) Deliver(ctx context.Context, threadID string, env *msg.Envelope) (int, error) {
	var reply DeliverReply
	args := DeliverArgs{ThreadID: threadID, Envelope: env}
	if err := c.call(ctx, ServiceName+".Deliver", args, &reply); err != nil {
		return 0, err
	}
	return reply.Queued, nil
}

// Fetch removes and returns up to max queued envelopes for the thread,
// oldest first. Max values of zero or below request the server maximum.
func (c *Client) Fetch(ctx context.Context, threadID string, max int) ([]*msg.Envelope, error) {
	var reply FetchReply
	args := FetchArgs{ThreadID: threadID, Max: max}
	if err := c.call(ctx, ServiceName+".Fetch", args, &reply); err != nil {
		return nil, err
	}
	return reply.Envelopes, nil
}

// call runs one JSON-RPC call. The HTTP round trip is retried on
// transport errors; a response from the server, error or not, ends the
// attempt loop.
func (c *Client) call(ctx context.Context, method string, args, reply interface{}) error {
	buf, err := json2.EncodeClientRequest(method, args)
	if err != nil {
		return fmt.Errorf("relay: encode %s: %w", method, err)
	}
	boff := &backoff.Backoff{Min: c.min, Max: c.max, Jitter: true}
	for attempt := 1; ; attempt++ {
		resp, err := c.post(ctx, buf)
		if err == nil {
			err = decodeReply(resp, reply)
			if err != nil {
				return fmt.Errorf("relay: %s: %w", method, err)
			}
			return nil
		}
		if attempt >= c.attempts {
			return fmt.Errorf("relay: %s failed after %d attempts: %w", method, attempt, err)
		}
		wait := boff.Duration()
		c.log.Debug().Err(err).Str("method", method).Dur("wait", wait).
			Msg("relay call failed, retrying")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (c *Client) post(ctx context.Context, buf []byte) (*http.Response, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}
	request.Header.Set("Content-Type", "application/json")
	return c.hc.Do(request)
}

// decodeReply decodes a JSON-RPC response body, translating relay error
// codes back into their sentinels.
func decodeReply(resp *http.Response, reply interface{}) error {
	defer resp.Body.Close()
	err := json2.DecodeClientResponse(resp.Body, reply)
	var rpcErr *json2.Error
	if errors.As(err, &rpcErr) && rpcErr.Code == CodeQueueFull {
		return ErrQueueFull
	}
	return err
}
