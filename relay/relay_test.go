// Copyright (c) 2026 Hush Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package relay

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/hushcomm/hush/msg"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testEnvelope(number uint64) *msg.Envelope {
	return &msg.Envelope{
		Ciphertext: []byte("ciphertext"),
		Header:     msg.Header{MessageNumber: number},
	}
}

// startRelay serves a relay over httptest and returns a client for it.
func startRelay(t *testing.T, opts ...ServerOption) *Client {
	t.Helper()
	srv := NewServer("127.0.0.1:0", opts...)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	client, err := NewClient(ts.URL, WithHTTPClient(ts.Client()))
	require.NoError(t, err)
	return client
}

func TestQueueFIFO(t *testing.T) {
	q := NewQueue(0)
	for i := uint64(0); i < 3; i++ {
		depth, err := q.Enqueue("t", testEnvelope(i))
		require.NoError(t, err)
		assert.Equal(t, int(i)+1, depth)
	}
	require.Equal(t, 3, q.Len("t"))

	out := q.Dequeue("t", 2)
	require.Len(t, out, 2)
	assert.Equal(t, uint64(0), out[0].Header.MessageNumber)
	assert.Equal(t, uint64(1), out[1].Header.MessageNumber)
	require.Equal(t, 1, q.Len("t"))

	out = q.Dequeue("t", 10)
	require.Len(t, out, 1)
	assert.Equal(t, uint64(2), out[0].Header.MessageNumber)
	assert.Empty(t, q.Dequeue("t", 10))
	assert.Empty(t, q.Dequeue("unknown", 10))
}

func TestQueueCapacity(t *testing.T) {
	q := NewQueue(2)
	_, err := q.Enqueue("t", testEnvelope(0))
	require.NoError(t, err)
	_, err = q.Enqueue("t", testEnvelope(1))
	require.NoError(t, err)
	_, err = q.Enqueue("t", testEnvelope(2))
	require.ErrorIs(t, err, ErrQueueFull)
	// other threads have their own capacity
	_, err = q.Enqueue("u", testEnvelope(0))
	require.NoError(t, err)
	// draining frees capacity
	q.Dequeue("t", 1)
	_, err = q.Enqueue("t", testEnvelope(2))
	require.NoError(t, err)
}

func TestDeliverFetch(t *testing.T) {
	client := startRelay(t)
	ctx := context.Background()

	for i := uint64(0); i < 3; i++ {
		depth, err := client.Deliver(ctx, "thread-1", testEnvelope(i))
		require.NoError(t, err)
		assert.Equal(t, int(i)+1, depth)
	}

	envs, err := client.Fetch(ctx, "thread-1", 2)
	require.NoError(t, err)
	require.Len(t, envs, 2)
	assert.Equal(t, uint64(0), envs[0].Header.MessageNumber)
	assert.Equal(t, uint64(1), envs[1].Header.MessageNumber)
	assert.Equal(t, []byte("ciphertext"), envs[0].Ciphertext)

	envs, err = client.Fetch(ctx, "thread-1", 0)
	require.NoError(t, err)
	require.Len(t, envs, 1)
	assert.Equal(t, uint64(2), envs[0].Header.MessageNumber)

	envs, err = client.Fetch(ctx, "thread-1", 0)
	require.NoError(t, err)
	assert.Empty(t, envs)
}

func TestDeliverValidation(t *testing.T) {
	client := startRelay(t)
	ctx := context.Background()

	_, err := client.Deliver(ctx, "", testEnvelope(0))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing thread ID")

	_, err = client.Deliver(ctx, "thread-1", &msg.Envelope{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing envelope")

	_, err = client.Fetch(ctx, "", 1)
	require.Error(t, err)
}

func TestDeliverQueueFull(t *testing.T) {
	client := startRelay(t, WithQueueCapacity(1))
	ctx := context.Background()

	_, err := client.Deliver(ctx, "thread-1", testEnvelope(0))
	require.NoError(t, err)
	_, err = client.Deliver(ctx, "thread-1", testEnvelope(1))
	require.ErrorIs(t, err, ErrQueueFull)
}

// flakyTransport fails a number of round trips before delegating.
type flakyTransport struct {
	failures int
	inner    http.RoundTripper
}

func (f *flakyTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	if f.failures > 0 {
		f.failures--
		return nil, net.ErrClosed
	}
	return f.inner.RoundTrip(r)
}

func TestClientRetriesTransportErrors(t *testing.T) {
	srv := NewServer("127.0.0.1:0")
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	flaky := &flakyTransport{failures: 2, inner: ts.Client().Transport}
	client, err := NewClient(ts.URL, WithHTTPClient(&http.Client{Transport: flaky}))
	require.NoError(t, err)

	depth, err := client.Deliver(context.Background(), "thread-1", testEnvelope(0))
	require.NoError(t, err)
	assert.Equal(t, 1, depth)
	assert.Zero(t, flaky.failures)
}

func TestClientGivesUpAfterAttempts(t *testing.T) {
	// grab a port nothing listens on
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	url := "http://" + l.Addr().String() + "/"
	require.NoError(t, l.Close())

	client, err := NewClient(url, WithAttempts(2))
	require.NoError(t, err)
	_, err = client.Deliver(context.Background(), "thread-1", testEnvelope(0))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 attempts")
}

func TestClientHonorsContext(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	url := "http://" + l.Addr().String() + "/"
	require.NoError(t, l.Close())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	client, err := NewClient(url)
	require.NoError(t, err)
	_, err = client.Deliver(ctx, "thread-1", testEnvelope(0))
	require.ErrorIs(t, err, context.Canceled)
}

func TestServerShutdown(t *testing.T) {
	srv := NewServer("127.0.0.1:0")
	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe() }()
	require.NoError(t, srv.Shutdown(context.Background()))
	assert.ErrorIs(t, <-done, http.ErrServerClosed)
}
