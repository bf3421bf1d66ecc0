// Copyright (c) 2026 Hush Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package relay

import (
	"sync"

	"github.com/hushcomm/hush/def"
	"github.com/hushcomm/hush/msg"
)

// Queue holds undelivered envelopes per thread, in delivery order. Each
// thread's queue is bounded; delivery to a full queue fails. Safe for
// concurrent use.
type Queue struct {
	sync.Mutex
	cap     int
	threads map[string][]*msg.Envelope
}

// NewQueue creates an empty queue set with the given per-thread capacity.
// Capacities below one fall back to def.MaxQueuedEnvelopes.
func NewQueue(capacity int) *Queue {
	if capacity < 1 {
		capacity = def.MaxQueuedEnvelopes
	}
	return &Queue{
		cap:     capacity,
		threads: make(map[string][]*msg.Envelope),
	}
}

// Enqueue appends an envelope to the thread's queue and returns the queue
// depth after the append. It returns ErrQueueFull if the queue is at
// capacity.
func (q *Queue) Enqueue(threadID string, env *msg.Envelope) (int, error) {
	q.Lock()
	defer q.Unlock()
	pending := q.threads[threadID]
	if len(pending) >= q.cap {
		return len(pending), ErrQueueFull
	}
	q.threads[threadID] = append(pending, env)
	return len(pending) + 1, nil
}

// Dequeue removes and returns up to max envelopes from the thread's queue,
// oldest first. An empty or unknown thread yields an empty result.
func (q *Queue) Dequeue(threadID string, max int) []*msg.Envelope {
	q.Lock()
	defer q.Unlock()
	pending := q.threads[threadID]
	if max > len(pending) {
		max = len(pending)
	}
	if max <= 0 {
		return nil
	}
	out := make([]*msg.Envelope, max)
	copy(out, pending[:max])
	rest := pending[max:]
	if len(rest) == 0 {
		delete(q.threads, threadID)
	} else {
		// do not pin dequeued envelopes through the backing array
		q.threads[threadID] = append([]*msg.Envelope(nil), rest...)
	}
	return out
}

// Len returns the queue depth of the thread.
func (q *Queue) Len(threadID string) int {
	q.Lock()
	defer q.Unlock()
	return len(q.threads[threadID])
}
