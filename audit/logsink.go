// Copyright (c) 2026 Hush Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package audit

import (
	"context"

	"github.com/rs/zerolog"
)

// LogSink writes audit events to a structured logger.
type LogSink struct {
	log zerolog.Logger
}

// NewLogSink returns a sink which logs every event through log.
func NewLogSink(log zerolog.Logger) *LogSink {
	return &LogSink{
		log: log.With().Str("component", "audit").Logger(),
	}
}

// Event implements Sink.
func (l *LogSink) Event(ctx context.Context, event Event) {
	e := l.log.Info().
		Str("kind", string(event.Kind)).
		Str("thread", event.ThreadID).
		Str("status", event.Status)
	for k, v := range event.Meta {
		e = e.Str(k, v)
	}
	e.Msg("audit event")
}

// Error implements Sink.
func (l *LogSink) Error(ctx context.Context, op string, err error, threadID string) {
	l.log.Error().
		Str("op", op).
		Str("thread", threadID).
		Err(err).
		Msg("operation failed")
}
