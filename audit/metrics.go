// Copyright (c) 2026 Hush Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package audit

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "hush"

// MetricsSink counts audit events as Prometheus metrics.
type MetricsSink struct {
	events *prometheus.CounterVec
	errors *prometheus.CounterVec
}

// NewMetricsSink returns a sink which counts events on registerer.
func NewMetricsSink(registerer prometheus.Registerer) *MetricsSink {
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_events_total",
		Help:      "number of audit events by kind and status",
	}, []string{"kind", "status"})
	errors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_errors_total",
		Help:      "number of failed operations by operation name",
	}, []string{"op"})
	registerer.MustRegister(events, errors)

	return &MetricsSink{
		events: events,
		errors: errors,
	}
}

// Event implements Sink.
func (m *MetricsSink) Event(ctx context.Context, event Event) {
	m.events.WithLabelValues(string(event.Kind), event.Status).Inc()
}

// Error implements Sink.
func (m *MetricsSink) Error(ctx context.Context, op string, err error, threadID string) {
	m.errors.WithLabelValues(op).Inc()
}
