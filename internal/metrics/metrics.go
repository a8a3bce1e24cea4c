// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package metrics exposes the monitor fleet's runtime counters as
// Prometheus collectors, registering a handful of domain counters/histograms
// against an injected prometheus.Registerer rather than the global default
// one (so an embedding application controls whether, and where, /metrics is
// served).
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics is the set of collectors the monitor fleet and selector update.
// A nil *Metrics is safe to use and is a no-op, so instrumentation is
// entirely optional.
type Metrics struct {
	heartbeatsTotal    *prometheus.CounterVec
	heartbeatDuration  *prometheus.HistogramVec
	topologyChanges    prometheus.Counter
	serversWatched     prometheus.Gauge
	selectionsWaiting  prometheus.Gauge
	selectionTimeouts  prometheus.Counter
}

// New builds a Metrics instance and, if reg is non-nil, registers its
// collectors on it. Passing a nil registry yields a fully functional
// Metrics whose observations simply aren't exported anywhere -- useful for
// tests and for callers that don't run a Prometheus endpoint.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		heartbeatsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sdam",
			Subsystem: "monitor",
			Name:      "heartbeats_total",
			Help:      "Number of heartbeat probes completed, by server address and outcome.",
		}, []string{"address", "outcome"}),
		heartbeatDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sdam",
			Subsystem: "monitor",
			Name:      "heartbeat_duration_seconds",
			Help:      "Heartbeat probe round-trip time.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"address"}),
		topologyChanges: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sdam",
			Subsystem: "topology",
			Name:      "description_changes_total",
			Help:      "Number of times the topology description changed.",
		}),
		serversWatched: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "sdam",
			Subsystem: "topology",
			Name:      "servers_watched",
			Help:      "Current number of servers the monitor fleet is watching.",
		}),
		selectionsWaiting: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "sdam",
			Subsystem: "selection",
			Name:      "waiters",
			Help:      "Current number of callers parked waiting for a suitable server.",
		}),
		selectionTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sdam",
			Subsystem: "selection",
			Name:      "timeouts_total",
			Help:      "Number of server-selection calls that failed with a timeout.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.heartbeatsTotal,
			m.heartbeatDuration,
			m.topologyChanges,
			m.serversWatched,
			m.selectionsWaiting,
			m.selectionTimeouts,
		)
	}

	return m
}

// ObserveHeartbeat records the outcome ("success" or "failure") and latency
// of a single probe.
func (m *Metrics) ObserveHeartbeat(address, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.heartbeatsTotal.WithLabelValues(address, outcome).Inc()
	m.heartbeatDuration.WithLabelValues(address).Observe(seconds)
}

// IncTopologyChanges increments the topology-change counter.
func (m *Metrics) IncTopologyChanges() {
	if m == nil {
		return
	}
	m.topologyChanges.Inc()
}

// SetServersWatched sets the current watched-server gauge.
func (m *Metrics) SetServersWatched(n int) {
	if m == nil {
		return
	}
	m.serversWatched.Set(float64(n))
}

// SetSelectionsWaiting sets the current parked-waiter gauge.
func (m *Metrics) SetSelectionsWaiting(n int) {
	if m == nil {
		return
	}
	m.selectionsWaiting.Set(float64(n))
}

// IncSelectionTimeouts increments the selection-timeout counter.
func (m *Metrics) IncSelectionTimeouts() {
	if m == nil {
		return
	}
	m.selectionTimeouts.Inc()
}
