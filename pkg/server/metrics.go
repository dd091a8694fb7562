// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package server

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the Prometheus collectors exposed at /metrics.
type Metrics struct {
	registry *prometheus.Registry

	ActiveSessions prometheus.Gauge
	TurnsTotal     prometheus.Counter
	ToolCallsTotal *prometheus.CounterVec
	CompactionsTotal prometheus.Counter
}

// NewMetrics builds and registers the Skein runtime's Prometheus metrics
// in their own registry (not the global default), so a test or a second
// instance in the same process can create independent Metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "skein",
			Name:      "active_sessions",
			Help:      "Number of sessions with an in-flight agent run.",
		}),
		TurnsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "skein",
			Name:      "turns_total",
			Help:      "Total number of turns executed across all sessions.",
		}),
		ToolCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "skein",
			Name:      "tool_calls_total",
			Help:      "Total number of tool invocations, labeled by tool name and outcome.",
		}, []string{"tool", "outcome"}),
		CompactionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "skein",
			Name:      "compactions_total",
			Help:      "Total number of context-compaction passes run.",
		}),
	}

	registry.MustRegister(m.ActiveSessions, m.TurnsTotal, m.ToolCallsTotal, m.CompactionsTotal)
	return m
}
