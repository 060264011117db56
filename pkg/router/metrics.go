// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package router

import (
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	mcperrors "github.com/stacklok/mcpbridge/pkg/errors"
)

// Metrics are the Prometheus collectors of one router. They live in their
// own registry so several routers can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	connections *prometheus.GaugeVec
	rejections  *prometheus.CounterVec
	messages    *prometheus.CounterVec
	toolCalls   *prometheus.CounterVec
	toolLatency *prometheus.HistogramVec
}

// NewMetrics creates and registers the collectors. instances reports the
// current number of stored adapter instances.
func NewMetrics(instances func() int) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		connections: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "mcpbridge_connections",
			Help: "Open streaming connections per service",
		}, []string{"service"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mcpbridge_connection_rejections_total",
			Help: "Connections refused before streaming, by service and error type",
		}, []string{"service", "reason"}),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mcpbridge_messages_total",
			Help: "JSON-RPC messages dispatched, by service and method",
		}, []string{"service", "method"}),
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mcpbridge_tool_calls_total",
			Help: "Tool calls by service, tool and outcome",
		}, []string{"service", "tool", "outcome"}),
		toolLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mcpbridge_tool_call_duration_seconds",
			Help:    "Tool call latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"service", "tool"}),
	}
	m.registry.MustRegister(m.connections, m.rejections, m.messages, m.toolCalls, m.toolLatency)
	if instances != nil {
		m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "mcpbridge_instances",
			Help: "Adapter instances retained by the session store",
		}, func() float64 { return float64(instances()) }))
	}
	return m
}

// Handler serves the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) connectionOpened(service string) {
	if m != nil {
		m.connections.WithLabelValues(service).Inc()
	}
}

func (m *Metrics) connectionClosed(service string) {
	if m != nil {
		m.connections.WithLabelValues(service).Dec()
	}
}

func (m *Metrics) rejected(service string, err error) {
	if m == nil {
		return
	}
	reason := mcperrors.TypeOf(err)
	if reason == "" {
		reason = "other"
	}
	m.rejections.WithLabelValues(service, reason).Inc()
}

func (m *Metrics) message(service, method string) {
	if m != nil {
		m.messages.WithLabelValues(service, method).Inc()
	}
}

func (m *Metrics) toolCall(service, tool string, res *mcp.CallToolResult, err error, took time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	switch {
	case err != nil:
		outcome = "error"
	case res != nil && res.IsError:
		outcome = "tool_error"
	}
	m.toolCalls.WithLabelValues(service, tool, outcome).Inc()
	m.toolLatency.WithLabelValues(service, tool).Observe(took.Seconds())
}
