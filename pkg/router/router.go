// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package router binds client connections to per-session adapter instances
// and serves them over HTTP with Server-Sent Events.
package router

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/stacklok/mcpbridge/pkg/adapter"
	"github.com/stacklok/mcpbridge/pkg/credentials"
	mcperrors "github.com/stacklok/mcpbridge/pkg/errors"
	"github.com/stacklok/mcpbridge/pkg/logger"
	"github.com/stacklok/mcpbridge/pkg/registry"
	"github.com/stacklok/mcpbridge/pkg/session"
	"github.com/stacklok/mcpbridge/pkg/transport"
)

// Router owns the session store and routes connections to instances.
type Router struct {
	registry     *registry.Registry
	store        *session.Store
	credentials  credentials.Resolver
	oauthConfigs credentials.OAuthConfigSource

	observer  StateObserver
	metrics   *Metrics
	hub       *transport.Hub
	keepAlive time.Duration
	log       *slog.Logger
}

// Option configures a Router.
type Option func(*Router)

// WithStateObserver registers a callback for connection state changes.
func WithStateObserver(o StateObserver) Option {
	return func(r *Router) { r.observer = o }
}

// WithMetrics records Prometheus metrics and serves them at /metrics.
func WithMetrics(m *Metrics) Option {
	return func(r *Router) { r.metrics = m }
}

// WithOAuthConfigs gives adapters access to OAuth client registrations.
func WithOAuthConfigs(src credentials.OAuthConfigSource) Option {
	return func(r *Router) { r.oauthConfigs = src }
}

// WithKeepAlive overrides the SSE keep-alive interval.
func WithKeepAlive(d time.Duration) Option {
	return func(r *Router) { r.keepAlive = d }
}

// New creates a router serving the adapters in reg.
func New(reg *registry.Registry, store *session.Store, resolver credentials.Resolver, opts ...Option) *Router {
	r := &Router{
		registry:    reg,
		store:       store,
		credentials: resolver,
		hub:         transport.NewHub(),
		keepAlive:   transport.DefaultKeepAlive,
		log:         logger.Component("router"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Store returns the session store.
func (r *Router) Store() *session.Store { return r.store }

// Bind resolves the instance for service and the encoded session key,
// creating it on first use, and attaches t to it. On error t is closed and
// the returned error carries the HTTP status to report.
func (r *Router) Bind(ctx context.Context, service, encodedKey string, t transport.Transport) (*Connection, error) {
	conn := newConnection(service, t, r.observer, r.metrics, r.log)
	inst, err := r.resolve(ctx, service, encodedKey, t.ID())
	if err != nil {
		r.metrics.rejected(service, err)
		r.log.Info("connection rejected", "service", service, "error", err)
		conn.fail()
		return nil, err
	}
	conn.bind(inst)
	return conn, nil
}

func (r *Router) resolve(ctx context.Context, service, encodedKey, connID string) (*session.Instance, error) {
	entry, ok := r.registry.Get(service)
	if !ok {
		return nil, mcperrors.NewNotFoundError(fmt.Sprintf("unknown service %q", service), nil)
	}
	key, err := session.ParseKey(service, encodedKey)
	if err != nil {
		return nil, err
	}
	inst, err := r.store.GetOrCreate(ctx, key, r.construct(entry))
	if err != nil {
		return nil, err
	}
	if err := inst.Attach(connID); err != nil {
		return nil, err
	}
	return inst, nil
}

func (r *Router) construct(entry *registry.Entry) session.ConstructFunc {
	return func(ctx context.Context, key session.Key) (*session.Instance, error) {
		a, err := entry.Factory(ctx, adapter.Params{
			Service:      key.Service,
			UserID:       key.UserID,
			APIKey:       key.APIKey,
			Credentials:  r.credentials,
			OAuthConfigs: r.oauthConfigs,
		})
		if err != nil {
			return nil, err
		}
		if a == nil {
			return nil, mcperrors.NewInternalError("adapter factory returned no adapter", nil)
		}
		return session.NewInstance(key, a, newMCPServer(key.Service, entry.Options, a, r.metrics)), nil
	}
}

// Close ends every open stream and closes all instances.
func (r *Router) Close() error {
	r.hub.CloseAll()
	return r.store.Close()
}
