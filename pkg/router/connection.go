// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package router

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/stacklok/mcpbridge/pkg/session"
	"github.com/stacklok/mcpbridge/pkg/transport"
)

// Connection is one transport bound to an adapter instance.
type Connection struct {
	id        string
	service   string
	transport transport.Transport
	observer  StateObserver
	metrics   *Metrics
	log       *slog.Logger

	state  atomic.Int32
	inst   *session.Instance
	closed chan struct{}
}

func newConnection(service string, t transport.Transport, observer StateObserver, m *Metrics, log *slog.Logger) *Connection {
	c := &Connection{
		id:        t.ID(),
		service:   service,
		transport: t,
		observer:  observer,
		metrics:   m,
		log:       log.With("connection", t.ID(), "service", service),
		closed:    make(chan struct{}),
	}
	c.setState(StateConnecting)
	return c
}

// ID returns the transport id.
func (c *Connection) ID() string { return c.id }

// State returns the current state.
func (c *Connection) State() State { return State(c.state.Load()) }

// Instance returns the bound instance, nil before BOUND.
func (c *Connection) Instance() *session.Instance { return c.inst }

// Closed is closed once the connection reaches StateClosed.
func (c *Connection) Closed() <-chan struct{} { return c.closed }

func (c *Connection) setState(s State) {
	c.state.Store(int32(s))
	c.log.Debug("connection state", "state", s.String())
	if c.observer != nil {
		c.observer(c.id, s)
	}
}

func (c *Connection) bind(inst *session.Instance) {
	c.inst = inst
	c.setState(StateBound)
}

// fail ends a connection that never streamed.
func (c *Connection) fail() {
	_ = c.transport.Close()
	c.setState(StateClosed)
	close(c.closed)
}

// Serve pumps messages until the transport closes or ctx ends, then closes
// the transport and detaches it from the instance. The instance itself is
// kept for the next connection.
func (c *Connection) Serve(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.setState(StateStreaming)
	c.metrics.connectionOpened(c.service)

	pumpDone := make(chan struct{})
	go func() {
		defer close(pumpDone)
		c.pump(ctx)
	}()

	select {
	case <-ctx.Done():
	case <-c.transport.Done():
	case <-pumpDone:
	}

	c.setState(StateClosing)
	_ = c.transport.Close()
	cancel()
	<-pumpDone
	c.inst.Detach(c.id)
	c.metrics.connectionClosed(c.service)

	c.setState(StateClosed)
	close(c.closed)
}

// pump handles messages one at a time so replies keep arrival order.
func (c *Connection) pump(ctx context.Context) {
	for {
		msg, err := c.transport.Receive(ctx)
		if err != nil {
			if !errors.Is(err, transport.ErrClosed) && ctx.Err() == nil {
				c.log.Warn("receive failed", "error", err)
			}
			return
		}

		reply, err := dispatch(ctx, c.inst, msg, c.metrics)
		if err != nil {
			c.log.Warn("dropping message", "error", err)
			continue
		}
		if reply == nil {
			continue
		}
		if err := c.transport.Send(ctx, reply); err != nil {
			if !errors.Is(err, transport.ErrClosed) {
				c.log.Warn("send failed", "error", err)
			}
			return
		}
	}
}
