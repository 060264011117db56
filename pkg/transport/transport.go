// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package transport defines the connection boundary the router talks to and
// provides the SSE and in-memory implementations.
package transport

import (
	"context"
	"encoding/json"
	"errors"
)

//go:generate mockgen -destination=mocks/mock_transport.go -package=mocks -source=transport.go Transport

// ErrClosed is returned by Receive, Send and Deliver once the transport is closed.
var ErrClosed = errors.New("transport closed")

// ErrQueueFull is returned by Deliver when the inbound queue stays full
// until the caller gives up.
var ErrQueueFull = errors.New("transport inbound queue is full")

// Transport carries JSON-RPC messages for one client connection.
type Transport interface {
	// ID identifies the connection.
	ID() string

	// Receive returns the next inbound message in arrival order. It returns
	// ErrClosed after Close.
	Receive(ctx context.Context) (json.RawMessage, error)

	// Send writes one outbound message.
	Send(ctx context.Context, msg json.RawMessage) error

	// Done is closed when the connection ends.
	Done() <-chan struct{}

	// Close ends the connection. It is safe to call more than once.
	Close() error
}

// defaultQueueSize is the inbound and outbound buffer per connection.
const defaultQueueSize = 100

// queue is the buffered, closable message channel pair shared by the
// implementations.
type queue struct {
	in   chan json.RawMessage
	done chan struct{}
}

func newQueue(size int) queue {
	return queue{
		in:   make(chan json.RawMessage, size),
		done: make(chan struct{}),
	}
}

func (q queue) deliver(ctx context.Context, msg json.RawMessage) error {
	select {
	case <-q.done:
		return ErrClosed
	default:
	}
	select {
	case q.in <- msg:
		return nil
	case <-q.done:
		return ErrClosed
	case <-ctx.Done():
		return errors.Join(ErrQueueFull, ctx.Err())
	}
}

func (q queue) receive(ctx context.Context) (json.RawMessage, error) {
	select {
	case msg := <-q.in:
		return msg, nil
	case <-q.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
