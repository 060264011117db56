// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"encoding/json"
	"sync"
)

// Pipe is an in-memory Transport. The owner of the other end feeds it with
// Deliver and reads what the server sent from Outbound.
type Pipe struct {
	id string
	queue
	out       chan json.RawMessage
	closeOnce sync.Once
}

// NewPipe creates an open pipe.
func NewPipe(id string) *Pipe {
	return &Pipe{
		id:    id,
		queue: newQueue(defaultQueueSize),
		out:   make(chan json.RawMessage, defaultQueueSize),
	}
}

// ID returns the pipe id.
func (p *Pipe) ID() string { return p.id }

// Deliver queues an inbound message.
func (p *Pipe) Deliver(ctx context.Context, msg json.RawMessage) error {
	return p.deliver(ctx, msg)
}

// Receive returns the next delivered message.
func (p *Pipe) Receive(ctx context.Context) (json.RawMessage, error) {
	return p.receive(ctx)
}

// Send queues msg on Outbound.
func (p *Pipe) Send(ctx context.Context, msg json.RawMessage) error {
	select {
	case <-p.done:
		return ErrClosed
	default:
	}
	select {
	case p.out <- msg:
		return nil
	case <-p.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Outbound returns the messages sent by the server side.
func (p *Pipe) Outbound() <-chan json.RawMessage { return p.out }

// Done is closed by Close.
func (p *Pipe) Done() <-chan struct{} { return p.done }

// Close ends the pipe.
func (p *Pipe) Close() error {
	p.closeOnce.Do(func() { close(p.done) })
	return nil
}
