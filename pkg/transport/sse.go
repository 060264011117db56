// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// DefaultKeepAlive is the interval between keep-alive comments on an idle stream.
const DefaultKeepAlive = 30 * time.Second

// SSE is a Transport over one Server-Sent Events stream. Outbound messages
// are written by Stream; inbound messages arrive through Deliver, called by
// the POST handler.
type SSE struct {
	id       string
	endpoint string

	queue
	out       chan string
	closeOnce sync.Once
	keepAlive time.Duration
}

// SSEOption configures an SSE transport.
type SSEOption func(*SSE)

// WithKeepAlive overrides DefaultKeepAlive.
func WithKeepAlive(d time.Duration) SSEOption {
	return func(s *SSE) {
		if d > 0 {
			s.keepAlive = d
		}
	}
}

// NewSSE creates a transport whose endpoint event announces endpoint.
func NewSSE(id, endpoint string, opts ...SSEOption) *SSE {
	s := &SSE{
		id:        id,
		endpoint:  endpoint,
		queue:     newQueue(defaultQueueSize),
		out:       make(chan string, defaultQueueSize),
		keepAlive: DefaultKeepAlive,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID returns the SSE session id.
func (s *SSE) ID() string { return s.id }

// Endpoint returns the URL announced in the endpoint event.
func (s *SSE) Endpoint() string { return s.endpoint }

// Deliver queues an inbound message.
func (s *SSE) Deliver(ctx context.Context, msg json.RawMessage) error {
	return s.deliver(ctx, msg)
}

// Receive returns the next delivered message.
func (s *SSE) Receive(ctx context.Context) (json.RawMessage, error) {
	return s.receive(ctx)
}

// Send queues msg as a "message" event.
func (s *SSE) Send(ctx context.Context, msg json.RawMessage) error {
	event := NewSSEMessage(EventMessage, string(msg)).ToSSEString()
	select {
	case <-s.done:
		return ErrClosed
	default:
	}
	select {
	case s.out <- event:
		return nil
	case <-s.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed by Close.
func (s *SSE) Done() <-chan struct{} { return s.done }

// Close ends the stream.
func (s *SSE) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	return nil
}

// Stream writes the SSE response: headers, the endpoint event, then queued
// messages and keep-alive comments until ctx ends or the transport closes.
func (s *SSE) Stream(ctx context.Context, w http.ResponseWriter) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return errors.New("streaming not supported")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if _, err := fmt.Fprint(w, NewSSEMessage(EventEndpoint, s.endpoint).ToSSEString()); err != nil {
		return err
	}
	flusher.Flush()

	ticker := time.NewTicker(s.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.done:
			s.drain(w, flusher)
			return nil
		case event := <-s.out:
			if _, err := fmt.Fprint(w, event); err != nil {
				return err
			}
			flusher.Flush()
		case <-ticker.C:
			if _, err := fmt.Fprint(w, keepAliveComment); err != nil {
				return err
			}
			flusher.Flush()
		}
	}
}

// drain writes events queued before Close.
func (s *SSE) drain(w http.ResponseWriter, flusher http.Flusher) {
	for {
		select {
		case event := <-s.out:
			if _, err := fmt.Fprint(w, event); err != nil {
				return
			}
			flusher.Flush()
		default:
			return
		}
	}
}
