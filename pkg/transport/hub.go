// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"fmt"
	"sync"
)

// Hub indexes the open SSE transports by session id so POSTed messages can
// find their stream.
type Hub struct {
	mu      sync.RWMutex
	streams map[string]*SSE
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{streams: make(map[string]*SSE)}
}

// Add registers s. Returns error if its id is empty or already registered.
func (h *Hub) Add(s *SSE) error {
	if s.ID() == "" {
		return fmt.Errorf("session ID cannot be empty")
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.streams[s.ID()]; exists {
		return fmt.Errorf("session ID %q already exists", s.ID())
	}
	h.streams[s.ID()] = s
	return nil
}

// Get returns the transport registered under id.
func (h *Hub) Get(id string) (*SSE, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s, ok := h.streams[id]
	return s, ok
}

// Delete removes id.
func (h *Hub) Delete(id string) {
	h.mu.Lock()
	delete(h.streams, id)
	h.mu.Unlock()
}

// Len returns the number of open streams.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.streams)
}

// CloseAll closes every registered transport.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	streams := make([]*SSE, 0, len(h.streams))
	for _, s := range h.streams {
		streams = append(streams, s)
	}
	h.mu.RUnlock()

	for _, s := range streams {
		_ = s.Close()
	}
}
