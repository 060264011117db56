// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/stacklok/mcpbridge/pkg/adapter"
	mcperrors "github.com/stacklok/mcpbridge/pkg/errors"
)

// Instance is an adapter bound to one session key together with the MCP
// server that serves it. At most one transport is attached at a time.
type Instance struct {
	Key       Key
	Adapter   adapter.Adapter
	Server    *server.MCPServer
	CreatedAt time.Time

	attached atomic.Pointer[string]
}

// NewInstance creates an unattached instance.
func NewInstance(key Key, a adapter.Adapter, srv *server.MCPServer) *Instance {
	return &Instance{Key: key, Adapter: a, Server: srv, CreatedAt: time.Now()}
}

// Attach claims the instance for transport id. It fails with a
// SessionConflictError while another transport holds it.
func (i *Instance) Attach(id string) error {
	if i.attached.CompareAndSwap(nil, &id) {
		return nil
	}
	return mcperrors.NewSessionConflictError(
		fmt.Sprintf("session %s already has an active connection", i.Key.Redacted()), nil)
}

// Detach releases the instance if id holds it; otherwise it does nothing.
func (i *Instance) Detach(id string) {
	cur := i.attached.Load()
	if cur != nil && *cur == id {
		i.attached.CompareAndSwap(cur, nil)
	}
}

// AttachedTo returns the id of the attached transport, or "".
func (i *Instance) AttachedTo() string {
	if cur := i.attached.Load(); cur != nil {
		return *cur
	}
	return ""
}

// Close stops the adapter's background work.
func (i *Instance) Close() error {
	return adapter.Close(i.Adapter)
}
