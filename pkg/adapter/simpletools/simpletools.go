// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package simpletools is a credential-free adapter that keeps a per-user
// key/value store in memory. It is useful for exercising the bridge without
// any upstream service.
package simpletools

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/stacklok/mcpbridge/pkg/adapter"
	"github.com/stacklok/mcpbridge/pkg/logger"
)

// ServiceName is the registry name of this adapter.
const ServiceName = "simple-tools"

const uriPrefix = "simple-tools:///"

// InitOptions describes the MCP server a simple-tools session is served as.
func InitOptions() adapter.InitOptions {
	return adapter.InitOptions{
		ServerName:    "simple-tools-server",
		ServerVersion: "1.0.0",
		Instructions:  "Store and retrieve string values by key.",
	}
}

// Store holds one key/value map per user. Data outlives individual adapter
// instances so sessions with different API keys for the same user share it.
type Store struct {
	mu    sync.RWMutex
	users map[string]map[string]string
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{users: make(map[string]map[string]string)}
}

func (s *Store) put(userID, key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.users[userID]
	if !ok {
		data = make(map[string]string)
		s.users[userID] = data
	}
	data[key] = value
}

func (s *Store) get(userID, key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.users[userID][key]
	return v, ok
}

// snapshot returns the user's keys in sorted order and a copy of the data.
func (s *Store) snapshot(userID string) ([]string, map[string]string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data := make(map[string]string, len(s.users[userID]))
	keys := make([]string, 0, len(s.users[userID]))
	for k, v := range s.users[userID] {
		data[k] = v
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, data
}

// Factory serves every session from one process-wide Store.
var Factory = NewFactory(NewStore())

// NewFactory returns an adapter.Factory backed by store.
func NewFactory(store *Store) adapter.Factory {
	return func(_ context.Context, params adapter.Params) (adapter.Adapter, error) {
		return New(store, params.UserID), nil
	}
}

// Adapter is one user's view of the Store.
type Adapter struct {
	store  *Store
	userID string
	tools  *adapter.ToolSet
}

// New creates an adapter for userID.
func New(store *Store, userID string) *Adapter {
	a := &Adapter{store: store, userID: userID}
	a.tools = adapter.NewToolSet().
		Add(mcp.NewTool("store-data",
			mcp.WithDescription("Store a key-value pair in the server"),
			mcp.WithString("key", mcp.Required()),
			mcp.WithString("value", mcp.Required()),
		), a.storeData).
		Add(mcp.NewTool("retrieve-data",
			mcp.WithDescription("Retrieve a value by its key"),
			mcp.WithString("key", mcp.Required()),
		), a.retrieveData).
		Add(mcp.NewTool("list-data",
			mcp.WithDescription("List all stored key-value pairs"),
		), a.listData)
	return a
}

// ListResources exposes each stored key as a resource.
func (a *Adapter) ListResources(context.Context, string) (*adapter.ResourcePage, error) {
	keys, _ := a.store.snapshot(a.userID)
	resources := make([]mcp.Resource, 0, len(keys))
	for _, k := range keys {
		resources = append(resources, mcp.NewResource(uriPrefix+k, k, mcp.WithMIMEType("text/plain")))
	}
	return &adapter.ResourcePage{Resources: resources}, nil
}

// ReadResource returns the stored value for a simple-tools:///{key} URI.
func (a *Adapter) ReadResource(_ context.Context, uri string) ([]mcp.ResourceContents, error) {
	key, ok := strings.CutPrefix(uri, uriPrefix)
	if !ok || key == "" {
		return adapter.TextContents(uri, "text/plain", "Invalid URI format: "+uri), nil
	}
	value, ok := a.store.get(a.userID, key)
	if !ok {
		return adapter.TextContents(uri, "text/plain", fmt.Sprintf("Key '%s' not found", key)), nil
	}
	return adapter.TextContents(uri, "text/plain", value), nil
}

// ListTools returns the store tools.
func (a *Adapter) ListTools() []mcp.Tool {
	return a.tools.Tools()
}

// CallTool runs the named tool.
func (a *Adapter) CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	logger.Debugw("calling tool", "service", ServiceName, "user", a.userID, "tool", name)
	return a.tools.Call(ctx, name, args)
}

func (a *Adapter) storeData(_ context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	key, value := adapter.StringArg(args, "key"), adapter.StringArg(args, "value")
	if key == "" || value == "" {
		return nil, adapter.InvalidArgumentError("Missing key or value")
	}
	a.store.put(a.userID, key, value)
	return adapter.TextResult("Stored '%s' with value: %s", key, value), nil
}

func (a *Adapter) retrieveData(_ context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	key := adapter.StringArg(args, "key")
	if key == "" {
		return nil, adapter.InvalidArgumentError("Missing key")
	}
	value, ok := a.store.get(a.userID, key)
	if !ok {
		return adapter.TextResult("Key '%s' not found", key), nil
	}
	return adapter.TextResult("Value for '%s': %s", key, value), nil
}

func (a *Adapter) listData(context.Context, map[string]any) (*mcp.CallToolResult, error) {
	keys, data := a.store.snapshot(a.userID)
	if len(keys) == 0 {
		return adapter.TextResult("No data stored"), nil
	}
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("- %s: %s", k, data[k]))
	}
	return adapter.TextResult("Stored data:\n%s", strings.Join(lines, "\n")), nil
}
