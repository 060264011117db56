// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package registry holds the set of adapters the bridge can serve.
package registry

import (
	"errors"
	"fmt"
	"slices"

	"github.com/stacklok/mcpbridge/pkg/adapter"
	"github.com/stacklok/mcpbridge/pkg/logger"
)

// Definition describes one adapter the bridge can serve.
type Definition struct {
	// Name is the service segment of the session URL.
	Name string

	// Factory builds an adapter for one session.
	Factory adapter.Factory

	// InitOptions describes the MCP server the adapter is served as.
	InitOptions func() adapter.InitOptions

	// Authenticate runs the interactive credential flow. Optional.
	Authenticate adapter.Authenticator
}

// Entry is a loaded definition with its resolved init options.
type Entry struct {
	Definition
	Options adapter.InitOptions
}

// Registry is an immutable name to adapter mapping.
type Registry struct {
	entries map[string]*Entry
	names   []string
}

// Discover loads defs. Definitions that are incomplete, duplicated or whose
// InitOptions panics are skipped with a warning; the rest still load.
func Discover(defs ...Definition) *Registry {
	r := &Registry{entries: make(map[string]*Entry, len(defs))}
	for _, def := range defs {
		entry, err := load(def)
		if err != nil {
			logger.Warnw("skipping adapter", "adapter", def.Name, "error", err)
			continue
		}
		if _, dup := r.entries[def.Name]; dup {
			logger.Warnw("skipping adapter", "adapter", def.Name, "error", "duplicate name")
			continue
		}
		r.entries[def.Name] = entry
		r.names = append(r.names, def.Name)
		logger.Debugw("loaded adapter", "adapter", def.Name,
			"server", entry.Options.ServerName, "version", entry.Options.ServerVersion)
	}
	slices.Sort(r.names)
	return r
}

func load(def Definition) (entry *Entry, err error) {
	switch {
	case def.Name == "":
		return nil, errors.New("empty name")
	case def.Factory == nil:
		return nil, errors.New("no factory")
	case def.InitOptions == nil:
		return nil, errors.New("no init options")
	}

	defer func() {
		if r := recover(); r != nil {
			entry, err = nil, fmt.Errorf("init options panicked: %v", r)
		}
	}()
	opts := def.InitOptions()
	if opts.ServerName == "" {
		opts.ServerName = def.Name
	}
	return &Entry{Definition: def, Options: opts}, nil
}

// Get returns the entry registered under name.
func (r *Registry) Get(name string) (*Entry, bool) {
	e, ok := r.entries[name]
	return e, ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	return slices.Clone(r.names)
}

// Len returns the number of registered adapters.
func (r *Registry) Len() int {
	return len(r.names)
}
