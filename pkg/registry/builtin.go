// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"slices"

	"github.com/stacklok/mcpbridge/pkg/adapter/discord"
	"github.com/stacklok/mcpbridge/pkg/adapter/linear"
	"github.com/stacklok/mcpbridge/pkg/adapter/simpletools"
)

// Builtins returns the definitions of the adapters shipped with the bridge.
func Builtins() []Definition {
	return []Definition{
		{
			Name:         discord.ServiceName,
			Factory:      discord.Factory,
			InitOptions:  discord.InitOptions,
			Authenticate: discord.Authenticate,
		},
		{
			Name:         linear.ServiceName,
			Factory:      linear.Factory,
			InitOptions:  linear.InitOptions,
			Authenticate: linear.Authenticate,
		},
		{
			Name:        simpletools.ServiceName,
			Factory:     simpletools.Factory,
			InitOptions: simpletools.InitOptions,
		},
	}
}

// Filter keeps the definitions named in enabled. An empty list keeps all.
func Filter(defs []Definition, enabled []string) []Definition {
	if len(enabled) == 0 {
		return defs
	}
	out := make([]Definition, 0, len(defs))
	for _, def := range defs {
		if slices.Contains(enabled, def.Name) {
			out = append(out, def)
		}
	}
	return out
}
