// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/mcpbridge/pkg/adapter"
)

func stubFactory(context.Context, adapter.Params) (adapter.Adapter, error) {
	return nil, nil
}

func opts(name string) func() adapter.InitOptions {
	return func() adapter.InitOptions {
		return adapter.InitOptions{ServerName: name, ServerVersion: "1.0.0"}
	}
}

func TestDiscover_SkipsBrokenDefinitions(t *testing.T) {
	t.Parallel()

	reg := Discover(
		Definition{Name: "zeta", Factory: stubFactory, InitOptions: opts("zeta-server")},
		Definition{Name: "", Factory: stubFactory, InitOptions: opts("anon")},
		Definition{Name: "nofactory", InitOptions: opts("x")},
		Definition{Name: "noopts", Factory: stubFactory},
		Definition{Name: "panics", Factory: stubFactory, InitOptions: func() adapter.InitOptions {
			panic("boom")
		}},
		Definition{Name: "alpha", Factory: stubFactory, InitOptions: func() adapter.InitOptions {
			return adapter.InitOptions{}
		}},
		Definition{Name: "zeta", Factory: stubFactory, InitOptions: opts("second-zeta")},
	)

	assert.Equal(t, []string{"alpha", "zeta"}, reg.Names())
	assert.Equal(t, 2, reg.Len())

	zeta, ok := reg.Get("zeta")
	require.True(t, ok)
	assert.Equal(t, "zeta-server", zeta.Options.ServerName)

	alpha, ok := reg.Get("alpha")
	require.True(t, ok)
	assert.Equal(t, "alpha", alpha.Options.ServerName)

	_, ok = reg.Get("panics")
	assert.False(t, ok)
}

func TestRegistry_NamesIsACopy(t *testing.T) {
	t.Parallel()

	reg := Discover(Definition{Name: "a", Factory: stubFactory, InitOptions: opts("a")})
	names := reg.Names()
	names[0] = "mutated"
	assert.Equal(t, []string{"a"}, reg.Names())
}

func TestBuiltins(t *testing.T) {
	t.Parallel()

	reg := Discover(Builtins()...)
	assert.Equal(t, []string{"discord", "linear", "simple-tools"}, reg.Names())

	discord, ok := reg.Get("discord")
	require.True(t, ok)
	assert.Equal(t, "discord-server", discord.Options.ServerName)
	assert.NotNil(t, discord.Authenticate)

	simple, ok := reg.Get("simple-tools")
	require.True(t, ok)
	assert.Nil(t, simple.Authenticate)
}

func TestFilter(t *testing.T) {
	t.Parallel()

	all := Builtins()
	assert.Len(t, Filter(all, nil), 3)

	var names []string
	for _, def := range Filter(all, []string{"linear", "unknown"}) {
		names = append(names, def.Name)
	}
	assert.Equal(t, []string{"linear"}, names)
}
