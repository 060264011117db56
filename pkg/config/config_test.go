// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/mcpbridge/pkg/credentials"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func TestLoad_File(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
host: 127.0.0.1
port: 9000
construct_timeout: 45s
keep_alive: 10s
credentials:
  provider: redis
  oauth_dir: /etc/mcpbridge/oauth
  redis:
    addr: localhost:6379
    db: 2
    key_prefix: "bridge:"
adapters:
  enabled: [discord, linear]
`)

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)

	want := Config{
		Host:             "127.0.0.1",
		Port:             9000,
		ConstructTimeout: 45 * time.Second,
		KeepAlive:        10 * time.Second,
		Credentials: Credentials{
			Provider: "redis",
			OAuthDir: "/etc/mcpbridge/oauth",
			Redis:    Redis{Addr: "localhost:6379", DB: 2, KeyPrefix: "bridge:"},
		},
		Adapters: Adapters{Enabled: []string{"discord", "linear"}},
	}
	if diff := cmp.Diff(want, *cfg); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	t.Parallel()

	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")
}

func TestLoad_InvalidFile(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "port: [not, a, number]\n")
	_, err := Load(viper.New(), path)
	assert.Error(t, err)
}

//nolint:paralleltest // replaces the package-level config search
func TestLoad_DefaultsWithoutFile(t *testing.T) {
	orig := searchConfigFile
	searchConfigFile = func() (string, error) { return "", errors.New("not found") }
	t.Cleanup(func() { searchConfigFile = orig })

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	if diff := cmp.Diff(Default(), *cfg, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

//nolint:paralleltest // uses t.Setenv
func TestLoad_EnvironmentOverrides(t *testing.T) {
	path := writeConfig(t, "port: 9000\ncredentials:\n  provider: file\n")
	t.Setenv("MCPBRIDGE_PORT", "9100")
	t.Setenv("MCPBRIDGE_CREDENTIALS_PROVIDER", "remote")
	t.Setenv("MCPBRIDGE_CREDENTIALS_REMOTE_BASE_URL", "https://creds.example.com")
	t.Setenv("MCPBRIDGE_CONSTRUCT_TIMEOUT", "5s")

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Port)
	assert.Equal(t, "remote", cfg.Credentials.Provider)
	assert.Equal(t, "https://creds.example.com", cfg.Credentials.Remote.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.ConstructTimeout)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "port out of range", mutate: func(c *Config) { c.Port = 70000 }, wantErr: "out of range"},
		{name: "zero construct timeout", mutate: func(c *Config) { c.ConstructTimeout = 0 }, wantErr: "construct_timeout"},
		{name: "negative keep alive", mutate: func(c *Config) { c.KeepAlive = -time.Second }, wantErr: "keep_alive"},
		{name: "remote without url", mutate: func(c *Config) { c.Credentials.Provider = "remote" }, wantErr: "base_url"},
		{name: "redis without addr", mutate: func(c *Config) { c.Credentials.Provider = "redis" }, wantErr: "redis.addr"},
		{name: "unknown provider", mutate: func(c *Config) { c.Credentials.Provider = "vault" }, wantErr: "unknown credential provider type"},
		{name: "keyring", mutate: func(c *Config) { c.Credentials.Provider = "keyring" }},
		{name: "env", mutate: func(c *Config) { c.Credentials.Provider = "env" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestCredentialsConfig(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Credentials = Credentials{
		Provider: "remote",
		Dir:      "/data/creds",
		Remote:   Remote{BaseURL: "https://creds.example.com", APIKey: "k", MaxTries: 5},
	}
	got := cfg.CredentialsConfig()
	assert.Equal(t, credentials.RemoteType, got.Provider)
	assert.Equal(t, "/data/creds", got.Dir)
	assert.Equal(t, "https://creds.example.com", got.Remote.BaseURL)
	assert.Equal(t, "k", got.Remote.APIKey)
	assert.Equal(t, uint(5), got.Remote.MaxTries)
}

func TestSaveAndReload(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Port = 8123
	cfg.Adapters.Enabled = []string{"simple-tools"}
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, cfg.Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := Load(viper.New(), path)
	require.NoError(t, err)
	if diff := cmp.Diff(cfg, *loaded, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("reloaded config mismatch (-want +got):\n%s", diff)
	}
}

func TestRedacted(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Credentials.Remote.APIKey = "secret"
	cfg.Credentials.Redis.Password = "hunter2"

	out, err := cfg.Redacted().Marshal()
	require.NoError(t, err)
	assert.NotContains(t, string(out), "secret")
	assert.NotContains(t, string(out), "hunter2")
	assert.Equal(t, "secret", cfg.Credentials.Remote.APIKey)
}
