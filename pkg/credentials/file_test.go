// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package credentials

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileProvider_SaveAndGet(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	p := NewFileProvider(dir, t.TempDir())
	ctx := context.Background()

	_, err := p.GetCredentials(ctx, "discord", "alice")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, p.SaveCredentials(ctx, "discord", "alice", Credentials{"token": "t-1"}))

	path := filepath.Join(dir, "discord", "alice_credentials.json")
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	got, err := p.GetCredentials(ctx, "discord", "alice")
	require.NoError(t, err)
	assert.Equal(t, "t-1", got.Token())

	// overwrite
	require.NoError(t, p.SaveCredentials(ctx, "discord", "alice", Credentials{"token": "t-2"}))
	got, err = p.GetCredentials(ctx, "discord", "alice")
	require.NoError(t, err)
	assert.Equal(t, "t-2", got.Token())

	// other users are isolated
	_, err = p.GetCredentials(ctx, "discord", "bob")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileProvider_RejectsPathTraversal(t *testing.T) {
	t.Parallel()

	p := NewFileProvider(t.TempDir(), t.TempDir())
	ctx := context.Background()

	for _, user := range []string{"", ".", "..", "../x", `a\b`, "a/b"} {
		_, err := p.GetCredentials(ctx, "discord", user)
		assert.Error(t, err, "user %q", user)
		assert.NotErrorIs(t, err, ErrNotFound, "user %q", user)
	}
	assert.Error(t, p.SaveCredentials(ctx, "../etc", "alice", Credentials{}))
}

func TestFileProvider_GetOAuthConfig(t *testing.T) {
	t.Parallel()

	oauthDir := t.TempDir()
	p := NewFileProvider(t.TempDir(), oauthDir)
	ctx := context.Background()

	_, err := p.GetOAuthConfig(ctx, "linear")
	require.ErrorIs(t, err, ErrOAuthConfigNotFound)

	require.NoError(t, os.MkdirAll(filepath.Join(oauthDir, "linear"), 0700))
	require.NoError(t, os.WriteFile(
		filepath.Join(oauthDir, "linear", "oauth.json"),
		[]byte(`{"client_id":"cid","client_secret":"cs","redirect_uri":"http://localhost:8080/callback"}`),
		0600,
	))

	cfg, err := p.GetOAuthConfig(ctx, "linear")
	require.NoError(t, err)
	assert.Equal(t, "cid", cfg.ClientID)
	assert.Equal(t, "cs", cfg.ClientSecret)
	assert.Equal(t, "http://localhost:8080/callback", cfg.RedirectURI)
}

func TestFileProvider_CorruptFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	p := NewFileProvider(dir, t.TempDir())
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "linear"), 0700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "linear", "u_credentials.json"), []byte("{"), 0600))

	_, err := p.GetCredentials(context.Background(), "linear", "u")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}
