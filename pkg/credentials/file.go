// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/adrg/xdg"
)

const (
	credentialsFileSuffix = "_credentials.json"
	oauthConfigFileName   = "oauth.json"
)

// DefaultCredentialsDir returns the directory the file provider uses when
// none is configured.
func DefaultCredentialsDir() string {
	return filepath.Join(xdg.DataHome, "mcpbridge", "credentials")
}

// DefaultOAuthConfigDir returns the directory OAuth client registrations are
// read from when none is configured.
func DefaultOAuthConfigDir() string {
	return filepath.Join(xdg.ConfigHome, "mcpbridge", "oauth")
}

// FileProvider stores credentials as one JSON file per user:
// {dir}/{service}/{userID}_credentials.json. OAuth client registrations live
// at {oauthDir}/{service}/oauth.json.
type FileProvider struct {
	dir      string
	oauthDir string

	// serializes writers; readers see either the old or the new file
	mu sync.Mutex
}

// NewFileProvider creates a FileProvider. Empty directories select the XDG
// defaults.
func NewFileProvider(dir, oauthDir string) *FileProvider {
	if dir == "" {
		dir = DefaultCredentialsDir()
	}
	if oauthDir == "" {
		oauthDir = DefaultOAuthConfigDir()
	}
	return &FileProvider{dir: dir, oauthDir: oauthDir}
}

// GetCredentials implements Resolver.
func (p *FileProvider) GetCredentials(_ context.Context, service, userID string) (Credentials, error) {
	path, err := p.credentialsPath(service, userID)
	if err != nil {
		return nil, err
	}

	// #nosec G304 - path components are validated by credentialsPath
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}
	return decode(data)
}

// SaveCredentials implements Resolver. The file is written to a temporary
// name and renamed into place.
func (p *FileProvider) SaveCredentials(_ context.Context, service, userID string, creds Credentials) error {
	path, err := p.credentialsPath(service, userID)
	if err != nil {
		return err
	}

	data, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create credentials directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".creds-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary credentials file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0600); err != nil {
		return fmt.Errorf("failed to set credentials file mode: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move credentials into place: %w", err)
	}
	return nil
}

// GetOAuthConfig implements OAuthConfigSource.
func (p *FileProvider) GetOAuthConfig(_ context.Context, service string) (*OAuthConfig, error) {
	if err := validatePathElement("service", service); err != nil {
		return nil, err
	}
	path := filepath.Join(p.oauthDir, service, oauthConfigFileName)

	// #nosec G304 - service is validated above
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w for %s at %s", ErrOAuthConfigNotFound, service, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read OAuth config: %w", err)
	}

	var cfg OAuthConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode OAuth config %s: %w", path, err)
	}
	return &cfg, nil
}

func (p *FileProvider) credentialsPath(service, userID string) (string, error) {
	if err := validatePathElement("service", service); err != nil {
		return "", err
	}
	if err := validatePathElement("user id", userID); err != nil {
		return "", err
	}
	return filepath.Join(p.dir, service, userID+credentialsFileSuffix), nil
}

func validatePathElement(what, value string) error {
	if value == "" {
		return fmt.Errorf("%s cannot be empty", what)
	}
	if value == "." || value == ".." || strings.ContainsAny(value, `/\`) {
		return fmt.Errorf("invalid %s: %q", what, value)
	}
	return nil
}
