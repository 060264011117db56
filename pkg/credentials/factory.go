// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package credentials

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/stacklok/toolhive-core/httperr"
)

// ProviderType represents an enum of the available credential providers.
type ProviderType string

const (
	// FileType stores credentials as JSON files on local disk.
	FileType ProviderType = "file"

	// RemoteType reads and writes credentials through an HTTP credential service.
	RemoteType ProviderType = "remote"

	// KeyringType stores credentials in the OS keyring.
	KeyringType ProviderType = "keyring"

	// RedisType stores credentials in Redis.
	RedisType ProviderType = "redis"

	// EnvironmentType reads bearer tokens from environment variables.
	EnvironmentType ProviderType = "env"
)

// ErrUnknownProviderType is returned when an invalid value for ProviderType is specified.
var ErrUnknownProviderType = httperr.WithCode(
	errors.New("unknown credential provider type"),
	http.StatusBadRequest,
)

// Config selects and configures a credential provider.
type Config struct {
	Provider ProviderType
	// Dir is the file provider's credentials directory.
	Dir string
	// OAuthDir holds per-service OAuth client registrations for every provider.
	OAuthDir string
	Remote   RemoteConfig
	Redis    RedisConfig
}

// Store bundles the configured Resolver with the OAuth client registrations.
type Store struct {
	Resolver
	OAuthConfigSource

	closer func() error
}

// Close releases provider resources.
func (s *Store) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}

// NewStore builds the provider named by cfg.Provider. OAuth client
// registrations are always read from cfg.OAuthDir.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	files := NewFileProvider(cfg.Dir, cfg.OAuthDir)
	store := &Store{OAuthConfigSource: files}

	switch cfg.Provider {
	case FileType, "":
		store.Resolver = files
	case RemoteType:
		remote, err := NewRemoteProvider(cfg.Remote)
		if err != nil {
			return nil, err
		}
		store.Resolver = remote
	case KeyringType:
		store.Resolver = NewKeyringProvider()
	case RedisType:
		rp, err := NewRedisProvider(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		store.Resolver = rp
		store.closer = rp.Close
	case EnvironmentType:
		store.Resolver = NewEnvProvider()
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProviderType, cfg.Provider)
	}
	return store, nil
}
