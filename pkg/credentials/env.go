// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package credentials

import (
	"context"
	"strings"

	"github.com/stacklok/toolhive-core/env"
)

// EnvPrefix prefixes the variables read by EnvProvider.
const EnvPrefix = "MCPBRIDGE_"

// EnvProvider reads bearer tokens from MCPBRIDGE_<SERVICE>_<USER>_TOKEN. It
// cannot store credentials.
type EnvProvider struct {
	env env.Reader
}

// NewEnvProvider creates an EnvProvider reading the process environment.
func NewEnvProvider() *EnvProvider {
	return NewEnvProviderWithReader(&env.OSReader{})
}

// NewEnvProviderWithReader creates an EnvProvider with an injectable reader.
func NewEnvProviderWithReader(reader env.Reader) *EnvProvider {
	return &EnvProvider{env: reader}
}

// GetCredentials implements Resolver.
func (p *EnvProvider) GetCredentials(_ context.Context, service, userID string) (Credentials, error) {
	token := p.env.Getenv(EnvVarName(service, userID))
	if token == "" {
		return nil, ErrNotFound
	}
	return Credentials{"token": token}, nil
}

// SaveCredentials implements Resolver and always fails.
func (*EnvProvider) SaveCredentials(context.Context, string, string, Credentials) error {
	return ErrReadOnly
}

// EnvVarName returns the variable EnvProvider reads for service and userID.
func EnvVarName(service, userID string) string {
	return EnvPrefix + envSegment(service) + "_" + envSegment(userID) + "_TOKEN"
}

func envSegment(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, s)
}
