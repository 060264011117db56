// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const keyringService = "mcpbridge"

// KeyringProvider stores credentials in the operating system keyring under
// service "mcpbridge" and account "{service}/{userID}".
type KeyringProvider struct {
	service string
}

// NewKeyringProvider creates a KeyringProvider.
func NewKeyringProvider() *KeyringProvider {
	return &KeyringProvider{service: keyringService}
}

// GetCredentials implements Resolver.
func (p *KeyringProvider) GetCredentials(_ context.Context, service, userID string) (Credentials, error) {
	account, err := keyringAccount(service, userID)
	if err != nil {
		return nil, err
	}
	secret, err := keyring.Get(p.service, account)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read keyring: %w", err)
	}
	return decode([]byte(secret))
}

// SaveCredentials implements Resolver.
func (p *KeyringProvider) SaveCredentials(_ context.Context, service, userID string, creds Credentials) error {
	account, err := keyringAccount(service, userID)
	if err != nil {
		return err
	}
	data, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}
	if err := keyring.Set(p.service, account, string(data)); err != nil {
		return fmt.Errorf("failed to write keyring: %w", err)
	}
	return nil
}

func keyringAccount(service, userID string) (string, error) {
	if err := validatePathElement("service", service); err != nil {
		return "", err
	}
	if err := validatePathElement("user id", userID); err != nil {
		return "", err
	}
	return service + "/" + userID, nil
}
