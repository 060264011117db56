// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"strings"

	mcperrors "github.com/stacklok/mcpbridge/pkg/errors"
)

// Key identifies one adapter instance: a service and the user (and optional
// API key) it acts for.
type Key struct {
	Service string
	UserID  string
	APIKey  string
}

// ParseKey parses the session segment of a URL, "userId" or "userId:apiKey".
// Only the first colon separates the two; the API key may contain colons.
func ParseKey(service, encoded string) (Key, error) {
	if service == "" {
		return Key{}, mcperrors.NewInvalidArgumentError("service must not be empty", nil)
	}
	userID, apiKey, _ := strings.Cut(encoded, ":")
	if userID == "" {
		return Key{}, mcperrors.NewInvalidArgumentError("session key must start with a user id", nil)
	}
	if strings.Contains(userID, "/") {
		return Key{}, mcperrors.NewInvalidArgumentError("user id must not contain '/'", nil)
	}
	return Key{Service: service, UserID: userID, APIKey: apiKey}, nil
}

// Encoded returns the URL segment form, the inverse of ParseKey.
func (k Key) Encoded() string {
	if k.APIKey == "" {
		return k.UserID
	}
	return k.UserID + ":" + k.APIKey
}

// String returns "service/userId[:apiKey]", the store key.
func (k Key) String() string {
	return k.Service + "/" + k.Encoded()
}

// Redacted is String with the API key masked, for logs and metrics.
func (k Key) Redacted() string {
	if k.APIKey == "" {
		return k.String()
	}
	return k.Service + "/" + k.UserID + ":***"
}
