// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package credentials resolves per-user secrets for service adapters.
//
// A Resolver reads and writes one JSON credential blob per (service, user)
// pair. Several storage backends are provided; which one a process uses is
// selected by configuration (see NewResolver).
package credentials

//go:generate mockgen -destination=mocks/mock_resolver.go -package=mocks -source=credentials.go Resolver,OAuthConfigSource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2"
)

var (
	// ErrNotFound is returned when no credentials are stored for a user.
	ErrNotFound = errors.New("credentials not found")

	// ErrReadOnly is returned by providers that cannot persist credentials.
	ErrReadOnly = errors.New("credential provider is read-only")

	// ErrOAuthConfigNotFound is returned when a service has no OAuth client configured.
	ErrOAuthConfigNotFound = errors.New("oauth config not found")
)

// Resolver supplies and stores per-user credentials for a service.
type Resolver interface {
	// GetCredentials returns the stored credentials, or ErrNotFound.
	GetCredentials(ctx context.Context, service, userID string) (Credentials, error)

	// SaveCredentials stores creds, replacing any previous value.
	SaveCredentials(ctx context.Context, service, userID string, creds Credentials) error
}

// OAuthConfig is the OAuth client registration used by a service's auth flow.
type OAuthConfig struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	RedirectURI  string `json:"redirect_uri,omitempty"`
}

// Validate reports whether the client registration is usable.
func (c *OAuthConfig) Validate() error {
	if c.ClientID == "" || c.ClientSecret == "" {
		return errors.New("missing client_id or client_secret in OAuth config")
	}
	return nil
}

// OAuthConfigSource returns OAuth client registrations per service.
type OAuthConfigSource interface {
	GetOAuthConfig(ctx context.Context, service string) (*OAuthConfig, error)
}

// Credentials is the JSON object stored for one user of one service.
type Credentials map[string]any

// Get returns the string value stored under key, or "".
func (c Credentials) Get(key string) string {
	if v, ok := c[key].(string); ok {
		return v
	}
	return ""
}

// Token returns the bearer token. Both the "token" and the OAuth
// "access_token" layouts are accepted.
func (c Credentials) Token() string {
	if t := c.Get("token"); t != "" {
		return t
	}
	return c.Get("access_token")
}

// RefreshToken returns the OAuth refresh token, if any.
func (c Credentials) RefreshToken() string {
	return c.Get("refresh_token")
}

// ExpiresAt returns the token expiry stored as unix seconds under
// "expires_at". The zero time means the token does not expire.
func (c Credentials) ExpiresAt() time.Time {
	var secs int64
	switch v := c["expires_at"].(type) {
	case float64:
		secs = int64(v)
	case int64:
		secs = v
	case int:
		secs = int64(v)
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return time.Time{}
		}
		secs = n
	default:
		return time.Time{}
	}
	if secs <= 0 {
		return time.Time{}
	}
	return time.Unix(secs, 0)
}

// OAuth2Token converts the blob into an oauth2 token.
func (c Credentials) OAuth2Token() *oauth2.Token {
	tokenType := c.Get("token_type")
	if tokenType == "" {
		tokenType = "Bearer"
	}
	return &oauth2.Token{
		AccessToken:  c.Token(),
		RefreshToken: c.RefreshToken(),
		TokenType:    tokenType,
		Expiry:       c.ExpiresAt(),
	}
}

// FromOAuth2Token builds the stored representation of tok.
func FromOAuth2Token(tok *oauth2.Token) Credentials {
	creds := Credentials{
		"access_token": tok.AccessToken,
		"token_type":   tok.TokenType,
	}
	if tok.RefreshToken != "" {
		creds["refresh_token"] = tok.RefreshToken
	}
	if !tok.Expiry.IsZero() {
		creds["expires_at"] = tok.Expiry.Unix()
	}
	return creds
}

// Clone returns a shallow copy of c.
func (c Credentials) Clone() Credentials {
	out := make(Credentials, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

func decode(data []byte) (Credentials, error) {
	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("failed to decode credentials: %w", err)
	}
	if creds == nil {
		return nil, ErrNotFound
	}
	return creds, nil
}

type apiKeyContextKey struct{}

// WithAPIKey attaches a per-connection API key to ctx. Providers that call a
// remote credential service use it in place of their configured key.
func WithAPIKey(ctx context.Context, apiKey string) context.Context {
	if apiKey == "" {
		return ctx
	}
	return context.WithValue(ctx, apiKeyContextKey{}, apiKey)
}

// APIKeyFromContext returns the API key set by WithAPIKey, if any.
func APIKeyFromContext(ctx context.Context) (string, bool) {
	key, ok := ctx.Value(apiKeyContextKey{}).(string)
	return key, ok && key != ""
}
