// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package adapter defines the contract every service integration implements
// and the helpers adapters share for argument handling and readiness.
package adapter

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/stacklok/mcpbridge/pkg/credentials"
	mcperrors "github.com/stacklok/mcpbridge/pkg/errors"
)

var (
	// ErrUnknownTool is returned by CallTool for a name ListTools does not offer.
	ErrUnknownTool = errors.New("unknown tool")

	// ErrInvalidArgument is returned by CallTool when required arguments are
	// missing or do not match the tool's input schema.
	ErrInvalidArgument = errors.New("invalid argument")
)

// Adapter exposes one service as MCP resources and tools.
//
// Domain failures from the upstream service (not found, permission denied,
// rate limited) are returned as text content with a nil error. A non-nil
// error from CallTool is a malformed request (ErrUnknownTool,
// ErrInvalidArgument) or a transport failure that cannot be expressed as
// content.
type Adapter interface {
	// ListResources enumerates resources starting at cursor ("" for the first page).
	ListResources(ctx context.Context, cursor string) (*ResourcePage, error)

	// ReadResource returns the content at uri. Malformed and unknown URIs
	// produce descriptive text content, not an error.
	ReadResource(ctx context.Context, uri string) ([]mcp.ResourceContents, error)

	// ListTools returns the static tool descriptors.
	ListTools() []mcp.Tool

	// CallTool invokes the named tool.
	CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error)
}

// ResourcePage is one page of ListResources output.
type ResourcePage struct {
	Resources  []mcp.Resource
	NextCursor string
}

// InitOptions describe the MCP server an adapter is served as.
type InitOptions struct {
	ServerName    string
	ServerVersion string
	Instructions  string
}

// Params carries what a Factory needs to build an adapter for one session.
type Params struct {
	Service     string
	UserID      string
	APIKey      string
	Credentials credentials.Resolver
	// OAuthConfigs is optional; adapters that refresh OAuth tokens need it.
	OAuthConfigs credentials.OAuthConfigSource
}

// Factory builds an adapter for one session. It resolves credentials and
// waits for any readiness signal the underlying client requires before
// returning; on error nothing is left running.
type Factory func(ctx context.Context, params Params) (Adapter, error)

// AuthParams carries what an interactive credential flow needs.
type AuthParams struct {
	Service      string
	UserID       string
	Credentials  credentials.Resolver
	OAuthConfigs credentials.OAuthConfigSource
}

// Authenticator runs a service's one-shot credential acquisition flow.
type Authenticator func(ctx context.Context, params AuthParams) error

// Close releases a's background resources if it holds any.
func Close(a Adapter) error {
	if c, ok := a.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

// LoadCredentials fetches the stored credentials for params and converts a
// missing entry into a CredentialError that tells the caller how to create it.
func LoadCredentials(ctx context.Context, params Params) (credentials.Credentials, error) {
	if params.Credentials == nil {
		return nil, mcperrors.NewConfigurationError("no credential resolver configured", nil)
	}
	creds, err := params.Credentials.GetCredentials(
		credentials.WithAPIKey(ctx, params.APIKey), params.Service, params.UserID)
	if errors.Is(err, credentials.ErrNotFound) {
		return nil, mcperrors.NewCredentialError(
			fmt.Sprintf("no stored credentials for %s user %s; run 'mcpbridge auth %s --user %s' first",
				params.Service, params.UserID, params.Service, params.UserID),
			err)
	}
	if err != nil {
		return nil, mcperrors.NewCredentialError("failed to load credentials", err)
	}
	return creds, nil
}
