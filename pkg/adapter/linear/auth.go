// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package linear

import (
	"context"
	"fmt"

	"github.com/stacklok/mcpbridge/pkg/adapter"
	"github.com/stacklok/mcpbridge/pkg/credentials"
	mcperrors "github.com/stacklok/mcpbridge/pkg/errors"
	"github.com/stacklok/mcpbridge/pkg/logger"
	"github.com/stacklok/mcpbridge/pkg/oauth"
)

// Authenticate runs the browser-based OAuth flow against linear.app.
var Authenticate = NewAuthenticator(Options{})

// NewAuthenticator returns an adapter.Authenticator that runs the OAuth
// authorization code flow with the client registration stored for the
// service and saves the resulting token.
func NewAuthenticator(opts Options, flowOpts ...oauth.Option) adapter.Authenticator {
	opts = opts.withDefaults()
	return func(ctx context.Context, params adapter.AuthParams) error {
		if params.Credentials == nil {
			return mcperrors.NewConfigurationError("no credential resolver configured", nil)
		}
		if params.OAuthConfigs == nil {
			return mcperrors.NewConfigurationError("no OAuth client registration source configured", nil)
		}
		cfg, err := params.OAuthConfigs.GetOAuthConfig(ctx, params.Service)
		if err != nil {
			return mcperrors.NewConfigurationError(
				fmt.Sprintf("no OAuth client registration for %s", params.Service), err)
		}
		if err := cfg.Validate(); err != nil {
			return mcperrors.NewConfigurationError("invalid OAuth client registration", err)
		}

		redirect := cfg.RedirectURI
		if redirect == "" {
			redirect = oauth.DefaultRedirectURL
		}
		flow, err := oauth.NewFlow(&oauth.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  redirect,
			AuthURL:      opts.AuthURL,
			TokenURL:     opts.TokenURL,
			Scopes:       Scopes,
			Title:        "Linear",
		}, flowOpts...)
		if err != nil {
			return mcperrors.NewConfigurationError("failed to set up the OAuth flow", err)
		}

		token, err := flow.Start(ctx)
		if err != nil {
			return mcperrors.NewCredentialError("linear authorization failed", err)
		}
		if err := params.Credentials.SaveCredentials(ctx, params.Service, params.UserID,
			credentials.FromOAuth2Token(token)); err != nil {
			return fmt.Errorf("failed to save linear credentials: %w", err)
		}
		logger.Infof("Authentication successful for user %s. You can now run the server.", params.UserID)
		return nil
	}
}
