// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stacklok/mcpbridge/pkg/adapter"
	"github.com/stacklok/mcpbridge/pkg/config"
	"github.com/stacklok/mcpbridge/pkg/credentials"
	"github.com/stacklok/mcpbridge/pkg/logger"
	"github.com/stacklok/mcpbridge/pkg/registry"
)

func newAuthCmd() *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "auth <service>",
		Short: "Store credentials for a service user",
		Long: `Run the credential flow of a service and store the result for one user.

Linear opens a browser for OAuth authorization and waits for the callback.
Discord prompts for a bot token. simple-tools needs no credentials.`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: registry.Discover(registry.Builtins()...).Names(),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return authenticate(cmd.Context(), cfg, registry.Discover(registry.Builtins()...), args[0], userID)
		},
	}
	cmd.Flags().StringVarP(&userID, "user", "u", "", "User ID to store the credentials under (required)")
	if err := cmd.MarkFlagRequired("user"); err != nil {
		logger.Errorf("Error marking user flag as required: %v", err)
	}
	return cmd
}

func authenticate(ctx context.Context, cfg *config.Config, reg *registry.Registry, service, userID string) error {
	entry, ok := reg.Get(service)
	if !ok {
		return fmt.Errorf("unknown service %q (available: %v)", service, reg.Names())
	}
	if userID == "" {
		return errors.New("a user ID is required")
	}
	if entry.Authenticate == nil {
		logger.Infof("%s needs no credentials", service)
		return nil
	}

	creds, err := credentials.NewStore(ctx, cfg.CredentialsConfig())
	if err != nil {
		return fmt.Errorf("failed to create credential provider: %w", err)
	}
	defer func() {
		if err := creds.Close(); err != nil {
			logger.Warnf("failed to close credential provider: %v", err)
		}
	}()

	err = entry.Authenticate(ctx, adapter.AuthParams{
		Service:      service,
		UserID:       userID,
		Credentials:  creds.Resolver,
		OAuthConfigs: creds.OAuthConfigSource,
	})
	if err != nil {
		return fmt.Errorf("%s authentication failed: %w", service, err)
	}
	logger.Infof("Stored %s credentials for user %s", service, userID)
	return nil
}
