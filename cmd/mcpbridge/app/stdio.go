// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/stacklok/mcpbridge/pkg/config"
	"github.com/stacklok/mcpbridge/pkg/credentials"
	"github.com/stacklok/mcpbridge/pkg/logger"
	"github.com/stacklok/mcpbridge/pkg/registry"
	"github.com/stacklok/mcpbridge/pkg/router"
	"github.com/stacklok/mcpbridge/pkg/session"
	"github.com/stacklok/mcpbridge/pkg/transport"
)

func newStdioCmd() *cobra.Command {
	var userID, apiKey string
	cmd := &cobra.Command{
		Use:   "stdio <service>",
		Short: "Serve one adapter to a local client over stdin and stdout",
		Long: `Serve one adapter for one user over newline-delimited JSON-RPC on stdin
and stdout, for MCP clients that launch the server as a subprocess. Logs go to
stderr. The command exits when stdin is closed.`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: registry.Discover(registry.Builtins()...).Names(),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger.SetOutput(os.Stderr)
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			reg := registry.Discover(registry.Filter(registry.Builtins(), cfg.Adapters.Enabled)...)
			key := session.Key{Service: args[0], UserID: userID, APIKey: apiKey}
			return serveStdio(cmd.Context(), cfg, reg, key, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&userID, "user", "u", "", "User ID whose credentials the adapter uses (required)")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "API key passed to the remote credentials provider")
	if err := cmd.MarkFlagRequired("user"); err != nil {
		logger.Errorf("Error marking user flag as required: %v", err)
	}
	return cmd
}

// serveStdio binds a single stdio connection for key and serves it until in
// is exhausted or ctx ends.
func serveStdio(
	ctx context.Context, cfg *config.Config, reg *registry.Registry, key session.Key, in io.Reader, out io.Writer,
) error {
	creds, err := credentials.NewStore(ctx, cfg.CredentialsConfig())
	if err != nil {
		return fmt.Errorf("failed to create credential provider: %w", err)
	}
	defer func() {
		if err := creds.Close(); err != nil {
			logger.Warnf("failed to close credential provider: %v", err)
		}
	}()

	r := router.New(reg, session.NewStore(session.WithConstructTimeout(cfg.ConstructTimeout)), creds.Resolver,
		router.WithOAuthConfigs(creds.OAuthConfigSource))
	defer func() {
		if err := r.Close(); err != nil {
			logger.Warnf("failed to close adapters: %v", err)
		}
	}()

	conn, err := r.Bind(ctx, key.Service, key.Encoded(), transport.NewStdio("stdio", in, out))
	if err != nil {
		return fmt.Errorf("failed to start %s: %w", key.Service, err)
	}
	logger.Infow("serving over stdio", "service", key.Service, "user", key.UserID)
	conn.Serve(ctx)
	return nil
}
