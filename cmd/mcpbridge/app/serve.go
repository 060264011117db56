// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/stacklok/mcpbridge/pkg/config"
	"github.com/stacklok/mcpbridge/pkg/credentials"
	"github.com/stacklok/mcpbridge/pkg/logger"
	"github.com/stacklok/mcpbridge/pkg/registry"
	"github.com/stacklok/mcpbridge/pkg/router"
	"github.com/stacklok/mcpbridge/pkg/session"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP bridge",
		Long: `Start the MCP bridge and serve every enabled adapter.

Clients open an SSE stream at GET /{service}/{user}[:{api-key}] and post
JSON-RPC messages to the endpoint announced in the first event.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
	addServeFlags(cmd.Flags())
	return cmd
}

func addServeFlags(fs *pflag.FlagSet) {
	fs.String("host", "0.0.0.0", "Host to bind to")
	fs.Int("port", 8000, "Port to listen on")
}

func runServe(cmd *cobra.Command, _ []string) error {
	// root and serve both define these; bind the running command's flags
	for _, name := range []string{"host", "port"} {
		if err := viper.BindPFlag(name, cmd.Flags().Lookup(name)); err != nil {
			return fmt.Errorf("failed to bind %s flag: %w", name, err)
		}
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	return serve(cmd.Context(), cfg)
}

func serve(ctx context.Context, cfg *config.Config) error {
	creds, err := credentials.NewStore(ctx, cfg.CredentialsConfig())
	if err != nil {
		return fmt.Errorf("failed to create credential provider: %w", err)
	}
	defer func() {
		if err := creds.Close(); err != nil {
			logger.Warnf("failed to close credential provider: %v", err)
		}
	}()

	reg := registry.Discover(registry.Filter(registry.Builtins(), cfg.Adapters.Enabled)...)
	if reg.Len() == 0 {
		return errors.New("no adapters enabled; check adapters.enabled in the configuration")
	}

	store := session.NewStore(session.WithConstructTimeout(cfg.ConstructTimeout))
	r := router.New(reg, store, creds.Resolver,
		router.WithOAuthConfigs(creds.OAuthConfigSource),
		router.WithMetrics(router.NewMetrics(store.Len)),
		router.WithKeepAlive(cfg.KeepAlive),
	)
	srv := router.NewServer(r, cfg.Host, cfg.Port)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start(gctx)
	})
	g.Go(func() error {
		select {
		case <-srv.Ready():
			logger.Infow("MCP bridge ready",
				"address", srv.Address(),
				"credentials", cfg.Credentials.Provider,
				"adapters", reg.Names())
		case <-gctx.Done():
		}
		return nil
	})
	return g.Wait()
}
