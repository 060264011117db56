// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package app provides the entry point for the mcpbridge command-line application.
package app

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stacklok/mcpbridge/pkg/config"
	"github.com/stacklok/mcpbridge/pkg/logger"
	"github.com/stacklok/mcpbridge/pkg/versions"
)

// NewRootCmd creates the root command. Without a subcommand it serves.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:               "mcpbridge",
		DisableAutoGenTag: true,
		Short:             "Serve Discord, Linear and other services to MCP clients over SSE",
		Long: `mcpbridge exposes third-party services as Model Context Protocol (MCP) servers.

Each client connects to /{service}/{user}[:{api-key}] and gets its own adapter
instance, built on first use from that user's stored credentials and kept for
later connections. Run 'mcpbridge auth <service> --user <id>' once per user to
store credentials.`,
		RunE: runServe,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			logger.Initialize()
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug mode")
	if err := viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		logger.Errorf("Error binding debug flag: %v", err)
	}
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to the configuration file")
	if err := viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config")); err != nil {
		logger.Errorf("Error binding config flag: %v", err)
	}
	addServeFlags(rootCmd.Flags())

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newStdioCmd())
	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			info := versions.GetVersionInfo()
			cmd.Printf("mcpbridge version: %s\n", info.Version)
			cmd.Printf("Commit: %s\n", info.Commit)
			cmd.Printf("Built: %s\n", info.BuildDate)
			cmd.Printf("Go version: %s\n", info.GoVersion)
			cmd.Printf("Platform: %s\n", info.Platform)
		},
	}
}

// loadConfig reads the configuration named by --config, or the default one.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.GetViper(), viper.GetString("config"))
	if err != nil {
		return nil, err
	}
	if cfg.Debug {
		// the file may enable debug after PersistentPreRun ran
		logger.Initialize()
	}
	return cfg, nil
}
