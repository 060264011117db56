// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stacklok/mcpbridge/pkg/config"
	"github.com/stacklok/mcpbridge/pkg/logger"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the bridge configuration",
	}
	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())
	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a configuration file with default values",
		Long: `Write a configuration file with default values. Without a path the file
is written to $XDG_CONFIG_HOME/mcpbridge/config.yaml.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			path, err := initPath(args)
			if err != nil {
				return err
			}
			return writeDefaultConfig(path, force)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}

func initPath(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	path, err := config.DefaultPath()
	if err != nil {
		return "", fmt.Errorf("unable to fetch config path: %w", err)
	}
	return path, nil
}

func writeDefaultConfig(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists; use --force to overwrite", path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to stat config file: %w", err)
	}
	if err := config.Default().Save(path); err != nil {
		return err
	}
	logger.Infof("Wrote default configuration to %s", path)
	return nil
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			out, err := cfg.Redacted().Marshal()
			if err != nil {
				return err
			}
			cmd.Print(string(out))
			return nil
		},
	}
}
