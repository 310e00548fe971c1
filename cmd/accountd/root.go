// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/accountd/accountd/internal/config"
)

// NewRootCmd creates the root command for the accountd CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accountd",
		Short: "accountd - account management and authentication service",
		Long: `accountd provisions user accounts, authenticates credentials,
issues session tokens and manages the password lifecycle.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().String("config", "", "config file path (default $XDG_CONFIG_HOME/accountd/config.yaml if present)")
	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewSeedCmd())

	return cmd
}

// loadConfig reads the configuration for cmd from --config (or the XDG
// default file), flags and the environment.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	explicit, err := cmd.Flags().GetString("config")
	if err != nil {
		explicit = ""
	}
	path, err := config.ResolvePath(explicit)
	if err != nil {
		return nil, err //nolint:wrapcheck // already coded
	}
	//nolint:wrapcheck // config errors carry their own codes
	return config.Load(path, cmd.Flags())
}
