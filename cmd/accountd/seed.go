// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/accountd/accountd/internal/accounts"
	"github.com/accountd/accountd/internal/accounts/postgres"
	"github.com/accountd/accountd/pkg/errutil"
)

const defaultSeedTimeout = 30 * time.Second

// seedFile is the YAML document read by the seed command.
type seedFile struct {
	Accounts []seedAccount `yaml:"accounts"`
}

type seedAccount struct {
	FirstName string   `yaml:"firstName"`
	LastName  string   `yaml:"lastName"`
	UserName  string   `yaml:"userName"`
	Email     string   `yaml:"email"`
	Role      string   `yaml:"role"`
	Groups    []string `yaml:"group"`
}

func (a seedAccount) request() accounts.CreateAccountRequest {
	return accounts.CreateAccountRequest{
		FirstName: a.FirstName,
		LastName:  a.LastName,
		UserName:  a.UserName,
		Email:     a.Email,
		Role:      a.Role,
		Groups:    a.Groups,
	}
}

// accountCreator is the part of AccountService the seed command uses.
type accountCreator interface {
	CreateAccount(ctx context.Context, requester *accounts.Requester, req accounts.CreateAccountRequest) (*accounts.Profile, error)
}

// seedResult counts what a seed run did.
type seedResult struct {
	Created int
	Skipped int
}

// NewSeedCmd creates the seed subcommand.
func NewSeedCmd() *cobra.Command {
	var (
		file    string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create bootstrap accounts from a YAML file",
		Long: `Creates the accounts listed in a YAML file as the system requester.
Each new account receives a one-time password through the configured mail
driver. Accounts whose username or email already exist are skipped, so the
command is idempotent.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSeed(cmd, file, timeout)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML file with an accounts list")
	cmd.Flags().DurationVar(&timeout, "timeout", defaultSeedTimeout, "timeout for the whole run (e.g., 30s, 1m)")
	//nolint:errcheck // flag is registered above
	cmd.MarkFlagRequired("file")

	return cmd
}

func readSeedFile(path string) ([]seedAccount, error) {
	data, err := os.ReadFile(path) //nolint:gosec // operator-supplied path
	if err != nil {
		return nil, oops.Code("SEED_READ_FAILED").With("path", path).Wrap(err)
	}
	var doc seedFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, oops.Code("SEED_PARSE_FAILED").With("path", path).Wrap(err)
	}
	return doc.Accounts, nil
}

func runSeed(cmd *cobra.Command, file string, timeout time.Duration) error {
	entries, err := readSeedFile(file)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Database.URL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("database url is required (set database.url or DATABASE_URL)")
	}
	logger, err := setupLogger(cfg.Log)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	pool, err := connect(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	notifier, err := newNotifier(cfg.Mail, cmd.OutOrStdout(), nil, logger)
	if err != nil {
		return err
	}
	a, err := newApp(postgres.NewAccountRepository(pool), notifier, nil, logger)
	if err != nil {
		return oops.Code("SEED_INIT_FAILED").Wrap(err)
	}

	res, err := seedAccounts(ctx, a.accounts, entries, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	cmd.Printf("Seed complete: %d created, %d skipped\n", res.Created, res.Skipped)
	return nil
}

// seedAccounts creates each entry as the system requester. Existing
// usernames and emails are reported and skipped; any other failure stops
// the run.
func seedAccounts(ctx context.Context, creator accountCreator, entries []seedAccount, out io.Writer) (seedResult, error) {
	var res seedResult
	for i, entry := range entries {
		profile, err := creator.CreateAccount(ctx, accounts.SystemRequester(), entry.request())
		switch {
		case err == nil:
			res.Created++
			fmt.Fprintf(out, "created %s (%s)\n", profile.Username, profile.ID)
		case errutil.HasCode(err, accounts.CodeDuplicateEmail), errutil.HasCode(err, accounts.CodeDuplicateUsername):
			res.Skipped++
			fmt.Fprintf(out, "skipped %s: already exists\n", entry.UserName)
		default:
			return res, oops.Code("SEED_FAILED").
				With("entry", i).
				With("username", entry.UserName).
				Wrap(err)
		}
	}
	return res, nil
}
