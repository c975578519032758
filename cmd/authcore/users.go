// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authcore Contributors

package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/authcore/authcore/internal/auth"
	"github.com/authcore/authcore/pkg/authcore"
)

// serviceOpener opens the service used by one-shot commands. Tests replace it.
var serviceOpener = authcore.Open

// registerOutput is printed by the register command.
type registerOutput struct {
	ID        int64          `yaml:"id"`
	Name      string         `yaml:"name"`
	Email     string         `yaml:"email"`
	Confirmed bool           `yaml:"confirmed"`
	Warnings  []auth.Warning `yaml:"warnings,omitempty"`
}

// NewRegisterCmd creates the register subcommand.
func NewRegisterCmd() *cobra.Command {
	var in auth.RegisterInput

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a user and send the confirmation link",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withService(cmd, func(ctx context.Context, svc *authcore.Service) error {
				reg, err := svc.Register(ctx, in)
				if err != nil {
					return svc.Normalize(ctx, err)
				}
				return writeYAML(cmd.OutOrStdout(), registerOutput{
					ID:        reg.User.ID,
					Name:      reg.User.FullName(),
					Email:     reg.User.Email,
					Confirmed: reg.User.Confirmed,
					Warnings:  reg.Warnings,
				})
			})
		},
	}

	cmd.Flags().StringVar(&in.FirstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&in.LastName, "last-name", "", "last name")
	cmd.Flags().StringVar(&in.Email, "email", "", "email address")
	cmd.Flags().StringVar(&in.Password, "password", "", "password")
	for _, name := range []string{"first-name", "last-name", "email", "password"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

// NewConfirmCmd creates the confirm subcommand.
func NewConfirmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "confirm TOKEN",
		Short: "Redeem a confirmation token",
		Long:  `Redeem a confirmation token and print whether a user was confirmed.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, func(ctx context.Context, svc *authcore.Service) error {
				ok, err := svc.ConfirmUser(ctx, args[0])
				if err != nil {
					return svc.Normalize(ctx, err)
				}
				return writeYAML(cmd.OutOrStdout(), map[string]bool{"confirmed": ok})
			})
		},
	}
}

func withService(cmd *cobra.Command, fn func(context.Context, *authcore.Service) error) error {
	cfg, logger, err := bootstrap(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	svc, err := serviceOpener(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := svc.Close(); closeErr != nil {
			logger.Warn("error closing service", "error", closeErr)
		}
	}()
	return fn(ctx, svc)
}
