package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pharmassist-medsafety/internal/middleware"
)

func newTokenCmd(opts *rootOptions) *cobra.Command {
	var (
		email       string
		displayName string
		ttl         time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Issue a bearer token for local testing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := opts.loadConfig()
			if err != nil {
				return err
			}
			auth, err := middleware.NewAuthenticator(cfg.Auth)
			if err != nil {
				return err
			}
			token, err := auth.Issue(args[0], email, displayName, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email claim")
	cmd.Flags().StringVar(&displayName, "name", "", "display name claim")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}
