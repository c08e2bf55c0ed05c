package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var errAuditDisabled = errors.New("the evaluation audit trail is disabled")

func newAuditCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect and maintain the evaluation audit trail",
	}

	var limit int
	history := &cobra.Command{
		Use:   "history <user-id>",
		Short: "Print the most recent evaluations of a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := opts.openBackend(cmd.Context())
			if err != nil {
				return err
			}
			defer b.Close()
			if b.audit == nil {
				return errAuditDisabled
			}
			entries, err := b.audit.ListByUser(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), entries)
		},
	}
	history.Flags().IntVar(&limit, "limit", 20, "maximum number of entries")

	var olderThan time.Duration
	purge := &cobra.Command{
		Use:   "purge",
		Short: "Delete entries older than --older-than",
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return errors.New("--older-than must be positive")
			}
			b, err := opts.openBackend(cmd.Context())
			if err != nil {
				return err
			}
			defer b.Close()
			if b.audit == nil {
				return errAuditDisabled
			}
			n, err := b.audit.Purge(cmd.Context(), time.Now().Add(-olderThan))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "purged %d entries\n", n)
			return nil
		},
	}
	purge.Flags().DurationVar(&olderThan, "older-than", 90*24*time.Hour, "retention window")

	var outFile string
	export := &cobra.Command{
		Use:   "export",
		Short: "Write every entry as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := opts.openBackend(cmd.Context())
			if err != nil {
				return err
			}
			defer b.Close()
			if b.audit == nil {
				return errAuditDisabled
			}
			if outFile == "" {
				return b.audit.ExportJSON(cmd.Context(), cmd.OutOrStdout())
			}
			f, err := os.Create(outFile)
			if err != nil {
				return err
			}
			defer f.Close()
			return b.audit.ExportJSON(cmd.Context(), f)
		},
	}
	export.Flags().StringVarP(&outFile, "output", "o", "", "write to a file instead of stdout")

	cmd.AddCommand(history, purge, export)
	return cmd
}
