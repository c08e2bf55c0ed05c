package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pharmassist-medsafety/internal/repository"
)

func newSeedCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <file.yaml>",
		Short: "Upsert users and catalog products from a YAML fixture",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := repository.LoadSeedFile(args[0])
			if err != nil {
				return err
			}

			b, err := opts.openBackend(cmd.Context())
			if err != nil {
				return err
			}
			defer b.Close()

			res, err := repository.Seed(cmd.Context(), b.seeder, data, opts.logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d users and %d products\n", res.Users, res.Products)
			return nil
		},
	}
}
