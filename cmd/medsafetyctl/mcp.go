package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pharmassist-medsafety/internal/setup"
)

func newMCPCmd(opts *rootOptions) *cobra.Command {
	var clientConfig string

	resolve := func() (string, error) {
		if clientConfig != "" {
			return clientConfig, nil
		}
		return setup.DefaultClientConfigPath()
	}

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Register mcp-server-lite with a desktop MCP client",
	}
	cmd.PersistentFlags().StringVar(&clientConfig, "client-config", "", "client config file (default: the desktop client location for this OS)")

	var binary, dataDir string
	register := &cobra.Command{
		Use:   "register",
		Short: "Add or update the server entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolve()
			if err != nil {
				return err
			}
			written, err := setup.Register(setup.Options{
				ConfigPath: path,
				BinaryPath: binary,
				DataDir:    dataDir,
			})
			if err != nil {
				return err
			}
			opts.logger.WithField("path", written).Info("Registered MCP server")
			fmt.Fprintf(cmd.OutOrStdout(), "registered %s in %s\n", setup.ServerName, written)
			return nil
		},
	}
	register.Flags().StringVar(&binary, "binary", "", "path to mcp-server-lite (default: PATH lookup)")
	register.Flags().StringVar(&dataDir, "data-dir", "", "MEDSAFETY_DATA_DIR passed to the server")

	unregister := &cobra.Command{
		Use:   "unregister",
		Short: "Remove the server entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolve()
			if err != nil {
				return err
			}
			removed, err := setup.Unregister(path)
			if err != nil {
				return err
			}
			if !removed {
				fmt.Fprintln(cmd.OutOrStdout(), "not registered")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s from %s\n", setup.ServerName, path)
			return nil
		},
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show the current registration",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolve()
			if err != nil {
				return err
			}
			st, err := setup.GetStatus(path)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "config:     %s\n", st.ConfigPath)
			fmt.Fprintf(out, "registered: %t\n", st.Registered)
			if st.Registered {
				fmt.Fprintf(out, "command:    %s\n", st.Command)
				fmt.Fprintf(out, "data dir:   %s\n", st.DataDir)
			}
			for _, issue := range st.Issues {
				fmt.Fprintf(out, "issue:      %s\n", issue)
			}
			return nil
		},
	}

	cmd.AddCommand(register, unregister, status)
	return cmd
}
