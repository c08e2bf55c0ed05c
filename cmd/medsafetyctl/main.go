// Package main is the medsafetyctl operator CLI: schema migrations, fixture
// seeding, ad-hoc evaluations, token issuing and audit maintenance against
// either the Postgres deployment or the lite SQLite data directory.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pharmassist-medsafety/internal/config"
	"github.com/pharmassist-medsafety/internal/domain"
)

// version is set at build time via ldflags.
var version = "dev"

type rootOptions struct {
	configFile string
	lite       bool
	logLevel   string

	out    io.Writer
	logger *logrus.Logger
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &rootOptions{out: out}

	root := &cobra.Command{
		Use:           "medsafetyctl",
		Short:         "Operate the PharmAssist medication safety engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		Long: `medsafetyctl manages the stores behind the medication safety engine.

By default it reads config.yaml and MEDSAFETY_* variables and talks to
Postgres. With --lite it works on the SQLite files of the standalone
binaries under MEDSAFETY_DATA_DIR instead.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("loading .env: %w", err)
			}
			opts.logger = config.NewLogger(domain.LoggingConfig{Level: opts.logLevel, Format: "text", Output: "stderr"})
			return nil
		},
	}
	root.SetOut(out)

	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file (default: ./config.yaml, ./config/config.yaml or /etc/medsafety/config.yaml)")
	root.PersistentFlags().BoolVar(&opts.lite, "lite", false, "use the lite SQLite data directory instead of Postgres")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn, error")

	root.AddCommand(
		newMigrateCmd(opts),
		newSeedCmd(opts),
		newEvaluateCmd(opts),
		newVocabularyCmd(opts),
		newTokenCmd(opts),
		newAuditCmd(opts),
		newMCPCmd(opts),
		newVersionCmd(opts),
	)
	return root
}

func newVersionCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version of medsafetyctl",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(opts.out, "medsafetyctl %s\n", version)
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
