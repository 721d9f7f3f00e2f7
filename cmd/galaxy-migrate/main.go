// Package main is the entry point for the Digital Galaxy database migration tool.
// This tool applies the embedded PostgreSQL or SQLite schema migrations.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/prn-tf/digital-galaxy/internal/config"
	"github.com/prn-tf/digital-galaxy/internal/logging"
	"github.com/prn-tf/digital-galaxy/internal/repository"
	_ "github.com/prn-tf/digital-galaxy/internal/repository/postgres"
	_ "github.com/prn-tf/digital-galaxy/internal/repository/sqlite"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   "galaxy-migrate",
		Short: "Digital Galaxy schema migrations",
		Long: `Digital Galaxy schema migrations.

The database is selected by the database section of the configuration file
or the GALAXY_DATABASE_* environment variables.

Examples:
  galaxy-migrate up
  galaxy-migrate status --config /etc/galaxy/config.yaml`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the configuration file")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(ctx context.Context, store *repository.Store) error {
				if err := store.Migrate(ctx); err != nil {
					return err
				}
				version, err := store.Version(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Schema is at version %d\n", version)
				return nil
			})
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the applied schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(ctx context.Context, store *repository.Store) error {
				version, err := store.Version(ctx)
				if err != nil {
					return fmt.Errorf("%w (run \"galaxy-migrate up\" to initialize the schema)", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Schema is at version %d\n", version)
				return nil
			})
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Digital Galaxy Migration Tool")
			fmt.Fprintf(out, "Version: %s\n", Version)
			fmt.Fprintf(out, "Build Time: %s\n", BuildTime)
			fmt.Fprintf(out, "Git Commit: %s\n", GitCommit)
		},
	})

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// withStore opens the configured database without applying migrations and runs fn.
func withStore(ctx context.Context, fn func(ctx context.Context, store *repository.Store) error) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	cfg.Logging.Output = "stderr"
	logger, _, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}

	dbCfg := cfg.Database
	dbCfg.AutoMigrate = false

	store, err := repository.NewFactory(dbCfg, logger).Open(ctx)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Database.Close()

	return fn(ctx, store)
}
