// Package main is the entry point for the Digital Galaxy admin CLI.
// This tool provides administrative commands for managing accounts and secrets.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
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
		Use:           "galaxy-admin",
		Short:         "Digital Galaxy administration",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the configuration file")

	rootCmd.AddCommand(userCmd())
	rootCmd.AddCommand(secretCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Digital Galaxy Admin CLI")
			fmt.Fprintf(out, "Version: %s\n", Version)
			fmt.Fprintf(out, "Build Time: %s\n", BuildTime)
			fmt.Fprintf(out, "Git Commit: %s\n", GitCommit)
		},
	}
}

// openStore loads configuration and opens the configured database.
// The returned store must be closed by the caller.
func openStore(ctx context.Context) (*config.Config, *repository.Store, zerolog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, zerolog.Nop(), err
	}

	// Progress goes to stderr so command output stays parseable.
	cfg.Logging.Output = "stderr"
	logger, _, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, nil, zerolog.Nop(), err
	}

	store, err := repository.NewFactory(cfg.Database, logger).Open(ctx)
	if err != nil {
		return nil, nil, zerolog.Nop(), fmt.Errorf("failed to open database: %w", err)
	}
	return cfg, store, logger, nil
}
