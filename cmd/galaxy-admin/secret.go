package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/prn-tf/digital-galaxy/internal/pkg/crypto"
)

func secretCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Generate secrets for configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "generate",
		Short: "Print a random value for auth.jwt_secret",
		Long: `Print a random value for auth.jwt_secret.

Example:
  export GALAXY_AUTH_JWT_SECRET=$(galaxy-admin secret generate)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, err := crypto.GenerateSigningSecret()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), secret)
			return nil
		},
	})

	return cmd
}
