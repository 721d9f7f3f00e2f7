package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/prn-tf/digital-galaxy/internal/domain"
	"github.com/prn-tf/digital-galaxy/internal/pkg/crypto"
	"github.com/prn-tf/digital-galaxy/internal/repository"
	"github.com/prn-tf/digital-galaxy/internal/service"
)

const generatedPasswordLength = 20

func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}

	cmd.AddCommand(createAdminCmd())
	cmd.AddCommand(listUsersCmd())
	cmd.AddCommand(setBlockedCmd("block", true))
	cmd.AddCommand(setBlockedCmd("unblock", false))

	return cmd
}

func createAdminCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account",
		Long: `Create an administrator account.

When --password is omitted a random password is generated and printed once.

Examples:
  galaxy-admin user create-admin --email admin@example.com
  galaxy-admin user create-admin --email admin@example.com --password 's3cret-pass'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, store, logger, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Database.Close()

			generated := password == ""
			if generated {
				if password, err = crypto.GeneratePassword(generatedPasswordLength); err != nil {
					return err
				}
			}

			users := service.NewUserService(store.Repos.User, nil, cfg.Auth.BcryptCost, logger)
			user, err := users.CreateAdmin(ctx, email, password)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Created admin %s (%s)\n", user.Email, user.ID)
			if generated {
				fmt.Fprintf(out, "Password: %s\n", password)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "email address of the new administrator")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (generated when empty)")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func listUsersCmd() *cobra.Command {
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List user accounts, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_, store, _, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Database.Close()

			result, err := store.Repos.User.List(ctx, repository.ListOptions{
				Limit:      limit,
				Offset:     offset,
				Descending: true,
			})
			if err != nil {
				return err
			}

			printUsers(cmd.OutOrStdout(), result)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", service.DefaultPageSize, "maximum number of users")
	cmd.Flags().IntVar(&offset, "offset", 0, "number of users to skip")

	return cmd
}

func printUsers(w io.Writer, result *repository.ListResult[domain.User]) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tEMAIL\tADMIN\tBLOCKED\tCREATED")
	for _, u := range result.Items {
		fmt.Fprintf(tw, "%s\t%s\t%t\t%t\t%s\n", u.ID, u.Email, u.IsAdmin, u.IsBlocked, u.CreatedAt.Format(time.RFC3339))
	}
	tw.Flush()
	fmt.Fprintf(w, "%d of %d users\n", len(result.Items), result.Total)
}

func setBlockedCmd(use string, blocked bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <user-id|email>",
		Short: strings.ToUpper(use[:1]) + use[1:] + " a user account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_, store, _, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Database.Close()

			user, err := findUser(ctx, store.Repos.User, args[0])
			if err != nil {
				return err
			}
			if err := store.Repos.User.SetBlocked(ctx, user.ID, blocked); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "User %s blocked=%t\n", user.Email, blocked)
			return nil
		},
	}
}

// findUser accepts either a user id or an email address.
func findUser(ctx context.Context, users repository.UserRepository, ref string) (*domain.User, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return users.GetByID(ctx, id)
	}
	return users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(ref)))
}
