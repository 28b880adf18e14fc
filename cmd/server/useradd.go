package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/keyxmakerx/radio/internal/database"
	"github.com/keyxmakerx/radio/internal/plugins/auth"
)

func useraddCmd() *cobra.Command {
	var admin bool

	cmd := &cobra.Command{
		Use:   "useradd USERNAME",
		Short: "Create a user; the password is read from RADIO_PASSWORD or stdin",
		Long: `Create a user account. The first account is always an administrator.

The password is taken from the RADIO_PASSWORD environment variable, or read
as the first line of standard input:

	echo 'correct horse battery staple' | radio useradd alice --admin`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			password, err := readPassword(cmd)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			db, err := database.NewMariaDB(ctx, cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			// Sessions are not created here, so no Redis client is needed.
			svc := auth.NewAuthService(auth.NewUserRepository(db), nil, cfg.Auth.SessionTTL)
			user, err := svc.CreateUser(ctx, auth.CreateUserInput{
				Username: args[0],
				Password: password,
				IsAdmin:  admin,
			})
			if err != nil {
				return err
			}

			role := "user"
			if user.IsAdmin {
				role = "administrator"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s %q (%s)\n", role, user.Username, user.ID)
			return nil
		},
	}

	cmd.Flags().BoolVar(&admin, "admin", false, "grant administrator rights")
	return cmd
}

func readPassword(cmd *cobra.Command) (string, error) {
	if pw := os.Getenv("RADIO_PASSWORD"); pw != "" {
		return pw, nil
	}
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
