package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sakif/item-catalog/internal/apperror"
	"github.com/sakif/item-catalog/internal/auth"
	sqliteRepo "github.com/sakif/item-catalog/internal/repository/sqlite"
	"github.com/sakif/item-catalog/internal/service"
)

func newUserCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage local accounts",
	}
	cmd.AddCommand(newUserCreateCmd(a))
	return cmd
}

func newUserCreateCmd(a *app) *cobra.Command {
	var in service.RegistrationInput

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a local account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := ensureDir(a.cfg.DBPath); err != nil {
				return err
			}
			db, err := sqliteRepo.New(a.cfg.DBPath)
			if err != nil {
				return err
			}
			defer db.Close()

			// Register needs neither tokens nor a session store.
			svc := service.NewAuthService(db, nil, auth.NewPasswordService(), nil, service.NewValidator(), a.logger)

			user, err := svc.Register(context.Background(), in)
			if err != nil {
				if fields := apperror.FieldsOf(err); len(fields) > 0 {
					msgs := make([]string, 0, len(fields))
					for _, fe := range fields {
						msgs = append(msgs, fmt.Sprintf("  --%s: %s", fe.Field, fe.Message))
					}
					return fmt.Errorf("invalid user:\n%s", strings.Join(msgs, "\n"))
				}
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "created user %d (%s)\n", user.ID, *user.Username)
			return nil
		},
	}

	cmd.Flags().StringVar(&in.Username, "username", "", "login name")
	cmd.Flags().StringVar(&in.Name, "name", "", "display name")
	cmd.Flags().StringVar(&in.Email, "email", "", "email address, used to link a Google account")
	cmd.Flags().StringVar(&in.Password, "password", "", "password (8 to 72 characters)")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
