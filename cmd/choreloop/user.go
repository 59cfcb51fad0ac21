package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dukerupert/choreloop/internal/account"
	"github.com/dukerupert/choreloop/internal/database"
	"github.com/dukerupert/choreloop/internal/store"
)

func userCmd(load configLoader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts",
	}
	cmd.AddCommand(userCreateCmd(load))
	return cmd
}

func userCreateCmd(load configLoader) *cobra.Command {
	var reg account.Registration
	var birthdate string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an account",
		Example: `  choreloop user create --email alex@example.com --password secret1 --name Alex
  choreloop user create --email jo@example.com --password secret1 --name Jo --birthdate 1990-04-01`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}

			db, err := database.Open(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			if birthdate != "" {
				reg.Birthdate = &birthdate
			}

			u, err := account.NewService(store.NewUserStore(db)).Register(reg)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), u.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&reg.Email, "email", "", "account email (required)")
	cmd.Flags().StringVar(&reg.Password, "password", "", "account password (required)")
	cmd.Flags().StringVar(&reg.DisplayName, "name", "", "display name (required)")
	cmd.Flags().StringVar(&birthdate, "birthdate", "", "birthdate as YYYY-MM-DD")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("password")
	cmd.MarkFlagRequired("name")

	return cmd
}
