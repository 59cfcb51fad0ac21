package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dukerupert/choreloop/internal/archive"
	"github.com/dukerupert/choreloop/internal/database"
	"github.com/dukerupert/choreloop/internal/export"
	"github.com/dukerupert/choreloop/internal/logging"
	"github.com/dukerupert/choreloop/internal/store"
)

func cycleCmd(load configLoader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cycle",
		Short: "Manage chore cycles",
	}
	cmd.AddCommand(cycleStartCmd(load))
	return cmd
}

func cycleStartCmd(load configLoader) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Archive completed tasks and start a new cycle",
		Long: `Archive every completed task of the account into a history record and
return those tasks to the shared pool. Suitable for a weekly cron job.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

			db, err := database.Open(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			users := store.NewUserStore(db)
			u, err := users.GetByEmail(strings.ToLower(strings.TrimSpace(email)))
			if err != nil {
				return err
			}
			if u == nil {
				return fmt.Errorf("no account with email %s", email)
			}

			tasks := store.NewTaskStore(db)
			archiver := archive.New(tasks, store.NewHistoryStore(db), export.New(export.S3Config(cfg.Export)), logger.With("component", "archive"))

			rec, err := archiver.StartNewCycle(cmd.Context(), u.ID)
			if err != nil {
				return err
			}

			total := 0
			for _, p := range rec.PointsByOwner {
				total += p
			}
			fmt.Fprintf(cmd.OutOrStdout(), "archived %d tasks (%d points) into record %s\n", len(rec.TaskIDs), total, rec.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "user", "", "account email (required)")
	cmd.MarkFlagRequired("user")

	return cmd
}
