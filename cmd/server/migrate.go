package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/keyxmakerx/radio/internal/database"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := database.NewMariaDB(cmd.Context(), cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()
			return database.RunMigrations(db)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := database.NewMariaDB(cmd.Context(), cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := database.RollbackMigration(db); err != nil {
				return err
			}
			slog.Info("rolled back one migration")
			return nil
		},
	})

	return cmd
}
