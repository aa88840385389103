package main

import (
	"storefront/internal/database"

	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer log.Sync()

			dbService, err := database.New(cfg.Database)
			if err != nil {
				return err
			}
			defer dbService.Close()

			return database.RunMigrations(dbService.DB(), cfg.Migrations.Dir, log)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer log.Sync()

			dbService, err := database.New(cfg.Database)
			if err != nil {
				return err
			}
			defer dbService.Close()

			return database.GetMigrationStatus(dbService.DB(), cfg.Migrations.Dir)
		},
	})

	return cmd
}
