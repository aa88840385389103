package main

import (
	"context"
	"fmt"

	"storefront/internal/database"
	"storefront/internal/repository"
	"storefront/internal/service"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func adminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Administrative tasks",
	}

	var username, email, password string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an account with the admin role",
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

			db := dbService.DB()
			users := service.NewUserService(
				repository.NewUserRepository(db),
				repository.NewSessionRepository(db),
				cfg.Session.Secret,
				cfg.Session.TTL(),
			)

			user, err := users.CreateAdmin(context.Background(), username, email, password)
			if err != nil {
				return fmt.Errorf("failed to create admin: %w", err)
			}

			log.Info("Admin created", zap.String("user_id", user.ID.String()), zap.String("username", user.Username))
			return nil
		},
	}

	create.Flags().StringVar(&username, "username", "", "Admin username")
	create.Flags().StringVar(&email, "email", "", "Admin email")
	create.Flags().StringVar(&password, "password", "", "Admin password")
	for _, name := range []string{"username", "email", "password"} {
		_ = create.MarkFlagRequired(name)
	}

	cmd.AddCommand(create)
	return cmd
}
