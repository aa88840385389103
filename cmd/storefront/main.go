package main

import (
	"fmt"
	"os"

	"storefront/internal/config"
	"storefront/internal/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	Version = "0.1.0"
	appName = "storefront"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Online storefront",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(serveCmd(), migrateCmd(), adminCmd())

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s\n", appName, Version)
		},
	})

	return cmd
}

// setup loads configuration and builds the logger every command shares
func setup() (*config.Config, *zap.Logger, error) {
	cfg := config.Load()

	log, err := logger.New(cfg.Server.Env)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, log, nil
}
