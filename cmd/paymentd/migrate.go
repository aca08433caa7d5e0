package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/paysys/payment-integration/config"
	"github.com/paysys/payment-integration/internal/infrastructure/observability/zaplogger"
	"github.com/paysys/payment-integration/internal/infrastructure/persistence/gormstore"
	"github.com/paysys/payment-integration/internal/observability"
)

func migrateCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			logger := zaplogger.New(cfg.Service.Env,
				observability.F("service", cfg.Service.Name),
				observability.F("env", cfg.Service.Env),
			)

			db, err := gormstore.Open(cfg.Database)
			if err != nil {
				return err
			}

			runner := gormstore.NewMigrationRunner(db, logger)
			return runner.Run(context.Background(), gormstore.Migrations())
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file")
	return cmd
}
