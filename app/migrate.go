package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"taskly/pkg/config"
	"taskly/pkg/database/migrations"
	"taskly/pkg/database/postgresql"
	applogger "taskly/pkg/logger"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Управление миграциями БД",
	}

	cmd.AddCommand(newMigrateStepCmd("up", "Применить все новые миграции", migrations.Up))
	cmd.AddCommand(newMigrateStepCmd("down", "Откатить последнюю миграцию", migrations.Down))
	cmd.AddCommand(newMigrateStepCmd("status", "Показать состояние миграций", migrations.Status))
	return cmd
}

func newMigrateStepCmd(use, short string, step func(ctx context.Context, pool *pgxpool.Pool) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			// Redis для миграций не нужен, подключаемся только к PostgreSQL.
			logger := applogger.NewLogger()
			defer logger.Sync()
			cfg := config.New()

			pool, err := postgresql.Connect(ctx, cfg.Postgres.DSN, logger)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := step(ctx, pool); err != nil {
				return fmt.Errorf("migrate %s: %w", use, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrate %s: готово\n", use)
			return nil
		},
	}
}
