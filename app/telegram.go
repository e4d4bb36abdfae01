package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"taskly/internal/routes"
	"taskly/pkg/config"
	apperrors "taskly/pkg/errors"
	"taskly/pkg/telegram"
)

func newTelegramCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "telegram",
		Short: "Обслуживание Telegram-бота",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "poll",
		Short: "Выполнить один раунд getUpdates и обработать /start",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			env, err := openEnvironment(ctx)
			if err != nil {
				return err
			}
			defer env.Close()

			res, err := env.runtime(nil, nil).TelegramLink.Poll(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "обработано: %d, отметка: %d, пропуск: %t\n", res.Processed, res.Watermark, res.Skipped)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set-webhook",
		Short: "Зарегистрировать вебхук по адресу SERVER_BASE_URL",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			env, err := openEnvironment(ctx)
			if err != nil {
				return err
			}
			defer env.Close()

			if err := registerWebhook(ctx, env.runtime(nil, nil), env.cfg); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "вебхук зарегистрирован")
			return nil
		},
	})
	return cmd
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func webhookURL(cfg *config.Config) string {
	return strings.TrimRight(cfg.Server.BaseURL, "/") + "/api/webhooks/telegram"
}

// registerWebhook берет токен бота из system_settings, а не из окружения.
func registerWebhook(ctx context.Context, rt *routes.Runtime, cfg *config.Config) error {
	settings, err := rt.Settings.Get(ctx)
	if err != nil {
		return err
	}
	if settings.TelegramBotToken == "" {
		return apperrors.ErrTelegramNotConfigured
	}
	return telegram.NewService(settings.TelegramBotToken).SetWebhook(ctx, webhookURL(cfg))
}
