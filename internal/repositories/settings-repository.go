package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"taskly/internal/entities"
	apperrors "taskly/pkg/errors"
)

const settingsFields = "app_name, telegram_enabled, telegram_bot_token, telegram_bot_username, push_enabled, vapid_public_key, vapid_private_key, updated_at"

type SettingsRepositoryInterface interface {
	Get(ctx context.Context) (*entities.SystemSettings, error)
	// Seed создает строку настроек, если ее еще нет. Существующие значения не трогает.
	Seed(ctx context.Context, s entities.SystemSettings) error
	Update(ctx context.Context, s entities.SystemSettings) (*entities.SystemSettings, error)
}

type settingsRepository struct {
	storage *pgxpool.Pool
}

func NewSettingsRepository(storage *pgxpool.Pool) SettingsRepositoryInterface {
	return &settingsRepository{storage: storage}
}

func scanSettings(row pgx.Row) (*entities.SystemSettings, error) {
	var s entities.SystemSettings
	err := row.Scan(
		&s.AppName, &s.TelegramEnabled, &s.TelegramBotToken, &s.TelegramBotUsername,
		&s.PushEnabled, &s.VapidPublicKey, &s.VapidPrivateKey, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка сканирования system_settings: %w", err)
	}
	return &s, nil
}

func (r *settingsRepository) Get(ctx context.Context) (*entities.SystemSettings, error) {
	return scanSettings(r.storage.QueryRow(ctx, "SELECT "+settingsFields+" FROM system_settings WHERE id = 1"))
}

func (r *settingsRepository) Seed(ctx context.Context, s entities.SystemSettings) error {
	query, args, err := psql.Insert("system_settings").
		Columns("id", "app_name", "telegram_enabled", "telegram_bot_token", "telegram_bot_username",
			"push_enabled", "vapid_public_key", "vapid_private_key").
		Values(1, s.AppName, s.TelegramEnabled, s.TelegramBotToken, s.TelegramBotUsername,
			s.PushEnabled, s.VapidPublicKey, s.VapidPrivateKey).
		Suffix("ON CONFLICT (id) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("ошибка сборки SQL для Seed: %w", err)
	}
	if _, err := r.storage.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("ошибка заполнения system_settings: %w", err)
	}
	return nil
}

func (r *settingsRepository) Update(ctx context.Context, s entities.SystemSettings) (*entities.SystemSettings, error) {
	query, args, err := psql.Update("system_settings").
		SetMap(map[string]interface{}{
			"app_name":              s.AppName,
			"telegram_enabled":      s.TelegramEnabled,
			"telegram_bot_token":    s.TelegramBotToken,
			"telegram_bot_username": s.TelegramBotUsername,
			"push_enabled":          s.PushEnabled,
			"vapid_public_key":      s.VapidPublicKey,
			"vapid_private_key":     s.VapidPrivateKey,
		}).
		Set("updated_at", psqlNow).
		Where("id = 1").
		Suffix("RETURNING " + settingsFields).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка сборки SQL для Update: %w", err)
	}
	return scanSettings(r.storage.QueryRow(ctx, query, args...))
}
