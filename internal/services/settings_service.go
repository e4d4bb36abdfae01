package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"taskly/internal/dto"
	"taskly/internal/entities"
	"taskly/internal/repositories"
	"taskly/pkg/config"
	"taskly/pkg/constants"
)

// SettingsProvider - источник настроек каналов доставки.
type SettingsProvider interface {
	Get(ctx context.Context) (*entities.SystemSettings, error)
}

type SettingsServiceInterface interface {
	SettingsProvider
	Seed(ctx context.Context) error
	Public(ctx context.Context) (*dto.SettingsResponseDTO, error)
	Update(ctx context.Context, payload dto.UpdateSettingsDTO) (*dto.SettingsResponseDTO, error)
}

type SettingsService struct {
	repo   repositories.SettingsRepositoryInterface
	cache  repositories.CacheRepositoryInterface
	cfg    *config.Config
	logger *zap.Logger
}

func NewSettingsService(
	repo repositories.SettingsRepositoryInterface,
	cache repositories.CacheRepositoryInterface,
	cfg *config.Config,
	logger *zap.Logger,
) SettingsServiceInterface {
	return &SettingsService{repo: repo, cache: cache, cfg: cfg, logger: logger}
}

// Get читает настройки из Redis, при промахе - из БД. Недоступность кеша не является ошибкой.
func (s *SettingsService) Get(ctx context.Context) (*entities.SystemSettings, error) {
	raw, err := s.cache.Get(ctx, constants.CacheKeySystemSettings)
	if err == nil {
		var cached entities.SystemSettings
		if jsonErr := json.Unmarshal([]byte(raw), &cached); jsonErr == nil {
			return &cached, nil
		}
		s.logger.Warn("Поврежденные настройки в кеше, читаем из БД")
	} else if !errors.Is(err, repositories.ErrCacheMiss) {
		s.logger.Warn("Кеш настроек недоступен", zap.Error(err))
	}

	settings, err := s.repo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("не удалось загрузить system_settings: %w", err)
	}

	if data, err := json.Marshal(settings); err == nil {
		if err := s.cache.Set(ctx, constants.CacheKeySystemSettings, data, s.cfg.Notifications.SettingsTTL); err != nil {
			s.logger.Warn("Не удалось закешировать настройки", zap.Error(err))
		}
	}
	return settings, nil
}

// Seed создает строку настроек из переменных окружения при первом запуске.
func (s *SettingsService) Seed(ctx context.Context) error {
	seed := entities.SystemSettings{
		AppName:             "Taskly",
		TelegramEnabled:     s.cfg.Telegram.BootstrapEnabled,
		TelegramBotToken:    s.cfg.Telegram.BootstrapToken,
		TelegramBotUsername: s.cfg.Telegram.BootstrapBotName,
		PushEnabled:         s.cfg.Push.BootstrapEnabled,
		VapidPublicKey:      s.cfg.Push.BootstrapPublicKey,
		VapidPrivateKey:     s.cfg.Push.BootstrapPrivateKey,
	}
	if err := s.repo.Seed(ctx, seed); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *SettingsService) Public(ctx context.Context) (*dto.SettingsResponseDTO, error) {
	settings, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	return toSettingsResponse(settings), nil
}

func (s *SettingsService) Update(ctx context.Context, payload dto.UpdateSettingsDTO) (*dto.SettingsResponseDTO, error) {
	current, err := s.repo.Get(ctx)
	if err != nil {
		return nil, err
	}

	next := *current
	if payload.AppName != nil {
		next.AppName = *payload.AppName
	}
	if payload.TelegramEnabled != nil {
		next.TelegramEnabled = *payload.TelegramEnabled
	}
	if payload.TelegramBotToken != nil {
		next.TelegramBotToken = *payload.TelegramBotToken
	}
	if payload.TelegramBotUsername != nil {
		next.TelegramBotUsername = *payload.TelegramBotUsername
	}
	if payload.PushEnabled != nil {
		next.PushEnabled = *payload.PushEnabled
	}
	if payload.VapidPublicKey != nil {
		next.VapidPublicKey = *payload.VapidPublicKey
	}
	if payload.VapidPrivateKey != nil {
		next.VapidPrivateKey = *payload.VapidPrivateKey
	}

	updated, err := s.repo.Update(ctx, next)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)

	s.logger.Info("Настройки каналов доставки обновлены",
		zap.Bool("telegramEnabled", updated.TelegramEnabled),
		zap.Bool("pushEnabled", updated.PushEnabled))
	return toSettingsResponse(updated), nil
}

func (s *SettingsService) invalidate(ctx context.Context) {
	if err := s.cache.Del(ctx, constants.CacheKeySystemSettings); err != nil {
		s.logger.Warn("Не удалось сбросить кеш настроек", zap.Error(err))
	}
}

func toSettingsResponse(s *entities.SystemSettings) *dto.SettingsResponseDTO {
	return &dto.SettingsResponseDTO{
		AppName:             s.AppName,
		TelegramEnabled:     s.TelegramEnabled,
		TelegramConfigured:  s.TelegramBotToken != "" && s.TelegramBotUsername != "",
		TelegramBotUsername: s.TelegramBotUsername,
		PushEnabled:         s.PushEnabled,
		PushConfigured:      s.VapidPublicKey != "" && s.VapidPrivateKey != "",
		VapidPublicKey:      s.VapidPublicKey,
	}
}
