package services

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"taskly/internal/repositories"
	"taskly/pkg/config"
	apperrors "taskly/pkg/errors"
	"taskly/pkg/webpush"
)

type PushServiceInterface interface {
	Subscribe(ctx context.Context, userID uint64, subscription json.RawMessage) error
	Unsubscribe(ctx context.Context, userID uint64, endpoint string) error
	VapidPublicKey(ctx context.Context) (string, error)
	// SendToUser рассылает сообщение на подписки пользователя и возвращает число успешных доставок.
	// Отключенный push или отсутствие ключей - не ошибка, а пропуск.
	SendToUser(ctx context.Context, userID uint64, msg webpush.Message) (int, error)
}

type PushService struct {
	repo     repositories.PushSubscriptionRepositoryInterface
	settings SettingsProvider
	sender   webpush.Sender
	cfg      *config.Config
	logger   *zap.Logger
}

func NewPushService(
	repo repositories.PushSubscriptionRepositoryInterface,
	settings SettingsProvider,
	sender webpush.Sender,
	cfg *config.Config,
	logger *zap.Logger,
) PushServiceInterface {
	return &PushService{repo: repo, settings: settings, sender: sender, cfg: cfg, logger: logger}
}

type subscriptionEndpoint struct {
	Endpoint string `json:"endpoint"`
}

func (s *PushService) Subscribe(ctx context.Context, userID uint64, subscription json.RawMessage) error {
	var sub subscriptionEndpoint
	if err := json.Unmarshal(subscription, &sub); err != nil || strings.TrimSpace(sub.Endpoint) == "" {
		return apperrors.NewInvalidInputError("подписка должна содержать endpoint")
	}

	if _, err := s.repo.Upsert(ctx, userID, sub.Endpoint, subscription); err != nil {
		return err
	}
	s.logger.Info("Push-подписка сохранена", zap.Uint64("userID", userID))
	return nil
}

func (s *PushService) Unsubscribe(ctx context.Context, userID uint64, endpoint string) error {
	if strings.TrimSpace(endpoint) == "" {
		return apperrors.NewInvalidInputError("endpoint не может быть пустым")
	}
	return s.repo.DeleteByEndpoint(ctx, userID, endpoint)
}

func (s *PushService) VapidPublicKey(ctx context.Context) (string, error) {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return "", err
	}
	if settings.VapidPublicKey == "" {
		return "", apperrors.ErrPushNotConfigured
	}
	return settings.VapidPublicKey, nil
}

func (s *PushService) SendToUser(ctx context.Context, userID uint64, msg webpush.Message) (int, error) {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return 0, err
	}
	if !settings.PushReady() {
		s.logger.Debug("Push пропущен: отключен или нет VAPID-ключей", zap.Uint64("userID", userID))
		return 0, nil
	}

	subs, err := s.repo.ListByUser(ctx, userID, s.cfg.Notifications.PushPageSize)
	if err != nil {
		return 0, err
	}
	if len(subs) == 0 {
		return 0, nil
	}

	if msg.URL == "" {
		msg.URL = "/"
	}
	if msg.Icon == "" {
		msg.Icon = s.cfg.Push.Icon
	}
	if msg.Badge == "" {
		msg.Badge = s.cfg.Push.Badge
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return 0, err
	}

	keys := webpush.VAPIDKeys{
		PublicKey:  settings.VapidPublicKey,
		PrivateKey: settings.VapidPrivateKey,
		Subject:    s.cfg.Push.Subject,
	}

	delivered := 0
	for _, sub := range subs {
		err := s.sender.Send(ctx, sub.Subscription, payload, keys)
		switch {
		case err == nil:
			delivered++
		case webpush.IsGone(err):
			if delErr := s.repo.DeleteByID(ctx, sub.ID); delErr != nil {
				s.logger.Error("Не удалось удалить устаревшую подписку", zap.Uint64("subscriptionID", sub.ID), zap.Error(delErr))
				continue
			}
			s.logger.Info("Устаревшая push-подписка удалена", zap.Uint64("userID", userID), zap.Uint64("subscriptionID", sub.ID))
		default:
			s.logger.Error("Ошибка отправки push-уведомления", zap.Uint64("userID", userID), zap.Uint64("subscriptionID", sub.ID), zap.Error(err))
		}
	}
	return delivered, nil
}
