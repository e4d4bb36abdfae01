// Файл: internal/services/notification_service.go
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aarondl/null/v8"
	"go.uber.org/zap"

	"taskly/internal/dto"
	"taskly/internal/entities"
	"taskly/internal/repositories"
	"taskly/pkg/config"
	"taskly/pkg/constants"
	apperrors "taskly/pkg/errors"
	"taskly/pkg/telegram"
	"taskly/pkg/types"
	"taskly/pkg/utils"
	"taskly/pkg/webpush"
	"taskly/pkg/websocket"
)

// UserEmitter - адресная отправка событий в открытые соединения пользователя.
type UserEmitter interface {
	EmitToUser(userID uint64, event string, payload interface{}) error
}

// TelegramClientFactory создает клиента Bot API для текущего токена из настроек.
type TelegramClientFactory func(botToken string) telegram.ServiceInterface

func DefaultTelegramClientFactory(botToken string) telegram.ServiceInterface {
	return telegram.NewService(botToken)
}

type NotificationServiceInterface interface {
	// Notify сохраняет уведомление и запускает доставку по каналам.
	// Ошибку возвращает только некорректный запрос.
	Notify(ctx context.Context, req dto.NotificationRequest) (*entities.Notification, error)
	NotifyMany(ctx context.Context, recipients []uint64, actorID uint64, tpl dto.NotificationTemplate) (int, error)
	// Wait дожидается завершения всех начатых доставок.
	Wait()

	ListForUser(ctx context.Context, userID uint64, limit, page uint64) (*dto.NotificationListDTO, error)
	CountUnread(ctx context.Context, userID uint64) (uint64, error)
	MarkRead(ctx context.Context, id, userID uint64) error
	MarkAllRead(ctx context.Context, userID uint64) (int64, error)
	Delete(ctx context.Context, id uint64) error
}

type NotificationService struct {
	repo        repositories.NotificationRepositoryInterface
	userRepo    repositories.UserRepositoryInterface
	settings    SettingsProvider
	emitter     UserEmitter
	push        PushServiceInterface
	newTelegram TelegramClientFactory
	timeout     time.Duration
	logger      *zap.Logger

	wg sync.WaitGroup
}

func NewNotificationService(
	repo repositories.NotificationRepositoryInterface,
	userRepo repositories.UserRepositoryInterface,
	settings SettingsProvider,
	emitter UserEmitter,
	push PushServiceInterface,
	newTelegram TelegramClientFactory,
	cfg config.NotificationConfig,
	logger *zap.Logger,
) *NotificationService {
	if newTelegram == nil {
		newTelegram = DefaultTelegramClientFactory
	}
	timeout := cfg.DeliveryTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &NotificationService{
		repo:        repo,
		userRepo:    userRepo,
		settings:    settings,
		emitter:     emitter,
		push:        push,
		newTelegram: newTelegram,
		timeout:     timeout,
		logger:      logger,
	}
}

func validateNotificationRequest(req dto.NotificationRequest) error {
	if req.RecipientID == 0 {
		return apperrors.NewInvalidInputError("не указан получатель уведомления")
	}
	if !req.Type.Valid() {
		return apperrors.NewInvalidInputError("неизвестный тип уведомления: %q", req.Type)
	}
	if strings.TrimSpace(req.Title) == "" {
		return apperrors.NewInvalidInputError("заголовок уведомления не может быть пустым")
	}
	if strings.TrimSpace(req.Message) == "" {
		return apperrors.NewInvalidInputError("текст уведомления не может быть пустым")
	}
	return nil
}

func (s *NotificationService) Notify(ctx context.Context, req dto.NotificationRequest) (*entities.Notification, error) {
	if err := validateNotificationRequest(req); err != nil {
		return nil, err
	}

	n := &entities.Notification{
		RecipientID: req.RecipientID,
		Type:        req.Type.String(),
		Title:       req.Title,
		Message:     req.Message,
	}
	if req.Link != "" {
		n.Link = null.StringFrom(req.Link)
	}
	if len(req.Metadata) > 0 {
		raw, err := json.Marshal(req.Metadata)
		if err != nil {
			return nil, apperrors.NewInvalidInputError("metadata не сериализуется в JSON: %v", err)
		}
		n.Metadata = null.JSONFrom(raw)
	}

	// Сохранение в БД не блокирует остальные каналы.
	saved, err := s.repo.Create(ctx, n)
	if err != nil {
		s.logger.Error("Не удалось сохранить уведомление",
			zap.Uint64("recipientID", req.RecipientID),
			zap.String("type", n.Type),
			zap.Error(err))
	} else {
		n = saved
	}

	s.deliver("socket", n.RecipientID, func(ctx context.Context) error {
		return s.emitter.EmitToUser(n.RecipientID, websocket.EventNotification, websocket.NotificationPayload{
			ID:      n.ID,
			Type:    n.Type,
			Title:   n.Title,
			Message: n.Message,
			Link:    n.Link.String,
		})
	})
	s.deliver("telegram", n.RecipientID, func(ctx context.Context) error {
		return s.sendTelegram(ctx, n)
	})
	s.deliver("push", n.RecipientID, func(ctx context.Context) error {
		_, err := s.push.SendToUser(ctx, n.RecipientID, webpush.Message{
			Title: n.Title,
			Body:  n.Message,
			URL:   n.Link.String,
		})
		return err
	})

	return n, nil
}

// deliver запускает доставку по каналу в отдельной горутине со своим таймаутом.
func (s *NotificationService) deliver(channel string, recipientID uint64, fn func(ctx context.Context) error) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("Паника при доставке уведомления", zap.String("channel", channel), zap.Any("panic", r))
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		if err := fn(ctx); err != nil {
			s.logger.Error("Ошибка доставки уведомления",
				zap.String("channel", channel),
				zap.Uint64("recipientID", recipientID),
				zap.Error(err))
		}
	}()
}

func (s *NotificationService) sendTelegram(ctx context.Context, n *entities.Notification) error {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return err
	}
	if !settings.TelegramReady() {
		s.logger.Debug("Telegram пропущен: бот отключен или не настроен", zap.Uint64("recipientID", n.RecipientID))
		return nil
	}

	user, err := s.userRepo.FindUserByID(ctx, n.RecipientID)
	if errors.Is(err, apperrors.ErrNotFound) {
		s.logger.Debug("Telegram пропущен: получатель не найден", zap.Uint64("recipientID", n.RecipientID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("ошибка поиска получателя: %w", err)
	}
	if !user.TelegramLinked() {
		s.logger.Debug("Telegram пропущен: аккаунт не привязан", zap.Uint64("recipientID", n.RecipientID))
		return nil
	}

	text := fmt.Sprintf("<b>%s</b>\n%s", telegram.EscapeHTML(n.Title), telegram.EscapeHTML(n.Message))
	return s.newTelegram(settings.TelegramBotToken).SendMessage(ctx, user.TelegramChatID.Int64, text)
}

// NotifyMany рассылает одно уведомление нескольким получателям: без повторов,
// без автора действия, с сокращенным текстом. Возвращает число отправленных.
func (s *NotificationService) NotifyMany(ctx context.Context, recipients []uint64, actorID uint64, tpl dto.NotificationTemplate) (int, error) {
	message := truncateRunes(tpl.Message, constants.NotificationPreviewRunes)

	seen := make(map[uint64]struct{}, len(recipients))
	sent := 0
	for _, id := range recipients {
		if id == 0 || id == actorID {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		_, err := s.Notify(ctx, dto.NotificationRequest{
			RecipientID: id,
			Type:        tpl.Type,
			Title:       tpl.Title,
			Message:     message,
			Link:        tpl.Link,
			Metadata:    tpl.Metadata,
		})
		if err != nil {
			return sent, err
		}
		sent++
	}
	return sent, nil
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}

func (s *NotificationService) Wait() {
	s.wg.Wait()
}

func (s *NotificationService) ListForUser(ctx context.Context, userID uint64, limit, page uint64) (*dto.NotificationListDTO, error) {
	if limit == 0 {
		limit = utils.DefaultLimit
	}
	if page == 0 {
		page = 1
	}
	page = min(page, utils.MaxPage(limit))
	items, total, err := s.repo.ListForUser(ctx, userID, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}

	res := &dto.NotificationListDTO{
		Items:      make([]dto.NotificationResponseDTO, 0, len(items)),
		Pagination: types.NewPagination(total, page, limit),
	}
	for i := range items {
		res.Items = append(res.Items, dto.NotificationToResponse(&items[i]))
	}
	return res, nil
}

func (s *NotificationService) CountUnread(ctx context.Context, userID uint64) (uint64, error) {
	return s.repo.CountUnread(ctx, userID)
}

func (s *NotificationService) MarkRead(ctx context.Context, id, userID uint64) error {
	return s.repo.MarkRead(ctx, id, userID)
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint64) (int64, error) {
	return s.repo.MarkAllRead(ctx, userID)
}

func (s *NotificationService) Delete(ctx context.Context, id uint64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Уведомление удалено", zap.Uint64("notificationID", id))
	return nil
}
